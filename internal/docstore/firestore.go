package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Compile-time check that FirestoreStore satisfies Store.
var _ Store = (*FirestoreStore)(nil)

// FirestoreStore stores documents in Cloud Firestore through the Firebase
// Admin SDK. Paths map one to one onto Firestore document paths.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore opens a Firestore client for projectID. credentialsFile is
// optional; application default credentials are used when it is empty.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) doc(path string) (*firestore.DocumentRef, error) {
	ref := s.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid document path %q", path)
	}
	return ref, nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string) (Snapshot, error) {
	ref, err := s.doc(path)
	if err != nil {
		return Snapshot{}, err
	}

	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Snapshot{Path: path}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	return toSnapshot(path, snap), nil
}

func (s *FirestoreStore) Set(ctx context.Context, path string, doc Document, merge bool) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}

	if merge {
		_, err = ref.Set(ctx, doc, firestore.MergeAll)
	} else {
		_, err = ref.Set(ctx, doc)
	}
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", path, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, path string, updates []Update) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}

	fsUpdates, err := toFirestoreUpdates(updates)
	if err != nil {
		return err
	}

	if _, err := ref.Update(ctx, fsUpdates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("failed to update document %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("failed to update document %s: %w", path, err)
	}
	return nil
}

func (s *FirestoreStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot), onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)

	ref, err := s.doc(path)
	if err != nil {
		cancel()
		if onError != nil {
			onError(err)
		}
		return func() {}
	}

	iter := ref.Snapshots(ctx)
	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			onChange(toSnapshot(path, snap))
		}
	}()

	return cancel
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func toSnapshot(path string, snap *firestore.DocumentSnapshot) Snapshot {
	if snap == nil || !snap.Exists() {
		return Snapshot{Path: path}
	}
	return Snapshot{Path: path, Exists: true, Data: CloneDocument(snap.Data())}
}

func toFirestoreUpdates(updates []Update) ([]firestore.Update, error) {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		parts, err := u.segments()
		if err != nil {
			return nil, err
		}

		value := u.Value
		switch v := u.Value.(type) {
		case deleteSentinel:
			value = firestore.Delete
		case ArrayUnionValue:
			value = firestore.ArrayUnion(v.Elems...)
		}
		out = append(out, firestore.Update{FieldPath: firestore.FieldPath(parts), Value: value})
	}
	if len(out) == 0 {
		return nil, errors.New("no updates")
	}
	return out, nil
}
