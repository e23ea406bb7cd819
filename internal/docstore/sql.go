package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"screentime/internal/database"
)

// Compile-time check that SQLStore satisfies Store.
var _ Store = (*SQLStore)(nil)

// ChangeFeed carries "document changed" notifications between processes that
// share one SQL database.
type ChangeFeed interface {
	Publish(ctx context.Context, path string) error
	// Listen calls fn for every published path until ctx is done.
	Listen(ctx context.Context, fn func(path string))
}

// SQLStore persists documents as JSON rows in the documents table.
type SQLStore struct {
	db     *database.DB
	hub    *watchHub
	feed   ChangeFeed
	cancel context.CancelFunc
}

// NewSQLStore creates a store on db. feed may be nil, in which case change
// notifications only reach subscribers in this process.
func NewSQLStore(db *database.DB, feed ChangeFeed) *SQLStore {
	s := &SQLStore{
		db:   db,
		hub:  newWatchHub(),
		feed: feed,
	}
	if feed != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go feed.Listen(ctx, s.hub.changed)
	}
	return s
}

func (s *SQLStore) Get(ctx context.Context, path string) (Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{Path: path}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get document %s: %w", path, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode document %s: %w", path, err)
	}
	return Snapshot{Path: path, Exists: true, Data: doc}, nil
}

func (s *SQLStore) Set(ctx context.Context, path string, doc Document, merge bool) error {
	err := s.withDocument(ctx, path, func(existing Document, found bool) (Document, error) {
		if merge && found {
			MergeInto(existing, doc)
			return existing, nil
		}
		if doc == nil {
			return Document{}, nil
		}
		return CloneDocument(doc), nil
	})
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", path, err)
	}
	s.notify(ctx, path)
	return nil
}

func (s *SQLStore) Update(ctx context.Context, path string, updates []Update) error {
	err := s.withDocument(ctx, path, func(existing Document, found bool) (Document, error) {
		if !found {
			return nil, ErrNotFound
		}
		if err := ApplyUpdates(existing, updates); err != nil {
			return nil, err
		}
		return existing, nil
	})
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", path, err)
	}
	s.notify(ctx, path)
	return nil
}

// withDocument runs a read-modify-write of one document inside a transaction.
func (s *SQLStore) withDocument(ctx context.Context, path string, fn func(existing Document, found bool) (Document, error)) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var data string
	found := true
	err = tx.QueryRowContext(ctx, tx.Dialect().LockDocumentQuery(), path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return err
	}

	existing := Document{}
	if found {
		if existing, err = decodeDocument(data); err != nil {
			return err
		}
	}

	next, err := fn(existing, found)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Dialect().UpsertDocumentQuery(), path, string(encoded)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLStore) notify(ctx context.Context, path string) {
	if s.feed == nil {
		s.hub.changed(path)
		return
	}
	if err := s.feed.Publish(ctx, path); err != nil {
		slog.Warn("Change feed publish failed, notifying local subscribers only", "path", path, "error", err)
		s.hub.changed(path)
	}
}

func (s *SQLStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot), onError func(error)) func() {
	return s.hub.watch(ctx, path, s.Get, onChange, onError)
}

// Close stops the change feed listener. The database is owned by the caller.
func (s *SQLStore) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func decodeDocument(data string) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
