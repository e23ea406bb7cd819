package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"screentime/internal/docstore"
	"screentime/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData is the export of one family's documents
type BackupData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	FamilyID   string           `json:"family_id"`
	Documents  []DocumentBackup `json:"documents"`
}

// DocumentBackup is one stored document
type DocumentBackup struct {
	Path string            `json:"path"`
	Data docstore.Document `json:"data"`
}

// BackupService handles family export and restore
type BackupService struct {
	store      docstore.Store
	familyRepo *repository.FamilyRepository
	now        func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(store docstore.Store) *BackupService {
	return &BackupService{
		store:      store,
		familyRepo: repository.NewFamilyRepository(store),
		now:        time.Now,
	}
}

// Collect gathers the family document, its settings and the profiles of
// linked members
func (s *BackupService) Collect(ctx context.Context, familyID string) (*BackupData, error) {
	family, err := s.familyRepo.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("%w: %s", ErrFamilyNotFound, familyID)
	}

	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: s.now(),
		FamilyID:   familyID,
	}

	paths := []string{repository.FamilyPath(familyID), repository.SettingsPath(familyID)}
	for _, id := range family.SortedMemberIDs() {
		if m := family.Members[id]; !m.IsPreAdded {
			paths = append(paths, repository.UserPath(id))
		}
	}

	for _, path := range paths {
		snap, err := s.store.Get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", path, err)
		}
		if !snap.Exists {
			continue
		}
		backup.Documents = append(backup.Documents, DocumentBackup{Path: path, Data: snap.Data})
	}
	return backup, nil
}

// ExportToWriter writes the family export as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, familyID string, w io.Writer) error {
	backup, err := s.Collect(ctx, familyID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("Family exported", "family", familyID, "documents", len(backup.Documents))
	return nil
}

// Export writes the family export to outputPath
func (s *BackupService) Export(ctx context.Context, familyID, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(ctx, familyID, file)
}

// ImportFromReader restores documents from an export. Existing documents at
// the same paths are replaced.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.FamilyID == "" {
		return nil, fmt.Errorf("%w: backup has no family id", ErrInvalidArgument)
	}

	allowed := importableProfiles(&backup)
	familyPrefix := repository.FamilyPath(backup.FamilyID)
	for _, doc := range backup.Documents {
		if doc.Path == familyPrefix || strings.HasPrefix(doc.Path, familyPrefix+"/") || allowed[doc.Path] {
			continue
		}
		return nil, fmt.Errorf("%w: document %s is outside family %s", ErrInvalidArgument, doc.Path, backup.FamilyID)
	}

	for _, doc := range backup.Documents {
		if err := s.store.Set(ctx, doc.Path, doc.Data, false); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", doc.Path, err)
		}
	}

	slog.Info("Family imported", "family", backup.FamilyID, "documents", len(backup.Documents))
	return &backup, nil
}

// importableProfiles returns the profile paths of the linked members listed
// in the backup's own family document
func importableProfiles(backup *BackupData) map[string]bool {
	allowed := map[string]bool{}
	familyPath := repository.FamilyPath(backup.FamilyID)
	for _, doc := range backup.Documents {
		if doc.Path != familyPath {
			continue
		}
		family := repository.DecodeFamily(backup.FamilyID, doc.Data)
		for id, m := range family.Members {
			if !m.IsPreAdded && !strings.Contains(id, "/") {
				allowed[repository.UserPath(id)] = true
			}
		}
	}
	return allowed
}

// Import restores documents from the export at inputPath
func (s *BackupService) Import(ctx context.Context, inputPath string) (*BackupData, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}
