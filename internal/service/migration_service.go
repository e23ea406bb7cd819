package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"screentime/internal/credentials"
	"screentime/internal/docstore"
	"screentime/internal/metrics"
	"screentime/internal/models"
	"screentime/internal/repository"
)

const (
	migrationMemberChildIDs = "member_child_ids"
	migrationChildRecordIDs = "child_record_ids"
)

// MigrationService backfills identifiers missing from legacy family data.
// Both backfills are idempotent.
type MigrationService struct {
	familyRepo   *repository.FamilyRepository
	settingsRepo *repository.SettingsRepository
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewMigrationService creates a new migration service
func NewMigrationService(familyRepo *repository.FamilyRepository, settingsRepo *repository.SettingsRepository, m *metrics.Metrics) *MigrationService {
	return &MigrationService{
		familyRepo:   familyRepo,
		settingsRepo: settingsRepo,
		metrics:      m,
		now:          time.Now,
	}
}

// BackfillMemberChildIDs creates a ledger record for every member without a
// childId and sets all the new ids in one family update. It returns how many
// members were fixed.
func (s *MigrationService) BackfillMemberChildIDs(ctx context.Context, family *models.Family) (int, error) {
	var updates []docstore.Update
	for _, id := range family.SortedMemberIDs() {
		member := family.Members[id]
		if member.ChildID != "" {
			continue
		}
		childID, err := s.settingsRepo.CreateChildRecord(ctx, family.ID, member.DisplayName)
		if err != nil {
			return 0, fmt.Errorf("failed to create child record for member %s: %w", id, err)
		}
		updates = append(updates, docstore.Update{
			FieldPath: repository.MemberFieldPath(id, "childId"),
			Value:     childID,
		})
	}

	if len(updates) == 0 {
		return 0, nil
	}
	if err := s.familyRepo.UpdateFamily(ctx, family.ID, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// BackfillChildRecordIDs gives every ledger record without an id one. A
// member whose display name equals the record's name lends its childId;
// otherwise a fresh slug id is generated. It returns how many records were
// fixed.
func (s *MigrationService) BackfillChildRecordIDs(ctx context.Context, family *models.Family) (int, error) {
	settings, err := s.settingsRepo.GetSettings(ctx, family.ID)
	if err != nil {
		return 0, err
	}
	if settings == nil {
		return 0, nil
	}

	missing := 0
	for _, c := range settings.Children {
		if c.ID == "" {
			missing++
		}
	}
	if missing == 0 {
		return 0, nil
	}

	children := make([]models.Child, len(settings.Children))
	for i, c := range settings.Children {
		if c.ID == "" {
			c.ID = s.inferChildID(family, c.Name)
		}
		children[i] = c
	}

	if err := s.settingsRepo.ReplaceChildren(ctx, family.ID, children); err != nil {
		return 0, err
	}
	return missing, nil
}

func (s *MigrationService) inferChildID(family *models.Family, name string) string {
	for _, id := range family.SortedMemberIDs() {
		m := family.Members[id]
		if m.ChildID != "" && m.DisplayName == name {
			return m.ChildID
		}
	}
	return credentials.ChildID(name, s.now())
}

// RunOnce runs both backfills for family the first time the session sees it.
// Failures are logged and never returned.
func (s *MigrationService) RunOnce(ctx context.Context, session *Session, family *models.Family) {
	if family == nil || !session.claimMigration(family.ID) {
		return
	}

	fixed, err := s.BackfillMemberChildIDs(ctx, family)
	s.metrics.ObserveMigration(migrationMemberChildIDs, fixed, err)
	if err != nil {
		slog.Error("Member childId backfill failed", "family", family.ID, "error", err)
	} else if fixed > 0 {
		slog.Info("Backfilled member childIds", "family", family.ID, "count", fixed)
	}

	fixed, err = s.BackfillChildRecordIDs(ctx, family)
	s.metrics.ObserveMigration(migrationChildRecordIDs, fixed, err)
	if err != nil {
		slog.Error("Child record id backfill failed", "family", family.ID, "error", err)
	} else if fixed > 0 {
		slog.Info("Backfilled child record ids", "family", family.ID, "count", fixed)
	}
}
