package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/auth"
	"screentime/internal/config"
	"screentime/internal/docstore"
	"screentime/internal/models"
	"screentime/internal/repository"
)

func memoryOpener(store *docstore.MemoryStore) storeOpener {
	return func(ctx context.Context) (docstore.Store, func() error, error) {
		return store, func() error { return nil }, nil
	}
}

func run(t *testing.T, cfg *config.Config, store *docstore.MemoryStore, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg, memoryOpener(store))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedFamily(t *testing.T, store *docstore.MemoryStore, childID string) {
	t.Helper()
	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	family := &models.Family{
		ID:        "ABC123",
		Name:      "Smiths",
		CreatedAt: joined,
		CreatedBy: "u1",
		Members: map[string]*models.FamilyMember{
			"u1": {
				ID: "u1", DisplayName: "Pat", Emails: []string{}, AlternateNames: []string{},
				Role: models.RoleParent, Status: models.StatusApproved, JoinedAt: joined,
				AuthUserID: "u1", ChildID: childID,
			},
		},
	}
	ctx := context.Background()
	require.NoError(t, repository.NewFamilyRepository(store).CreateFamily(ctx, family))
	require.NoError(t, repository.NewUserRepository(store).SetFamily(ctx, "u1", "ABC123"))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := docstore.NewMemoryStore()
	seedFamily(t, src, "pat-1")
	path := filepath.Join(t.TempDir(), "out", "family.json")

	out, err := run(t, &config.Config{}, src, "export", "--family", "abc123", "--output", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Exported family ABC123")

	dst := docstore.NewMemoryStore()
	out, err = run(t, &config.Config{}, dst, "import", "--input", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported family ABC123")

	family, err := repository.NewFamilyRepository(dst).GetFamily(context.Background(), "ABC123")
	require.NoError(t, err)
	require.NotNil(t, family)
	assert.Equal(t, "pat-1", family.Members["u1"].ChildID)

	profile, err := repository.NewUserRepository(dst).GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "ABC123", profile.FamilyID)
}

func TestExportRequiresFamily(t *testing.T) {
	_, err := run(t, &config.Config{}, docstore.NewMemoryStore(), "export")
	assert.Error(t, err)
}

func TestImportMissingFile(t *testing.T) {
	_, err := run(t, &config.Config{}, docstore.NewMemoryStore(), "import", "--input", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestBackfill(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedFamily(t, store, "")

	out, err := run(t, &config.Config{}, store, "backfill", "--family", "ABC123")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 members and 0 ledger records fixed")

	family, err := repository.NewFamilyRepository(store).GetFamily(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.NotEmpty(t, family.Members["u1"].ChildID)

	out, err = run(t, &config.Config{}, store, "backfill", "--family", "ABC123")
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 members and 0 ledger records fixed")
}

func TestBackfillUnknownFamily(t *testing.T) {
	_, err := run(t, &config.Config{}, docstore.NewMemoryStore(), "backfill", "--family", "ZZZ999")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	out, err := run(t, cfg, docstore.NewMemoryStore(), "token", "--user", "u1", "--name", "Pat", "--email", "pat@example.com")
	require.NoError(t, err)

	identity, err := auth.NewJWTManager("secret", time.Hour).Validate(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "u1", DisplayName: "Pat", Email: "pat@example.com"}, identity)

	_, err = run(t, &config.Config{}, docstore.NewMemoryStore(), "token", "--user", "u1")
	assert.Error(t, err)
}
