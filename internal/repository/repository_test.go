package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/docstore"
	"screentime/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFamilyRepository_CreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewFamilyRepository(store)

	approvedAt := fixedNow.Add(time.Hour)
	family := &models.Family{
		ID:        "ABC123",
		Name:      "Smiths",
		CreatedAt: fixedNow,
		CreatedBy: "uid-1",
		Members: map[string]*models.FamilyMember{
			"uid-1": {
				DisplayName:    "Pat",
				Emails:         []string{"pat@example.com"},
				AlternateNames: []string{},
				Role:           models.RoleParent,
				Status:         models.StatusApproved,
				JoinedAt:       fixedNow,
				ApprovedBy:     "uid-0",
				ApprovedAt:     &approvedAt,
				ChildID:        "pat-1",
				AuthUserID:     "uid-1",
				Color:          "#ff0000",
			},
		},
	}
	require.NoError(t, repo.CreateFamily(ctx, family))

	exists, err := repo.Exists(ctx, "ABC123")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetFamily(ctx, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Smiths", got.Name)
	assert.True(t, got.CreatedAt.Equal(fixedNow))

	m := got.Member("uid-1")
	require.NotNil(t, m)
	assert.Equal(t, "uid-1", m.ID)
	assert.Equal(t, []string{"pat@example.com"}, m.Emails)
	assert.Equal(t, "uid-0", m.ApprovedBy)
	require.NotNil(t, m.ApprovedAt)
	assert.True(t, m.ApprovedAt.Equal(approvedAt))
	assert.Nil(t, m.RequestedAt)
	assert.False(t, m.IsPreAdded)
	assert.Equal(t, "#ff0000", m.Color)
}

func TestFamilyRepository_GetMissing(t *testing.T) {
	repo := NewFamilyRepository(docstore.NewMemoryStore())
	got, err := repo.GetFamily(context.Background(), "NOPE00")
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := repo.Exists(context.Background(), "NOPE00")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDecodeMember_LegacyFields(t *testing.T) {
	tests := []struct {
		name       string
		doc        map[string]interface{}
		wantName   string
		wantEmails []string
	}{
		{
			name:       "legacy name and email",
			doc:        map[string]interface{}{"name": "Sam", "email": "sam@example.com"},
			wantName:   "Sam",
			wantEmails: []string{"sam@example.com"},
		},
		{
			name:       "nothing at all",
			doc:        map[string]interface{}{},
			wantName:   "Unknown",
			wantEmails: []string{},
		},
		{
			name:       "emails list wins over legacy email",
			doc:        map[string]interface{}{"displayName": "Jo", "emails": []interface{}{"a@x.com"}, "email": "b@x.com"},
			wantName:   "Jo",
			wantEmails: []string{"a@x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := DecodeMember("k", tt.doc)
			assert.Equal(t, tt.wantName, m.DisplayName)
			assert.Equal(t, tt.wantEmails, m.Emails)
			assert.Equal(t, []string{}, m.AlternateNames)
		})
	}
}

func TestTimeValue_Formats(t *testing.T) {
	want := time.UnixMilli(1700000000000)

	assert.True(t, timeValue(want).Equal(want))
	assert.True(t, timeValue(want.Format(time.RFC3339Nano)).Equal(want))
	assert.True(t, timeValue(float64(1700000000000)).Equal(want))
	assert.True(t, timeValue(map[string]interface{}{"seconds": float64(1700000000), "nanoseconds": float64(0)}).Equal(want))
	assert.True(t, timeValue(nil).IsZero())
	assert.Nil(t, timePtrValue(nil))
}

func TestFamilyRepository_SubscribeDecodes(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewFamilyRepository(store)

	got := make(chan *models.Family, 4)
	stop := repo.SubscribeFamily(ctx, "ABC123", func(f *models.Family) { got <- f }, nil)
	defer stop()

	assert.Nil(t, <-got)

	require.NoError(t, repo.CreateFamily(ctx, &models.Family{ID: "ABC123", Name: "Smiths", Members: map[string]*models.FamilyMember{}}))
	select {
	case f := <-got:
		require.NotNil(t, f)
		assert.Equal(t, "Smiths", f.Name)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}
}

func TestSettingsRepository_CreateChildRecord(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewSettingsRepository(store).WithClock(func() time.Time { return time.UnixMilli(1000) })

	id, err := repo.CreateChildRecord(ctx, "ABC123", "Mary Jane")
	require.NoError(t, err)
	assert.Equal(t, "mary-jane-1000", id)

	settings, err := repo.GetSettings(ctx, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Empty(t, settings.RewardReasons)
	assert.Empty(t, settings.RedemptionReasons)
	assert.Empty(t, settings.ChoreReasons)
	require.Len(t, settings.Children, 1)
	assert.Equal(t, models.DefaultChildColor, settings.Children[0].Color)

	repo.WithClock(func() time.Time { return time.UnixMilli(2000) })
	id, err = repo.CreateChildRecord(ctx, "ABC123", "Mary Jane")
	require.NoError(t, err)
	assert.Equal(t, "mary-jane-2000", id)

	settings, err = repo.GetSettings(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, settings.Children, 2)
	assert.Equal(t, "mary-jane-1000", settings.Children[0].ID)
	assert.Equal(t, "mary-jane-2000", settings.Children[1].ID)
}

func TestSettingsRepository_ReplaceChildren(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewSettingsRepository(store)

	require.NoError(t, store.Set(ctx, SettingsPath("ABC123"), docstore.Document{
		"rewardReasons": []interface{}{"chores"},
		"children":      []interface{}{map[string]interface{}{"name": "Sam"}},
	}, false))

	require.NoError(t, repo.ReplaceChildren(ctx, "ABC123", []models.Child{{ID: "sam-1", Name: "Sam"}}))

	settings, err := repo.GetSettings(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, []string{"chores"}, settings.RewardReasons)
	require.Len(t, settings.Children, 1)
	assert.Equal(t, "sam-1", settings.Children[0].ID)
}

func TestUserRepository_SetFamilyMerges(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewUserRepository(store)

	profile, err := repo.GetProfile(ctx, "uid-1")
	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NoError(t, store.Set(ctx, UserPath("uid-1"), docstore.Document{"theme": "dark"}, false))
	require.NoError(t, repo.SetFamily(ctx, "uid-1", "ABC123"))

	profile, err = repo.GetProfile(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", profile.FamilyID)

	snap, _ := store.Get(ctx, UserPath("uid-1"))
	assert.Equal(t, "dark", snap.Data["theme"])
}
