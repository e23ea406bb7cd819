package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"screentime/internal/docstore"
	"screentime/internal/metrics"
	"screentime/internal/models"
	"screentime/internal/repository"
)

// stepClock advances one millisecond per reading so generated ids differ
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fakeNotifier struct {
	mu         sync.Mutex
	calls      int
	requester  *models.FamilyMember
	recipients []*models.FamilyMember
	err        error
}

func (n *fakeNotifier) NotifyPermissionRequest(ctx context.Context, family *models.Family, requester *models.FamilyMember, recipients []*models.FamilyMember) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.requester = requester
	n.recipients = recipients
	return n.err
}

type testEnv struct {
	store      *docstore.MemoryStore
	families   *repository.FamilyRepository
	settings   *repository.SettingsRepository
	users      *repository.UserRepository
	migrations *MigrationService
	session    *Session
	notifier   *fakeNotifier
	metrics    *metrics.Metrics
	svc        *FamilyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newStepClock()
	store := docstore.NewMemoryStore()
	env := &testEnv{
		store:    store,
		families: repository.NewFamilyRepository(store),
		settings: repository.NewSettingsRepository(store).WithClock(clock.Now),
		users:    repository.NewUserRepository(store),
		session:  NewSession(),
		notifier: &fakeNotifier{},
		metrics:  metrics.New(),
	}
	env.migrations = NewMigrationService(env.families, env.settings, env.metrics)
	env.migrations.now = clock.Now
	env.svc = NewFamilyService(env.families, env.settings, env.users, env.migrations, env.session, env.notifier, env.metrics)
	env.svc.now = clock.Now
	return env
}

// seed stores family and points every listed user at it
func (e *testEnv) seed(t *testing.T, family *models.Family, userIDs ...string) {
	t.Helper()
	ctx := context.Background()
	for id, m := range family.Members {
		m.ID = id
		if m.Emails == nil {
			m.Emails = []string{}
		}
		if m.AlternateNames == nil {
			m.AlternateNames = []string{}
		}
	}
	require.NoError(t, e.families.CreateFamily(ctx, family))
	for _, uid := range userIDs {
		require.NoError(t, e.users.SetFamily(ctx, uid, family.ID))
	}
}

func (e *testEnv) family(t *testing.T, id string) *models.Family {
	t.Helper()
	family, err := e.families.GetFamily(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, family)
	return family
}

func (e *testEnv) profileFamily(t *testing.T, uid string) string {
	t.Helper()
	profile, err := e.users.GetProfile(context.Background(), uid)
	require.NoError(t, err)
	if profile == nil {
		return ""
	}
	return profile.FamilyID
}

func (e *testEnv) children(t *testing.T, familyID string) []models.Child {
	t.Helper()
	settings, err := e.settings.GetSettings(context.Background(), familyID)
	require.NoError(t, err)
	if settings == nil {
		return nil
	}
	return settings.Children
}

var (
	parentIdentity = models.Identity{UserID: "parent-1", DisplayName: "Pat", Email: "pat@example.com"}
	kidIdentity    = models.Identity{UserID: "kid-1", DisplayName: "Kim"}
	pendingParent  = models.Identity{UserID: "parent-2", DisplayName: "Chris", Email: "chris@example.com"}
)

// baseFamily has an approved parent, an approved kid and a pending parent
func baseFamily() *models.Family {
	joined := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Family{
		ID:        "ABC123",
		Name:      "Smiths",
		CreatedAt: joined,
		CreatedBy: parentIdentity.UserID,
		Members: map[string]*models.FamilyMember{
			parentIdentity.UserID: {
				DisplayName: "Pat", Emails: []string{"pat@example.com"},
				Role: models.RoleParent, Status: models.StatusApproved,
				JoinedAt: joined, ChildID: "pat-1", AuthUserID: parentIdentity.UserID,
			},
			kidIdentity.UserID: {
				DisplayName: "Kim",
				Role:        models.RoleKid, Status: models.StatusApproved,
				JoinedAt: joined, ChildID: "kim-1", AuthUserID: kidIdentity.UserID,
			},
			pendingParent.UserID: {
				DisplayName: "Chris", Emails: []string{"chris@example.com"},
				Role: models.RoleParent, Status: models.StatusPending,
				JoinedAt: joined, ChildID: "chris-1", AuthUserID: pendingParent.UserID,
			},
		},
	}
}
