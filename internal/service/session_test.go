package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screentime/internal/models"
)

func TestDeriveRoute(t *testing.T) {
	family := baseFamily()
	family.Members["pre_1_sam"] = &models.FamilyMember{DisplayName: "Sam", IsPreAdded: true}

	tests := []struct {
		name   string
		family *models.Family
		caller models.Identity
		want   Route
	}{
		{"no family", nil, parentIdentity, RouteSetup},
		{"no member record", family, models.Identity{UserID: "uid-new"}, RouteMatch},
		{"pre-added key is not a link", family, models.Identity{UserID: "pre_1_sam"}, RouteMatch},
		{"pending parent", family, pendingParent, RouteWaitingApproval},
		{"approved parent", family, parentIdentity, RouteMain},
		{"kid", family, kidIdentity, RouteMain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveRoute(tt.family, tt.caller))
		})
	}
}

func TestSession_ClaimMigration(t *testing.T) {
	s := NewSession()

	var wg sync.WaitGroup
	var mu sync.Mutex
	claims := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.claimMigration("ABC123") {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, claims)
	assert.True(t, s.Migrated("ABC123"))
	assert.False(t, s.Migrated("XYZ999"))

	s.Reset()
	assert.False(t, s.Migrated("ABC123"))
}

func TestWatchFamily_FollowsApproval(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, baseFamily(), parentIdentity.UserID, pendingParent.UserID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := make(chan FamilyState, 16)
	stop, err := env.svc.WatchFamily(ctx, pendingParent, func(s FamilyState) { states <- s }, nil)
	require.NoError(t, err)
	defer stop()

	waitForRoute := func(want Route) FamilyState {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case s := <-states:
				if s.Route == want {
					return s
				}
			case <-deadline:
				t.Fatalf("route %s never observed", want)
				return FamilyState{}
			}
		}
	}

	state := waitForRoute(RouteWaitingApproval)
	assert.Equal(t, pendingParent.UserID, state.Member.ID)

	require.NoError(t, env.svc.UpdateMemberStatus(ctx, parentIdentity, pendingParent.UserID, models.StatusApproved))
	state = waitForRoute(RouteMain)
	assert.Equal(t, models.StatusApproved, state.Member.Status)
	assert.True(t, env.session.Migrated("ABC123"))
}

func TestWatchFamily_NoFamily(t *testing.T) {
	env := newTestEnv(t)

	var got []FamilyState
	stop, err := env.svc.WatchFamily(context.Background(), models.Identity{UserID: "uid-new"}, func(s FamilyState) {
		got = append(got, s)
	}, nil)
	require.NoError(t, err)
	stop()

	require.Len(t, got, 1)
	assert.Equal(t, RouteSetup, got[0].Route)
	assert.Nil(t, got[0].Family)
}
