package service

import (
	"sync"

	"screentime/internal/models"
)

// Session holds per-client state that must not outlive the client session.
// Today that is the record of which families already had their backfill
// migrations run.
type Session struct {
	mu       sync.Mutex
	migrated map[string]bool
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{migrated: make(map[string]bool)}
}

// claimMigration marks familyID as migrated and reports whether this call was
// the first to do so
func (s *Session) claimMigration(familyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrated[familyID] {
		return false
	}
	s.migrated[familyID] = true
	return true
}

// Migrated reports whether migrations already ran for familyID
func (s *Session) Migrated(familyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrated[familyID]
}

// Reset forgets every migration flag so the next load migrates again
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrated = make(map[string]bool)
}

// Route is the screen a client should show for the caller's family state
type Route string

const (
	RouteSetup           Route = "setup"
	RouteMatch           Route = "match"
	RouteWaitingApproval Route = "waiting-approval"
	RouteMain            Route = "main"
)

// FamilyState is one decoded family snapshot as seen by the caller
type FamilyState struct {
	Family *models.Family       `json:"family"`
	Member *models.FamilyMember `json:"member"`
	Route  Route                `json:"route"`
}

// DeriveRoute picks the caller's screen: no family means setup, no linked
// member means match, a parent awaiting approval waits, everyone else is in.
func DeriveRoute(family *models.Family, caller models.Identity) Route {
	if family == nil {
		return RouteSetup
	}
	member := linkedMember(family, caller)
	if member == nil {
		return RouteMatch
	}
	if member.Role == models.RoleParent && member.Status != models.StatusApproved {
		return RouteWaitingApproval
	}
	return RouteMain
}

// NewFamilyState builds the caller's view of family
func NewFamilyState(family *models.Family, caller models.Identity) FamilyState {
	return FamilyState{
		Family: family,
		Member: linkedMember(family, caller),
		Route:  DeriveRoute(family, caller),
	}
}

func linkedMember(family *models.Family, caller models.Identity) *models.FamilyMember {
	m := family.Member(caller.UserID)
	if m == nil || m.IsPreAdded {
		return nil
	}
	return m
}
