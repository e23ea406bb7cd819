package models

import (
	"sort"
	"time"
)

// MemberRole is the role a member plays in a family
type MemberRole string

const (
	RoleParent MemberRole = "parent"
	RoleKid    MemberRole = "kid"
)

// Valid reports whether r is a known role
func (r MemberRole) Valid() bool {
	return r == RoleParent || r == RoleKid
}

// MemberStatus is the approval state of a member
type MemberStatus string

const (
	StatusApproved MemberStatus = "approved"
	StatusPending  MemberStatus = "pending"
	StatusRejected MemberStatus = "rejected"
)

// Valid reports whether s is a known status
func (s MemberStatus) Valid() bool {
	return s == StatusApproved || s == StatusPending || s == StatusRejected
}

// DefaultStatusFor returns the status a newly joining member gets for role.
// Parents wait for approval, kids never do.
func DefaultStatusFor(role MemberRole) MemberStatus {
	if role == RoleParent {
		return StatusPending
	}
	return StatusApproved
}

// Family is a shared family group, keyed by its join code
type Family struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	CreatedAt time.Time                `json:"createdAt"`
	CreatedBy string                   `json:"createdBy"`
	Members   map[string]*FamilyMember `json:"members"`
}

// FamilyMember is one person in a family. The map key is either the linked
// user's id or a synthetic pre_ key while the member is pre-added.
type FamilyMember struct {
	ID             string       `json:"id"`
	DisplayName    string       `json:"displayName"`
	Emails         []string     `json:"emails"`
	AlternateNames []string     `json:"alternateNames"`
	Role           MemberRole   `json:"role"`
	Status         MemberStatus `json:"status"`
	JoinedAt       time.Time    `json:"joinedAt"`
	ApprovedBy     string       `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time   `json:"approvedAt,omitempty"`
	RequestedAt    *time.Time   `json:"requestedAt,omitempty"`
	ChildID        string       `json:"childId,omitempty"`
	IsPreAdded     bool         `json:"isPreAdded"`
	AuthUserID     string       `json:"authUserId,omitempty"`
	Color          string       `json:"color,omitempty"`
}

// IsApprovedParent reports whether the member may manage the family
func (m *FamilyMember) IsApprovedParent() bool {
	return m != nil && m.Role == RoleParent && m.Status == StatusApproved
}

// SortedMemberIDs returns member keys in ascending order
func (f *Family) SortedMemberIDs() []string {
	if f == nil {
		return nil
	}
	ids := make([]string, 0, len(f.Members))
	for id := range f.Members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Member returns the member stored under id, or nil
func (f *Family) Member(id string) *FamilyMember {
	if f == nil || id == "" {
		return nil
	}
	return f.Members[id]
}

// PendingParents lists parents waiting for approval, in key order
func (f *Family) PendingParents() []*FamilyMember {
	var pending []*FamilyMember
	for _, id := range f.SortedMemberIDs() {
		m := f.Members[id]
		if m.Role == RoleParent && m.Status == StatusPending {
			pending = append(pending, m)
		}
	}
	return pending
}

// ApprovedParents lists approved parents, in key order
func (f *Family) ApprovedParents() []*FamilyMember {
	var parents []*FamilyMember
	for _, id := range f.SortedMemberIDs() {
		if m := f.Members[id]; m.IsApprovedParent() {
			parents = append(parents, m)
		}
	}
	return parents
}
