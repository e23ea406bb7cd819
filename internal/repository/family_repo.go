package repository

import (
	"context"
	"fmt"

	"screentime/internal/docstore"
	"screentime/internal/models"
)

// FamilyRepository handles document operations for families
type FamilyRepository struct {
	store docstore.Store
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(store docstore.Store) *FamilyRepository {
	return &FamilyRepository{store: store}
}

// Exists reports whether a family document is stored under familyID
func (r *FamilyRepository) Exists(ctx context.Context, familyID string) (bool, error) {
	snap, err := r.store.Get(ctx, FamilyPath(familyID))
	if err != nil {
		return false, fmt.Errorf("failed to check family %s: %w", familyID, err)
	}
	return snap.Exists, nil
}

// GetFamily retrieves a family by its join code. A missing family yields nil, nil.
func (r *FamilyRepository) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	snap, err := r.store.Get(ctx, FamilyPath(familyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get family %s: %w", familyID, err)
	}
	if !snap.Exists {
		return nil, nil
	}
	return DecodeFamily(familyID, snap.Data), nil
}

// CreateFamily writes a complete family document
func (r *FamilyRepository) CreateFamily(ctx context.Context, family *models.Family) error {
	if err := r.store.Set(ctx, FamilyPath(family.ID), EncodeFamily(family), false); err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

// UpdateFamily applies field updates to a family document in one write
func (r *FamilyRepository) UpdateFamily(ctx context.Context, familyID string, updates []docstore.Update) error {
	if err := r.store.Update(ctx, FamilyPath(familyID), updates); err != nil {
		return fmt.Errorf("failed to update family %s: %w", familyID, err)
	}
	return nil
}

// SubscribeFamily streams decoded family snapshots. onChange receives nil when
// the family document does not exist.
func (r *FamilyRepository) SubscribeFamily(ctx context.Context, familyID string, onChange func(*models.Family), onError func(error)) func() {
	return r.store.Subscribe(ctx, FamilyPath(familyID), func(snap docstore.Snapshot) {
		if !snap.Exists {
			onChange(nil)
			return
		}
		onChange(DecodeFamily(familyID, snap.Data))
	}, onError)
}

// EncodeFamily converts a family to its stored document shape
func EncodeFamily(family *models.Family) docstore.Document {
	members := make(map[string]interface{}, len(family.Members))
	for id, m := range family.Members {
		members[id] = EncodeMember(m)
	}
	return docstore.Document{
		"name":      family.Name,
		"createdAt": family.CreatedAt,
		"createdBy": family.CreatedBy,
		"members":   members,
	}
}

// DecodeFamily builds a family from a stored document
func DecodeFamily(familyID string, doc docstore.Document) *models.Family {
	family := &models.Family{
		ID:        familyID,
		Name:      stringValue(doc["name"]),
		CreatedAt: timeValue(doc["createdAt"]),
		CreatedBy: stringValue(doc["createdBy"]),
		Members:   make(map[string]*models.FamilyMember),
	}

	members, _ := doc["members"].(map[string]interface{})
	for id, raw := range members {
		memberDoc, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		family.Members[id] = DecodeMember(id, memberDoc)
	}
	return family
}

// EncodeMember converts a member to its stored map. Optional fields are
// omitted when unset.
func EncodeMember(m *models.FamilyMember) map[string]interface{} {
	doc := map[string]interface{}{
		"displayName":    m.DisplayName,
		"emails":         stringListValue(m.Emails),
		"alternateNames": stringListValue(m.AlternateNames),
		"role":           string(m.Role),
		"status":         string(m.Status),
		"joinedAt":       m.JoinedAt,
	}
	if m.IsPreAdded {
		doc["isPreAdded"] = true
	} else if m.AuthUserID != "" {
		doc["isPreAdded"] = false
	}
	if m.AuthUserID != "" {
		doc["authUserId"] = m.AuthUserID
	}
	if m.ChildID != "" {
		doc["childId"] = m.ChildID
	}
	if m.Color != "" {
		doc["color"] = m.Color
	}
	if m.ApprovedBy != "" {
		doc["approvedBy"] = m.ApprovedBy
	}
	if m.ApprovedAt != nil {
		doc["approvedAt"] = *m.ApprovedAt
	}
	if m.RequestedAt != nil {
		doc["requestedAt"] = *m.RequestedAt
	}
	return doc
}

// DecodeMember builds a member from a stored map, accepting legacy records
// that carry "name" and a single "email".
func DecodeMember(id string, doc map[string]interface{}) *models.FamilyMember {
	displayName := stringValue(doc["displayName"])
	if displayName == "" {
		displayName = stringValue(doc["name"])
	}
	if displayName == "" {
		displayName = "Unknown"
	}

	emails := stringList(doc["emails"])
	if _, ok := doc["emails"]; !ok {
		if email := stringValue(doc["email"]); email != "" {
			emails = []string{email}
		}
	}
	if emails == nil {
		emails = []string{}
	}

	alternateNames := stringList(doc["alternateNames"])
	if alternateNames == nil {
		alternateNames = []string{}
	}

	return &models.FamilyMember{
		ID:             id,
		DisplayName:    displayName,
		Emails:         emails,
		AlternateNames: alternateNames,
		Role:           models.MemberRole(stringValue(doc["role"])),
		Status:         models.MemberStatus(stringValue(doc["status"])),
		JoinedAt:       timeValue(doc["joinedAt"]),
		ApprovedBy:     stringValue(doc["approvedBy"]),
		ApprovedAt:     timePtrValue(doc["approvedAt"]),
		RequestedAt:    timePtrValue(doc["requestedAt"]),
		ChildID:        stringValue(doc["childId"]),
		IsPreAdded:     boolValue(doc["isPreAdded"]),
		AuthUserID:     stringValue(doc["authUserId"]),
		Color:          stringValue(doc["color"]),
	}
}
