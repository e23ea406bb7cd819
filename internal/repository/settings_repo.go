package repository

import (
	"context"
	"fmt"
	"time"

	"screentime/internal/credentials"
	"screentime/internal/docstore"
	"screentime/internal/models"
)

// SettingsRepository handles the per-family settings document, which owns
// the ledger namespace records
type SettingsRepository struct {
	store docstore.Store
	now   func() time.Time
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(store docstore.Store) *SettingsRepository {
	return &SettingsRepository{store: store, now: time.Now}
}

// WithClock replaces the clock used for ledger ids and timestamps
func (r *SettingsRepository) WithClock(now func() time.Time) *SettingsRepository {
	r.now = now
	return r
}

// GetSettings retrieves a family's settings. Missing settings yield nil, nil.
func (r *SettingsRepository) GetSettings(ctx context.Context, familyID string) (*models.Settings, error) {
	snap, err := r.store.Get(ctx, SettingsPath(familyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for family %s: %w", familyID, err)
	}
	if !snap.Exists {
		return nil, nil
	}
	return DecodeSettings(snap.Data), nil
}

// CreateChildRecord adds a ledger namespace record named name and returns its
// id. The settings document is created with empty reason lists when absent.
// Names are not checked for duplicates; every call yields a fresh id.
func (r *SettingsRepository) CreateChildRecord(ctx context.Context, familyID, name string) (string, error) {
	now := r.now()
	child := models.Child{
		ID:        credentials.ChildID(name, now),
		Name:      name,
		CreatedAt: now,
		Color:     models.DefaultChildColor,
	}

	path := SettingsPath(familyID)
	snap, err := r.store.Get(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to get settings for family %s: %w", familyID, err)
	}

	if !snap.Exists {
		doc := docstore.Document{
			"rewardReasons":     []interface{}{},
			"redemptionReasons": []interface{}{},
			"choreReasons":      []interface{}{},
			"children":          []interface{}{EncodeChild(child)},
		}
		if err := r.store.Set(ctx, path, doc, false); err != nil {
			return "", fmt.Errorf("failed to create settings for family %s: %w", familyID, err)
		}
		return child.ID, nil
	}

	err = r.store.Update(ctx, path, []docstore.Update{
		{Path: "children", Value: docstore.ArrayUnion(EncodeChild(child))},
	})
	if err != nil {
		return "", fmt.Errorf("failed to add child record for family %s: %w", familyID, err)
	}
	return child.ID, nil
}

// ReplaceChildren overwrites the children array in one update
func (r *SettingsRepository) ReplaceChildren(ctx context.Context, familyID string, children []models.Child) error {
	encoded := make([]interface{}, len(children))
	for i, c := range children {
		encoded[i] = EncodeChild(c)
	}
	err := r.store.Update(ctx, SettingsPath(familyID), []docstore.Update{
		{Path: "children", Value: encoded},
	})
	if err != nil {
		return fmt.Errorf("failed to replace children for family %s: %w", familyID, err)
	}
	return nil
}

// EncodeChild converts a ledger record to its stored map
func EncodeChild(c models.Child) map[string]interface{} {
	doc := map[string]interface{}{"name": c.Name}
	if c.ID != "" {
		doc["id"] = c.ID
	}
	if !c.CreatedAt.IsZero() {
		doc["createdAt"] = c.CreatedAt
	}
	if c.Color != "" {
		doc["color"] = c.Color
	}
	return doc
}

// DecodeChild builds a ledger record from a stored map
func DecodeChild(doc map[string]interface{}) models.Child {
	return models.Child{
		ID:        stringValue(doc["id"]),
		Name:      stringValue(doc["name"]),
		CreatedAt: timeValue(doc["createdAt"]),
		Color:     stringValue(doc["color"]),
	}
}

// DecodeSettings builds settings from a stored document
func DecodeSettings(doc docstore.Document) *models.Settings {
	settings := &models.Settings{
		RewardReasons:     stringList(doc["rewardReasons"]),
		RedemptionReasons: stringList(doc["redemptionReasons"]),
		ChoreReasons:      stringList(doc["choreReasons"]),
	}
	children, _ := doc["children"].([]interface{})
	for _, raw := range children {
		if childDoc, ok := raw.(map[string]interface{}); ok {
			settings.Children = append(settings.Children, DecodeChild(childDoc))
		}
	}
	return settings
}
