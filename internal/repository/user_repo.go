package repository

import (
	"context"
	"fmt"

	"screentime/internal/docstore"
	"screentime/internal/models"
)

// UserRepository handles user profile documents
type UserRepository struct {
	store docstore.Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

// GetProfile retrieves a user's profile. A missing profile yields nil, nil.
func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	snap, err := r.store.Get(ctx, UserPath(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}
	if !snap.Exists {
		return nil, nil
	}
	return &models.UserProfile{
		UserID:   userID,
		FamilyID: stringValue(snap.Data["familyId"]),
	}, nil
}

// SetFamily points a user's profile at familyID, keeping other profile fields
func (r *UserRepository) SetFamily(ctx context.Context, userID, familyID string) error {
	err := r.store.Set(ctx, UserPath(userID), docstore.Document{"familyId": familyID}, true)
	if err != nil {
		return fmt.Errorf("failed to set family for user %s: %w", userID, err)
	}
	return nil
}
