package models

import "time"

// DefaultChildColor is the colour given to new ledger records
const DefaultChildColor = "#6b7280"

// Child is a ledger namespace record. Transactions are recorded against its
// ID. Legacy records may have an empty ID until backfilled.
type Child struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Color     string    `json:"color,omitempty"`
}

// Settings is the per-family configuration document
type Settings struct {
	RewardReasons     []string `json:"rewardReasons"`
	RedemptionReasons []string `json:"redemptionReasons"`
	ChoreReasons      []string `json:"choreReasons"`
	Children          []Child  `json:"children"`
}

// UserProfile is the per-user document holding the family pointer
type UserProfile struct {
	UserID   string `json:"userId"`
	FamilyID string `json:"familyId"`
}
