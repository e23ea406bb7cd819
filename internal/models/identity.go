package models

import "strings"

// Identity is the authenticated caller as supplied by the auth provider.
// DisplayName and Email are optional.
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
}

// Authenticated reports whether the identity carries a user id
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Name is the name used when creating member and ledger records
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email
	}
	return "User"
}

// MatchName is the name offered when suggesting a pre-added member
func (i Identity) MatchName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if local, _, _ := strings.Cut(i.Email, "@"); local != "" {
		return local
	}
	return "User"
}
