// Package repository maps family, settings and profile documents onto the
// document store.
package repository

// FamilyPath is the document path of a family
func FamilyPath(familyID string) string {
	return "families/" + familyID
}

// SettingsPath is the document path of a family's settings
func SettingsPath(familyID string) string {
	return "families/" + familyID + "/settings/config"
}

// UserPath is the document path of a user profile
func UserPath(userID string) string {
	return "users/" + userID
}

// MemberPath is the field path of a member inside a family document. Member
// keys are user ids, which may contain dots, so the path is kept as segments.
func MemberPath(memberID string) []string {
	return []string{"members", memberID}
}

// MemberFieldPath is the field path of one member field
func MemberFieldPath(memberID, field string) []string {
	return []string{"members", memberID, field}
}
