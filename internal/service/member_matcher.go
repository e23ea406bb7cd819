package service

import (
	"strings"

	"screentime/internal/models"
)

// normalize is the comparison form for names and emails
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsNormalized(list []string, value string) bool {
	want := normalize(value)
	for _, v := range list {
		if normalize(v) == want {
			return true
		}
	}
	return false
}

// MatchMember returns the first pre-added member, in key order, whose display
// name, alternate names or emails match the candidate. Linked members are
// never candidates.
func MatchMember(family *models.Family, candidateName, candidateEmail string) *models.FamilyMember {
	if family == nil {
		return nil
	}

	name := normalize(candidateName)
	email := normalize(candidateEmail)

	for _, id := range family.SortedMemberIDs() {
		m := family.Members[id]
		if !m.IsPreAdded {
			continue
		}
		if normalize(m.DisplayName) == name {
			return m
		}
		if containsNormalized(m.AlternateNames, candidateName) {
			return m
		}
		if email != "" && containsNormalized(m.Emails, candidateEmail) {
			return m
		}
	}
	return nil
}
