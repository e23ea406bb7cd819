// Package credentials generates the random and derived identifiers used by
// families: join codes, pre-added member keys and ledger ids.
package credentials

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// FamilyCodeLength is the number of characters in a join code
	FamilyCodeLength = 6

	familyCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	base36Chars     = "0123456789abcdefghijklmnopqrstuvwxyz"

	preAddedSuffixLength = 9
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// GenerateFamilyCode returns a random join code drawn from [A-Z0-9]
func GenerateFamilyCode() (string, error) {
	return randomString(familyCodeChars, FamilyCodeLength)
}

// GeneratePreAddedKey returns a synthetic member key in the form
// pre_<unix millis>_<9 base-36 chars>
func GeneratePreAddedKey(now time.Time) (string, error) {
	suffix, err := randomString(base36Chars, preAddedSuffixLength)
	if err != nil {
		return "", err
	}
	return "pre_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix, nil
}

// IsPreAddedKey reports whether key was produced by GeneratePreAddedKey
func IsPreAddedKey(key string) bool {
	return strings.HasPrefix(key, "pre_")
}

// Slug lower-cases name and replaces each whitespace run with "-"
func Slug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

// ChildID derives a ledger id from a display name and a timestamp
func ChildID(name string, now time.Time) string {
	return Slug(name) + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// randomString picks n characters from alphabet using crypto/rand
func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[num.Int64()]
	}
	return string(out), nil
}
