package profile

import (
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

const (
	// DefaultUsernameLength is the candidate length used by Bootstrap.
	DefaultUsernameLength = 8
	// MaxUsernameLength caps candidates regardless of the requested length.
	MaxUsernameLength = 10

	usernameBaseLength = 5
	fallbackBase       = "user"
)

// GenerateUsername derives a short username candidate from a display name
// or email: lowercase, non-alphanumerics stripped, truncated to a fixed
// base prefix, padded with a pseudorandom alphanumeric suffix to exactly
// maxLength characters. At least one random character is always included
// so repeated calls for the same name yield different candidates.
func GenerateUsername(fullName string, maxLength int) string {
	if maxLength <= 0 || maxLength > MaxUsernameLength {
		maxLength = DefaultUsernameLength
	}

	base := normalizeBase(fullName)
	if len(base) > usernameBaseLength {
		base = base[:usernameBaseLength]
	}

	randomLength := maxLength - len(base)
	if randomLength < 1 {
		randomLength = 1
	}

	candidate := base + randomSuffix(randomLength)
	if len(candidate) > maxLength {
		candidate = candidate[:maxLength]
	}
	return candidate
}

func normalizeBase(fullName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(fullName) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallbackBase
	}
	return b.String()
}

func randomSuffix(n int) string {
	s := strings.ToLower(shortuuid.New())
	for len(s) < n {
		s += strings.ToLower(shortuuid.New())
	}
	return s[:n]
}
