package project

import (
	"regexp"
	"strings"
)

var (
	// nameRe is the admin-facing project name rule: 3-50 chars of letters,
	// digits, underscore, space, hyphen.
	nameRe = regexp.MustCompile(`^[a-zA-Z0-9_ -]+$`)

	nonSlugRunsRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// ValidateName checks the project name against the documented rule.
func ValidateName(name string) bool {
	return len(name) >= 3 && len(name) <= 50 && nameRe.MatchString(name)
}

// GenerateProjectID derives the stable project slug from a display name:
// lowercase, trim, collapse every run of non-[a-z0-9] to a single
// underscore, strip leading/trailing underscores. The result may be empty
// ("!@#$%"); callers must reject that. The derivation is idempotent.
func GenerateProjectID(name string) string {
	id := strings.ToLower(strings.TrimSpace(name))
	id = nonSlugRunsRe.ReplaceAllString(id, "_")
	return strings.Trim(id, "_")
}
