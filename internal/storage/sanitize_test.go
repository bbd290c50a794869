package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"my_cool_app_users":             "my_cool_app_users",
		"users; DROP TABLE projects;--": "usersDROPTABLEprojects",
		`"quoted"`:                      "quoted",
		"mixed-Case_09":                 "mixedCase_09",
		"":                              "",
		"ünïcode":                       "ncode",
	}

	for input, want := range cases {
		assert.Equal(t, want, SanitizeIdentifier(input), "input %q", input)
	}
}

func TestSanitizeIdentifierOnlyAllowedRunes(t *testing.T) {
	out := SanitizeIdentifier("a'b\"c`d e\tf\ng$h%i")
	for _, r := range out {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		assert.True(t, ok, "rune %q escaped the sanitizer", r)
	}
}
