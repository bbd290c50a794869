package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateProjectID(t *testing.T) {
	cases := map[string]string{
		"My-Cool App!":                     "my_cool_app",
		"API v2.0":                         "api_v2_0",
		"Test'; DROP TABLE users; --":      "test_drop_table_users",
		"!@#$%":                            "",
		"  padded  ":                       "padded",
		"already_a_slug":                   "already_a_slug",
		"Multiple---Separators___Together": "multiple_separators_together",
	}

	for input, want := range cases {
		assert.Equal(t, want, GenerateProjectID(input), "input %q", input)
	}
}

func TestGenerateProjectIDIsIdempotent(t *testing.T) {
	for _, name := range []string{"My-Cool App!", "API v2.0", "plain", "A B C"} {
		once := GenerateProjectID(name)
		assert.Equal(t, once, GenerateProjectID(once), "input %q", name)
	}
}

func TestValidateName(t *testing.T) {
	assert.True(t, ValidateName("My App"))
	assert.True(t, ValidateName("api-v2_0"))
	assert.False(t, ValidateName("ab"), "too short")
	assert.False(t, ValidateName(string(make([]byte, 51))), "too long")
	assert.False(t, ValidateName("bad!chars"), "punctuation")
	assert.False(t, ValidateName(""), "empty")
}
