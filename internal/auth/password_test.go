package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.True(t, CheckPassword(hash, "Sup3rSecret"))
	assert.False(t, CheckPassword(hash, "sup3rsecret"))
	assert.False(t, CheckPassword(hash, ""))
}

func TestValidatePassword(t *testing.T) {
	valid := []string{"Aaaaaaa1", "Password1", "xY9aaaaaaa"}
	for _, pw := range valid {
		assert.NoError(t, ValidatePassword(pw), pw)
	}

	invalid := []string{
		"Aaaaaa1",      // too short
		"aaaaaaaa1",    // no uppercase
		"AAAAAAAA1",    // no lowercase
		"Aaaaaaaaa",    // no digit
		"",             // empty
		string(make([]byte, 73)), // over bcrypt limit
	}
	for _, pw := range invalid {
		assert.Error(t, ValidatePassword(pw), pw)
	}
}

func TestValidateAdminPassword(t *testing.T) {
	assert.NoError(t, ValidateAdminPassword("twelve-chars-long"))
	assert.Error(t, ValidateAdminPassword("elevenchars"))
	assert.Error(t, ValidateAdminPassword(string(make([]byte, 73))))
}
