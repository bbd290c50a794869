package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleSuperAdmin))
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleViewer))
	assert.False(t, ValidRole("root"))
	assert.False(t, ValidRole(""))
}

func TestCanWrite(t *testing.T) {
	assert.True(t, CanWrite(RoleSuperAdmin))
	assert.True(t, CanWrite(RoleAdmin))
	assert.False(t, CanWrite(RoleViewer))
	assert.False(t, CanWrite("unknown"))
}

func TestCreateInputValidate(t *testing.T) {
	in := CreateInput{Email: "ops@example.com", Password: "long-enough-secret", Name: "Ops", Role: RoleAdmin}
	require.NoError(t, in.Validate())

	missing := in
	missing.Email = ""
	assert.Error(t, missing.Validate())

	badRole := in
	badRole.Role = "owner"
	assert.Error(t, badRole.Validate())
}
