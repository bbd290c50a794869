package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	vars := map[string]string{
		"displayName": "Ada",
		"projectName": "My App",
		"confirmUrl":  "https://app.example.com/confirm-email?token=abc",
	}

	out := Render("Hi {{displayName}}, welcome to {{projectName}}! Visit {{confirmUrl}}.", vars)
	assert.Equal(t, "Hi Ada, welcome to My App! Visit https://app.example.com/confirm-email?token=abc.", out)
}

func TestRenderWithSpaces(t *testing.T) {
	out := Render("Hello {{ displayName }}!", map[string]string{"displayName": "Ada"})
	assert.Equal(t, "Hello Ada!", out)
}

func TestRenderKeepsUnknownPlaceholders(t *testing.T) {
	out := Render("Code: {{code}}", map[string]string{})
	assert.Equal(t, "Code: {{code}}", out)
}

func TestRenderNoPlaceholders(t *testing.T) {
	out := Render("Plain text.", map[string]string{"unused": "x"})
	assert.Equal(t, "Plain text.", out)
}

func TestValidTemplateType(t *testing.T) {
	for _, typ := range []string{TypeConfirmation, TypePasswordReset, TypeWelcome, TypeMagicLink, TypeEmailChange, TypeOTP} {
		assert.True(t, ValidTemplateType(typ), typ)
	}
	assert.False(t, ValidTemplateType("newsletter"))
	assert.False(t, ValidTemplateType(""))
}
