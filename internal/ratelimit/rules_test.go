package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleInputValidate(t *testing.T) {
	valid := RuleInput{
		RuleType:             RulePerIP,
		WindowSeconds:        60,
		MaxAttempts:          5,
		Action:               ActionBlock,
		BlockDurationSeconds: 300,
		Enabled:              true,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*RuleInput)
		want   string
	}{
		{"unknown rule type", func(r *RuleInput) { r.RuleType = "per_planet" }, "ruleType"},
		{"unknown action", func(r *RuleInput) { r.Action = "tarpit" }, "action"},
		{"window too small", func(r *RuleInput) { r.WindowSeconds = 0 }, "windowSeconds"},
		{"window too large", func(r *RuleInput) { r.WindowSeconds = 3601 }, "windowSeconds"},
		{"max attempts too small", func(r *RuleInput) { r.MaxAttempts = 0 }, "maxAttempts"},
		{"max attempts too large", func(r *RuleInput) { r.MaxAttempts = 1001 }, "maxAttempts"},
		{"block too short", func(r *RuleInput) { r.BlockDurationSeconds = 59 }, "blockDurationSeconds"},
		{"block too long", func(r *RuleInput) { r.BlockDurationSeconds = 86401 }, "blockDurationSeconds"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := in.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRuleInputValidateAllTypes(t *testing.T) {
	for _, ruleType := range []string{RulePerIP, RulePerEmail, RulePerProject} {
		in := RuleInput{
			RuleType:             ruleType,
			WindowSeconds:        300,
			MaxAttempts:          3,
			Action:               ActionDelay,
			BlockDurationSeconds: 900,
		}
		assert.NoError(t, in.Validate(), ruleType)
	}
}
