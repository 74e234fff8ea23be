package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"low", SeverityLow, true},
		{"CRITICAL", SeverityCritical, true},
		{" High ", SeverityHigh, true},
		{"medium", SeverityMedium, true},
		{"", "", false},
		{"apocalyptic", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseSeverity(tc.in)
		assert.Equal(t, tc.ok, ok, "input=%q", tc.in)
		assert.Equal(t, tc.want, got, "input=%q", tc.in)
	}
}

func TestSeverityFromToxicity(t *testing.T) {
	cases := []struct {
		score float64
		want  Severity
	}{
		{0.0, SeverityLow},
		{0.39, SeverityLow},
		{0.4, SeverityMedium},
		{0.6, SeverityHigh},
		{0.79, SeverityHigh},
		{0.8, SeverityCritical},
		{1.0, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityFromToxicity(tc.score), "score=%v", tc.score)
	}
}

func TestEffectiveSeverity(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		v := Violation{SeverityLevel: SeverityLow, SeverityOverride: "high"}
		assert.Equal(t, SeverityHigh, v.EffectiveSeverity())
	})

	t.Run("invalid override ignored", func(t *testing.T) {
		v := Violation{SeverityLevel: SeverityMedium, SeverityOverride: "nope"}
		assert.Equal(t, SeverityMedium, v.EffectiveSeverity())
	})

	t.Run("invalid base degrades to low", func(t *testing.T) {
		v := Violation{SeverityLevel: "garbage"}
		assert.Equal(t, SeverityLow, v.EffectiveSeverity())
	})
}

func TestViolationEmergency(t *testing.T) {
	assert.False(t, (&Violation{}).Emergency())
	assert.True(t, (&Violation{ImmediateThreat: true}).Emergency())
	assert.True(t, (&Violation{EmergencyKeywords: []string{"bomb"}}).Emergency())
}

func TestCommentValidateForExecution(t *testing.T) {
	ok := Comment{ID: "c1", Platform: "twitter", PlatformUserID: "u1"}
	assert.NoError(t, ok.ValidateForExecution())

	missing := Comment{Platform: "twitter"}
	err := missing.ValidateForExecution()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "platform_user_id")
}
