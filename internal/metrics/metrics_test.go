package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Exact routes (no normalization needed)
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/api/shield/analyze", "/api/shield/analyze"},
		{"/api/shield/actions", "/api/shield/actions"},

		// Organization-scoped routes carry the org id in the path
		{"/api/organizations/org-1", "/api/organizations/:org"},
		{"/api/organizations/org-1/stats", "/api/organizations/:org/stats"},
		{"/api/organizations/org-1/behaviors/twitter/user-1", "/api/organizations/:org/behaviors"},
		{"/api/organizations/org-1/users/user-1/violations", "/api/organizations/:org/users"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePath(tt.input))
		})
	}
}
