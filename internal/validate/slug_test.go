package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
		errMsg  string
	}{
		{"single char", "a", "a", false, ""},
		{"lowercase", "myorg", "myorg", false, ""},
		{"with numbers", "org123", "org123", false, ""},
		{"with hyphen", "my-org", "my-org", false, ""},
		{"max length 32", strings.Repeat("a", 32), strings.Repeat("a", 32), false, ""},
		{"uppercase lowercased", "MyOrg", "myorg", false, ""},
		{"leading spaces trimmed", "  hello", "hello", false, ""},
		{"empty", "", "", true, "must not be empty"},
		{"too long 33", strings.Repeat("a", 33), "", true, "at most 32"},
		{"underscore", "my_org", "", true, "only letters, numbers, and hyphens"},
		{"leading hyphen", "-myorg", "", true, "must not start with a hyphen"},
		{"trailing hyphen", "myorg-", "", true, "must not end with a hyphen"},
		{"consecutive hyphens", "my--org", "", true, "consecutive hyphens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slug("slug", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSlug_FieldNameInError(t *testing.T) {
	_, err := Slug("organization slug", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization slug")
}
