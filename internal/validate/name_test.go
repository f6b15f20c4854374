package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	valid := []string{
		"hello",
		"hello world",
		"my-name",
		"my_name",
		"my.name",
		"name123",
		"My Name-1.0_beta",
		strings.Repeat("a", 64),
	}
	for _, in := range valid {
		t.Run(in, func(t *testing.T) {
			require.NoError(t, Name(in))
		})
	}

	invalid := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too long", strings.Repeat("a", 65)},
		{"at sign", "name@here"},
		{"slash", "path/name"},
		{"unicode", "café"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Name(tt.input))
		})
	}
}

func TestName_Trims(t *testing.T) {
	require.NoError(t, Name("  padded  "))
}
