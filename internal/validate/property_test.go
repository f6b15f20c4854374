package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeTag(t *testing.T) {
	assert.Equal(t, "helloworld", SanitizeTag("hello world"))
	assert.Equal(t, "a-b_c.d", SanitizeTag("a-b_c.d"))
	assert.Equal(t, "", SanitizeTag("@#$%"))
}

func TestTag(t *testing.T) {
	got, err := Tag("tag", "prod-web-01")
	require.NoError(t, err)
	assert.Equal(t, "prod-web-01", got)

	_, err = Tag("tag", "@#$")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tag")
}
