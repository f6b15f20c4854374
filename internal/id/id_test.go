package id_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breeze-rmm/breeze/internal/id"
)

func TestNew_Unique(t *testing.T) {
	a := id.New()
	b := id.New()
	assert.NotEqual(t, a, b)
	assert.True(t, id.Valid(a))
	assert.True(t, id.Valid(b))
}

func TestValid_RejectsGarbage(t *testing.T) {
	assert.False(t, id.Valid("not-a-uuid"))
	assert.False(t, id.Valid(""))
}

func TestNewAgentID(t *testing.T) {
	a, err := id.NewAgentID()
	assert.NoError(t, err)
	assert.Len(t, a, 64) // 32 bytes hex-encoded

	b, err := id.NewAgentID()
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
