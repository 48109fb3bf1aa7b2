package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	g := NewUnoMatch(DefaultSettings())
	r.Add(g)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(g.ID)
	assert.True(t, ok)
	assert.Same(t, g, got)

	_, ok = r.Get(uuid.New())
	assert.False(t, ok)

	r.Remove(g.ID)
	assert.Equal(t, 0, r.Len())
}
