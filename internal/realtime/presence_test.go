package realtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pesan/internal/realtime"
)

func TestRegistryEdgeTriggering(t *testing.T) {
	reg := realtime.NewMemoryRegistry()

	assert.False(t, reg.IsOnline(1))

	// First connection flips the user online.
	assert.True(t, reg.Register(1, "conn-a"))
	assert.True(t, reg.IsOnline(1))

	// A second device produces no edge.
	assert.False(t, reg.Register(1, "conn-b"))
	assert.True(t, reg.IsOnline(1))

	// Dropping one of two connections is not an offline edge.
	assert.False(t, reg.Unregister(1, "conn-a"))
	assert.True(t, reg.IsOnline(1))

	// Dropping the last one is.
	assert.True(t, reg.Unregister(1, "conn-b"))
	assert.False(t, reg.IsOnline(1))
}

func TestRegistryUnknownConnection(t *testing.T) {
	reg := realtime.NewMemoryRegistry()

	// Removing a connection that was never registered is not an edge.
	assert.False(t, reg.Unregister(7, "ghost"))

	reg.Register(7, "conn-a")
	assert.False(t, reg.Unregister(7, "ghost"))
	assert.True(t, reg.IsOnline(7))
}

func TestRegistryConnectionsOf(t *testing.T) {
	reg := realtime.NewMemoryRegistry()
	reg.Register(3, "conn-a")
	reg.Register(3, "conn-b")
	reg.Register(4, "conn-c")

	assert.ElementsMatch(t, []string{"conn-a", "conn-b"}, reg.ConnectionsOf(3))
	assert.ElementsMatch(t, []string{"conn-c"}, reg.ConnectionsOf(4))
	assert.Empty(t, reg.ConnectionsOf(5))
}
