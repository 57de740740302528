package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubRoomMembership(t *testing.T) {
	h := NewHub()
	a := NewClient("conn-a", 1, "alice", nil)
	b := NewClient("conn-b", 2, "bob", nil)

	h.Add(a)
	h.Add(b)

	assert.False(t, h.UserInRoom(10, 1))

	h.JoinRoom(a, 10)
	assert.True(t, h.UserInRoom(10, 1))
	assert.False(t, h.UserInRoom(10, 2))
	assert.False(t, h.UserInRoom(11, 1))

	h.LeaveRoom(a, 10)
	assert.False(t, h.UserInRoom(10, 1))
}

func TestHubRemovePurgesRooms(t *testing.T) {
	h := NewHub()
	a := NewClient("conn-a", 1, "alice", nil)

	h.Add(a)
	h.JoinRoom(a, 10)
	h.JoinRoom(a, 11)

	h.Remove(a)
	assert.False(t, h.UserInRoom(10, 1))
	assert.False(t, h.UserInRoom(11, 1))
	assert.Empty(t, h.rooms)
	assert.Empty(t, h.users)
}

func TestHubSecondDeviceKeepsRoom(t *testing.T) {
	h := NewHub()
	a1 := NewClient("conn-a1", 1, "alice", nil)
	a2 := NewClient("conn-a2", 1, "alice", nil)

	h.Add(a1)
	h.Add(a2)
	h.JoinRoom(a1, 10)
	h.JoinRoom(a2, 10)

	// Dropping one device leaves the user in the room via the other.
	h.Remove(a1)
	assert.True(t, h.UserInRoom(10, 1))

	h.Remove(a2)
	assert.False(t, h.UserInRoom(10, 1))
}
