package ws

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat/internal/mocks"
)

func newTestRegistry() (*Registry, *mocks.RoomRepositoryMock, *mocks.UserRepositoryMock) {
	rooms := new(mocks.RoomRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	return NewRegistry(rooms, users), rooms, users
}

func TestRegistryActivateMarksOnline(t *testing.T) {
	reg, _, users := newTestRegistry()
	users.On("SetPresence", mock.Anything, "u1", true, mock.Anything).Return(nil).Once()
	c := testClient("u1", 4)

	assert.Nil(t, reg.Activate(context.Background(), c))
	got, ok := reg.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, reg.Online())
	users.AssertExpectations(t)
}

func TestRegistryReconnectSupersedes(t *testing.T) {
	reg, _, users := newTestRegistry()
	users.On("SetPresence", mock.Anything, "u1", true, mock.Anything).Return(nil).Twice()
	first, second := testClient("u1", 4), testClient("u1", 4)

	reg.Activate(context.Background(), first)
	prev := reg.Activate(context.Background(), second)
	assert.Same(t, first, prev)

	// the stale connection going away must not take the user offline
	rooms, ok := reg.Deactivate(context.Background(), first)
	assert.False(t, ok)
	assert.Nil(t, rooms)
	got, _ := reg.Lookup("u1")
	assert.Same(t, second, got)
	users.AssertNotCalled(t, "SetPresence", mock.Anything, "u1", false, mock.Anything)
}

func TestRegistryDeactivateReturnsMemberships(t *testing.T) {
	reg, rooms, users := newTestRegistry()
	users.On("SetPresence", mock.Anything, "u1", true, mock.Anything).Return(nil).Once()
	users.On("SetPresence", mock.Anything, "u1", false, mock.Anything).Return(nil).Once()
	rooms.On("ListRoomIDsForUser", mock.Anything, "u1").Return([]string{"r1", "r2"}, nil).Once()
	c := testClient("u1", 4)
	reg.Activate(context.Background(), c)

	got, ok := reg.Deactivate(context.Background(), c)
	require.True(t, ok)
	assert.Equal(t, []string{"r1", "r2"}, got)
	_, found := reg.Lookup("u1")
	assert.False(t, found)
	users.AssertExpectations(t)
}

func TestRegistryPresenceFailuresDoNotFail(t *testing.T) {
	reg, rooms, users := newTestRegistry()
	users.On("SetPresence", mock.Anything, "u1", mock.Anything, mock.Anything).Return(errors.New("db down"))
	rooms.On("ListRoomIDsForUser", mock.Anything, "u1").Return(nil, errors.New("db down")).Once()
	c := testClient("u1", 4)

	reg.Activate(context.Background(), c)
	got, ok := reg.Deactivate(context.Background(), c)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRegistryLookupMiss(t *testing.T) {
	reg, _, _ := newTestRegistry()
	_, ok := reg.Lookup("ghost")
	assert.False(t, ok)
}

func TestRegistryIsMemberDelegates(t *testing.T) {
	reg, rooms, _ := newTestRegistry()
	rooms.On("IsParticipant", mock.Anything, "r1", "u1").Return(true, nil).Once()
	rooms.On("IsParticipant", mock.Anything, "r1", "u9").Return(false, nil).Once()

	ok, err := reg.IsMember(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = reg.IsMember(context.Background(), "u9", "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}
