package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeCorrelated(t *testing.T) {
	id := "42"
	env, err := NewEnvelope(&id, ChannelFriends, FriendsAck{Method: MethodAdd, Success: true})
	require.NoError(t, err)

	require.NotNil(t, env.ID)
	assert.Equal(t, "42", *env.ID)
	assert.Equal(t, ChannelFriends, env.Type)
	assert.NotZero(t, env.Timestamp)

	var ack FriendsAck
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.True(t, ack.Success)
}

func TestNewEnvelopePushSerializesNullID(t *testing.T) {
	env, err := NewEnvelope(nil, ChannelStatusUpdate, StatusPush{UUID: "abc"})
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":null`)
}

func TestCodedErrorFormat(t *testing.T) {
	assert.Equal(t, "RATE_LIMITED", NewCodedError(CodeRateLimited, "").Error())
	assert.Equal(t, "USER_NOT_FOUND:abc", NewCodedError(CodeUserNotFound, "abc").Error())
}

func TestUserListMembership(t *testing.T) {
	u := &User{Friends: []string{"a", "b"}, Blocked: []string{"c"}}
	assert.True(t, u.HasFriend("a"))
	assert.False(t, u.HasFriend("c"))
	assert.True(t, u.HasBlocked("c"))
	assert.False(t, u.HasBlocked("a"))
}

func TestWellKnownStatuses(t *testing.T) {
	off := OfflineStatus()
	assert.False(t, off.Online)
	assert.Equal(t, TitleOffline, off.Title)

	menu := MenuStatus()
	assert.True(t, menu.Online)
	assert.Equal(t, DescriptionInMenu, menu.Description)
}
