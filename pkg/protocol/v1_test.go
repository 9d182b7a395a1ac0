package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, in Message, out Message) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, in.Encode(&buf))
	require.NoError(t, out.Decode(&buf))
	assert.Zero(t, buf.Len(), "payload not fully consumed")
	assert.Equal(t, in, out)
}

func TestCHandshakeRoundTrip(t *testing.T) {
	roundTrip(t, &CHandshake{
		UUID:       uuid.MustParse("046b080e-177e-451e-8f5f-6d5be44f4cdf"),
		ServerID:   "serverhash",
		PlayerName: "Player1",
	}, &CHandshake{})
}

func TestCHandshakeEmptyStrings(t *testing.T) {
	roundTrip(t, &CHandshake{UUID: uuid.Nil}, &CHandshake{})
}

func TestFixedStringTruncatesOverlongValues(t *testing.T) {
	in := &CHandshake{PlayerName: strings.Repeat("x", 100)}
	var buf bytes.Buffer
	require.NoError(t, in.Encode(&buf))

	var out CHandshake
	require.NoError(t, out.Decode(&buf))
	assert.Equal(t, strings.Repeat("x", 16), out.PlayerName)
}

func TestCStatusUpdateRoundTrip(t *testing.T) {
	roundTrip(t, &CStatusUpdate{
		Title:       "IN_GAME",
		Description: "Hypixel Bedwars/4s",
		IconPath:    "ingame",
	}, &CStatusUpdate{})
}

func TestCStatusUpdateMaxWidth(t *testing.T) {
	roundTrip(t, &CStatusUpdate{
		Title:       strings.Repeat("t", 64),
		Description: strings.Repeat("d", 64),
		IconPath:    strings.Repeat("i", 32),
	}, &CStatusUpdate{})
}

func TestCFriendRequestReactionRoundTrip(t *testing.T) {
	roundTrip(t, &CFriendRequestReaction{
		UUID:     uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Reaction: ReactionAccept,
	}, &CFriendRequestReaction{})
}

func TestCCreateChannelRoundTrip(t *testing.T) {
	roundTrip(t, &CCreateChannel{Users: []uuid.UUID{
		uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		uuid.MustParse("66666666-7777-8888-9999-aaaaaaaaaaaa"),
	}}, &CCreateChannel{})
}

func TestCCreateChannelEmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CCreateChannel{}).Encode(&buf))
	require.Equal(t, 1, buf.Len())

	var out CCreateChannel
	require.NoError(t, out.Decode(&buf))
	assert.Empty(t, out.Users)
}

func TestSGlobalDataRoundTrip(t *testing.T) {
	roundTrip(t, &SGlobalData{
		Status:        HandshakeSuccess,
		TotalPlayers:  40000,
		PlayersOnline: 1234,
		LatestVersion: "1.0.0",
	}, &SGlobalData{})
}

func TestSHandshakeRoundTrip(t *testing.T) {
	roundTrip(t, &SHandshake{Status: HandshakeFailure}, &SHandshake{})
}

func TestEmptyPayloadMessages(t *testing.T) {
	for _, m := range []Message{&CGlobalData{}, &CFriendsList{}, &CGetPublicKey{}} {
		var buf bytes.Buffer
		require.NoError(t, m.Encode(&buf))
		assert.Zero(t, buf.Len(), m.Name())
	}
}

func TestRegistryCoversV1MessageSet(t *testing.T) {
	r, err := NewRegistry(Version1, V1ClientMessages()...)
	require.NoError(t, err)
	require.NoError(t, r.Add(Version1, V1ServerMessages()...))
	assert.Equal(t, 11, r.Len())

	m, ok := r.New(Version1, ClientToServer, 0x0b)
	require.True(t, ok)
	assert.Equal(t, NameStatusUpdate, m.Name())

	// Same id, other direction resolves independently.
	m, ok = r.New(Version1, ServerToClient, 0x02)
	require.True(t, ok)
	assert.IsType(t, &SGlobalData{}, m)
}

func TestRegistryUnknownTriple(t *testing.T) {
	r, err := NewRegistry(Version1, V1ClientMessages()...)
	require.NoError(t, err)

	_, ok := r.New(Version1, ClientToServer, 0x7f)
	assert.False(t, ok)
	_, ok = r.New(2, ClientToServer, 0x01)
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	_, err := NewRegistry(Version1,
		func() Message { return &CHandshake{} },
		func() Message { return &CHandshake{} },
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestWriteProducesDecodableFrame(t *testing.T) {
	var buf bytes.Buffer
	in := &CGetFriend{UUID: uuid.MustParse("046b080e-177e-451e-8f5f-6d5be44f4cdf")}
	require.NoError(t, Write(&buf, Version1, in))

	h, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, ClientToServer, h.Direction)
	assert.Equal(t, Version1, h.Version)
	assert.Equal(t, uint32(0x04), h.MessageID)

	r, err := NewRegistry(Version1, V1ClientMessages()...)
	require.NoError(t, err)
	m, ok := r.New(h.Version, h.Direction, h.MessageID)
	require.True(t, ok)
	require.NoError(t, m.Decode(&buf))
	assert.Equal(t, in, m)
}
