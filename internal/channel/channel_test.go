package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxolotlClient/AxolotlClient-API/internal/metrics"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn records everything sent to it.
type fakeConn struct {
	identity string
	username string

	mu     sync.Mutex
	status types.Status
	sent   []*types.Envelope
}

func newFakeConn(identity, username string) *fakeConn {
	return &fakeConn{identity: identity, username: username, status: types.MenuStatus()}
}

func (c *fakeConn) Identity() string     { return c.identity }
func (c *fakeConn) Username() string     { return c.username }
func (c *fakeConn) ConnectionID() string { return "conn-" + c.identity }

func (c *fakeConn) Status() types.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *fakeConn) UpdateStatus(s types.Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *fakeConn) Send(env *types.Envelope) error {
	c.mu.Lock()
	c.sent = append(c.sent, env)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) lastSent(t testing.TB) *types.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "nothing sent to %s", c.identity)
	return c.sent[len(c.sent)-1]
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fakePresence is an in-memory connection table.
type fakePresence struct {
	conns map[string]interfaces.Conn
}

func newFakePresence(conns ...*fakeConn) *fakePresence {
	p := &fakePresence{conns: make(map[string]interfaces.Conn)}
	for _, c := range conns {
		p.conns[c.identity] = c
	}
	return p
}

func (p *fakePresence) IsOnline(uuid string) bool {
	_, ok := p.conns[uuid]
	return ok
}

func (p *fakePresence) Lookup(uuid string) (interfaces.Conn, bool) {
	c, ok := p.conns[uuid]
	return c, ok
}

func (p *fakePresence) Connections() []interfaces.Conn {
	out := make([]interfaces.Conn, 0, len(p.conns))
	for _, c := range p.conns {
		out = append(out, c)
	}
	return out
}

// statusRecorder implements interfaces.Presence.
type statusRecorder struct {
	conn   interfaces.Conn
	status types.Status
	calls  int
}

func (r *statusRecorder) SetStatus(_ context.Context, conn interfaces.Conn, status types.Status) error {
	r.conn = conn
	r.status = status
	r.calls++
	conn.UpdateStatus(status)
	return nil
}

// fakeStore is an in-memory interfaces.Store with invite support.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*types.User
	invites map[string]*types.FriendInvite // id -> invite
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*types.User),
		invites: make(map[string]*types.FriendInvite),
	}
}

func (s *fakeStore) addUser(uuid, username string, friends ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[uuid] = &types.User{
		UUID:     uuid,
		Username: username,
		Friends:  append([]string{}, friends...),
		Blocked:  []string{},
		LastSeen: time.Now().Add(-2 * time.Hour),
	}
}

func (s *fakeStore) GetUser(_ context.Context, uuid string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uuid]
	if !ok {
		return nil, interfaces.ErrUserNotFound
	}
	copied := *u
	copied.Friends = append([]string{}, u.Friends...)
	copied.Blocked = append([]string{}, u.Blocked...)
	return &copied, nil
}

func (s *fakeStore) CreateUser(_ context.Context, uuid, username string) (*types.User, error) {
	s.addUser(uuid, username)
	return s.GetUser(context.Background(), uuid)
}

func (s *fakeStore) SaveUser(_ context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.UUID]; !ok {
		return interfaces.ErrUserNotFound
	}
	copied := *user
	s.users[user.UUID] = &copied
	return nil
}

func (s *fakeStore) SaveUsers(_ context.Context, users ...*types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range users {
		if _, ok := s.users[user.UUID]; !ok {
			return interfaces.ErrUserNotFound
		}
	}
	for _, user := range users {
		copied := *user
		s.users[user.UUID] = &copied
	}
	return nil
}

func (s *fakeStore) TouchLastSeen(_ context.Context, uuid string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[uuid]; ok {
		u.LastSeen = at
	}
	return nil
}

func (s *fakeStore) CountUsers(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *fakeStore) CreateInvite(_ context.Context, from, to string) (*types.FriendInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.From == from && inv.To == to {
			return nil, interfaces.ErrInviteExists
		}
	}
	s.nextID++
	inv := &types.FriendInvite{
		ID:        fmt.Sprintf("invite-%d", s.nextID),
		From:      from,
		To:        to,
		CreatedAt: time.Now(),
	}
	s.invites[inv.ID] = inv
	return inv, nil
}

func (s *fakeStore) GetInvite(_ context.Context, from, to string) (*types.FriendInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.From == from && inv.To == to {
			return inv, nil
		}
	}
	return nil, interfaces.ErrInviteNotFound
}

func (s *fakeStore) InvitesFor(_ context.Context, uuid string) (incoming, outgoing []*types.FriendInvite, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.To == uuid {
			incoming = append(incoming, inv)
		} else if inv.From == uuid {
			outgoing = append(outgoing, inv)
		}
	}
	return incoming, outgoing, nil
}

func (s *fakeStore) DeleteInvite(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invites, id)
	return nil
}

func (s *fakeStore) Close() error { return nil }

func envelope(t testing.TB, id, channel string, data any) *types.Envelope {
	t.Helper()
	var idp *string
	if id != "" {
		idp = &id
	}
	env, err := types.NewEnvelope(idp, channel, data)
	require.NoError(t, err)
	return env
}

func decodeData[T any](t testing.TB, env *types.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type fixture struct {
	store    *fakeStore
	presence *fakePresence
	mux      *Multiplexer
	friends  *Friends
}

func newFixture(t testing.TB, conns ...*fakeConn) *fixture {
	t.Helper()
	store := newFakeStore()
	presence := newFakePresence(conns...)
	mux := NewMultiplexer(presence, testMetrics(), testLogger())
	friends := NewFriends(store, presence, mux)
	require.NoError(t, mux.Register(friends, NewUsers(presence, mux), NewErrors(testLogger())))
	return &fixture{store: store, presence: presence, mux: mux, friends: friends}
}

func TestFriendsAddAcceptFlow(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	bob := newFakeConn("bob", "Bob")
	fx := newFixture(t, alice, bob)
	fx.store.addUser("alice", "Alice")
	fx.store.addUser("bob", "Bob")
	ctx := context.Background()

	// Alice invites bob.
	err := fx.friends.OnMessage(ctx, alice, envelope(t, "1", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "bob"}))
	require.NoError(t, err)

	ack := decodeData[types.FriendsAck](t, alice.lastSent(t))
	assert.True(t, ack.Success)
	assert.Equal(t, types.MethodAdd, ack.Method)

	notice := decodeData[types.FriendsNotice](t, bob.lastSent(t))
	assert.Equal(t, types.MethodAdd, notice.Method)
	assert.Equal(t, "alice", notice.From)
	assert.Equal(t, "Alice", notice.Username)

	// The invite shows up for bob.
	err = fx.friends.OnMessage(ctx, bob, envelope(t, "2", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodGetRequests}))
	require.NoError(t, err)
	reqs := decodeData[types.FriendRequests](t, bob.lastSent(t))
	require.Len(t, reqs.Incoming, 1)
	assert.Equal(t, "alice", reqs.Incoming[0].UUID)

	// Bob accepts; membership becomes mutual and the invite is destroyed.
	err = fx.friends.OnMessage(ctx, bob, envelope(t, "3", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAccept, UUID: "alice"}))
	require.NoError(t, err)

	aliceUser, _ := fx.store.GetUser(ctx, "alice")
	bobUser, _ := fx.store.GetUser(ctx, "bob")
	assert.True(t, aliceUser.HasFriend("bob"))
	assert.True(t, bobUser.HasFriend("alice"))

	err = fx.friends.OnMessage(ctx, bob, envelope(t, "4", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodGetRequests}))
	require.NoError(t, err)
	reqs = decodeData[types.FriendRequests](t, bob.lastSent(t))
	assert.Empty(t, reqs.Incoming)

	// A second add now fails: they are already friends.
	err = fx.friends.OnMessage(ctx, alice, envelope(t, "5", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "bob"}))
	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeAlreadyFriends, coded.Code)
}

func TestFriendsDeclineOnlyDestroysInvite(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	bob := newFakeConn("bob", "Bob")
	fx := newFixture(t, alice, bob)
	fx.store.addUser("alice", "Alice")
	fx.store.addUser("bob", "Bob")
	ctx := context.Background()

	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "1", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "bob"})))

	require.NoError(t, fx.friends.OnMessage(ctx, bob, envelope(t, "2", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodDecline, UUID: "alice"})))

	// Neither side gained a friend.
	aliceUser, _ := fx.store.GetUser(ctx, "alice")
	bobUser, _ := fx.store.GetUser(ctx, "bob")
	assert.False(t, aliceUser.HasFriend("bob"))
	assert.False(t, bobUser.HasFriend("alice"))

	// The invite is gone: declining again reports INVITE_NOT_FOUND.
	err := fx.friends.OnMessage(ctx, bob, envelope(t, "3", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodDecline, UUID: "alice"}))
	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeInviteNotFound, coded.Code)

	// Alice's friend list stays readable and empty.
	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "4", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodGet})))
	list := decodeData[types.FriendsList](t, alice.lastSent(t))
	assert.Empty(t, list.Friends)
}

func TestFriendsDuplicateInvite(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice")
	fx.store.addUser("bob", "Bob")
	ctx := context.Background()

	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "1", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "bob"})))

	err := fx.friends.OnMessage(ctx, alice, envelope(t, "2", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "bob"}))
	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeInviteExists, coded.Code)
}

func TestFriendsAddUnknownTarget(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice")

	err := fx.friends.OnMessage(context.Background(), alice, envelope(t, "1", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "nobody"}))
	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeUserNotFound, coded.Code)
	assert.Equal(t, "nobody", coded.Detail)
}

func TestFriendsGetMixesLiveAndStoredStatus(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	bob := newFakeConn("bob", "Bob")
	bob.UpdateStatus(types.Status{Online: true, Title: types.TitleInGame, Description: "somewhere"})
	fx := newFixture(t, alice, bob)
	fx.store.addUser("alice", "Alice", "bob", "carol", "ghost")
	fx.store.addUser("bob", "Bob", "alice")
	fx.store.addUser("carol", "Carol", "alice")

	require.NoError(t, fx.friends.OnMessage(context.Background(), alice,
		envelope(t, "1", types.ChannelFriends, types.FriendsRequest{Method: types.MethodGet})))

	list := decodeData[types.FriendsList](t, alice.lastSent(t))
	// ghost has no stored record and is skipped.
	require.Len(t, list.Friends, 2)

	byUUID := map[string]types.FriendEntry{}
	for _, e := range list.Friends {
		byUUID[e.UUID] = e
	}
	assert.Equal(t, types.TitleInGame, byUUID["bob"].Status.Title)
	assert.Equal(t, types.TitleOffline, byUUID["carol"].Status.Title)
	assert.Contains(t, byUUID["carol"].Status.Description, "Last seen 2 hours ago")
}

func TestFriendsRemoveIsMutual(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice", "bob")
	fx.store.addUser("bob", "Bob", "alice")
	ctx := context.Background()

	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "1", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodRemove, UUID: "bob"})))

	aliceUser, _ := fx.store.GetUser(ctx, "alice")
	bobUser, _ := fx.store.GetUser(ctx, "bob")
	assert.False(t, aliceUser.HasFriend("bob"))
	assert.False(t, bobUser.HasFriend("alice"))

	ack := decodeData[types.FriendsAck](t, alice.lastSent(t))
	assert.Equal(t, "bob", ack.UUID)
}

func TestFriendsBlockUnblock(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice")
	fx.store.addUser("bob", "Bob")
	ctx := context.Background()

	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "1", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodBlock, UUID: "bob"})))

	// Inviting a blocked identity is refused.
	err := fx.friends.OnMessage(ctx, alice, envelope(t, "2", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "bob"}))
	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeUserBlocked, coded.Code)

	err = fx.friends.OnMessage(ctx, alice, envelope(t, "3", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodBlock, UUID: "bob"}))
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeAlreadyBlocked, coded.Code)

	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "4", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodGetBlocked})))
	blocked := decodeData[types.BlockedList](t, alice.lastSent(t))
	require.Len(t, blocked.Blocked, 1)
	assert.Equal(t, "bob", blocked.Blocked[0].UUID)
	assert.Equal(t, "Bob", blocked.Blocked[0].Username)

	require.NoError(t, fx.friends.OnMessage(ctx, alice, envelope(t, "5", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodUnblock, UUID: "bob"})))

	err = fx.friends.OnMessage(ctx, alice, envelope(t, "6", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodUnblock, UUID: "bob"}))
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeNotBlocked, coded.Code)
}

func TestFriendsMalformedAndUnknownMethod(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice")
	ctx := context.Background()

	var coded *types.CodedError
	err := fx.friends.OnMessage(ctx, alice, envelope(t, "1", types.ChannelFriends, map[string]string{}))
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeMalformedPacket, coded.Code)

	err = fx.friends.OnMessage(ctx, alice, envelope(t, "2", types.ChannelFriends,
		types.FriendsRequest{Method: "selfdestruct"}))
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeUnknownMethod, coded.Code)
}

func TestMultiplexerUnknownChannelIsNotFatal(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice")
	ctx := context.Background()

	fx.mux.Dispatch(ctx, alice, envelope(t, "1", "bogus", map[string]string{}))
	env := alice.lastSent(t)
	require.NotNil(t, env.ID)
	assert.Equal(t, "1", *env.ID)
	assert.Equal(t, types.ChannelError, env.Type)
	errData := decodeData[types.ErrorData](t, env)
	assert.Contains(t, errData.Message, types.CodeUnknownChannel)

	// The connection keeps working.
	fx.mux.Dispatch(ctx, alice, envelope(t, "2", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodGet}))
	env = alice.lastSent(t)
	assert.Equal(t, types.ChannelFriends, env.Type)
}

func TestMultiplexerCorrelatesErrorReplies(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	fx := newFixture(t, alice)
	fx.store.addUser("alice", "Alice")

	fx.mux.Dispatch(context.Background(), alice, envelope(t, "7", types.ChannelFriends,
		types.FriendsRequest{Method: types.MethodAdd, UUID: "nobody"}))

	env := alice.lastSent(t)
	require.NotNil(t, env.ID)
	assert.Equal(t, "7", *env.ID)
	errData := decodeData[types.ErrorData](t, env)
	assert.Equal(t, "USER_NOT_FOUND:nobody", errData.Message)
}

func TestMultiplexerRejectsDuplicateChannel(t *testing.T) {
	mux := NewMultiplexer(newFakePresence(), testMetrics(), testLogger())
	require.NoError(t, mux.Register(NewErrors(testLogger())))
	err := mux.Register(NewErrors(testLogger()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestMultiplexerPushSkipsOffline(t *testing.T) {
	mux := NewMultiplexer(newFakePresence(), testMetrics(), testLogger())
	// No connection for the identity; Push must be a silent no-op.
	mux.Push("nobody", types.ChannelFriends, types.FriendsNotice{Method: types.MethodAdd})
}

func TestDispatchCollapsesUnknownChannelLabel(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	m := testMetrics()
	mux := NewMultiplexer(newFakePresence(alice), m, testLogger())
	require.NoError(t, mux.Register(NewErrors(testLogger())))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mux.Dispatch(ctx, alice, envelope(t, "1", fmt.Sprintf("junk-%d", i), map[string]string{}))
	}

	// Client-chosen channel names must not mint new counter labels.
	assert.Equal(t, 1, testutil.CollectAndCount(m.Envelopes))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.Envelopes.WithLabelValues("unknown")))
}

func TestUsersChannelReportsOnlineFlags(t *testing.T) {
	alice := newFakeConn("alice", "Alice")
	bob := newFakeConn("bob", "Bob")
	fx := newFixture(t, alice, bob)

	users := NewUsers(fx.presence, fx.mux)
	require.NoError(t, users.OnMessage(context.Background(), alice,
		envelope(t, "1", types.ChannelUser, types.UserRequest{
			Method: types.MethodGet,
			Users:  []string{"bob", "carol"},
		})))

	list := decodeData[types.UserList](t, alice.lastSent(t))
	require.Len(t, list.Users, 2)
	assert.True(t, list.Users[0].Online)
	assert.Equal(t, "carol", list.Users[1].UUID)
	assert.False(t, list.Users[1].Online)
}

func TestStatusUpdateVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload types.StatusUpdateRequest
		want    func(t *testing.T, s types.Status)
	}{
		{
			name: "online",
			payload: types.StatusUpdateRequest{
				UpdateType: types.UpdateOnline,
				Update:     json.RawMessage(`{"location":"MainMenu"}`),
			},
			want: func(t *testing.T, s types.Status) {
				assert.True(t, s.Online)
				assert.Equal(t, types.TitleOnline, s.Title)
				assert.Equal(t, "MainMenu", s.Description)
			},
		},
		{
			name:    "offline",
			payload: types.StatusUpdateRequest{UpdateType: types.UpdateOffline},
			want: func(t *testing.T, s types.Status) {
				assert.Equal(t, types.OfflineStatus(), s)
			},
		},
		{
			name: "inGame",
			payload: types.StatusUpdateRequest{
				UpdateType: types.UpdateInGame,
				Update:     json.RawMessage(`{"server":"Hypixel","gameType":"Bedwars","gameMode":"4s","map":"Aquarium","players":7,"maxPlayers":8,"startedAt":1700000000}`),
			},
			want: func(t *testing.T, s types.Status) {
				assert.Equal(t, types.TitleInGame, s.Title)
				assert.Equal(t, "Hypixel Bedwars/4s", s.Description)
				assert.Equal(t, "Aquarium (7/8)", s.Text)
				assert.Equal(t, int64(1700000000), s.StartedAt)
			},
		},
		{
			name: "inGameUnknown",
			payload: types.StatusUpdateRequest{
				UpdateType: types.UpdateInGameUnknown,
				Update:     json.RawMessage(`{"server":"private","worldName":"world","gamemode":"survival"}`),
			},
			want: func(t *testing.T, s types.Status) {
				assert.Equal(t, types.TitleInGameUnknown, s.Title)
				assert.Equal(t, "world (survival)", s.Text)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			alice := newFakeConn("alice", "Alice")
			recorder := &statusRecorder{}
			handler := NewStatusUpdate(recorder)

			err := handler.OnMessage(context.Background(), alice,
				envelope(t, "1", types.ChannelStatusUpdate, tc.payload))
			require.NoError(t, err)
			require.Equal(t, 1, recorder.calls)
			tc.want(t, recorder.status)
		})
	}
}

func TestStatusUpdateRejectsUnknownVariant(t *testing.T) {
	handler := NewStatusUpdate(&statusRecorder{})
	err := handler.OnMessage(context.Background(), newFakeConn("alice", "Alice"),
		envelope(t, "1", types.ChannelStatusUpdate,
			types.StatusUpdateRequest{UpdateType: "teleporting"}))

	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.CodeMalformedPacket, coded.Code)
}

func TestRateLimiterCapsWindow(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < rateLimitPerWindow; i++ {
		require.True(t, rl.Allow("alice"), "send %d should pass", i)
	}
	assert.False(t, rl.Allow("alice"))
	// Another identity has its own window.
	assert.True(t, rl.Allow("bob"))
}

func TestHumanizeLastSeen(t *testing.T) {
	tests := []struct {
		since time.Duration
		want  string
	}{
		{30 * time.Second, "Just now"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{49 * time.Hour, "2 days ago"},
		{8 * 24 * time.Hour, "1 weeks ago"},
		{40 * 24 * time.Hour, "1 months ago"},
		{400 * 24 * time.Hour, "1 years ago"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HumanizeLastSeen(tc.since), tc.since.String())
	}
}
