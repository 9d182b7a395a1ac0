package types

import "encoding/json"

// Friends channel methods.
const (
	MethodGet         = "get"
	MethodGetRequests = "getRequests"
	MethodGetBlocked  = "getBlocked"
	MethodAdd         = "add"
	MethodAccept      = "accept"
	MethodDecline     = "decline"
	MethodRemove      = "remove"
	MethodBlock       = "block"
	MethodUnblock     = "unblock"
)

// FriendsRequest is the client payload for the friends channel. UUID is the
// target identity for every method that takes one.
type FriendsRequest struct {
	Method string `json:"method"`
	UUID   string `json:"uuid,omitempty"`
}

// FriendEntry is one row of a friends "get" response.
type FriendEntry struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Status   Status `json:"status"`
}

// FriendsList is the friends "get" response.
type FriendsList struct {
	Method  string        `json:"method"`
	Friends []FriendEntry `json:"friends"`
}

// InviteEntry identifies the other party of a pending invite.
type InviteEntry struct {
	UUID string `json:"uuid"`
}

// FriendRequests is the friends "getRequests" response.
type FriendRequests struct {
	Method   string        `json:"method"`
	Incoming []InviteEntry `json:"incoming"`
	Outgoing []InviteEntry `json:"outgoing"`
}

// BlockedEntry is one row of a friends "getBlocked" response.
type BlockedEntry struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
}

// BlockedList is the friends "getBlocked" response.
type BlockedList struct {
	Method  string         `json:"method"`
	Blocked []BlockedEntry `json:"blocked"`
}

// FriendsAck confirms a state-changing friends method back to its sender.
type FriendsAck struct {
	Method  string `json:"method"`
	Success bool   `json:"success"`
	UUID    string `json:"uuid,omitempty"`
}

// FriendsNotice is the unicast push delivered to the other party of an
// invite on add, accept and decline.
type FriendsNotice struct {
	Method   string `json:"method"`
	From     string `json:"from"`
	Username string `json:"username,omitempty"`
}

// Status update discriminators.
const (
	UpdateOnline        = "online"
	UpdateOffline       = "offline"
	UpdateInGame        = "inGame"
	UpdateInGameUnknown = "inGameUnknown"
)

// StatusUpdateRequest is the client payload for the statusUpdate channel.
// Update is decoded per UpdateType.
type StatusUpdateRequest struct {
	UpdateType string          `json:"updateType"`
	Update     json.RawMessage `json:"update,omitempty"`
}

// OnlineUpdate carries the "online" variant fields.
type OnlineUpdate struct {
	Location string `json:"location"`
}

// InGameUpdate carries the full in-game variant fields.
type InGameUpdate struct {
	Server     string `json:"server"`
	GameType   string `json:"gameType"`
	GameMode   string `json:"gameMode"`
	Map        string `json:"map"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	StartedAt  int64  `json:"startedAt"`
}

// InGameUnknownUpdate carries the reduced in-game variant for unrecognized
// servers.
type InGameUnknownUpdate struct {
	Server    string `json:"server"`
	WorldType string `json:"worldType"`
	WorldName string `json:"worldName"`
	Gamemode  string `json:"gamemode"`
	StartedAt int64  `json:"startedAt"`
}

// StatusPush is the server-initiated statusUpdate fan-out payload.
type StatusPush struct {
	UUID   string `json:"uuid"`
	Status Status `json:"status"`
}

// UserRequest is the client payload for the user channel.
type UserRequest struct {
	Method string   `json:"method"`
	Users  []string `json:"users,omitempty"`
}

// UserEntry is one row of a user "get" response.
type UserEntry struct {
	UUID   string `json:"uuid"`
	Online bool   `json:"online"`
}

// UserList is the user "get" response.
type UserList struct {
	Method string      `json:"method"`
	Users  []UserEntry `json:"users"`
}

// HandshakeRequest is the identity claim sent on a pre-connection. The
// exchange is a placeholder; no credentials are verified.
type HandshakeRequest struct {
	UUID string `json:"uuid"`
}

// HandshakeResponse confirms a successful handshake.
type HandshakeResponse struct {
	UUID         string `json:"uuid"`
	ConnectionID string `json:"connectionId"`
}

// ErrorData is the error channel payload, correlated to the triggering
// request through the envelope id.
type ErrorData struct {
	Message string `json:"message"`
}
