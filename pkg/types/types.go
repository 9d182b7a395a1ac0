package types

import (
	"encoding/json"
	"time"
)

// Logical channel names multiplexed over a single physical connection.
const (
	ChannelHandshake    = "handshake"
	ChannelFriends      = "friends"
	ChannelStatusUpdate = "statusUpdate"
	ChannelUser         = "user"
	ChannelError        = "error"
)

// Envelope is the JSON wrapper carried by the legacy transport. ID correlates
// a request with its response; server-initiated pushes leave it nil.
type Envelope struct {
	ID        *string         `json:"id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope marshals data into an envelope for the given channel, stamped
// with the current time.
func NewEnvelope(id *string, channel string, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        id,
		Type:      channel,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Status titles understood by clients.
const (
	TitleOnline        = "ONLINE"
	TitleOffline       = "OFFLINE"
	TitleInGame        = "IN_GAME"
	TitleInGameUnknown = "IN_GAME_UNKNOWN"

	DescriptionInMenu = "IN_MENU"
)

// Status is a connection's presence value. It is mutated only through the
// owning connection's status-update path, never by peers.
type Status struct {
	Online      bool   `json:"online"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text,omitempty"`
	Icon        string `json:"icon,omitempty"`
	StartedAt   int64  `json:"startedAt,omitempty"`
}

// OfflineStatus is the well-known default presence value.
func OfflineStatus() Status {
	return Status{
		Online:      false,
		Title:       TitleOffline,
		Description: "Status is unknown",
		Icon:        "offline",
	}
}

// MenuStatus is the presence value assigned right after a successful
// handshake.
func MenuStatus() Status {
	return Status{
		Online:      true,
		Title:       TitleOnline,
		Description: DescriptionInMenu,
		Icon:        "online",
	}
}

// User is the persisted identity record. Friends and Blocked are each user's
// own lists; mutual symmetry is not enforced by the store.
type User struct {
	UUID      string    `json:"uuid"`
	Username  string    `json:"username"`
	Friends   []string  `json:"friends"`
	Blocked   []string  `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// HasFriend reports whether other appears in the user's own friend list.
func (u *User) HasFriend(other string) bool {
	for _, f := range u.Friends {
		if f == other {
			return true
		}
	}
	return false
}

// HasBlocked reports whether other appears in the user's block list.
func (u *User) HasBlocked(other string) bool {
	for _, b := range u.Blocked {
		if b == other {
			return true
		}
	}
	return false
}

// FriendInvite is a pending, unanswered friend request. At most one invite
// exists per ordered (From, To) pair; it is destroyed on accept or decline.
type FriendInvite struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}
