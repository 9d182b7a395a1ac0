// Package interfaces defines the seams between the gateway, the channel
// layer and the external collaborators. Implementations live under internal/;
// tests substitute in-memory fakes.
package interfaces

import (
	"context"
	"time"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Conn is an authenticated connection as seen by channel handlers. Send is
// safe for concurrent use; writes to a closed connection return
// ErrConnectionClosed from the implementation rather than panicking.
type Conn interface {
	// Identity returns the stable identity id (uuid) of the connected user.
	Identity() string

	// Username returns the cached display name resolved at handshake time.
	Username() string

	// ConnectionID returns the transient per-connection id, reassigned on
	// every reconnect.
	ConnectionID() string

	// Status returns the connection's current presence value.
	Status() types.Status

	// UpdateStatus replaces the presence value. Callers go through the
	// presence layer so that fan-out happens; handlers never call this
	// directly.
	UpdateStatus(types.Status)

	// Send queues an envelope for delivery to the client.
	Send(env *types.Envelope) error

	// Close tears down the underlying socket.
	Close() error
}

// PresenceView is the read-only view of the connection table. Handler code
// only reads the table; all mutation happens in the gateway registry.
type PresenceView interface {
	IsOnline(uuid string) bool
	Lookup(uuid string) (Conn, bool)
	Connections() []Conn
}

// Presence applies a status mutation to a connection and fans the new value
// out to the owner's online friends.
type Presence interface {
	SetStatus(ctx context.Context, conn Conn, status types.Status) error
}

// Dispatcher routes a decoded envelope from an authenticated connection to
// its logical channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, conn Conn, env *types.Envelope)
}

// Store is the persistence collaborator. All methods are safe for concurrent
// use; not-found conditions are reported through the sentinel errors in this
// package, never as nil results.
type Store interface {
	// GetUser returns the user record for uuid, or ErrUserNotFound.
	GetUser(ctx context.Context, uuid string) (*types.User, error)

	// CreateUser inserts a fresh record with empty friend and block lists.
	CreateUser(ctx context.Context, uuid, username string) (*types.User, error)

	// SaveUser persists a mutated record.
	SaveUser(ctx context.Context, user *types.User) error

	// SaveUsers persists several mutated records in one transaction; either
	// all of them are written or none is.
	SaveUsers(ctx context.Context, users ...*types.User) error

	// TouchLastSeen records when the identity was last reachable.
	TouchLastSeen(ctx context.Context, uuid string, at time.Time) error

	// CountUsers returns the total number of persisted identities.
	CountUsers(ctx context.Context) (int, error)

	// CreateInvite records a pending invite, or ErrInviteExists when an
	// unanswered invite for the same ordered pair already exists.
	CreateInvite(ctx context.Context, from, to string) (*types.FriendInvite, error)

	// GetInvite returns the pending invite for the ordered pair, or
	// ErrInviteNotFound.
	GetInvite(ctx context.Context, from, to string) (*types.FriendInvite, error)

	// InvitesFor returns all pending invites addressed to and sent by uuid.
	InvitesFor(ctx context.Context, uuid string) (incoming, outgoing []*types.FriendInvite, err error)

	// DeleteInvite removes an invite by id. Deleting an absent invite is not
	// an error.
	DeleteInvite(ctx context.Context, id string) error

	Close() error
}

// Resolver maps a stable identity to its upstream display name.
type Resolver interface {
	// ResolveDisplayName returns the display name for uuid, or
	// ErrNameNotFound when the identity is unknown upstream.
	ResolveDisplayName(ctx context.Context, uuid string) (string, error)
}
