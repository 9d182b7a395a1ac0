package gateway

import (
	"log/slog"
	"sync"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
)

// Registry owns the pre-connection and connection tables. It is the single
// source of truth for "is this identity currently reachable"; nothing else
// mutates the tables.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection    // identity -> connection
	pre         map[string]*PreConnection // instance id -> pre-connection
	log         *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		pre:         make(map[string]*PreConnection),
		log:         log.With("component", "registry"),
	}
}

// AddPre registers a freshly accepted socket in the pre-connection table.
func (r *Registry) AddPre(transport Transport) *PreConnection {
	p := newPreConnection(transport)
	r.mu.Lock()
	r.pre[p.id] = p
	r.mu.Unlock()
	return p
}

// RemovePre discards a pre-connection, e.g. when the socket closes before
// the handshake. Removing an absent entry is not an error.
func (r *Registry) RemovePre(p *PreConnection) {
	r.mu.Lock()
	delete(r.pre, p.id)
	r.mu.Unlock()
}

// CreateConnection promotes a pre-connection to an authenticated Connection.
// The pre-connection entry is removed idempotently. A second handshake for
// an already-connected identity replaces the prior entry; the old connection
// is closed asynchronously to avoid holding the lock across Close.
func (r *Registry) CreateConnection(p *PreConnection, identity, username string) *Connection {
	conn := newConnection(p.transport, identity, username, randomID())

	r.mu.Lock()
	delete(r.pre, p.id)
	if prior, ok := r.connections[identity]; ok {
		go func() {
			if err := prior.Close(); err != nil {
				r.log.Warn("failed to close replaced connection", "identity", identity, "error", err)
			}
		}()
	}
	r.connections[identity] = conn
	r.mu.Unlock()

	r.log.Debug("connection created", "identity", identity, "connection_id", conn.connectionID)
	return conn
}

// RemoveConnection drops a connection from the table. The entry is removed
// only when it is still the registered instance, so a stale close after a
// last-writer-wins replacement cannot evict the newer connection. The return
// value reports whether this instance was the registered one; callers use it
// to decide whether the identity actually went offline.
func (r *Registry) RemoveConnection(conn *Connection) bool {
	r.mu.Lock()
	current, ok := r.connections[conn.identity]
	removed := ok && current == conn
	if removed {
		delete(r.connections, conn.identity)
	}
	r.mu.Unlock()
	if removed {
		r.log.Debug("connection removed", "identity", conn.identity, "connection_id", conn.connectionID)
	}
	return removed
}

// IsOnline reports whether the identity has a registered connection.
func (r *Registry) IsOnline(uuid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connections[uuid]
	return ok
}

// Lookup resolves an identity to its connection.
func (r *Registry) Lookup(uuid string) (interfaces.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[uuid]
	if !ok {
		return nil, false
	}
	return conn, true
}

// Connections snapshots the connection table for iteration outside the lock.
func (r *Registry) Connections() []interfaces.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]interfaces.Conn, 0, len(r.connections))
	for _, conn := range r.connections {
		out = append(out, conn)
	}
	return out
}

// OnlineCount reports the number of authenticated connections.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
