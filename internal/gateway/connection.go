package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Transport is the minimal surface of an underlying duplex socket. The
// gorilla adapter in handler.go is the production implementation; tests use
// in-memory fakes.
type Transport interface {
	WriteMessage(data []byte) error
	Close() error
}

const writeBuffer = 100

// Connection is an authenticated connection. Writes are serialized through a
// single writer goroutine; all other fields are fixed at promotion time
// except the presence value.
type Connection struct {
	identity     string
	username     string
	connectionID string

	transport Transport
	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.RWMutex
	status types.Status
}

func newConnection(transport Transport, identity, username, connectionID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		identity:     identity,
		username:     username,
		connectionID: connectionID,
		transport:    transport,
		writeCh:      make(chan []byte, writeBuffer),
		ctx:          ctx,
		cancel:       cancel,
		status:       types.OfflineStatus(),
	}
	go c.writeLoop()
	return c
}

func (c *Connection) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.transport.WriteMessage(data); err != nil {
				// A dead writer must not keep accepting sends; closing here
				// makes them fail fast with ErrConnectionClosed.
				_ = c.Close()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) Identity() string     { return c.identity }
func (c *Connection) Username() string     { return c.username }
func (c *Connection) ConnectionID() string { return c.connectionID }

func (c *Connection) Status() types.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Connection) UpdateStatus(status types.Status) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

// Send queues an envelope for delivery. A stale send to a closed connection
// returns ErrConnectionClosed instead of blocking or panicking.
func (c *Connection) Send(env *types.Envelope) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(5 * time.Second):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close cancels the writer and tears down the transport. Safe to call more
// than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.transport.Close()
	})
	return err
}
