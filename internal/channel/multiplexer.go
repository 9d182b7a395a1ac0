// Package channel implements the logical channels multiplexed over one
// physical connection and the dispatcher that routes envelopes to them.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AxolotlClient/AxolotlClient-API/internal/metrics"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

// Handler is one named logical channel. Handlers are stateless singletons
// registered once at startup; a returned error becomes a correlated reply on
// the error channel.
type Handler interface {
	Name() string
	OnMessage(ctx context.Context, conn interfaces.Conn, env *types.Envelope) error
}

// Multiplexer routes decoded envelopes to channel handlers and implements
// the send/broadcast/close side of the channel contract, keeping handlers
// free of transport state.
type Multiplexer struct {
	channels map[string]Handler
	presence interfaces.PresenceView
	limiter  *RateLimiter
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewMultiplexer creates an empty multiplexer. Channels are added by an
// explicit Register pass before the first Dispatch.
func NewMultiplexer(presence interfaces.PresenceView, m *metrics.Metrics, log *slog.Logger) *Multiplexer {
	return &Multiplexer{
		channels: make(map[string]Handler),
		presence: presence,
		limiter:  NewRateLimiter(),
		metrics:  m,
		log:      log.With("component", "multiplexer"),
	}
}

// Register adds handlers to the channel table. Exactly one channel may own a
// given name; a duplicate is a configuration error and fails startup.
func (m *Multiplexer) Register(handlers ...Handler) error {
	for _, h := range handlers {
		if _, dup := m.channels[h.Name()]; dup {
			return fmt.Errorf("channel %q registered twice", h.Name())
		}
		m.channels[h.Name()] = h
	}
	return nil
}

// Dispatch routes one envelope. Failures are fatal for the message, never
// for the connection: every recoverable error yields a correlated error
// reply and the socket stays open.
func (m *Multiplexer) Dispatch(ctx context.Context, conn interfaces.Conn, env *types.Envelope) {
	if !m.limiter.Allow(conn.Identity()) {
		m.replyError(conn, env.ID, types.NewCodedError(types.CodeRateLimited, ""))
		return
	}

	handler, ok := m.channels[env.Type]
	if !ok {
		// The channel name is client-controlled; unrecognized names share one
		// counter label so a client cannot grow metric cardinality.
		m.metrics.Envelopes.WithLabelValues("unknown").Inc()
		m.log.Warn("envelope for unknown channel", "channel", env.Type, "identity", conn.Identity())
		m.replyError(conn, env.ID, types.NewCodedError(types.CodeUnknownChannel, env.Type))
		return
	}
	m.metrics.Envelopes.WithLabelValues(env.Type).Inc()

	if err := handler.OnMessage(ctx, conn, env); err != nil {
		var coded *types.CodedError
		if errors.As(err, &coded) {
			m.replyError(conn, env.ID, coded)
			return
		}
		m.log.Error("channel handler failed", "channel", env.Type,
			"identity", conn.Identity(), "error", err)
		m.replyError(conn, env.ID, types.NewCodedError(types.CodeInternalError, ""))
	}
}

// Send delivers a correlated reply to one connection.
func (m *Multiplexer) Send(conn interfaces.Conn, channel string, id *string, data any) error {
	env, err := types.NewEnvelope(id, channel, data)
	if err != nil {
		return err
	}
	return conn.Send(env)
}

// Push delivers a server-initiated message to an identity. Delivery is
// skipped silently when the identity is offline; there is no queued
// delivery.
func (m *Multiplexer) Push(uuid, channel string, data any) {
	conn, ok := m.presence.Lookup(uuid)
	if !ok {
		return
	}
	env, err := types.NewEnvelope(nil, channel, data)
	if err != nil {
		m.log.Error("push marshalling failed", "channel", channel, "error", err)
		return
	}
	if err := conn.Send(env); err != nil {
		m.log.Debug("push delivery failed", "channel", channel, "to", uuid, "error", err)
	}
}

// Broadcast pushes to every authenticated connection. Per-recipient failures
// are independent.
func (m *Multiplexer) Broadcast(channel string, data any) {
	env, err := types.NewEnvelope(nil, channel, data)
	if err != nil {
		m.log.Error("broadcast marshalling failed", "channel", channel, "error", err)
		return
	}
	for _, conn := range m.presence.Connections() {
		if err := conn.Send(env); err != nil {
			m.log.Debug("broadcast delivery failed", "channel", channel,
				"to", conn.Identity(), "error", err)
		}
	}
}

// CloseConn tears down one connection on behalf of a channel.
func (m *Multiplexer) CloseConn(conn interfaces.Conn) {
	_ = conn.Close()
}

// Cleanup drops idle rate-limiter state. Run it periodically.
func (m *Multiplexer) Cleanup() {
	m.limiter.Cleanup()
}

func (m *Multiplexer) replyError(conn interfaces.Conn, id *string, cerr *types.CodedError) {
	env, err := types.NewEnvelope(id, types.ChannelError, types.ErrorData{Message: cerr.Error()})
	if err != nil {
		return
	}
	if err := conn.Send(env); err != nil {
		m.log.Debug("error reply delivery failed", "to", conn.Identity(), "error", err)
	}
}
