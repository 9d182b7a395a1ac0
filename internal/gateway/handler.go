package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AxolotlClient/AxolotlClient-API/internal/metrics"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/interfaces"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// wsTransport adapts a gorilla connection to the Transport seam.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Close() error { return t.conn.Close() }

// Handler accepts sockets, runs the handshake transition and pumps envelopes
// into the dispatcher. One goroutine per accepted connection; messages from
// one socket are processed in receipt order.
type Handler struct {
	registry   *Registry
	store      interfaces.Store
	resolver   interfaces.Resolver
	presence   interfaces.Presence
	dispatcher interfaces.Dispatcher
	metrics    *metrics.Metrics
	log        *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration
}

// HandlerConfig carries the gateway timeouts.
type HandlerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// NewHandler wires the gateway. The dispatcher is injected so the channel
// layer stays free of transport concerns.
func NewHandler(registry *Registry, store interfaces.Store, resolver interfaces.Resolver,
	presence interfaces.Presence, dispatcher interfaces.Dispatcher,
	m *metrics.Metrics, cfg HandlerConfig, log *slog.Logger) *Handler {
	return &Handler{
		registry:     registry,
		store:        store,
		resolver:     resolver,
		presence:     presence,
		dispatcher:   dispatcher,
		metrics:      m,
		log:          log.With("component", "gateway"),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
	}
}

// ServeWS upgrades the request and runs the connection until the socket
// closes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	go h.serve(ws)
}

func (h *Handler) serve(ws *websocket.Conn) {
	transport := &wsTransport{conn: ws, writeTimeout: h.writeTimeout}
	pre := h.registry.AddPre(transport)

	var conn *Connection
	defer func() {
		if conn != nil {
			h.teardown(conn)
		} else {
			h.registry.RemovePre(pre)
			_ = transport.Close()
		}
	}()

	if err := ws.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		return
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go h.pingLoop(ws, stopPing)

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("socket read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Debug("dropping unparseable envelope", "error", err)
			continue
		}

		// Channels are unreachable before the handshake: pre-connections
		// route exclusively to the handshake handler.
		if conn == nil {
			conn = h.handleHandshake(context.Background(), pre, &env)
			continue
		}

		h.dispatcher.Dispatch(context.Background(), conn, &env)
	}
}

func (h *Handler) pingLoop(ws *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// handleHandshake runs the PreConnection -> Connection transition. On any
// failure the client gets an explicit correlated error and the socket stays
// a pre-connection; the handshake never completes silently with an empty
// identity.
func (h *Handler) handleHandshake(ctx context.Context, pre *PreConnection, env *types.Envelope) *Connection {
	if env.Type != types.ChannelHandshake {
		h.replyPreError(pre, env.ID, types.NewCodedError(types.CodeHandshakeFailed, "expected handshake"))
		return nil
	}

	var req types.HandshakeRequest
	if err := json.Unmarshal(env.Data, &req); err != nil || req.UUID == "" {
		h.replyPreError(pre, env.ID, types.NewCodedError(types.CodeMalformedPacket, `missing property "uuid"`))
		return nil
	}
	if _, err := uuid.Parse(req.UUID); err != nil {
		h.replyPreError(pre, env.ID, types.NewCodedError(types.CodeHandshakeFailed, req.UUID))
		return nil
	}

	username, err := h.resolver.ResolveDisplayName(ctx, req.UUID)
	if err != nil {
		h.log.Warn("display name resolution failed", "identity", req.UUID, "error", err)
		h.replyPreError(pre, env.ID, types.NewCodedError(types.CodeHandshakeFailed, req.UUID))
		return nil
	}

	user, err := h.store.GetUser(ctx, req.UUID)
	switch {
	case errors.Is(err, interfaces.ErrUserNotFound):
		if _, err := h.store.CreateUser(ctx, req.UUID, username); err != nil {
			h.log.Error("user provisioning failed", "identity", req.UUID, "error", err)
			h.replyPreError(pre, env.ID, types.NewCodedError(types.CodeInternalError, ""))
			return nil
		}
	case err != nil:
		h.log.Error("user lookup failed", "identity", req.UUID, "error", err)
		h.replyPreError(pre, env.ID, types.NewCodedError(types.CodeInternalError, ""))
		return nil
	case user.Username != username:
		// Upstream renamed the account; refresh the stored name.
		user.Username = username
		if err := h.store.SaveUser(ctx, user); err != nil {
			h.log.Warn("username refresh failed", "identity", req.UUID, "error", err)
		}
	}

	conn := h.registry.CreateConnection(pre, req.UUID, username)
	h.metrics.OpenConnections.Inc()

	reply, err := types.NewEnvelope(env.ID, types.ChannelHandshake, types.HandshakeResponse{
		UUID:         conn.Identity(),
		ConnectionID: conn.ConnectionID(),
	})
	if err == nil {
		err = conn.Send(reply)
	}
	if err != nil {
		h.log.Warn("handshake reply failed", "identity", req.UUID, "error", err)
	}

	h.log.Info("user connected", "identity", req.UUID, "username", username,
		"connection_id", conn.ConnectionID())

	if err := h.presence.SetStatus(ctx, conn, types.MenuStatus()); err != nil {
		h.log.Warn("initial status fan-out failed", "identity", req.UUID, "error", err)
	}
	return conn
}

// teardown handles Connection -> Closed: the entry leaves the table, friends
// see the well-known Offline value and last_seen is persisted. When this
// instance was already replaced by a newer connection for the same identity,
// the registry still lists the identity as reachable; a replaced socket must
// not fan out Offline or stamp last_seen.
func (h *Handler) teardown(conn *Connection) {
	ctx := context.Background()

	removed := h.registry.RemoveConnection(conn)
	h.metrics.OpenConnections.Dec()
	_ = conn.Close()

	if !removed {
		h.log.Debug("replaced connection torn down", "identity", conn.Identity(),
			"connection_id", conn.ConnectionID())
		return
	}

	if err := h.presence.SetStatus(ctx, conn, types.OfflineStatus()); err != nil {
		h.log.Warn("offline fan-out failed", "identity", conn.Identity(), "error", err)
	}

	if err := h.store.TouchLastSeen(ctx, conn.Identity(), time.Now()); err != nil {
		h.log.Warn("last_seen update failed", "identity", conn.Identity(), "error", err)
	}

	h.log.Info("user disconnected", "identity", conn.Identity(),
		"connection_id", conn.ConnectionID())
}

func (h *Handler) replyPreError(pre *PreConnection, id *string, cerr *types.CodedError) {
	env, err := types.NewEnvelope(id, types.ChannelError, types.ErrorData{Message: cerr.Error()})
	if err != nil {
		return
	}
	if err := pre.send(env); err != nil {
		h.log.Debug("pre-connection error reply failed", "error", err)
	}
}
