// Package tcpserver hosts the binary transport: framed fixed-width messages
// over a plain TCP listener.
package tcpserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AxolotlClient/AxolotlClient-API/internal/metrics"
	"github.com/AxolotlClient/AxolotlClient-API/internal/user"
	"github.com/AxolotlClient/AxolotlClient-API/pkg/protocol"
)

// frame outcome labels for the frames_total counter.
const (
	resultDecoded   = "decoded"
	resultUnknown   = "unknown"
	resultBadMagic  = "bad_magic"
	resultDecodeErr = "decode_error"
)

// LatestVersion is reported in the globalData reply's fixed version slot.
const LatestVersion = "1.0.0"

// ClientConn is one accepted binary-transport client. The write mutex keeps
// concurrently produced frames from interleaving.
type ClientConn struct {
	conn net.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	identity string
}

// Send encodes and writes one complete frame.
func (c *ClientConn) Send(version byte, m protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.Write(c.conn, version, m)
}

// Identity returns the identity claimed in the handshake, or "" before it.
func (c *ClientConn) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

func (c *ClientConn) setIdentity(id string) {
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
}

// HandlerFunc processes one decoded message. A non-nil error tears the
// connection down.
type HandlerFunc func(ctx context.Context, conn *ClientConn, m protocol.Message) error

// Server owns the listener and the per-message handler table. Handlers are
// keyed by logical message name so a future protocol version reuses them.
type Server struct {
	addr        string
	readTimeout time.Duration
	registry    *protocol.Registry
	handlers    map[string]HandlerFunc
	users       *user.Manager
	metrics     *metrics.Metrics
	log         *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[*ClientConn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer builds the server with the default v1 handler table.
func NewServer(addr string, readTimeout time.Duration, users *user.Manager, m *metrics.Metrics, log *slog.Logger) (*Server, error) {
	registry, err := protocol.NewRegistry(protocol.Version1, protocol.V1ClientMessages()...)
	if err != nil {
		return nil, err
	}
	s := &Server{
		addr:        addr,
		readTimeout: readTimeout,
		registry:    registry,
		users:       users,
		metrics:     m,
		log:         log.With("component", "tcpserver"),
		conns:       make(map[*ClientConn]struct{}),
	}
	s.handlers = map[string]HandlerFunc{
		protocol.NameHandshake:  s.handleHandshake,
		protocol.NameGlobalData: s.handleGlobalData,
	}
	return s, nil
}

// Start binds the listener and begins accepting in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info("binary transport listening", "addr", listener.Addr().String())
	s.wg.Add(1)
	go s.acceptLoop(ctx, listener)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.serve(ctx, conn)
	}
}

// Serve handles a single already-accepted connection until it closes. It is
// exported for in-process transports in tests.
func (s *Server) Serve(ctx context.Context, conn net.Conn) {
	s.wg.Add(1)
	s.serve(ctx, conn)
}

func (s *Server) serve(ctx context.Context, netConn net.Conn) {
	defer s.wg.Done()

	client := &ClientConn{conn: netConn}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = netConn.Close()
		return
	}
	s.conns[client] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, client)
		s.mu.Unlock()
		_ = netConn.Close()
	}()

	reader := bufio.NewReader(netConn)
	for {
		if s.readTimeout > 0 {
			_ = netConn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}

		header, err := protocol.ReadHeader(reader)
		if err != nil {
			if errors.Is(err, protocol.ErrBadMagic) {
				// Stream framing is gone; nothing after this point can be
				// trusted.
				s.metrics.Frames.WithLabelValues(resultBadMagic).Inc()
				s.log.Warn("bad frame magic, closing connection", "remote", netConn.RemoteAddr().String())
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Debug("frame read ended", "remote", netConn.RemoteAddr().String(), "error", err)
			}
			return
		}

		msg, ok := s.registry.New(header.Version, header.Direction, header.MessageID)
		if !ok {
			// Fixed-width framing gives no payload length for an unknown id,
			// so the remainder of the buffer is unrecoverable.
			s.metrics.Frames.WithLabelValues(resultUnknown).Inc()
			s.log.Warn("unknown message id, dropping buffered input",
				"version", header.Version,
				"direction", header.Direction.String(),
				"id", header.MessageID)
			discardBuffered(reader)
			continue
		}

		if err := msg.Decode(reader); err != nil {
			s.metrics.Frames.WithLabelValues(resultDecodeErr).Inc()
			s.log.Warn("payload decode failed, closing connection",
				"message", msg.Name(), "error", err)
			return
		}
		s.metrics.Frames.WithLabelValues(resultDecoded).Inc()

		handler, ok := s.handlers[msg.Name()]
		if !ok {
			s.log.Debug("no handler for message", "message", msg.Name())
			continue
		}
		if err := handler(ctx, client, msg); err != nil {
			s.log.Warn("handler failed, closing connection",
				"message", msg.Name(), "identity", client.Identity(), "error", err)
			return
		}
	}
}

func discardBuffered(r *bufio.Reader) {
	if n := r.Buffered(); n > 0 {
		_, _ = r.Discard(n)
	}
}

func (s *Server) handleHandshake(_ context.Context, conn *ClientConn, m protocol.Message) error {
	req := m.(*protocol.CHandshake)

	status := protocol.HandshakeSuccess
	if req.UUID == uuid.Nil {
		status = protocol.HandshakeFailure
	} else {
		conn.setIdentity(req.UUID.String())
		s.log.Debug("binary client identified",
			"identity", req.UUID.String(), "player_name", req.PlayerName)
	}
	return conn.Send(protocol.Version1, &protocol.SHandshake{Status: status})
}

func (s *Server) handleGlobalData(ctx context.Context, conn *ClientConn, _ protocol.Message) error {
	counts, err := s.users.Counts(ctx)
	if err != nil {
		s.log.Error("count query failed", "error", err)
		return conn.Send(protocol.Version1, &protocol.SGlobalData{Status: protocol.HandshakeFailure})
	}
	return conn.Send(protocol.Version1, &protocol.SGlobalData{
		Status:        protocol.HandshakeSuccess,
		TotalPlayers:  uint32(counts.Total),
		PlayersOnline: uint32(counts.Online),
		LatestVersion: LatestVersion,
	})
}

// Stop closes the listener and every open connection, then waits for the
// per-connection goroutines to drain.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	listener := s.listener
	for conn := range s.conns {
		_ = conn.conn.Close()
	}
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	s.wg.Wait()
}
