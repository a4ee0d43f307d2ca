package mcpquic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"

	"github.com/hazyhaar/folio/pkg/kit"
)

// Handler serves MCP sessions on QUIC connections accepted elsewhere. The
// chassis hands it every connection that negotiated ALPN.
type Handler struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewHandler wraps an MCP server.
func NewHandler(mcpSrv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcpServer: mcpSrv, logger: logger}
}

// ServeConn runs one MCP session on the first stream the peer opens and
// returns when the stream or ctx ends.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		h.logger.Debug("mcpquic: no stream", "remote", remote, "error", err)
		conn.CloseWithError(connErrProtocol, "stream accept failed")
		return
	}
	if err := readPreamble(stream); err != nil {
		h.logger.Warn("mcpquic: rejected connection", "remote", remote, "error", err)
		stream.CancelRead(streamErrProtocol)
		stream.CancelWrite(streamErrProtocol)
		conn.CloseWithError(connErrProtocol, "bad preamble")
		return
	}

	sess := &session{
		id:            "quic_" + uuid.NewString(),
		notifications: make(chan mcp.JSONRPCNotification, 64),
	}
	if err := h.mcpServer.RegisterSession(ctx, sess); err != nil {
		h.logger.Error("mcpquic: register session", "error", err)
		stream.Close()
		return
	}
	defer h.mcpServer.UnregisterSession(ctx, sess.id)
	h.logger.Info("mcpquic: session started", "session", sess.id, "remote", remote)

	ctx, cancel := context.WithCancel(kit.WithTransport(h.mcpServer.WithContext(ctx, sess), "mcp_quic"))
	defer cancel()
	go sess.forwardNotifications(ctx, stream)

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64<<10), MaxMessageSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := h.mcpServer.HandleMessage(ctx, json.RawMessage(line))
		if resp == nil {
			continue
		}
		if err := sess.send(stream, resp); err != nil {
			h.logger.Debug("mcpquic: write failed", "session", sess.id, "error", err)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			stream.CancelRead(streamErrTooLarge)
		}
		if ctx.Err() == nil {
			h.logger.Warn("mcpquic: read failed", "session", sess.id, "error", err)
		}
	}
	stream.Close()
	h.logger.Info("mcpquic: session ended", "session", sess.id)
}

// session is the server.ClientSession of one QUIC stream.
type session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
	writeMu       sync.Mutex
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

// send writes one message line. Responses and notifications share the
// stream, so writes are serialized.
func (s *session) send(w io.Writer, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *session) forwardNotifications(ctx context.Context, w io.Writer) {
	for {
		select {
		case n := <-s.notifications:
			if err := s.send(w, n); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
