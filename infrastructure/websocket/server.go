// Package websocket carries relay envelopes over gorilla WebSocket connections.
// Each connection gets a read pump that submits frames to the relay and a
// write pump that drains the connection sink.
package websocket

import (
	"chat-relay/domain"
	"chat-relay/sink"
	"context"
	"log/slog"
	"net/http"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Relay is what the transport needs from the runtime.
type Relay interface {
	Connect() (domain.ConnID, *sink.ConnectionSink)
	Submit(ctx context.Context, conn domain.ConnID, frame []byte) error
	Disconnect(conn domain.ConnID)
}

type Config struct {
	MaxFrameSize   int64
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	AllowedOrigins []string
}

type Server struct {
	log      *slog.Logger
	relay    Relay
	cfg      Config
	upgrader gorilla.Upgrader
}

func NewServer(log *slog.Logger, relay Relay, cfg Config) *Server {
	s := &Server{log: log, relay: relay, cfg: cfg}
	s.upgrader = gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin accepts requests without Origin (non-browser clients), any origin when
// none is configured or "*" is listed, and otherwise only the listed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 || lo.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return lo.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.log.Debug("WebSocket upgrade refused", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn, out := s.relay.Connect()
	s.log.Info("WebSocket connected", "conn", conn, "remote", r.RemoteAddr)

	go s.writePump(ws, conn, out)
	s.readPump(r.Context(), ws, conn)

	s.relay.Disconnect(conn)
	_ = ws.Close()
	s.log.Info("WebSocket disconnected", "conn", conn)
}

func (s *Server) readPump(ctx context.Context, ws *gorilla.Conn, conn domain.ConnID) {
	if s.cfg.MaxFrameSize > 0 {
		ws.SetReadLimit(s.cfg.MaxFrameSize)
	}
	s.extendReadDeadline(ws)
	ws.SetPongHandler(func(string) error {
		s.extendReadDeadline(ws)
		return nil
	})

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure, gorilla.CloseNoStatusReceived) {
				s.log.Warn("WebSocket read failed", "conn", conn, "error", err)
			}
			return
		}
		if err := s.relay.Submit(ctx, conn, frame); err != nil {
			s.log.Debug("Frame not submitted", "conn", conn, "error", err)
			return
		}
	}
}

func (s *Server) extendReadDeadline(ws *gorilla.Conn) {
	if s.cfg.PongTimeout > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	}
}

// writePump is the only writer of ws. It stops when the sink is done, which happens on
// disconnect, on shutdown, or when the client reads too slowly.
func (s *Server) writePump(ws *gorilla.Conn, conn domain.ConnID, out *sink.ConnectionSink) {
	var ping <-chan time.Time
	if s.cfg.PongTimeout > 0 {
		ticker := time.NewTicker(s.cfg.PongTimeout * 9 / 10)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer ws.Close()

	for {
		select {
		case frame := <-out.Frames():
			s.extendWriteDeadline(ws)
			if err := ws.WriteMessage(gorilla.TextMessage, frame); err != nil {
				s.log.Debug("WebSocket write failed", "conn", conn, "error", err)
				return
			}
		case <-ping:
			s.extendWriteDeadline(ws)
			if err := ws.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		case <-out.Done():
			code, reason := gorilla.CloseGoingAway, "relay closed the connection"
			if out.Overflowed() {
				s.log.Warn("Evicting slow consumer", "conn", conn)
				code, reason = gorilla.ClosePolicyViolation, "slow consumer"
			}
			s.extendWriteDeadline(ws)
			_ = ws.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(code, reason))
			return
		}
	}
}

func (s *Server) extendWriteDeadline(ws *gorilla.Conn) {
	if s.cfg.WriteTimeout > 0 {
		_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
}
