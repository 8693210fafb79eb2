package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mklatt/glowcast/internal/logging"
)

// CloseUnknownChannel is the close code sent when a viewer attaches to a
// channel that does not exist. Distinct from policy codes so display
// firmware can tell "bad config" apart from transient server trouble.
const CloseUnknownChannel = 4004

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers are kiosks and OBS browser sources, no origin to trust
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	channel := c.Param("channel")
	ctx := c.Request().Context()
	logger := logging.WithChannel(channel)

	exists, err := s.app.ChannelExists(ctx, channel)
	if err != nil {
		logger.Error("Channel lookup failed", "error", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil // Upgrade already wrote the error response
	}

	// Unknown channel: close with a distinct code, never register.
	if !exists {
		closeWith(conn, CloseUnknownChannel, "unknown channel")
		return nil
	}

	if err := s.hub.Register(channel, conn); err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, "channel full")
		return nil
	}

	// Snapshot only after registration. A mutation racing this connect
	// either lands in the snapshot or reaches the viewer as a broadcast;
	// snapshotting first would drop writes made before the register.
	sync, err := s.app.SyncMessage(ctx, channel)
	if err != nil {
		logger.Error("Failed to build initial sync", "error", err)
		closeWith(conn, websocket.CloseInternalServerErr, "sync unavailable")
		s.hub.Unregister(channel, conn)
		return nil
	}

	// Serialized through the hub actor so it cannot interleave with a
	// concurrent broadcast. A viewer is never blank pending a mutation.
	s.hub.Send(channel, conn, sync)

	// Read pump: inbound data only keeps the transport alive and is
	// discarded. Blocks until the connection drops.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(channel, conn)
	return nil
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
	_ = conn.Close()
}
