package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/mklatt/glowcast/internal/metrics"
)

const (
	writeDeadline = 5 * time.Second
	pingInterval  = 30 * time.Second
)

// Conn is the transport handle the hub writes to. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// viewer is one live subscriber attached to a channel.
type viewer struct {
	id   uuid.UUID
	conn Conn
}

type channelViewers map[Conn]*viewer

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	channel      string
	conn         Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	channel string
	conn    Conn
}

type sendCmd struct {
	baseHubCmd
	channel string
	conn    Conn
	data    []byte
}

type broadcastCmd struct {
	baseHubCmd
	channel      string
	data         []byte
	replyChannel chan int
}

type viewerCountCmd struct {
	baseHubCmd
	channel      string
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub manages viewer connections per channel and broadcasts to them.
type Hub struct {
	cmdCh                chan hubCmd
	clock                clockwork.Clock
	viewers              map[string]channelViewers
	maxViewersPerChannel int
	done                 chan struct{}
}

// New creates a hub and starts its actor goroutine.
// maxViewersPerChannel limits connections per channel (prevents resource exhaustion).
func New(clock clockwork.Clock, maxViewersPerChannel int) *Hub {
	h := &Hub{
		cmdCh:                make(chan hubCmd, 256),
		clock:                clock,
		viewers:              make(map[string]channelViewers),
		maxViewersPerChannel: maxViewersPerChannel,
		done:                 make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a viewer to a channel. Returns an error if the per-channel
// cap is reached or the hub has stopped. Channel validation is the transport
// handler's job; the hub accepts any channel id.
func (h *Hub) Register(channel string, conn Conn) error {
	errCh := make(chan error, 1)
	select {
	case h.cmdCh <- registerCmd{channel: channel, conn: conn, errorChannel: errCh}:
	case <-h.done:
		conn.Close()
		return fmt.Errorf("hub is stopped")
	}
	select {
	case err := <-errCh:
		return err
	case <-h.done:
		conn.Close()
		return fmt.Errorf("hub is stopped")
	}
}

// Unregister removes a viewer from a channel. Idempotent.
func (h *Hub) Unregister(channel string, conn Conn) {
	select {
	case h.cmdCh <- unregisterCmd{channel: channel, conn: conn}:
	case <-h.done:
	}
}

// Send delivers a message to a single registered viewer, serialized through
// the actor so it cannot race a broadcast. Used for the initial pages_sync.
func (h *Hub) Send(channel string, conn Conn, message []byte) {
	select {
	case h.cmdCh <- sendCmd{channel: channel, conn: conn, data: message}:
	case <-h.done:
	}
}

// Broadcast delivers a message to every viewer of a channel and returns the
// number that received it. Failed viewers are pruned; the call never errors.
// After Stop it returns 0 instead of blocking on the exited actor.
func (h *Hub) Broadcast(channel string, message []byte) int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- broadcastCmd{channel: channel, data: message, replyChannel: replyCh}:
	case <-h.done:
		return 0
	}
	select {
	case delivered := <-replyCh:
		return delivered
	case <-h.done:
		return 0
	}
}

// ViewerCount returns the number of live viewers for a channel. Zero for a
// channel never registered or a stopped hub.
func (h *Hub) ViewerCount(channel string) int {
	replyCh := make(chan int, 1)
	select {
	case h.cmdCh <- viewerCountCmd{channel: channel, replyChannel: replyCh}:
	case <-h.done:
		return 0
	}
	select {
	case count := <-replyCh:
		return count
	case <-h.done:
		return 0
	}
}

// Stop shuts down the hub, closing all viewer connections. Blocks until the
// actor goroutine has exited. Safe to call more than once.
func (h *Hub) Stop() {
	select {
	case h.cmdCh <- stopCmd{}:
	case <-h.done:
	}
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	pingTicker := h.clock.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.removeViewer(c.channel, c.conn)
			case sendCmd:
				h.handleSend(c)
			case broadcastCmd:
				h.handleBroadcast(c)
			case viewerCountCmd:
				c.replyChannel <- len(h.viewers[c.channel])
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case <-pingTicker.Chan():
			h.handlePing()
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	viewers, exists := h.viewers[c.channel]
	if !exists {
		viewers = make(channelViewers)
		h.viewers[c.channel] = viewers
	}

	if len(viewers) >= h.maxViewersPerChannel {
		if len(viewers) == 0 {
			delete(h.viewers, c.channel)
		}
		slog.Warn("Rejecting viewer: max viewers reached", "channel", c.channel, "max_viewers", h.maxViewersPerChannel)
		metrics.HubViewersRejectedTotal.Inc()
		c.conn.Close()
		c.errorChannel <- fmt.Errorf("max viewers per channel (%d) reached", h.maxViewersPerChannel)
		return
	}

	v := &viewer{id: uuid.New(), conn: c.conn}
	viewers[c.conn] = v

	metrics.HubActiveChannels.Set(float64(len(h.viewers)))
	metrics.HubConnectedViewers.Inc()

	slog.Debug("Viewer registered", "channel", c.channel, "viewer_id", v.id.String(), "total_viewers", len(viewers))
	c.errorChannel <- nil
}

func (h *Hub) handleSend(c sendCmd) {
	viewers, exists := h.viewers[c.channel]
	if !exists {
		return
	}
	v, exists := viewers[c.conn]
	if !exists {
		return
	}

	if err := h.write(c.conn, websocket.TextMessage, c.data); err != nil {
		slog.Debug("Dropping viewer after failed send", "channel", c.channel, "viewer_id", v.id.String(), "error", err)
		metrics.HubDeadViewersPrunedTotal.Inc()
		h.removeViewer(c.channel, c.conn)
		return
	}
	metrics.HubMessagesDeliveredTotal.Inc()
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	viewers, exists := h.viewers[c.channel]
	if !exists {
		metrics.HubBroadcastsTotal.WithLabelValues("empty").Inc()
		c.replyChannel <- 0
		return
	}

	delivered := 0
	var dead []Conn
	for conn, v := range viewers {
		if err := h.write(conn, websocket.TextMessage, c.data); err != nil {
			slog.Debug("Dropping viewer after failed send", "channel", c.channel, "viewer_id", v.id.String(), "error", err)
			dead = append(dead, conn)
			continue
		}
		delivered++
	}

	for _, conn := range dead {
		metrics.HubDeadViewersPrunedTotal.Inc()
		h.removeViewer(c.channel, conn)
	}

	metrics.HubMessagesDeliveredTotal.Add(float64(delivered))
	if len(dead) > 0 {
		metrics.HubBroadcastsTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.HubBroadcastsTotal.WithLabelValues("full").Inc()
	}
	c.replyChannel <- delivered
}

func (h *Hub) handlePing() {
	for channel, viewers := range h.viewers {
		var dead []Conn
		for conn, v := range viewers {
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				slog.Debug("Dropping viewer after failed ping", "channel", channel, "viewer_id", v.id.String(), "error", err)
				dead = append(dead, conn)
			}
		}
		for _, conn := range dead {
			metrics.HubDeadViewersPrunedTotal.Inc()
			h.removeViewer(channel, conn)
		}
	}
}

func (h *Hub) handleStop() {
	totalViewers := 0
	for _, viewers := range h.viewers {
		totalViewers += len(viewers)
	}
	slog.Info("Hub shutting down", "channels", len(h.viewers), "total_viewers", totalViewers)

	closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for channel, viewers := range h.viewers {
		for conn := range viewers {
			_ = conn.SetWriteDeadline(h.clock.Now().Add(writeDeadline))
			_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
			_ = conn.Close()
		}
		delete(h.viewers, channel)
	}
	metrics.HubActiveChannels.Set(0)
	metrics.HubConnectedViewers.Set(0)
}

// removeViewer closes and removes a viewer. If the channel's viewer set
// becomes empty the channel entry itself is removed, so the registry never
// grows for channels with no active viewers.
func (h *Hub) removeViewer(channel string, conn Conn) {
	viewers, exists := h.viewers[channel]
	if !exists {
		return
	}
	v, exists := viewers[conn]
	if !exists {
		return
	}

	_ = conn.Close()
	delete(viewers, conn)
	metrics.HubConnectedViewers.Dec()

	if len(viewers) == 0 {
		delete(h.viewers, channel)
		metrics.HubActiveChannels.Set(float64(len(h.viewers)))
		slog.Info("Last viewer disconnected", "channel", channel)
	} else {
		slog.Debug("Viewer unregistered", "channel", channel, "viewer_id", v.id.String(), "remaining_viewers", len(viewers))
	}
}

func (h *Hub) write(conn Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(h.clock.Now().Add(writeDeadline))
	return conn.WriteMessage(messageType, data)
}
