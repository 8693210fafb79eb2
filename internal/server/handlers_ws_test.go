package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklatt/glowcast/internal/app"
	"github.com/mklatt/glowcast/internal/config"
	"github.com/mklatt/glowcast/internal/domain"
	"github.com/mklatt/glowcast/internal/hub"
	"github.com/mklatt/glowcast/internal/protocol"
	"github.com/mklatt/glowcast/internal/store/memory"
)

// testViewerServer runs the full HTTP stack so viewers connect over real
// WebSockets. The hub needs a real clock here: write deadlines are actual
// wall-clock deadlines on live connections.
func testViewerServer(t *testing.T, maxViewers int) (*httptest.Server, *Server, *memory.Store) {
	t.Helper()

	store := memory.New(clockwork.NewRealClock())
	h := hub.New(clockwork.NewRealClock(), maxViewers)
	t.Cleanup(h.Stop)

	svc := app.NewService(store, h, nil)
	srv := New(&config.Config{Port: "0"}, svc, h, nil)

	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)
	return ts, srv, store
}

func dialViewer(t *testing.T, ts *httptest.Server, channel string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + channel
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestWebSocket_UnknownChannelClosedWithDistinctCode(t *testing.T) {
	ts, _, _ := testViewerServer(t, 100)

	conn := dialViewer(t, ts, "no-such-channel")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close frame, got %v", err)
	assert.Equal(t, CloseUnknownChannel, closeErr.Code)
}

func TestWebSocket_InitialSyncOnConnect(t *testing.T) {
	ts, _, store := testViewerServer(t, 100)
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))

	conn := dialViewer(t, ts, "lobby")

	env := readEnvelope(t, conn)
	assert.Equal(t, protocol.TypePagesSync, env.Type)
	require.Len(t, env.Pages, 1)
	assert.Equal(t, domain.DefaultPageName, env.Pages[0].Name)
	require.NotNil(t, env.Rotation)
	assert.True(t, env.Rotation.Enabled)
}

func TestWebSocket_ReceivesPageUpdateWithoutReconnect(t *testing.T) {
	ts, srv, store := testViewerServer(t, 100)
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))

	conn := dialViewer(t, ts, "lobby")
	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypePagesSync, env.Type)

	// Mutate through the API while the viewer stays connected.
	rec := doJSON(t, srv, http.MethodPost, "/api/channels/lobby/pages/alerts",
		`{"content": [{"type": "text", "value": "fire drill"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env = readEnvelope(t, conn)
	assert.Equal(t, protocol.TypePageUpdate, env.Type)
	require.NotNil(t, env.Page)
	assert.Equal(t, "alerts", env.Page.Name)
	require.Len(t, env.Page.Content, 1)
	assert.Equal(t, "fire drill", env.Page.Content[0].Value)
}

func TestWebSocket_DeleteAndRotationNotifications(t *testing.T) {
	ts, srv, store := testViewerServer(t, 100)
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))

	conn := dialViewer(t, ts, "lobby")
	require.Equal(t, protocol.TypePagesSync, readEnvelope(t, conn).Type)

	rec := doJSON(t, srv, http.MethodPost, "/api/channels/lobby/pages/promo", `{"content": []}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, protocol.TypePageUpdate, readEnvelope(t, conn).Type)

	rec = doJSON(t, srv, http.MethodDelete, "/api/channels/lobby/pages/promo", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	env := readEnvelope(t, conn)
	assert.Equal(t, protocol.TypePageDelete, env.Type)
	assert.Equal(t, "promo", env.PageName)

	rec = doJSON(t, srv, http.MethodPatch, "/api/channels/lobby/rotation", `{"interval": 42}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env = readEnvelope(t, conn)
	assert.Equal(t, protocol.TypeRotationUpdate, env.Type)
	require.NotNil(t, env.Rotation)
	assert.Equal(t, 42, env.Rotation.Interval)
}

func TestWebSocket_ViewerCountAndReloadDelivery(t *testing.T) {
	ts, srv, store := testViewerServer(t, 100)
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))

	first := dialViewer(t, ts, "lobby")
	second := dialViewer(t, ts, "lobby")
	require.Equal(t, protocol.TypePagesSync, readEnvelope(t, first).Type)
	require.Equal(t, protocol.TypePagesSync, readEnvelope(t, second).Type)

	rec := doJSON(t, srv, http.MethodGet, "/api/channels/lobby/viewers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var count map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 2, count["count"])

	rec = doJSON(t, srv, http.MethodPost, "/api/channels/lobby/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reload map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reload))
	assert.Equal(t, 2, reload["delivered"])

	assert.Equal(t, protocol.TypeReload, readEnvelope(t, first).Type)
	assert.Equal(t, protocol.TypeReload, readEnvelope(t, second).Type)
}

// gatedStore delays snapshot reads until the test releases them, widening
// the window between viewer registration and the initial sync build.
type gatedStore struct {
	domain.PageStore
	gate chan struct{}
}

func (g *gatedStore) GetAllPages(ctx context.Context, channel string, includeExpired bool) ([]domain.Page, error) {
	<-g.gate
	return g.PageStore.GetAllPages(ctx, channel, includeExpired)
}

func TestWebSocket_MutationDuringConnectIsNotLost(t *testing.T) {
	store := memory.New(clockwork.NewRealClock())
	gated := &gatedStore{PageStore: store, gate: make(chan struct{})}

	h := hub.New(clockwork.NewRealClock(), 100)
	t.Cleanup(h.Stop)

	svc := app.NewService(gated, h, nil)
	srv := New(&config.Config{Port: "0"}, svc, h, nil)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))

	// The handler registers the viewer, then parks building the snapshot.
	conn := dialViewer(t, ts, "lobby")
	require.Eventually(t, func() bool {
		return h.ViewerCount("lobby") == 1
	}, 2*time.Second, 5*time.Millisecond)

	// A write lands while the snapshot is still being built: the viewer is
	// already registered, so the page_update reaches it.
	rec := doJSON(t, srv, http.MethodPost, "/api/channels/lobby/pages/alerts",
		`{"content": [{"type": "text", "value": "live"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	close(gated.gate)

	env := readEnvelope(t, conn)
	require.Equal(t, protocol.TypePageUpdate, env.Type)
	require.NotNil(t, env.Page)
	assert.Equal(t, "alerts", env.Page.Name)

	// The snapshot was taken after the write, so it carries the page too:
	// either path alone leaves the viewer converged.
	env = readEnvelope(t, conn)
	require.Equal(t, protocol.TypePagesSync, env.Type)
	names := make([]string, 0, len(env.Pages))
	for _, page := range env.Pages {
		names = append(names, page.Name)
	}
	assert.Contains(t, names, "alerts")
}

func TestWebSocket_ChannelCapRejectsWithTryAgainLater(t *testing.T) {
	ts, _, store := testViewerServer(t, 1)
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))

	first := dialViewer(t, ts, "lobby")
	require.Equal(t, protocol.TypePagesSync, readEnvelope(t, first).Type)

	second := dialViewer(t, ts, "lobby")
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close frame, got %v", err)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
}
