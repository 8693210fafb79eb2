package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklatt/glowcast/internal/domain"
	"github.com/mklatt/glowcast/internal/protocol"
	"github.com/mklatt/glowcast/internal/store/memory"
)

// fakeBroadcaster records every broadcast by channel.
type fakeBroadcaster struct {
	broadcasts  map[string][][]byte
	viewerCount int
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{broadcasts: make(map[string][][]byte)}
}

func (f *fakeBroadcaster) Broadcast(channel string, message []byte) int {
	f.broadcasts[channel] = append(f.broadcasts[channel], message)
	return f.viewerCount
}

func (f *fakeBroadcaster) ViewerCount(string) int { return f.viewerCount }

func (f *fakeBroadcaster) lastMessage(t *testing.T, channel string) protocol.Envelope {
	t.Helper()
	msgs := f.broadcasts[channel]
	require.NotEmpty(t, msgs, "expected a broadcast on channel %q", channel)

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1], &env))
	return env
}

// failingStore wraps a real store and fails a chosen method.
type failingStore struct {
	domain.PageStore
	failUpsert bool
}

func (f *failingStore) UpsertPage(ctx context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	if f.failUpsert {
		return nil, errors.New("connection refused")
	}
	return f.PageStore.UpsertPage(ctx, channel, name, patch)
}

// fakeCache is an in-process RotationCache with call counters.
type fakeCache struct {
	entries       map[string]domain.ResolvedRotation
	hits, misses  int
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.ResolvedRotation)}
}

func (f *fakeCache) Get(_ context.Context, channel string) (*domain.ResolvedRotation, bool) {
	if cached, ok := f.entries[channel]; ok {
		f.hits++
		out := cached
		return &out, true
	}
	f.misses++
	return nil, false
}

func (f *fakeCache) Set(_ context.Context, channel string, rotation domain.ResolvedRotation) {
	f.entries[channel] = rotation
}

func (f *fakeCache) Invalidate(_ context.Context, channel string) {
	f.invalidations++
	delete(f.entries, channel)
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeBroadcaster) {
	t.Helper()
	store := memory.New(clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)))
	hub := newFakeBroadcaster()
	svc := NewService(store, hub, nil)
	require.NoError(t, svc.CreateChannel(context.Background(), "lobby"))
	return svc, store, hub
}

func textPatch(value string) domain.PagePatch {
	return domain.PagePatch{Content: []domain.ContentItem{{Type: domain.ContentText, Value: value}}}
}

func TestUpsertPage_BroadcastsAfterPersist(t *testing.T) {
	svc, store, hub := newTestService(t)
	ctx := context.Background()

	page, err := svc.UpsertPage(ctx, "lobby", "news", textPatch("hello"))
	require.NoError(t, err)
	assert.Equal(t, "news", page.Name)

	env := hub.lastMessage(t, "lobby")
	assert.Equal(t, protocol.TypePageUpdate, env.Type)
	require.NotNil(t, env.Page)
	assert.Equal(t, "news", env.Page.Name)

	// The broadcast snapshot matches what was stored.
	stored, err := store.GetPage(ctx, "lobby", "news")
	require.NoError(t, err)
	assert.Equal(t, stored.DisplayOrder, env.Page.DisplayOrder)
}

func TestUpsertPage_StoreFailureSuppressesBroadcast(t *testing.T) {
	store := memory.New(clockwork.NewFakeClock())
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))
	hub := newFakeBroadcaster()
	svc := NewService(&failingStore{PageStore: store, failUpsert: true}, hub, nil)

	_, err := svc.UpsertPage(context.Background(), "lobby", "news", textPatch("x"))
	assert.Error(t, err)
	assert.Empty(t, hub.broadcasts)
}

func TestUpdatePage_UnknownPageDoesNotBroadcast(t *testing.T) {
	svc, _, hub := newTestService(t)

	_, err := svc.UpdatePage(context.Background(), "lobby", "ghost", textPatch("x"))
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
	assert.Empty(t, hub.broadcasts)
}

func TestReorderPages_PushesFullSync(t *testing.T) {
	svc, _, hub := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertPage(ctx, "lobby", "a", textPatch("a"))
	require.NoError(t, err)
	_, err = svc.UpsertPage(ctx, "lobby", "b", textPatch("b"))
	require.NoError(t, err)

	require.NoError(t, svc.ReorderPages(ctx, "lobby", []string{"b", "default", "a"}))

	env := hub.lastMessage(t, "lobby")
	assert.Equal(t, protocol.TypePagesSync, env.Type)
	require.Len(t, env.Pages, 3)
	assert.Equal(t, "b", env.Pages[0].Name)
	assert.Equal(t, "default", env.Pages[1].Name)
	assert.Equal(t, "a", env.Pages[2].Name)
}

func TestDeletePage_BroadcastsDeletion(t *testing.T) {
	svc, _, hub := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertPage(ctx, "lobby", "news", textPatch("x"))
	require.NoError(t, err)

	require.NoError(t, svc.DeletePage(ctx, "lobby", "news"))

	env := hub.lastMessage(t, "lobby")
	assert.Equal(t, protocol.TypePageDelete, env.Type)
	assert.Equal(t, "news", env.PageName)
}

func TestDeletePage_DefaultIsProtected(t *testing.T) {
	svc, store, hub := newTestService(t)
	ctx := context.Background()

	err := svc.DeletePage(ctx, "lobby", domain.DefaultPageName)
	assert.ErrorIs(t, err, domain.ErrPageProtected)
	assert.Empty(t, hub.broadcasts)

	_, err = store.GetPage(ctx, "lobby", domain.DefaultPageName)
	assert.NoError(t, err)
}

func TestResolvedRotation_AppliesThemeCascade(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	theme := "dark"
	bg := "#123456"
	_, err := store.UpdateRotationSettings(ctx, "lobby", domain.RotationPatch{
		Theme: &theme,
		Style: domain.Style{BackgroundColor: &bg},
	})
	require.NoError(t, err)

	resolved, err := svc.ResolvedRotation(ctx, "lobby")
	require.NoError(t, err)

	// Explicit value wins, theme fills the rest.
	require.NotNil(t, resolved.BackgroundColor)
	assert.Equal(t, "#123456", *resolved.BackgroundColor)
	assert.NotNil(t, resolved.FontColor)
}

func TestResolvedRotation_StoredThemeShadowsBuiltin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	bg := "#555"
	require.NoError(t, store.UpsertTheme(ctx, domain.Theme{Name: "dark", Style: domain.Style{BackgroundColor: &bg}}))

	theme := "dark"
	_, err := store.UpdateRotationSettings(ctx, "lobby", domain.RotationPatch{Theme: &theme})
	require.NoError(t, err)

	resolved, err := svc.ResolvedRotation(ctx, "lobby")
	require.NoError(t, err)
	require.NotNil(t, resolved.BackgroundColor)
	assert.Equal(t, "#555", *resolved.BackgroundColor)
}

func TestResolvedRotation_StaleThemeSoftFails(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	theme := "long-gone"
	_, err := store.UpdateRotationSettings(ctx, "lobby", domain.RotationPatch{Theme: &theme})
	require.NoError(t, err)

	resolved, err := svc.ResolvedRotation(ctx, "lobby")
	require.NoError(t, err)
	require.NotNil(t, resolved.Theme)
	assert.Equal(t, "long-gone", *resolved.Theme)
	assert.Nil(t, resolved.BackgroundColor)
}

func TestResolvedRotation_UsesCache(t *testing.T) {
	store := memory.New(clockwork.NewFakeClock())
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))
	cache := newFakeCache()
	svc := NewService(store, newFakeBroadcaster(), cache)
	ctx := context.Background()

	_, err := svc.ResolvedRotation(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.misses)

	_, err = svc.ResolvedRotation(ctx, "lobby")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}

func TestUpdateRotation_InvalidatesCacheAndBroadcasts(t *testing.T) {
	store := memory.New(clockwork.NewFakeClock())
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))
	cache := newFakeCache()
	hub := newFakeBroadcaster()
	svc := NewService(store, hub, cache)
	ctx := context.Background()

	// Warm the cache, then mutate.
	_, err := svc.ResolvedRotation(ctx, "lobby")
	require.NoError(t, err)

	interval := 45
	resolved, err := svc.UpdateRotation(ctx, "lobby", domain.RotationPatch{Interval: &interval})
	require.NoError(t, err)
	assert.Equal(t, 45, resolved.Interval)
	assert.Equal(t, 1, cache.invalidations)

	env := hub.lastMessage(t, "lobby")
	assert.Equal(t, protocol.TypeRotationUpdate, env.Type)
	require.NotNil(t, env.Rotation)
	assert.Equal(t, 45, env.Rotation.Interval)
}

func TestSetDebug_PersistsAndBroadcasts(t *testing.T) {
	svc, store, hub := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetDebug(ctx, "lobby", true))

	settings, err := store.GetRotationSettings(ctx, "lobby")
	require.NoError(t, err)
	assert.True(t, settings.DebugEnabled)

	env := hub.lastMessage(t, "lobby")
	assert.Equal(t, protocol.TypeDebug, env.Type)
	require.NotNil(t, env.Enabled)
	assert.True(t, *env.Enabled)
}

func TestSendReload_ReturnsDeliveredCount(t *testing.T) {
	svc, _, hub := newTestService(t)
	hub.viewerCount = 3

	delivered := svc.SendReload("lobby")
	assert.Equal(t, 3, delivered)

	env := hub.lastMessage(t, "lobby")
	assert.Equal(t, protocol.TypeReload, env.Type)
}

func TestSyncMessage_ExcludesExpiredPages(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	store := memory.New(clock)
	require.NoError(t, store.CreateChannel(context.Background(), "lobby"))
	svc := NewService(store, newFakeBroadcaster(), nil)
	ctx := context.Background()

	expires := clock.Now().Add(time.Minute)
	_, err := svc.UpsertPage(ctx, "lobby", "flash", domain.PagePatch{ExpiresAt: &expires})
	require.NoError(t, err)

	clock.Advance(time.Hour)

	data, err := svc.SyncMessage(ctx, "lobby")
	require.NoError(t, err)

	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, protocol.TypePagesSync, env.Type)
	require.Len(t, env.Pages, 1)
	assert.Equal(t, domain.DefaultPageName, env.Pages[0].Name)
	require.NotNil(t, env.Rotation)
}

func TestResolvedLayout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	patch := domain.PagePatch{
		Content: []domain.ContentItem{
			{Type: domain.ContentText, Value: "a"},
			{Type: domain.ContentText, Value: "b"},
		},
		Layout: &domain.LayoutSpec{Kind: domain.LayoutPreset, Preset: "columns-2"},
	}
	_, err := svc.UpsertPage(ctx, "lobby", "split", patch)
	require.NoError(t, err)

	layout, err := svc.ResolvedLayout(ctx, "lobby", "split")
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutTypeCustom, layout.Type)
	require.NotNil(t, layout.Columns)
	assert.Equal(t, 2, *layout.Columns)

	// No layout spec on the default page: auto with one panel per item.
	layout, err = svc.ResolvedLayout(ctx, "lobby", domain.DefaultPageName)
	require.NoError(t, err)
	assert.Equal(t, domain.LayoutTypeAuto, layout.Type)
}

func TestUpsertTheme_StoredThemeIsNeverBuiltin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bg := "#abc"
	require.NoError(t, svc.UpsertTheme(ctx, domain.Theme{
		Name:      "corporate",
		IsBuiltin: true, // callers cannot mint builtins
		Style:     domain.Style{BackgroundColor: &bg},
	}))

	theme, err := svc.Theme(ctx, "corporate")
	require.NoError(t, err)
	assert.False(t, theme.IsBuiltin)
	require.NotNil(t, theme.BackgroundColor)
	assert.Equal(t, "#abc", *theme.BackgroundColor)
}

func TestTheme_FallsBackToBuiltin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	theme, err := svc.Theme(ctx, "dark")
	require.NoError(t, err)
	assert.True(t, theme.IsBuiltin)

	_, err = svc.Theme(ctx, "no-such-theme")
	assert.ErrorIs(t, err, domain.ErrThemeNotFound)
}

func TestSyncMessage_UnknownChannel(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.SyncMessage(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrChannelNotFound)
}
