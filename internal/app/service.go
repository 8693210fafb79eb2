package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mklatt/glowcast/internal/domain"
	"github.com/mklatt/glowcast/internal/protocol"
)

// RotationCache caches resolved rotation settings per channel. May be backed
// by Redis or absent entirely; the service treats it as best effort.
type RotationCache interface {
	Get(ctx context.Context, channel string) (*domain.ResolvedRotation, bool)
	Set(ctx context.Context, channel string, rotation domain.ResolvedRotation)
	Invalidate(ctx context.Context, channel string)
}

// Service is the application layer: it owns the page state model and drives
// every change notification to viewers.
type Service struct {
	store domain.PageStore
	hub   domain.Broadcaster
	cache RotationCache
}

// NewService creates the application layer service. cache may be nil.
func NewService(store domain.PageStore, hub domain.Broadcaster, cache RotationCache) *Service {
	return &Service{store: store, hub: hub, cache: cache}
}

// CreateChannel creates a channel with its seeded default page.
func (s *Service) CreateChannel(ctx context.Context, channel string) error {
	return s.store.CreateChannel(ctx, channel)
}

// ChannelExists reports whether a channel is known to the store.
func (s *Service) ChannelExists(ctx context.Context, channel string) (bool, error) {
	return s.store.ChannelExists(ctx, channel)
}

// UpsertPage creates or updates a page and pushes a page_update to viewers.
// A store failure propagates and suppresses the broadcast.
func (s *Service) UpsertPage(ctx context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	page, err := s.store.UpsertPage(ctx, channel, name, patch)
	if err != nil {
		return nil, err
	}
	s.broadcastPageUpdate(channel, *page)
	return page, nil
}

// Pages returns the channel's pages ordered by display order.
func (s *Service) Pages(ctx context.Context, channel string, includeExpired bool) ([]domain.Page, error) {
	return s.store.GetAllPages(ctx, channel, includeExpired)
}

// Page returns a single page by name.
func (s *Service) Page(ctx context.Context, channel, name string) (*domain.Page, error) {
	return s.store.GetPage(ctx, channel, name)
}

// UpdatePage merges only the provided fields into an existing page and
// pushes a page_update. Never creates.
func (s *Service) UpdatePage(ctx context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	page, err := s.store.UpdatePage(ctx, channel, name, patch)
	if err != nil {
		return nil, err
	}
	s.broadcastPageUpdate(channel, *page)
	return page, nil
}

// ReorderPages rewrites the channel's display order and pushes a full
// pages_sync, since every page's order may have shifted.
func (s *Service) ReorderPages(ctx context.Context, channel string, names []string) error {
	if err := s.store.ReorderPages(ctx, channel, names); err != nil {
		return err
	}
	s.syncChannel(ctx, channel)
	return nil
}

// DeletePage removes a page and pushes a page_delete. The default page is
// protected and reported as ErrPageProtected without effect.
func (s *Service) DeletePage(ctx context.Context, channel, name string) error {
	if name == domain.DefaultPageName {
		return domain.ErrPageProtected
	}
	if err := s.store.DeletePage(ctx, channel, name); err != nil {
		return err
	}
	data, err := protocol.PageDelete(name)
	if err != nil {
		slog.Error("Failed to encode page_delete", "channel", channel, "page", name, "error", err)
		return nil
	}
	s.hub.Broadcast(channel, data)
	return nil
}

// ResolvedRotation computes the channel's effective presentation settings
// through the theme cascade, consulting the cache when configured.
func (s *Service) ResolvedRotation(ctx context.Context, channel string) (*domain.ResolvedRotation, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, channel); ok {
			return cached, nil
		}
	}

	settings, err := s.store.GetRotationSettings(ctx, channel)
	if err != nil {
		return nil, err
	}

	resolved := domain.ResolveRotation(*settings, s.themeLookup(ctx))
	if s.cache != nil {
		s.cache.Set(ctx, channel, resolved)
	}
	return &resolved, nil
}

// UpdateRotation merges a partial settings update, invalidates the cache and
// pushes a rotation_update with the freshly resolved settings.
func (s *Service) UpdateRotation(ctx context.Context, channel string, patch domain.RotationPatch) (*domain.ResolvedRotation, error) {
	if _, err := s.store.UpdateRotationSettings(ctx, channel, patch); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, channel)
	}

	resolved, err := s.ResolvedRotation(ctx, channel)
	if err != nil {
		return nil, err
	}

	data, err := protocol.RotationUpdate(*resolved)
	if err != nil {
		slog.Error("Failed to encode rotation_update", "channel", channel, "error", err)
		return resolved, nil
	}
	s.hub.Broadcast(channel, data)
	return resolved, nil
}

// SetDebug persists the debug flag and pushes a debug message.
func (s *Service) SetDebug(ctx context.Context, channel string, enabled bool) error {
	patch := domain.RotationPatch{DebugEnabled: &enabled}
	if _, err := s.store.UpdateRotationSettings(ctx, channel, patch); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, channel)
	}

	data, err := protocol.Debug(enabled)
	if err != nil {
		slog.Error("Failed to encode debug message", "channel", channel, "error", err)
		return nil
	}
	s.hub.Broadcast(channel, data)
	return nil
}

// SendReload asks every viewer of a channel to do a full page reload.
// Nothing is persisted. Returns the number of viewers reached.
func (s *Service) SendReload(channel string) int {
	data, err := protocol.Reload()
	if err != nil {
		slog.Error("Failed to encode reload message", "channel", channel, "error", err)
		return 0
	}
	return s.hub.Broadcast(channel, data)
}

// ViewerCount returns the live viewer count for a channel.
func (s *Service) ViewerCount(channel string) int {
	return s.hub.ViewerCount(channel)
}

// ResolvedLayout computes the concrete grid description for a page from its
// layout spec and content count.
func (s *Service) ResolvedLayout(ctx context.Context, channel, name string) (*domain.LayoutDescriptor, error) {
	page, err := s.store.GetPage(ctx, channel, name)
	if err != nil {
		return nil, err
	}
	desc := domain.ResolveLayout(page.Layout, len(page.Content))
	return &desc, nil
}

// Theme resolves a theme by name, stored themes shadowing builtins.
func (s *Service) Theme(ctx context.Context, name string) (*domain.Theme, error) {
	return s.themeLookup(ctx)(name)
}

// ThemeWriter is the optional store capability behind theme administration.
type ThemeWriter interface {
	UpsertTheme(ctx context.Context, theme domain.Theme) error
}

// UpsertTheme stores a custom theme. Channels referencing it pick the new
// values up as their cached resolutions expire or are invalidated; theme
// writes do not fan out to viewers.
func (s *Service) UpsertTheme(ctx context.Context, theme domain.Theme) error {
	writer, ok := s.store.(ThemeWriter)
	if !ok {
		return errors.New("store does not support theme writes")
	}
	theme.IsBuiltin = false
	return writer.UpsertTheme(ctx, theme)
}

// SyncMessage builds the pages_sync frame a newly attached viewer receives:
// the full ordered non-expired page list plus resolved rotation settings.
func (s *Service) SyncMessage(ctx context.Context, channel string) ([]byte, error) {
	pages, err := s.store.GetAllPages(ctx, channel, false)
	if err != nil {
		return nil, err
	}
	resolved, err := s.ResolvedRotation(ctx, channel)
	if err != nil {
		return nil, err
	}
	return protocol.PagesSync(pages, *resolved)
}

// themeLookup resolves a theme name against the store first, then the
// built-in registry. A name found nowhere yields nil: the stale-theme soft
// failure the cascade expects.
func (s *Service) themeLookup(ctx context.Context) domain.ThemeLookup {
	return func(name string) (*domain.Theme, error) {
		theme, err := s.store.GetTheme(ctx, name)
		if err == nil {
			return theme, nil
		}
		if builtin, ok := domain.BuiltinTheme(name); ok {
			return builtin, nil
		}
		return nil, domain.ErrThemeNotFound
	}
}

func (s *Service) broadcastPageUpdate(channel string, page domain.Page) {
	data, err := protocol.PageUpdate(page)
	if err != nil {
		slog.Error("Failed to encode page_update", "channel", channel, "page", page.Name, "error", err)
		return
	}
	s.hub.Broadcast(channel, data)
}

func (s *Service) syncChannel(ctx context.Context, channel string) {
	data, err := s.SyncMessage(ctx, channel)
	if err != nil {
		slog.Error("Failed to build pages_sync", "channel", channel, "error", err)
		return
	}
	s.hub.Broadcast(channel, data)
}
