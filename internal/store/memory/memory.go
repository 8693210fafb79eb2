// Package memory provides an in-memory PageStore for single-instance demo
// mode and tests. A single mutex serializes every call, matching the
// atomic-per-call contract of the store interface.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mklatt/glowcast/internal/domain"
)

type channelState struct {
	pages    map[string]*domain.Page
	rotation domain.RotationSettings
}

// Store implements domain.PageStore backed by process memory.
type Store struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	channels map[string]*channelState
	themes   map[string]domain.Theme
}

func New(clock clockwork.Clock) *Store {
	return &Store{
		clock:    clock,
		channels: make(map[string]*channelState),
		themes:   make(map[string]domain.Theme),
	}
}

func (s *Store) CreateChannel(_ context.Context, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.channels[channel]; exists {
		return domain.ErrChannelExists
	}
	s.channels[channel] = &channelState{
		pages: map[string]*domain.Page{
			domain.DefaultPageName: {
				Name:    domain.DefaultPageName,
				Content: []domain.ContentItem{},
			},
		},
		rotation: domain.RotationSettings{Enabled: true, Interval: 10},
	}
	return nil
}

func (s *Store) ChannelExists(_ context.Context, channel string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.channels[channel]
	return exists, nil
}

func (s *Store) UpsertPage(_ context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}

	page, exists := ch.pages[name]
	if !exists {
		page = &domain.Page{
			Name:         name,
			Content:      []domain.ContentItem{},
			DisplayOrder: nextDisplayOrder(ch),
		}
		ch.pages[name] = page
	}
	patch.Apply(page)

	out := *page
	return &out, nil
}

func (s *Store) GetAllPages(_ context.Context, channel string, includeExpired bool) ([]domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}

	now := s.clock.Now()
	pages := make([]domain.Page, 0, len(ch.pages))
	for _, page := range ch.pages {
		if !includeExpired && page.Expired(now) {
			continue
		}
		pages = append(pages, *page)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].DisplayOrder != pages[j].DisplayOrder {
			return pages[i].DisplayOrder < pages[j].DisplayOrder
		}
		return pages[i].Name < pages[j].Name
	})
	return pages, nil
}

func (s *Store) GetPage(_ context.Context, channel, name string) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}
	page, exists := ch.pages[name]
	if !exists {
		return nil, domain.ErrPageNotFound
	}
	out := *page
	return &out, nil
}

func (s *Store) UpdatePage(_ context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}
	page, exists := ch.pages[name]
	if !exists {
		return nil, domain.ErrPageNotFound
	}
	patch.Apply(page)

	out := *page
	return &out, nil
}

func (s *Store) ReorderPages(_ context.Context, channel string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return domain.ErrChannelNotFound
	}

	named := make(map[string]bool, len(names))
	next := 0
	for _, name := range names {
		page, exists := ch.pages[name]
		if !exists {
			continue
		}
		named[name] = true
		page.DisplayOrder = next
		next++
	}

	// Pages omitted from the list keep their relative order after the
	// explicitly reordered set, so orders stay a dense permutation.
	var omitted []*domain.Page
	for name, page := range ch.pages {
		if !named[name] {
			omitted = append(omitted, page)
		}
	}
	sort.Slice(omitted, func(i, j int) bool {
		if omitted[i].DisplayOrder != omitted[j].DisplayOrder {
			return omitted[i].DisplayOrder < omitted[j].DisplayOrder
		}
		return omitted[i].Name < omitted[j].Name
	})
	for _, page := range omitted {
		page.DisplayOrder = next
		next++
	}
	return nil
}

func (s *Store) DeletePage(_ context.Context, channel, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == domain.DefaultPageName {
		return domain.ErrPageProtected
	}
	ch, exists := s.channels[channel]
	if !exists {
		return domain.ErrChannelNotFound
	}
	if _, exists := ch.pages[name]; !exists {
		return domain.ErrPageNotFound
	}
	delete(ch.pages, name)
	return nil
}

func (s *Store) CleanupExpiredPages(_ context.Context) ([]domain.ExpiredPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var deleted []domain.ExpiredPage
	for channel, ch := range s.channels {
		for name, page := range ch.pages {
			if name == domain.DefaultPageName {
				continue
			}
			if page.Expired(now) {
				delete(ch.pages, name)
				deleted = append(deleted, domain.ExpiredPage{Channel: channel, Name: name})
			}
		}
	}
	sort.Slice(deleted, func(i, j int) bool {
		if deleted[i].Channel != deleted[j].Channel {
			return deleted[i].Channel < deleted[j].Channel
		}
		return deleted[i].Name < deleted[j].Name
	})
	return deleted, nil
}

func (s *Store) GetRotationSettings(_ context.Context, channel string) (*domain.RotationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}
	out := ch.rotation
	return &out, nil
}

func (s *Store) UpdateRotationSettings(_ context.Context, channel string, patch domain.RotationPatch) (*domain.RotationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, exists := s.channels[channel]
	if !exists {
		return nil, domain.ErrChannelNotFound
	}
	patch.Apply(&ch.rotation)
	out := ch.rotation
	return &out, nil
}

func (s *Store) GetTheme(_ context.Context, name string) (*domain.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	theme, exists := s.themes[name]
	if !exists {
		return nil, domain.ErrThemeNotFound
	}
	out := theme
	return &out, nil
}

func (s *Store) UpsertTheme(_ context.Context, theme domain.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes[theme.Name] = theme
	return nil
}

func nextDisplayOrder(ch *channelState) int {
	if len(ch.pages) == 0 {
		return 0
	}
	max := -1
	for _, page := range ch.pages {
		if page.DisplayOrder > max {
			max = page.DisplayOrder
		}
	}
	return max + 1
}
