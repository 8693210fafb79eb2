package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mklatt/glowcast/internal/domain"
	"github.com/mklatt/glowcast/internal/metrics"
	"github.com/mklatt/glowcast/internal/protocol"
)

// Sweeper periodically deletes TTL-expired pages and notifies viewers with
// page_delete messages. It shares the page store with request-triggered
// mutations; the store itself is the serialization boundary.
type Sweeper struct {
	store    domain.PageStore
	hub      domain.Broadcaster
	clock    clockwork.Clock
	interval time.Duration
}

func NewSweeper(store domain.PageStore, hub domain.Broadcaster, clock clockwork.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, hub: hub, clock: clock, interval: interval}
}

// Run starts the periodic sweep loop. It blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Exported so tests and admin tooling can
// trigger it without the ticker.
func (s *Sweeper) Sweep(ctx context.Context) {
	metrics.SweeperRunsTotal.Inc()

	deleted, err := s.store.CleanupExpiredPages(ctx)
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err)
		return
	}
	if len(deleted) == 0 {
		return
	}

	for _, d := range deleted {
		data, err := protocol.PageDelete(d.Name)
		if err != nil {
			slog.Error("Failed to encode page_delete", "channel", d.Channel, "page", d.Name, "error", err)
			continue
		}
		s.hub.Broadcast(d.Channel, data)
	}

	metrics.SweeperPagesDeletedTotal.Add(float64(len(deleted)))
	slog.Info("Expired pages removed", "count", len(deleted))
}
