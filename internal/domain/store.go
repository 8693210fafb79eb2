package domain

import "context"

// ExpiredPage identifies a page removed by an expiry sweep.
type ExpiredPage struct {
	Channel string
	Name    string
}

// PageStore is the persistence collaborator for channels, pages, rotation
// settings and themes. Every call is atomic; the store is the serialization
// boundary between request-triggered mutations and the expiry sweeper.
type PageStore interface {
	// CreateChannel creates a channel, seeding its "default" page and
	// rotation settings. Returns ErrChannelExists if the id is taken.
	CreateChannel(ctx context.Context, channel string) error
	ChannelExists(ctx context.Context, channel string) (bool, error)

	// UpsertPage creates the named page (display order = max existing + 1,
	// or 0 on an empty channel) or updates it in place, preserving its
	// display order. Unspecified patch fields are retained.
	UpsertPage(ctx context.Context, channel, name string, patch PagePatch) (*Page, error)

	// GetAllPages returns pages ordered by display order ascending. Unless
	// includeExpired is set, pages whose TTL has passed are filtered out
	// (but not deleted).
	GetAllPages(ctx context.Context, channel string, includeExpired bool) ([]Page, error)

	GetPage(ctx context.Context, channel, name string) (*Page, error)

	// UpdatePage merges only the provided fields. Returns ErrPageNotFound
	// if the page does not exist; never creates.
	UpdatePage(ctx context.Context, channel, name string, patch PagePatch) (*Page, error)

	// ReorderPages assigns display order by position in names. Pages
	// omitted from the list are appended after the named set, preserving
	// their prior relative order, so orders stay a dense 0..N-1 permutation.
	ReorderPages(ctx context.Context, channel string, names []string) error

	// DeletePage removes the named page. Returns ErrPageProtected for the
	// default page and ErrPageNotFound for unknown names.
	DeletePage(ctx context.Context, channel, name string) error

	// CleanupExpiredPages deletes every TTL-expired page except "default"
	// across all channels and returns the deleted (channel, name) pairs.
	CleanupExpiredPages(ctx context.Context) ([]ExpiredPage, error)

	GetRotationSettings(ctx context.Context, channel string) (*RotationSettings, error)
	UpdateRotationSettings(ctx context.Context, channel string, patch RotationPatch) (*RotationSettings, error)

	// GetTheme returns a stored theme. Built-in fallbacks are the caller's
	// concern; the store only knows its own rows.
	GetTheme(ctx context.Context, name string) (*Theme, error)
}

// Broadcaster fans messages out to the live viewers of a channel. Delivery
// is best effort: failures prune the viewer, never surface to the caller.
type Broadcaster interface {
	// Broadcast returns the number of viewers the message reached.
	Broadcast(channel string, message []byte) int
	ViewerCount(channel string) int
}
