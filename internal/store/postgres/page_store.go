package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mklatt/glowcast/internal/domain"
)

// Store implements domain.PageStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies database connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const pageColumns = `name, content, background_color, panel_color, font_family, font_color,
	gap, border_radius, panel_shadow, layout, transition, transition_duration,
	display_order, duration, expires_at`

func (s *Store) CreateChannel(ctx context.Context, channel string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `INSERT INTO channels (id) VALUES ($1) ON CONFLICT DO NOTHING`, channel)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChannelExists
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO pages (channel_id, name, content, display_order) VALUES ($1, $2, '[]', 0)`,
		channel, domain.DefaultPageName,
	)
	if err != nil {
		return fmt.Errorf("seed default page: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO rotation_settings (channel_id, enabled, interval_seconds) VALUES ($1, true, 10)`,
		channel,
	)
	if err != nil {
		return fmt.Errorf("seed rotation settings: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) ChannelExists(ctx context.Context, channel string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM channels WHERE id = $1)`, channel).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("channel exists: %w", err)
	}
	return exists, nil
}

func (s *Store) UpsertPage(ctx context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the channel row so display order assignment serializes per
	// channel: two concurrent creates must not read the same MAX.
	if err := lockChannelTx(ctx, tx, channel); err != nil {
		return nil, err
	}

	page, err := getPageTx(ctx, tx, channel, name)
	if errors.Is(err, domain.ErrPageNotFound) {
		var next int
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(display_order) + 1, 0) FROM pages WHERE channel_id = $1`, channel,
		).Scan(&next)
		if err != nil {
			return nil, fmt.Errorf("next display order: %w", err)
		}
		page = &domain.Page{Name: name, Content: []domain.ContentItem{}, DisplayOrder: next}
	} else if err != nil {
		return nil, err
	}

	patch.Apply(page)

	if err := writePageTx(ctx, tx, channel, page); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return page, nil
}

func (s *Store) GetAllPages(ctx context.Context, channel string, includeExpired bool) ([]domain.Page, error) {
	if err := s.requireChannel(ctx, channel); err != nil {
		return nil, err
	}

	query := `SELECT ` + pageColumns + ` FROM pages WHERE channel_id = $1`
	if !includeExpired {
		query += ` AND (expires_at IS NULL OR expires_at > now())`
	}
	query += ` ORDER BY display_order, name`

	rows, err := s.pool.Query(ctx, query, channel)
	if err != nil {
		return nil, fmt.Errorf("get all pages: %w", err)
	}
	defer rows.Close()

	pages := []domain.Page{}
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

func (s *Store) GetPage(ctx context.Context, channel, name string) (*domain.Page, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE channel_id = $1 AND name = $2`, channel, name)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := s.requireChannel(ctx, channel); err != nil {
			return nil, err
		}
		return nil, domain.ErrPageNotFound
	}
	return page, err
}

func (s *Store) UpdatePage(ctx context.Context, channel, name string, patch domain.PagePatch) (*domain.Page, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	page, err := getPageTx(ctx, tx, channel, name)
	if errors.Is(err, domain.ErrPageNotFound) {
		if err := channelExistsTx(ctx, tx, channel); err != nil {
			return nil, err
		}
		return nil, domain.ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}

	patch.Apply(page)

	if err := writePageTx(ctx, tx, channel, page); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return page, nil
}

func (s *Store) ReorderPages(ctx context.Context, channel string, names []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockChannelTx(ctx, tx, channel); err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT name FROM pages WHERE channel_id = $1 ORDER BY display_order, name FOR UPDATE`, channel)
	if err != nil {
		return fmt.Errorf("load pages for reorder: %w", err)
	}
	var existing []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan page name: %w", err)
		}
		existing = append(existing, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	// Named pages take their position in the list; omitted pages follow in
	// their prior relative order, keeping orders a dense permutation.
	ordered := make([]string, 0, len(existing))
	named := make(map[string]bool, len(names))
	for _, name := range names {
		if present[name] && !named[name] {
			named[name] = true
			ordered = append(ordered, name)
		}
	}
	for _, name := range existing {
		if !named[name] {
			ordered = append(ordered, name)
		}
	}

	for i, name := range ordered {
		if _, err := tx.Exec(ctx,
			`UPDATE pages SET display_order = $1 WHERE channel_id = $2 AND name = $3`, i, channel, name,
		); err != nil {
			return fmt.Errorf("update display order: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeletePage(ctx context.Context, channel, name string) error {
	if name == domain.DefaultPageName {
		return domain.ErrPageProtected
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM pages WHERE channel_id = $1 AND name = $2`, channel, name)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if err := s.requireChannel(ctx, channel); err != nil {
			return err
		}
		return domain.ErrPageNotFound
	}
	return nil
}

func (s *Store) CleanupExpiredPages(ctx context.Context) ([]domain.ExpiredPage, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM pages
		 WHERE expires_at IS NOT NULL AND expires_at <= now() AND name <> $1
		 RETURNING channel_id, name`, domain.DefaultPageName)
	if err != nil {
		return nil, fmt.Errorf("cleanup expired pages: %w", err)
	}
	defer rows.Close()

	var deleted []domain.ExpiredPage
	for rows.Next() {
		var d domain.ExpiredPage
		if err := rows.Scan(&d.Channel, &d.Name); err != nil {
			return nil, fmt.Errorf("scan expired page: %w", err)
		}
		deleted = append(deleted, d)
	}
	return deleted, rows.Err()
}

const rotationColumns = `enabled, interval_seconds, theme, background_color, panel_color,
	font_family, font_color, gap, border_radius, panel_shadow,
	transition, transition_duration, debug_enabled`

func (s *Store) GetRotationSettings(ctx context.Context, channel string) (*domain.RotationSettings, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+rotationColumns+` FROM rotation_settings WHERE channel_id = $1`, channel)
	settings, err := scanRotation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	return settings, err
}

func (s *Store) UpdateRotationSettings(ctx context.Context, channel string, patch domain.RotationPatch) (*domain.RotationSettings, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+rotationColumns+` FROM rotation_settings WHERE channel_id = $1 FOR UPDATE`, channel)
	settings, err := scanRotation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}

	patch.Apply(settings)

	_, err = tx.Exec(ctx,
		`UPDATE rotation_settings SET
			enabled = $1, interval_seconds = $2, theme = $3,
			background_color = $4, panel_color = $5, font_family = $6, font_color = $7,
			gap = $8, border_radius = $9, panel_shadow = $10,
			transition = $11, transition_duration = $12, debug_enabled = $13
		 WHERE channel_id = $14`,
		settings.Enabled, settings.Interval, settings.Theme,
		settings.BackgroundColor, settings.PanelColor, settings.FontFamily, settings.FontColor,
		settings.Gap, settings.BorderRadius, settings.PanelShadow,
		settings.Transition, settings.TransitionDuration, settings.DebugEnabled,
		channel,
	)
	if err != nil {
		return nil, fmt.Errorf("update rotation settings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return settings, nil
}

func (s *Store) GetTheme(ctx context.Context, name string) (*domain.Theme, error) {
	theme := domain.Theme{Name: name}
	err := s.pool.QueryRow(ctx,
		`SELECT is_builtin, background_color, panel_color, font_family, font_color,
			gap, border_radius, panel_shadow
		 FROM themes WHERE name = $1`, name,
	).Scan(&theme.IsBuiltin, &theme.BackgroundColor, &theme.PanelColor, &theme.FontFamily,
		&theme.FontColor, &theme.Gap, &theme.BorderRadius, &theme.PanelShadow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrThemeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}
	return &theme, nil
}

func (s *Store) UpsertTheme(ctx context.Context, theme domain.Theme) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO themes (name, is_builtin, background_color, panel_color, font_family,
			font_color, gap, border_radius, panel_shadow)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name) DO UPDATE SET
			is_builtin = EXCLUDED.is_builtin,
			background_color = EXCLUDED.background_color, panel_color = EXCLUDED.panel_color,
			font_family = EXCLUDED.font_family, font_color = EXCLUDED.font_color,
			gap = EXCLUDED.gap, border_radius = EXCLUDED.border_radius,
			panel_shadow = EXCLUDED.panel_shadow`,
		theme.Name, theme.IsBuiltin, theme.BackgroundColor, theme.PanelColor, theme.FontFamily,
		theme.FontColor, theme.Gap, theme.BorderRadius, theme.PanelShadow,
	)
	if err != nil {
		return fmt.Errorf("upsert theme: %w", err)
	}
	return nil
}

func (s *Store) requireChannel(ctx context.Context, channel string) error {
	exists, err := s.ChannelExists(ctx, channel)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrChannelNotFound
	}
	return nil
}

// lockChannelTx takes the channel's row lock for the rest of the
// transaction. Mutations that assign or rewrite display orders go through
// here so concurrent writers on the same channel serialize.
func lockChannelTx(ctx context.Context, tx pgx.Tx, channel string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM channels WHERE id = $1 FOR UPDATE`, channel).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrChannelNotFound
	}
	if err != nil {
		return fmt.Errorf("lock channel: %w", err)
	}
	return nil
}

func channelExistsTx(ctx context.Context, tx pgx.Tx, channel string) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM channels WHERE id = $1)`, channel,
	).Scan(&exists); err != nil {
		return fmt.Errorf("channel exists: %w", err)
	}
	if !exists {
		return domain.ErrChannelNotFound
	}
	return nil
}

func getPageTx(ctx context.Context, tx pgx.Tx, channel, name string) (*domain.Page, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE channel_id = $1 AND name = $2 FOR UPDATE`, channel, name)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPageNotFound
	}
	return page, err
}

func writePageTx(ctx context.Context, tx pgx.Tx, channel string, page *domain.Page) error {
	content, err := json.Marshal(page.Content)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	var layout []byte
	if page.Layout != nil {
		if layout, err = json.Marshal(page.Layout); err != nil {
			return fmt.Errorf("marshal layout: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO pages (channel_id, name, content, background_color, panel_color,
			font_family, font_color, gap, border_radius, panel_shadow, layout,
			transition, transition_duration, display_order, duration, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (channel_id, name) DO UPDATE SET
			content = EXCLUDED.content,
			background_color = EXCLUDED.background_color, panel_color = EXCLUDED.panel_color,
			font_family = EXCLUDED.font_family, font_color = EXCLUDED.font_color,
			gap = EXCLUDED.gap, border_radius = EXCLUDED.border_radius,
			panel_shadow = EXCLUDED.panel_shadow, layout = EXCLUDED.layout,
			transition = EXCLUDED.transition, transition_duration = EXCLUDED.transition_duration,
			display_order = EXCLUDED.display_order, duration = EXCLUDED.duration,
			expires_at = EXCLUDED.expires_at`,
		channel, page.Name, content, page.BackgroundColor, page.PanelColor,
		page.FontFamily, page.FontColor, page.Gap, page.BorderRadius, page.PanelShadow, layout,
		page.Transition, page.TransitionDuration, page.DisplayOrder, page.Duration, page.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var (
		page      domain.Page
		content   []byte
		layoutRaw []byte
	)
	err := row.Scan(&page.Name, &content, &page.BackgroundColor, &page.PanelColor,
		&page.FontFamily, &page.FontColor, &page.Gap, &page.BorderRadius, &page.PanelShadow,
		&layoutRaw, &page.Transition, &page.TransitionDuration,
		&page.DisplayOrder, &page.Duration, &page.ExpiresAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(content, &page.Content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	if layoutRaw != nil {
		var spec domain.LayoutSpec
		if err := json.Unmarshal(layoutRaw, &spec); err != nil {
			return nil, fmt.Errorf("unmarshal layout: %w", err)
		}
		page.Layout = &spec
	}
	return &page, nil
}

func scanRotation(row rowScanner) (*domain.RotationSettings, error) {
	var settings domain.RotationSettings
	err := row.Scan(&settings.Enabled, &settings.Interval, &settings.Theme,
		&settings.BackgroundColor, &settings.PanelColor, &settings.FontFamily, &settings.FontColor,
		&settings.Gap, &settings.BorderRadius, &settings.PanelShadow,
		&settings.Transition, &settings.TransitionDuration, &settings.DebugEnabled)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
