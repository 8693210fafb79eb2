package domain

import "time"

// DefaultPageName is the page every channel is seeded with. It participates
// in rotation like any other page but can never be deleted or expired away.
const DefaultPageName = "default"

// ContentType identifies how a content item is rendered.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentMarkdown ContentType = "markdown"
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentWidget   ContentType = "widget"
)

// ContentItem is one panel of a page. Items are immutable once embedded in a
// page snapshot; a page rewrite replaces the whole slice.
type ContentItem struct {
	Type  ContentType    `json:"type"`
	Value string         `json:"value,omitempty"`
	URL   string         `json:"url,omitempty"`
	Style map[string]any `json:"style,omitempty"`
}

// Page is a named, styled, optionally time-limited content payload within a
// channel. Style fields are overrides; nil falls through to the channel/theme
// layer resolved by the renderer.
type Page struct {
	Name    string        `json:"name"`
	Content []ContentItem `json:"content"`
	Style
	Layout             *LayoutSpec `json:"layout"`
	Transition         *string     `json:"transition"`
	TransitionDuration *float64    `json:"transition_duration"`
	DisplayOrder       int         `json:"display_order"`
	Duration           *int        `json:"duration"`
	ExpiresAt          *time.Time  `json:"expires_at"`
}

// Expired reports whether the page's TTL has passed.
func (p *Page) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

// PagePatch carries the writable fields of a page write. Nil fields are
// retained from the existing page, never cleared. The same shape serves both
// upsert (applied to a zero page on create) and partial update.
type PagePatch struct {
	Content []ContentItem `json:"content"`
	Style
	Layout             *LayoutSpec `json:"layout"`
	Transition         *string     `json:"transition"`
	TransitionDuration *float64    `json:"transition_duration"`
	Duration           *int        `json:"duration"`
	ExpiresAt          *time.Time  `json:"expires_at"`
}

// Apply merges the explicitly provided fields into p.
func (patch PagePatch) Apply(p *Page) {
	if patch.Content != nil {
		p.Content = patch.Content
	}
	p.Style.apply(patch.Style)
	if patch.Layout != nil {
		p.Layout = patch.Layout
	}
	if patch.Transition != nil {
		p.Transition = patch.Transition
	}
	if patch.TransitionDuration != nil {
		p.TransitionDuration = patch.TransitionDuration
	}
	if patch.Duration != nil {
		p.Duration = patch.Duration
	}
	if patch.ExpiresAt != nil {
		p.ExpiresAt = patch.ExpiresAt
	}
}
