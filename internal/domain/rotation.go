package domain

// Style is the cascading style field set shared by themes, channel rotation
// settings and page overrides. Nil means "not set at this layer".
type Style struct {
	BackgroundColor *string `json:"background_color"`
	PanelColor      *string `json:"panel_color"`
	FontFamily      *string `json:"font_family"`
	FontColor       *string `json:"font_color"`
	Gap             *string `json:"gap"`
	BorderRadius    *string `json:"border_radius"`
	PanelShadow     *string `json:"panel_shadow"`
}

// apply copies the non-nil fields of patch into s.
func (s *Style) apply(patch Style) {
	if patch.BackgroundColor != nil {
		s.BackgroundColor = patch.BackgroundColor
	}
	if patch.PanelColor != nil {
		s.PanelColor = patch.PanelColor
	}
	if patch.FontFamily != nil {
		s.FontFamily = patch.FontFamily
	}
	if patch.FontColor != nil {
		s.FontColor = patch.FontColor
	}
	if patch.Gap != nil {
		s.Gap = patch.Gap
	}
	if patch.BorderRadius != nil {
		s.BorderRadius = patch.BorderRadius
	}
	if patch.PanelShadow != nil {
		s.PanelShadow = patch.PanelShadow
	}
}

// mergedWith returns s with unset fields filled from fallback. Explicit
// values always win over the fallback layer.
func (s Style) mergedWith(fallback Style) Style {
	out := fallback
	out.apply(s)
	return out
}

// RotationSettings are the channel-level presentation defaults.
type RotationSettings struct {
	Enabled  bool    `json:"enabled"`
	Interval int     `json:"interval"`
	Theme    *string `json:"theme"`
	Style
	Transition         *string  `json:"transition"`
	TransitionDuration *float64 `json:"transition_duration"`
	DebugEnabled       bool     `json:"debug_enabled"`
}

// RotationPatch carries a partial rotation settings update.
type RotationPatch struct {
	Enabled  *bool   `json:"enabled"`
	Interval *int    `json:"interval"`
	Theme    *string `json:"theme"`
	Style
	Transition         *string  `json:"transition"`
	TransitionDuration *float64 `json:"transition_duration"`
	DebugEnabled       *bool    `json:"debug_enabled"`
}

// Apply merges the explicitly provided fields into r.
func (patch RotationPatch) Apply(r *RotationSettings) {
	if patch.Enabled != nil {
		r.Enabled = *patch.Enabled
	}
	if patch.Interval != nil {
		r.Interval = *patch.Interval
	}
	if patch.Theme != nil {
		r.Theme = patch.Theme
	}
	r.Style.apply(patch.Style)
	if patch.Transition != nil {
		r.Transition = patch.Transition
	}
	if patch.TransitionDuration != nil {
		r.TransitionDuration = patch.TransitionDuration
	}
	if patch.DebugEnabled != nil {
		r.DebugEnabled = *patch.DebugEnabled
	}
}

// Theme is a named bundle of default style values, consulted only as a
// fallback. Never mutated by the sync core.
type Theme struct {
	Name      string `json:"name"`
	IsBuiltin bool   `json:"is_builtin"`
	Style
}

// ResolvedRotation is the effective presentation a viewer should apply:
// channel settings with theme defaults filled into unset style fields.
type ResolvedRotation struct {
	Enabled  bool    `json:"enabled"`
	Interval int     `json:"interval"`
	Theme    *string `json:"theme"`
	Style
	Transition         *string  `json:"transition"`
	TransitionDuration *float64 `json:"transition_duration"`
	DebugEnabled       bool     `json:"debug_enabled"`
}

// ThemeLookup resolves a theme name to its defaults. A nil result or an
// error both mean "no theme defaults available".
type ThemeLookup func(name string) (*Theme, error)

// ResolveRotation applies the style cascade: an explicit channel value wins
// unconditionally; otherwise the named theme's value is used; a theme that
// cannot be resolved leaves the field nil. Screens referencing a removed
// theme keep functioning with whatever explicit fields they have.
func ResolveRotation(settings RotationSettings, lookup ThemeLookup) ResolvedRotation {
	out := ResolvedRotation{
		Enabled:            settings.Enabled,
		Interval:           settings.Interval,
		Theme:              settings.Theme,
		Style:              settings.Style,
		Transition:         settings.Transition,
		TransitionDuration: settings.TransitionDuration,
		DebugEnabled:       settings.DebugEnabled,
	}

	if settings.Theme == nil || lookup == nil {
		return out
	}

	theme, err := lookup(*settings.Theme)
	if err != nil || theme == nil {
		return out
	}

	out.Style = settings.Style.mergedWith(theme.Style)
	return out
}
