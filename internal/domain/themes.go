package domain

// Built-in themes ship with the server and are available without any store
// row. A stored theme with the same name shadows the built-in one.
var builtinThemes = map[string]Theme{
	"dark": {
		Name:      "dark",
		IsBuiltin: true,
		Style: Style{
			BackgroundColor: strPtr("#111827"),
			PanelColor:      strPtr("#1f2937"),
			FontFamily:      strPtr("'Inter', sans-serif"),
			FontColor:       strPtr("#f9fafb"),
			Gap:             strPtr("1rem"),
			BorderRadius:    strPtr("0.75rem"),
			PanelShadow:     strPtr("0 4px 12px rgba(0,0,0,0.4)"),
		},
	},
	"light": {
		Name:      "light",
		IsBuiltin: true,
		Style: Style{
			BackgroundColor: strPtr("#f3f4f6"),
			PanelColor:      strPtr("#ffffff"),
			FontFamily:      strPtr("'Inter', sans-serif"),
			FontColor:       strPtr("#111827"),
			Gap:             strPtr("1rem"),
			BorderRadius:    strPtr("0.75rem"),
			PanelShadow:     strPtr("0 2px 8px rgba(0,0,0,0.1)"),
		},
	},
	"midnight": {
		Name:      "midnight",
		IsBuiltin: true,
		Style: Style{
			BackgroundColor: strPtr("#030712"),
			PanelColor:      strPtr("#0f172a"),
			FontFamily:      strPtr("'Space Grotesk', sans-serif"),
			FontColor:       strPtr("#e2e8f0"),
			Gap:             strPtr("1.25rem"),
			BorderRadius:    strPtr("1rem"),
			PanelShadow:     strPtr("0 0 24px rgba(56,189,248,0.15)"),
		},
	},
	"terminal": {
		Name:      "terminal",
		IsBuiltin: true,
		Style: Style{
			BackgroundColor: strPtr("#000000"),
			PanelColor:      strPtr("#0a0a0a"),
			FontFamily:      strPtr("'JetBrains Mono', monospace"),
			FontColor:       strPtr("#22c55e"),
			Gap:             strPtr("0.5rem"),
			BorderRadius:    strPtr("0"),
			PanelShadow:     strPtr("none"),
		},
	},
}

// BuiltinTheme returns the built-in theme with the given name.
func BuiltinTheme(name string) (*Theme, bool) {
	theme, ok := builtinThemes[name]
	if !ok {
		return nil, false
	}
	return &theme, true
}

// BuiltinThemeNames lists the names of all built-in themes.
func BuiltinThemeNames() []string {
	names := make([]string, 0, len(builtinThemes))
	for name := range builtinThemes {
		names = append(names, name)
	}
	return names
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
