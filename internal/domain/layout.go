package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// autoPanelCap bounds the auto-grid so channels with many pages don't shrink
// panels below readability on kiosk hardware.
const autoPanelCap = 6

// LayoutKind discriminates the accepted layout input shapes.
type LayoutKind int

const (
	LayoutAuto LayoutKind = iota
	LayoutPreset
	LayoutCustom
	LayoutPresetOverride
)

// LayoutFields are the grid knobs a preset or custom layout may set.
type LayoutFields struct {
	Columns *int     `json:"columns,omitempty"`
	Rows    *int     `json:"rows,omitempty"`
	Gap     *string  `json:"gap,omitempty"`
	Areas   []string `json:"areas,omitempty"`
}

// LayoutSpec is the tagged union of layout inputs: absent/"auto", a preset
// name, a custom object, or a preset name with field overrides. The JSON
// form is polymorphic (null, string or object); the Go form is explicit.
type LayoutSpec struct {
	Kind   LayoutKind
	Preset string
	Fields LayoutFields
}

func (s *LayoutSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = LayoutSpec{Kind: LayoutAuto}
		return nil
	}

	if trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return fmt.Errorf("layout spec: %w", err)
		}
		if name == "auto" {
			*s = LayoutSpec{Kind: LayoutAuto}
			return nil
		}
		*s = LayoutSpec{Kind: LayoutPreset, Preset: name}
		return nil
	}

	var obj struct {
		Preset *string `json:"preset"`
		LayoutFields
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("layout spec: %w", err)
	}
	if obj.Preset != nil {
		*s = LayoutSpec{Kind: LayoutPresetOverride, Preset: *obj.Preset, Fields: obj.LayoutFields}
		return nil
	}
	*s = LayoutSpec{Kind: LayoutCustom, Fields: obj.LayoutFields}
	return nil
}

func (s LayoutSpec) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case LayoutAuto:
		return []byte(`"auto"`), nil
	case LayoutPreset:
		return json.Marshal(s.Preset)
	case LayoutPresetOverride:
		return json.Marshal(struct {
			Preset string `json:"preset"`
			LayoutFields
		}{s.Preset, s.Fields})
	default:
		return json.Marshal(s.Fields)
	}
}

// LayoutType tags a resolved layout descriptor.
type LayoutType string

const (
	LayoutTypeAuto   LayoutType = "auto"
	LayoutTypeCustom LayoutType = "custom"
)

// LayoutDescriptor is the concrete grid description consumed by the
// rendering collaborator. Purely descriptive; nothing here renders.
type LayoutDescriptor struct {
	Type       LayoutType `json:"type"`
	PanelCount int        `json:"panel_count,omitempty"`
	Columns    *int       `json:"columns,omitempty"`
	Rows       *int       `json:"rows,omitempty"`
	Gap        *string    `json:"gap,omitempty"`
	Areas      []string   `json:"areas,omitempty"`
}

var layoutPresets = map[string]LayoutFields{
	"grid-2x2":     {Columns: intPtr(2), Rows: intPtr(2)},
	"grid-3x3":     {Columns: intPtr(3), Rows: intPtr(3)},
	"columns-2":    {Columns: intPtr(2)},
	"columns-3":    {Columns: intPtr(3)},
	"sidebar-left": {Columns: intPtr(2), Areas: []string{"sidebar main"}},
	"fullscreen":   {Columns: intPtr(1), Rows: intPtr(1)},
}

// LayoutPresetNames lists the known preset names.
func LayoutPresetNames() []string {
	names := make([]string, 0, len(layoutPresets))
	for name := range layoutPresets {
		names = append(names, name)
	}
	return names
}

// ResolveLayout turns a layout spec into a concrete grid description.
// A nil spec means auto: one panel per content item, capped. An unknown
// preset name degrades to an uncapped auto grid so every panel stays
// visible rather than failing the whole page.
func ResolveLayout(spec *LayoutSpec, contentCount int) LayoutDescriptor {
	if spec == nil || spec.Kind == LayoutAuto {
		return LayoutDescriptor{Type: LayoutTypeAuto, PanelCount: min(contentCount, autoPanelCap)}
	}

	switch spec.Kind {
	case LayoutPreset:
		fields, ok := layoutPresets[spec.Preset]
		if !ok {
			return LayoutDescriptor{Type: LayoutTypeAuto, PanelCount: contentCount}
		}
		return customDescriptor(fields)
	case LayoutPresetOverride:
		if base, ok := layoutPresets[spec.Preset]; ok {
			return customDescriptor(overlayFields(base, spec.Fields))
		}
		return customDescriptor(spec.Fields)
	default:
		return customDescriptor(spec.Fields)
	}
}

func customDescriptor(fields LayoutFields) LayoutDescriptor {
	return LayoutDescriptor{
		Type:    LayoutTypeCustom,
		Columns: fields.Columns,
		Rows:    fields.Rows,
		Gap:     fields.Gap,
		Areas:   fields.Areas,
	}
}

// overlayFields returns base with the non-nil fields of over applied on top.
func overlayFields(base, over LayoutFields) LayoutFields {
	out := base
	if over.Columns != nil {
		out.Columns = over.Columns
	}
	if over.Rows != nil {
		out.Rows = over.Rows
	}
	if over.Gap != nil {
		out.Gap = over.Gap
	}
	if over.Areas != nil {
		out.Areas = over.Areas
	}
	return out
}
