// Package host implements event creation for the couple: the theme form and
// generation of the branded guest QR code.
package host

import (
	"strings"

	"wedding-album/internal/color"
	"wedding-album/internal/models"
)

const (
	MaxColors = 3
	MinColors = 1

	// NewColorSlot is the color of a freshly added slot
	NewColorSlot = "#CCCCCC"
)

// Preset is a selectable theme style and its default colors
type Preset struct {
	Style         models.ThemeStyle
	Class         string
	DefaultColors []string
}

var presets = []Preset{
	{Style: models.StyleModern, Class: "theme-modern", DefaultColors: []string{"#4169E1", "#708090"}},
	{Style: models.StyleRetro, Class: "theme-retro", DefaultColors: []string{"#F4A460", "#FFDAB9"}},
	{Style: models.StyleLuxury, Class: "theme-luxury", DefaultColors: []string{"#FFD700", "#2F4F4F"}},
}

// Presets returns the available theme styles
func Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		p.DefaultColors = append([]string(nil), p.DefaultColors...)
		out[i] = p
	}
	return out
}

// PresetFor looks up a theme style by name, case-insensitively
func PresetFor(style string) (Preset, bool) {
	for _, p := range Presets() {
		if strings.EqualFold(string(p.Style), strings.TrimSpace(style)) {
			return p, true
		}
	}
	return Preset{}, false
}

// Form is the event creation form. Every method returns an updated copy; the
// Inputs, Colors and Errors slices always have the same length.
type Form struct {
	CoupleNames   string
	EventDate     string
	Style         models.ThemeStyle
	CoverPhotoURL string

	// raw text typed per slot
	Inputs []string
	// last accepted #rrggbb per slot
	Colors []string
	// per-slot error message, empty when the slot is fine
	Errors []string
}

// NewForm creates a form with the Modern theme selected
func NewForm() Form {
	return Form{}.WithTheme(models.StyleModern)
}

// WithTheme selects a style and resets every color slot to its defaults.
// Unknown styles fall back to Modern.
func (f Form) WithTheme(style models.ThemeStyle) Form {
	p, ok := PresetFor(string(style))
	if !ok {
		p = presets[0]
	}
	f.Style = p.Style
	f.Inputs = append([]string(nil), p.DefaultColors...)
	f.Colors = append([]string(nil), p.DefaultColors...)
	f.Errors = make([]string, len(p.DefaultColors))
	return f
}

// WithColorInput records raw text for slot i without validating it
func (f Form) WithColorInput(i int, raw string) Form {
	if i < 0 || i >= len(f.Inputs) {
		return f
	}
	f = f.clone()
	f.Inputs[i] = raw
	return f
}

// CommitColor validates slot i. A valid color is canonicalized into both the
// input and the committed colors; an invalid one only sets the slot error.
func (f Form) CommitColor(i int) Form {
	if i < 0 || i >= len(f.Inputs) {
		return f
	}
	f = f.clone()
	hex, err := color.Validate(f.Inputs[i])
	if err != nil {
		f.Errors[i] = color.Message(err)
		return f
	}
	f.Inputs[i] = hex
	f.Colors[i] = hex
	f.Errors[i] = ""
	return f
}

// AddColor appends a slot, up to MaxColors
func (f Form) AddColor() Form {
	if len(f.Inputs) >= MaxColors {
		return f
	}
	f = f.clone()
	f.Inputs = append(f.Inputs, NewColorSlot)
	f.Colors = append(f.Colors, NewColorSlot)
	f.Errors = append(f.Errors, "")
	return f
}

// RemoveColor drops slot i, keeping at least MinColors
func (f Form) RemoveColor(i int) Form {
	if len(f.Inputs) <= MinColors || i < 0 || i >= len(f.Inputs) {
		return f
	}
	f = f.clone()
	f.Inputs = append(f.Inputs[:i], f.Inputs[i+1:]...)
	f.Colors = append(f.Colors[:i], f.Colors[i+1:]...)
	f.Errors = append(f.Errors[:i], f.Errors[i+1:]...)
	return f
}

// HasErrors reports whether any color slot is invalid
func (f Form) HasErrors() bool {
	for _, e := range f.Errors {
		if e != "" {
			return true
		}
	}
	return false
}

// Results returns the per-slot validation state
func (f Form) Results() []models.ColorCheckResult {
	results := make([]models.ColorCheckResult, len(f.Inputs))
	for i, in := range f.Inputs {
		results[i] = models.ColorCheckResult{
			Index: i,
			Input: in,
			Valid: f.Errors[i] == "",
			Error: f.Errors[i],
		}
		if results[i].Valid {
			results[i].Hex = f.Colors[i]
		}
	}
	return results
}

// Validate commits every color slot and checks the required fields. The
// returned form carries the per-slot errors either way.
func (f Form) Validate() (Form, error) {
	for i := range f.Inputs {
		f = f.CommitColor(i)
	}
	if f.HasErrors() {
		for i, e := range f.Errors {
			if e != "" {
				return f, &ValidationError{Field: colorField(i), Message: "Please fix invalid colors before creating the event."}
			}
		}
	}
	if strings.TrimSpace(f.CoupleNames) == "" {
		return f, &ValidationError{Field: "couple_names", Message: "Please fill in all fields."}
	}
	if strings.TrimSpace(f.EventDate) == "" {
		return f, &ValidationError{Field: "event_date", Message: "Please fill in all fields."}
	}
	return f, nil
}

// Theme returns the committed theme
func (f Form) Theme() models.Theme {
	class := presets[0].Class
	if p, ok := PresetFor(string(f.Style)); ok {
		class = p.Class
	}
	return models.Theme{
		Style:      f.Style,
		Colors:     append([]string(nil), f.Colors...),
		StyleClass: class,
	}
}

func (f Form) clone() Form {
	f.Inputs = append([]string(nil), f.Inputs...)
	f.Colors = append([]string(nil), f.Colors...)
	f.Errors = append([]string(nil), f.Errors...)
	return f
}
