package models

import "time"

// ThemeStyle is the visual style picked by the host
type ThemeStyle string

const (
	StyleModern ThemeStyle = "Modern"
	StyleRetro  ThemeStyle = "Retro"
	StyleLuxury ThemeStyle = "Luxury"
)

// Theme represents the branding of an event page
type Theme struct {
	Style      ThemeStyle `json:"style"`
	Colors     []string   `json:"colors"`
	StyleClass string     `json:"style_class"`
}

// CSSVariables returns the page color variables. Missing slots fall back to the
// previous color, then to black.
func (t Theme) CSSVariables() map[string]string {
	pick := func(i int) string {
		for ; i >= 0; i-- {
			if i < len(t.Colors) && t.Colors[i] != "" {
				return t.Colors[i]
			}
		}
		return "#000000"
	}
	return map[string]string{
		"--primary-color-1": pick(0),
		"--primary-color-2": pick(1),
		"--primary-color-3": pick(2),
	}
}

// WeddingEvent represents a configured photo-sharing event
type WeddingEvent struct {
	ID            string    `json:"id"`
	CoupleNames   string    `json:"couple_names"`
	EventDate     string    `json:"event_date"`
	Theme         Theme     `json:"theme"`
	CoverPhotoURL string    `json:"cover_photo_url,omitempty"`
	QRCodeURL     string    `json:"qr_code_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Clone returns a deep copy of the event
func (e WeddingEvent) Clone() WeddingEvent {
	e.Theme.Colors = append([]string(nil), e.Theme.Colors...)
	return e
}

// WithCoverPhoto returns a copy of the event with a new cover photo
func (e WeddingEvent) WithCoverPhoto(url string) WeddingEvent {
	e = e.Clone()
	e.CoverPhotoURL = url
	return e
}

// Photo represents a guest photo in the shared album
type Photo struct {
	ID         string    `json:"id"`
	ImageURL   string    `json:"image_url"`
	Note       string    `json:"note"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ColorCheckResult is the validation outcome of one theme color slot
type ColorCheckResult struct {
	Index int    `json:"index"`
	Input string `json:"input"`
	Hex   string `json:"hex,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
