package host

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wedding-album/internal/models"
	"wedding-album/internal/printer"
	"wedding-album/internal/qr"
)

// ValidationError is a form problem shown to the host before anything is rendered
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func colorField(i int) string {
	return "colors[" + strconv.Itoa(i) + "]"
}

// Composer renders the branded QR code
type Composer interface {
	Compose(targetURL, coupleNames, primary, secondary string) (*qr.Artifact, error)
}

// EventStore receives created events
type EventStore interface {
	SetEvent(event models.WeddingEvent)
}

// Result is a created event and its QR code
type Result struct {
	Event    models.WeddingEvent
	GuestURL string
	QR       *qr.Artifact
	Note     string
}

// Creator turns a validated form into a stored event
type Creator struct {
	composer Composer
	events   EventStore
	baseURL  string
	log      zerolog.Logger
}

// NewCreator creates a new event creator. Guest links are built on baseURL.
func NewCreator(composer Composer, events EventStore, baseURL string, logger zerolog.Logger) *Creator {
	return &Creator{
		composer: composer,
		events:   events,
		baseURL:  baseURL,
		log:      logger.With().Str("component", "Host").Logger(),
	}
}

// GuestURL returns the guest link for an event
func GuestURL(baseURL, eventID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("event", eventID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Create validates the form, renders the QR code and stores the event. The
// returned form carries per-slot color errors. On any error the event store
// is left untouched.
func (c *Creator) Create(ctx context.Context, form Form) (*Result, Form, error) {
	form, err := form.Validate()
	if err != nil {
		return nil, form, err
	}
	if err := ctx.Err(); err != nil {
		return nil, form, err
	}

	theme := form.Theme()
	primary, secondary := "#000000", "#ffffff"
	if len(theme.Colors) > 0 {
		primary = theme.Colors[0]
	}
	if len(theme.Colors) > 1 {
		secondary = theme.Colors[1]
	}

	id := uuid.NewString()
	guestURL, err := GuestURL(c.baseURL, id)
	if err != nil {
		return nil, form, err
	}

	art, err := c.composer.Compose(guestURL, form.CoupleNames, primary, secondary)
	if err != nil {
		c.log.Error().Err(err).Str("event", id).Msg("Failed to generate QR code")
		return nil, form, fmt.Errorf("failed to generate QR code: %w", err)
	}

	event := models.WeddingEvent{
		ID:            id,
		CoupleNames:   form.CoupleNames,
		EventDate:     form.EventDate,
		Theme:         theme,
		CoverPhotoURL: form.CoverPhotoURL,
		QRCodeURL:     art.DataURL,
		CreatedAt:     time.Now(),
	}
	c.events.SetEvent(event)

	c.log.Info().
		Str("event", id).
		Str("couple", event.CoupleNames).
		Str("style", string(theme.Style)).
		Bool("qr_fallback", art.Fallback).
		Msg("Event created")

	return &Result{Event: event, GuestURL: guestURL, QR: art, Note: printer.DefaultNote}, form, nil
}
