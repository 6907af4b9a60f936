// Package share sends the guest link of an event to other people.
package share

import (
	"context"
	"errors"
	"fmt"

	"wedding-album/internal/models"
)

var ErrUnsupported = errors.New("sharing is not supported")

// Payload is what gets shared
type Payload struct {
	Title string
	Text  string
	URL   string
}

// Sharer delivers a payload
type Sharer interface {
	Share(ctx context.Context, p Payload) error
}

// InvitePayload builds the invitation for an event's guest link
func InvitePayload(event models.WeddingEvent, guestURL string) Payload {
	return Payload{
		Title: fmt.Sprintf("Photos from %s's Wedding!", event.CoupleNames),
		Text:  fmt.Sprintf("Join the fun and add your photos to %s's wedding album!", event.CoupleNames),
		URL:   guestURL,
	}
}

// Invite shares the guest link through s. A nil sharer returns ErrUnsupported.
func Invite(ctx context.Context, s Sharer, event models.WeddingEvent, guestURL string) error {
	if s == nil {
		return ErrUnsupported
	}
	if err := s.Share(ctx, InvitePayload(event, guestURL)); err != nil {
		return fmt.Errorf("failed to share event link: %w", err)
	}
	return nil
}
