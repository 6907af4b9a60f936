package storage

import (
	"errors"
	"sync"

	"wedding-album/internal/models"
)

var ErrNoEvent = errors.New("no event configured")

// Events holds the event currently shown to guests
type Events struct {
	mu      sync.RWMutex
	current *models.WeddingEvent
}

// NewEvents creates an empty event holder
func NewEvents() *Events {
	return &Events{}
}

// SetEvent replaces the current event
func (s *Events) SetEvent(event models.WeddingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event = event.Clone()
	s.current = &event
}

// Current returns the current event, if any
func (s *Events) Current() (models.WeddingEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return models.WeddingEvent{}, false
	}
	return s.current.Clone(), true
}

// ClearEvent removes the current event
func (s *Events) ClearEvent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// UpdateCoverPhoto stores a copy of the current event with a new cover photo
func (s *Events) UpdateCoverPhoto(url string) (models.WeddingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return models.WeddingEvent{}, ErrNoEvent
	}
	updated := s.current.WithCoverPhoto(url)
	s.current = &updated
	return updated.Clone(), nil
}
