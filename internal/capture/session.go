// Package capture manages the guest's camera: acquiring a stream for the
// requested facing mode, grabbing frames and releasing the hardware.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

// Facing is the camera direction
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Opposite returns the other facing mode
func (f Facing) Opposite() Facing {
	if f == FacingEnvironment {
		return FacingUser
	}
	return FacingEnvironment
}

// Track is one hardware track of a stream
type Track interface {
	Kind() string
	Stop()
	Stopped() bool
}

// Stream is a live camera stream
type Stream interface {
	ID() string
	Tracks() []Track
	Frame(ctx context.Context) (image.Image, error)
}

// Device opens camera streams
type Device interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Session owns at most one live stream at a time
type Session struct {
	device Device
	log    zerolog.Logger

	mu     sync.Mutex
	stream Stream
	facing Facing
	// bumped whenever the held stream is dropped; an Open that returns after
	// a bump is discarded
	gen uint64
}

// NewSession creates a new capture session facing the environment
func NewSession(device Device, logger zerolog.Logger) *Session {
	return &Session{
		device: device,
		log:    logger.With().Str("component", "Camera").Logger(),
		facing: FacingEnvironment,
	}
}

// Facing returns the facing mode of the current or next stream
func (s *Session) Facing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// Active reports whether a stream is held
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Start opens a stream for facing, stopping any stream already held.
// Failures are returned as *CameraError. The session is not locked while the
// device is opening; if Stop, Start or Switch is called meanwhile the new
// stream is released and ErrSuperseded is returned.
func (s *Session) Start(ctx context.Context, facing Facing) (Stream, error) {
	s.mu.Lock()
	s.stopLocked()
	s.facing = facing
	gen := s.gen
	s.mu.Unlock()

	return s.open(ctx, gen, facing)
}

// Switch stops the current stream and opens one with the opposite facing mode
func (s *Session) Switch(ctx context.Context) (Stream, error) {
	s.mu.Lock()
	s.stopLocked()
	s.facing = s.facing.Opposite()
	facing, gen := s.facing, s.gen
	s.mu.Unlock()

	return s.open(ctx, gen, facing)
}

// Stop releases every track of the current stream
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Capture grabs one frame as JPEG and stops the stream
func (s *Session) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil, ErrNoStream
	}
	frame, err := s.stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	s.stopLocked()

	s.log.Info().Int("bytes", buf.Len()).Msg("Photo captured")
	return buf.Bytes(), nil
}

func (s *Session) open(ctx context.Context, gen uint64, facing Facing) (Stream, error) {
	stream, err := s.device.Open(ctx, facing)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		if err == nil {
			stopTracks(stream)
		}
		s.log.Debug().Str("facing", string(facing)).Msg("Discarding superseded camera request")
		return nil, ErrSuperseded
	}
	if err != nil {
		camErr := classify(err)
		s.log.Error().Err(err).Str("kind", string(camErr.Kind)).Str("facing", string(facing)).Msg("Error accessing camera")
		return nil, camErr
	}
	s.stream = stream
	s.log.Info().Str("stream", stream.ID()).Str("facing", string(facing)).Msg("Camera started")
	return stream, nil
}

func (s *Session) stopLocked() {
	s.gen++
	if s.stream == nil {
		return
	}
	stopTracks(s.stream)
	s.log.Debug().Str("stream", s.stream.ID()).Msg("Camera stopped")
	s.stream = nil
}

func stopTracks(stream Stream) {
	for _, track := range stream.Tracks() {
		track.Stop()
	}
}
