package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ImageDevice is a camera that serves a still frame per facing mode from
// <Dir>/user.jpg and <Dir>/environment.jpg.
type ImageDevice struct {
	Dir string
	// Deny simulates the user declining the permission prompt
	Deny bool
}

var _ Device = (*ImageDevice)(nil)

// Open implements Device
func (d *ImageDevice) Open(ctx context.Context, facing Facing) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Deny {
		return nil, ErrPermissionDenied
	}

	path := filepath.Join(d.Dir, string(facing)+".jpg")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	frame, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	return NewStillStream(frame), nil
}

// NewStillStream returns a single-track stream that always yields frame
func NewStillStream(frame image.Image) Stream {
	return &stillStream{
		id:    uuid.NewString(),
		frame: frame,
		track: &videoTrack{},
	}
}

type stillStream struct {
	id    string
	frame image.Image
	track *videoTrack
}

func (s *stillStream) ID() string { return s.id }

func (s *stillStream) Tracks() []Track { return []Track{s.track} }

func (s *stillStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.track.Stopped() {
		return nil, ErrStreamEnded
	}
	return s.frame, nil
}

type videoTrack struct {
	stopped atomic.Bool
}

func (t *videoTrack) Kind() string  { return "video" }
func (t *videoTrack) Stop()         { t.stopped.Store(true) }
func (t *videoTrack) Stopped() bool { return t.stopped.Load() }
