package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDevice checks that every previously opened stream is fully stopped
// before a new one is requested.
type recordingDevice struct {
	t       *testing.T
	opened  []Stream
	facings []Facing
	err     error
}

func (d *recordingDevice) Open(_ context.Context, facing Facing) (Stream, error) {
	for _, prior := range d.opened {
		for _, track := range prior.Tracks() {
			assert.True(d.t, track.Stopped(), "stream %s still live when a new one was requested", prior.ID())
		}
	}
	d.facings = append(d.facings, facing)
	if d.err != nil {
		return nil, d.err
	}
	s := NewStillStream(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	d.opened = append(d.opened, s)
	return s, nil
}

func (d *recordingDevice) live() int {
	n := 0
	for _, s := range d.opened {
		for _, track := range s.Tracks() {
			if !track.Stopped() {
				n++
			}
		}
	}
	return n
}

func TestSwitchLeavesOneLiveStream(t *testing.T) {
	dev := &recordingDevice{t: t}
	s := NewSession(dev, zerolog.Nop())
	ctx := context.Background()

	_, err := s.Start(ctx, FacingEnvironment)
	require.NoError(t, err)
	_, err = s.Switch(ctx)
	require.NoError(t, err)
	_, err = s.Switch(ctx)
	require.NoError(t, err)

	assert.Equal(t, []Facing{FacingEnvironment, FacingUser, FacingEnvironment}, dev.facings)
	assert.Equal(t, 1, dev.live())
	assert.True(t, s.Active())

	s.Stop()
	assert.Equal(t, 0, dev.live())
	assert.False(t, s.Active())
	s.Stop()
}

func TestStartClassifiesErrors(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrPermissionDenied, PermissionDenied},
		{ErrDeviceNotFound, DeviceNotFound},
		{errors.New("boom"), Unknown},
	}
	for _, tc := range cases {
		s := NewSession(&recordingDevice{t: t, err: tc.err}, zerolog.Nop())
		_, err := s.Start(context.Background(), FacingUser)

		var camErr *CameraError
		require.True(t, errors.As(err, &camErr))
		assert.Equal(t, tc.kind, camErr.Kind)
		assert.NotEmpty(t, camErr.Message())
		assert.False(t, s.Active())
	}
}

func TestCaptureStopsStream(t *testing.T) {
	dev := &recordingDevice{t: t}
	s := NewSession(dev, zerolog.Nop())

	_, err := s.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNoStream)

	_, err = s.Start(context.Background(), FacingEnvironment)
	require.NoError(t, err)

	data, err := s.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, dev.live())

	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestImageDevice(t *testing.T) {
	dir := t.TempDir()
	frame := imaging.New(16, 12, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(frame, filepath.Join(dir, "environment.jpg")))

	dev := &ImageDevice{Dir: dir}
	stream, err := dev.Open(context.Background(), FacingEnvironment)
	require.NoError(t, err)
	got, err := stream.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, got.Bounds().Dx())

	stream.Tracks()[0].Stop()
	_, err = stream.Frame(context.Background())
	assert.ErrorIs(t, err, ErrStreamEnded)

	_, err = dev.Open(context.Background(), FacingUser)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = (&ImageDevice{Dir: dir, Deny: true}).Open(context.Background(), FacingEnvironment)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = (&ImageDevice{Dir: filepath.Join(dir, "missing")}).Open(context.Background(), FacingEnvironment)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	_, statErr := os.Stat(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(statErr))
}

// promptDevice blocks in Open until the test answers the permission prompt
type promptDevice struct {
	asked  chan struct{}
	answer chan error

	mu     sync.Mutex
	opened []Stream
}

func newPromptDevice() *promptDevice {
	return &promptDevice{asked: make(chan struct{}, 1), answer: make(chan error)}
}

func (d *promptDevice) Open(context.Context, Facing) (Stream, error) {
	d.asked <- struct{}{}
	if err := <-d.answer; err != nil {
		return nil, err
	}
	s := NewStillStream(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	d.mu.Lock()
	d.opened = append(d.opened, s)
	d.mu.Unlock()
	return s, nil
}

func TestStopDuringPermissionPrompt(t *testing.T) {
	dev := newPromptDevice()
	s := NewSession(dev, zerolog.Nop())

	type result struct {
		stream Stream
		err    error
	}
	done := make(chan result, 1)
	go func() {
		stream, err := s.Start(context.Background(), FacingUser)
		done <- result{stream, err}
	}()
	<-dev.asked

	stopped := make(chan struct{})
	go func() {
		assert.Equal(t, FacingUser, s.Facing())
		assert.False(t, s.Active())
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked while the device was opening")
	}

	dev.answer <- nil
	res := <-done
	assert.ErrorIs(t, res.err, ErrSuperseded)
	assert.Nil(t, res.stream)
	assert.False(t, s.Active())
	require.Len(t, dev.opened, 1)
	assert.True(t, dev.opened[0].Tracks()[0].Stopped())
}

func TestSupersededStartKeepsNewerStream(t *testing.T) {
	dev := newPromptDevice()
	s := NewSession(dev, zerolog.Nop())

	first := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background(), FacingEnvironment)
		first <- err
	}()
	<-dev.asked

	second := make(chan error, 1)
	go func() {
		_, err := s.Switch(context.Background())
		second <- err
	}()
	<-dev.asked

	dev.answer <- nil
	dev.answer <- nil
	results := []error{<-first, <-second}

	assert.Contains(t, results, ErrSuperseded)
	assert.Contains(t, results, nil)
	assert.True(t, s.Active())
	assert.Equal(t, FacingUser, s.Facing())
}
