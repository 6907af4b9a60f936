package upload

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-album/internal/capture"
	"wedding-album/internal/models"
	"wedding-album/internal/storage"
)

type fakeCamera struct {
	mu       sync.Mutex
	facing   capture.Facing
	active   bool
	startErr   error
	captureErr error
	frame      []byte
	stops      int
}

func (c *fakeCamera) Start(_ context.Context, facing capture.Facing) (capture.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facing = facing
	if c.startErr != nil {
		return nil, c.startErr
	}
	c.active = true
	return nil, nil
}

func (c *fakeCamera) Switch(ctx context.Context) (capture.Stream, error) {
	c.mu.Lock()
	next := c.facing.Opposite()
	c.active = false
	c.mu.Unlock()
	return c.Start(ctx, next)
}

func (c *fakeCamera) Capture(context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil, capture.ErrNoStream
	}
	if c.captureErr != nil {
		return nil, c.captureErr
	}
	c.active = false
	return c.frame, nil
}

func (c *fakeCamera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.stops++
}

func (c *fakeCamera) Facing() capture.Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.facing == "" {
		return capture.FacingEnvironment
	}
	return c.facing
}

func (c *fakeCamera) isActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// promptDevice blocks in Open until the test answers the permission prompt
type promptDevice struct {
	asked  chan struct{}
	answer chan error
}

func newPromptDevice() *promptDevice {
	return &promptDevice{asked: make(chan struct{}, 1), answer: make(chan error)}
}

func (d *promptDevice) Open(context.Context, capture.Facing) (capture.Stream, error) {
	d.asked <- struct{}{}
	if err := <-d.answer; err != nil {
		return nil, err
	}
	return capture.NewStillStream(image.NewRGBA(image.Rect(0, 0, 4, 4))), nil
}

type fakeProbe struct {
	score float64
	err   error
}

func (p fakeProbe) Score(context.Context, []byte) (float64, error) {
	return p.score, p.err
}

// blockingCaptioner answers once release is closed
type blockingCaptioner struct {
	text    string
	started chan struct{}
	release chan struct{}
}

func (c *blockingCaptioner) GenerateCaption(ctx context.Context, _ string) string {
	if c.started != nil {
		close(c.started)
	}
	if c.release != nil {
		<-c.release
	}
	return c.text
}

type fixture struct {
	p        *Pipeline
	camera   *fakeCamera
	album    *storage.Album
	previews *Previews
}

func newFixture(t *testing.T, probe fakeProbe, captioner *blockingCaptioner) *fixture {
	t.Helper()
	camera := &fakeCamera{frame: []byte("\xff\xd8\xff\xe0jpeg")}
	album := storage.NewAlbum()
	previews := NewPreviews()
	if captioner == nil {
		captioner = &blockingCaptioner{text: "Love is in the air"}
	}
	p := NewPipeline(camera, probe, captioner, album, previews, &Config{UploadDelay: 0}, zerolog.Nop())
	return &fixture{p: p, camera: camera, album: album, previews: previews}
}

func (f *fixture) selectPhoto(t *testing.T) {
	t.Helper()
	require.NoError(t, f.p.SelectFile(context.Background(), File{Name: "dance.jpg", Data: []byte("photo-bytes")}))
}

func TestSelectFileReachesPreview(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 250}, nil)

	var seen []models.UploadState
	unsubscribe := f.p.Subscribe(func(s Snapshot) { seen = append(seen, s.State) })
	defer unsubscribe()

	f.selectPhoto(t)

	s := f.p.State()
	assert.Equal(t, models.UploadPreview, s.State)
	assert.Equal(t, "dance.jpg", s.FileName)
	assert.False(t, s.BlurWarning)
	assert.Equal(t, 250.0, s.Sharpness)
	assert.True(t, strings.HasPrefix(s.PreviewURL, "blob:"))
	assert.Equal(t, []models.UploadState{models.UploadChecking, models.UploadPreview}, seen)
}

func TestBlurryPhotoGetsWarning(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 12}, nil)
	f.selectPhoto(t)

	s := f.p.State()
	assert.Equal(t, models.UploadPreview, s.State)
	assert.True(t, s.BlurWarning)
}

func TestSharpnessFailureFailsOpen(t *testing.T) {
	f := newFixture(t, fakeProbe{err: errors.New("decode failed")}, nil)
	f.selectPhoto(t)

	s := f.p.State()
	assert.Equal(t, models.UploadPreview, s.State)
	assert.False(t, s.BlurWarning)
}

func TestCameraDeniedReturnsToIdle(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	f.camera.startErr = &capture.CameraError{Kind: capture.PermissionDenied, Err: capture.ErrPermissionDenied}

	require.NoError(t, f.p.StartCamera(context.Background()))

	s := f.p.State()
	assert.Equal(t, models.UploadIdle, s.State)
	assert.Contains(t, s.CameraError, "Camera access was denied")
	assert.False(t, f.camera.isActive())
}

func TestCaptureFlow(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	ctx := context.Background()

	require.NoError(t, f.p.StartCamera(ctx))
	assert.Equal(t, models.UploadCapturing, f.p.State().State)
	assert.True(t, f.camera.isActive())

	require.NoError(t, f.p.SwitchCamera(ctx))
	s := f.p.State()
	assert.Equal(t, models.UploadCapturing, s.State)
	assert.Equal(t, capture.FacingUser, s.Facing)

	require.NoError(t, f.p.Capture(ctx))
	s = f.p.State()
	assert.Equal(t, models.UploadPreview, s.State)
	assert.Equal(t, "capture.jpg", s.FileName)
	assert.False(t, f.camera.isActive())
}

func TestStopCameraReleasesStream(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	require.NoError(t, f.p.StartCamera(context.Background()))

	require.NoError(t, f.p.StopCamera())
	assert.Equal(t, models.UploadIdle, f.p.State().State)
	assert.False(t, f.camera.isActive())

	assert.ErrorIs(t, f.p.StopCamera(), ErrInvalidTransition)
}

func TestCaptureFailureReturnsToIdle(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	f.camera.captureErr = capture.ErrStreamEnded
	require.NoError(t, f.p.StartCamera(context.Background()))

	err := f.p.Capture(context.Background())
	assert.ErrorIs(t, err, capture.ErrStreamEnded)

	s := f.p.State()
	assert.Equal(t, models.UploadIdle, s.State)
	assert.NotEmpty(t, s.CameraError)
	assert.False(t, f.camera.isActive())
}

func TestLeaveCameraDuringPermissionPrompt(t *testing.T) {
	cases := []struct {
		name  string
		leave func(p *Pipeline) error
		want  models.UploadState
	}{
		{"select file", func(p *Pipeline) error {
			return p.SelectFile(context.Background(), File{Name: "a.jpg", Data: []byte("a")})
		}, models.UploadPreview},
		{"reset", func(p *Pipeline) error { return p.Reset() }, models.UploadIdle},
		{"stop camera", func(p *Pipeline) error { return p.StopCamera() }, models.UploadIdle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dev := newPromptDevice()
			session := capture.NewSession(dev, zerolog.Nop())
			p := NewPipeline(session, fakeProbe{score: 500}, &blockingCaptioner{}, storage.NewAlbum(), NewPreviews(), &Config{UploadDelay: 0}, zerolog.Nop())

			started := make(chan error, 1)
			go func() { started <- p.StartCamera(context.Background()) }()
			<-dev.asked
			assert.Equal(t, models.UploadCapturing, p.State().State)

			left := make(chan error, 1)
			go func() { left <- tc.leave(p) }()
			select {
			case err := <-left:
				require.NoError(t, err)
			case <-time.After(time.Second):
				t.Fatal("pipeline blocked on the permission prompt")
			}
			assert.Equal(t, tc.want, p.State().State)

			dev.answer <- nil
			require.NoError(t, <-started)

			s := p.State()
			assert.Equal(t, tc.want, s.State)
			assert.Empty(t, s.CameraError)
			assert.False(t, session.Active())
		})
	}
}

func TestCaptionPrefillsNote(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	f.selectPhoto(t)

	require.NoError(t, f.p.GenerateCaption(context.Background()))

	s := f.p.State()
	assert.Equal(t, models.UploadPreview, s.State)
	assert.Equal(t, "Love is in the air", s.Caption)
	assert.Equal(t, "Love is in the air", s.Note)
	assert.False(t, s.GeneratingCaption)
}

func TestCaptionAfterResetIsDiscarded(t *testing.T) {
	captioner := &blockingCaptioner{
		text:    "Too late",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, fakeProbe{score: 500}, captioner)
	f.selectPhoto(t)

	done := make(chan error, 1)
	go func() { done <- f.p.GenerateCaption(context.Background()) }()

	<-captioner.started
	assert.Equal(t, models.UploadCaptioning, f.p.State().State)
	require.NoError(t, f.p.Reset())
	close(captioner.release)
	require.NoError(t, <-done)

	s := f.p.State()
	assert.Equal(t, models.UploadIdle, s.State)
	assert.Empty(t, s.Caption)
	assert.Empty(t, s.Note)
	assert.Zero(t, f.previews.Live())
}

func TestUploadAddsPhotoAndReleasesPreview(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	f.selectPhoto(t)
	require.NoError(t, f.p.SetNote("  Best night ever  "))
	assert.Equal(t, 1, f.previews.Live())

	require.NoError(t, f.p.Upload(context.Background()))

	s := f.p.State()
	assert.Equal(t, models.UploadSuccess, s.State)
	require.NotNil(t, s.Photo)
	assert.Empty(t, s.PreviewURL)
	assert.Zero(t, f.previews.Live())

	photos := f.album.GetAllPhotos()
	require.Len(t, photos, 1)
	assert.Equal(t, "Best night ever", photos[0].Note)
	assert.True(t, strings.HasPrefix(photos[0].ImageURL, "data:"))

	require.NoError(t, f.p.UploadAnother())
	assert.Equal(t, models.UploadIdle, f.p.State().State)
}

func TestUploadNoteFallbacks(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	f.selectPhoto(t)
	require.NoError(t, f.p.Upload(context.Background()))
	assert.Equal(t, "No note left.", f.album.GetAllPhotos()[0].Note)

	require.NoError(t, f.p.UploadAnother())
	f.selectPhoto(t)
	require.NoError(t, f.p.GenerateCaption(context.Background()))
	require.NoError(t, f.p.SetNote(""))
	require.NoError(t, f.p.Upload(context.Background()))
	assert.Equal(t, "Love is in the air", f.album.GetAllPhotos()[0].Note)
}

func TestUploadCancelledReturnsToPreview(t *testing.T) {
	camera := &fakeCamera{}
	previews := NewPreviews()
	album := storage.NewAlbum()
	p := NewPipeline(camera, fakeProbe{score: 500}, &blockingCaptioner{}, album, previews, &Config{UploadDelay: time.Hour}, zerolog.Nop())
	require.NoError(t, p.SelectFile(context.Background(), File{Name: "a.jpg", Data: []byte("a")}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Upload(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	s := p.State()
	assert.Equal(t, models.UploadPreview, s.State)
	assert.False(t, s.Uploading)
	assert.Zero(t, album.Count())
	assert.Equal(t, 1, previews.Live())
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.p.Upload(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, f.p.GenerateCaption(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, f.p.Capture(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, f.p.SetNote("hi"), ErrInvalidTransition)
	assert.NoError(t, f.p.Reset())

	f.selectPhoto(t)
	assert.ErrorIs(t, f.p.StartCamera(ctx), ErrInvalidTransition)
	assert.Equal(t, models.UploadPreview, f.p.State().State)
}

func TestSelectFileWhileCapturingStopsCamera(t *testing.T) {
	f := newFixture(t, fakeProbe{score: 500}, nil)
	require.NoError(t, f.p.StartCamera(context.Background()))
	f.selectPhoto(t)
	assert.NotEmpty(t, f.p.State().PreviewURL)
	assert.False(t, f.camera.isActive())

	require.NoError(t, f.p.Reset())
	assert.Zero(t, f.previews.Live())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.UploadIdle, models.UploadChecking))
	assert.True(t, CanTransition(models.UploadCapturing, models.UploadCapturing))
	assert.False(t, CanTransition(models.UploadChecking, models.UploadIdle))
	assert.False(t, CanTransition(models.UploadSuccess, models.UploadPreview))
}
