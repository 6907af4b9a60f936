// Package upload drives the guest photo flow: camera or file intake, the
// sharpness check, optional captioning and submission to the album.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wedding-album/internal/capture"
	"wedding-album/internal/caption"
	"wedding-album/internal/models"
	"wedding-album/internal/sharpness"
	"wedding-album/internal/state"
)

const (
	DefaultUploadDelay = 2 * time.Second

	defaultNote = "No note left."
)

var errStale = errors.New("stale operation")

// Camera is the part of capture.Session the pipeline drives
type Camera interface {
	Start(ctx context.Context, facing capture.Facing) (capture.Stream, error)
	Switch(ctx context.Context) (capture.Stream, error)
	Capture(ctx context.Context) ([]byte, error)
	Stop()
	Facing() capture.Facing
}

// Album receives submitted photos
type Album interface {
	Add(photo models.Photo) models.Photo
}

// File is a photo picked by the guest
type File struct {
	Name string
	Data []byte
}

// Snapshot is the guest flow state. Every transition takes the previous
// snapshot and produces the next one.
type Snapshot struct {
	State             models.UploadState
	FileName          string
	PreviewURL        string
	Sharpness         float64
	BlurWarning       bool
	Caption           string
	Note              string
	GeneratingCaption bool
	Uploading         bool
	CameraError       string
	Facing            capture.Facing
	Photo             *models.Photo

	file []byte
	gen  uint64
}

type Config struct {
	UploadDelay time.Duration
}

// Pipeline is the upload state machine of one guest session
type Pipeline struct {
	camera    Camera
	probe     sharpness.Probe
	captioner caption.Captioner
	album     Album
	previews  *Previews
	delay     time.Duration
	log       zerolog.Logger

	store *state.Store[Snapshot]
}

// NewPipeline creates a new pipeline in the idle state
func NewPipeline(camera Camera, probe sharpness.Probe, captioner caption.Captioner, album Album, previews *Previews, cfg *Config, logger zerolog.Logger) *Pipeline {
	delay := DefaultUploadDelay
	if cfg != nil && cfg.UploadDelay >= 0 {
		delay = cfg.UploadDelay
	}
	return &Pipeline{
		camera:    camera,
		probe:     probe,
		captioner: captioner,
		album:     album,
		previews:  previews,
		delay:     delay,
		log:       logger.With().Str("component", "Upload").Logger(),
		store: state.NewStore(Snapshot{
			State:  models.UploadIdle,
			Facing: camera.Facing(),
		}),
	}
}

// State returns the current snapshot
func (p *Pipeline) State() Snapshot {
	return p.store.Get()
}

// Subscribe registers fn for every state change
func (p *Pipeline) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return p.store.Subscribe(fn)
}

// StartCamera moves to capturing and acquires the camera. Camera failures are
// reported through Snapshot.CameraError and return the flow to idle.
func (p *Pipeline) StartCamera(ctx context.Context) error {
	gen, err := p.begin(models.UploadCapturing, func(s *Snapshot) {
		s.CameraError = ""
	})
	if err != nil {
		return err
	}

	if _, err := p.camera.Start(ctx, p.camera.Facing()); err != nil {
		if !errors.Is(err, capture.ErrSuperseded) {
			p.failCamera(gen, err)
		}
		return nil
	}
	p.cameraStarted()
	return nil
}

// SwitchCamera restarts the camera with the opposite facing mode
func (p *Pipeline) SwitchCamera(ctx context.Context) error {
	gen, err := p.begin(models.UploadCapturing, func(s *Snapshot) {
		s.CameraError = ""
	})
	if err != nil {
		return err
	}

	if _, err := p.camera.Switch(ctx); err != nil {
		if !errors.Is(err, capture.ErrSuperseded) {
			p.failCamera(gen, err)
		}
		return nil
	}
	p.cameraStarted()
	return nil
}

// StopCamera releases the camera and returns to idle
func (p *Pipeline) StopCamera() error {
	if cur := p.store.Get().State; cur != models.UploadCapturing {
		return fmt.Errorf("%w: camera is not running in %s", ErrInvalidTransition, cur)
	}
	p.camera.Stop()
	_, err := p.begin(models.UploadIdle, nil)
	return err
}

// Capture takes a photo from the live camera and runs it through the check.
// A camera that fails to deliver a frame is released and the flow returns to
// idle with Snapshot.CameraError set.
func (p *Pipeline) Capture(ctx context.Context) error {
	cur := p.store.Get()
	if cur.State != models.UploadCapturing {
		return fmt.Errorf("%w: camera is not running in %s", ErrInvalidTransition, cur.State)
	}
	data, err := p.camera.Capture(ctx)
	if err != nil {
		p.camera.Stop()
		p.failCamera(cur.gen, err)
		return fmt.Errorf("failed to capture photo: %w", err)
	}
	return p.handleFile(ctx, File{Name: "capture.jpg", Data: data})
}

// SelectFile runs a file picked from the library through the check
func (p *Pipeline) SelectFile(ctx context.Context, f File) error {
	if p.store.Get().State == models.UploadCapturing {
		p.camera.Stop()
	}
	return p.handleFile(ctx, f)
}

func (p *Pipeline) handleFile(ctx context.Context, f File) error {
	url := p.previews.Create(f.Data)

	var replaced string
	gen, err := p.begin(models.UploadChecking, func(s *Snapshot) {
		replaced = s.PreviewURL
		s.file = f.Data
		s.FileName = f.Name
		s.PreviewURL = url
		s.Sharpness = 0
		s.BlurWarning = false
		s.Caption = ""
		s.Note = ""
		s.CameraError = ""
		s.Photo = nil
	})
	if err != nil {
		p.previews.Revoke(url)
		return err
	}
	if replaced != "" {
		p.previews.Revoke(replaced)
	}

	var score float64
	blurry := false
	if p.probe != nil {
		score, err = p.probe.Score(ctx, f.Data)
		if err != nil {
			p.log.Error().Err(err).Str("file", f.Name).Msg("Sharpness check failed")
			score = 0
		} else {
			blurry = sharpness.IsBlurry(score)
		}
	}

	p.complete(gen, models.UploadPreview, func(s *Snapshot) {
		s.Sharpness = score
		s.BlurWarning = blurry
	})
	p.log.Info().Str("file", f.Name).Float64("sharpness", score).Bool("blur_warning", blurry).Msg("Photo ready for preview")
	return nil
}

// GenerateCaption asks the caption service for a caption and pre-fills the note
func (p *Pipeline) GenerateCaption(ctx context.Context) error {
	var data []byte
	gen, err := p.begin(models.UploadCaptioning, func(s *Snapshot) {
		data = s.file
		s.GeneratingCaption = true
	})
	if err != nil {
		return err
	}

	text := p.captioner.GenerateCaption(ctx, base64.StdEncoding.EncodeToString(data))

	if !p.complete(gen, models.UploadPreview, func(s *Snapshot) {
		s.Caption = text
		s.Note = text
		s.GeneratingCaption = false
	}) {
		p.log.Debug().Msg("Discarding caption for a superseded photo")
	}
	return nil
}

// SetNote stores the guest's note for the photo in preview
func (p *Pipeline) SetNote(note string) error {
	_, err := p.store.TryUpdate(func(cur Snapshot) (Snapshot, error) {
		if cur.State != models.UploadPreview && cur.State != models.UploadCaptioning {
			return cur, fmt.Errorf("%w: cannot edit note in %s", ErrInvalidTransition, cur.State)
		}
		cur.Note = note
		return cur, nil
	})
	return err
}

// Upload submits the photo after the simulated network delay, adds it to the
// album and releases the preview. Cancelling ctx aborts back to preview.
func (p *Pipeline) Upload(ctx context.Context) error {
	var snap Snapshot
	gen, err := p.begin(models.UploadUploading, func(s *Snapshot) {
		s.Uploading = true
		snap = *s
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		p.complete(gen, models.UploadPreview, func(s *Snapshot) {
			s.Uploading = false
		})
		return ctx.Err()
	case <-timer.C:
	}

	photo := p.album.Add(models.Photo{
		ImageURL: dataURL(snap.file),
		Note:     noteFor(snap),
	})
	p.complete(gen, models.UploadSuccess, func(s *Snapshot) {
		s.Uploading = false
		s.Photo = &photo
		s.PreviewURL = ""
		s.file = nil
	})
	p.previews.Revoke(snap.PreviewURL)

	p.log.Info().Str("photo", photo.ID).Str("note", photo.Note).Msg("Photo uploaded")
	return nil
}

// Reset drops the current photo, releases the camera and the preview and
// returns to idle. It is a no-op in idle.
func (p *Pipeline) Reset() error {
	if p.store.Get().State == models.UploadCapturing {
		p.camera.Stop()
	}

	var old Snapshot
	_, err := p.store.TryUpdate(func(cur Snapshot) (Snapshot, error) {
		old = cur
		if cur.State == models.UploadIdle {
			return cur, nil
		}
		if err := checkTransition(cur.State, models.UploadIdle); err != nil {
			return cur, err
		}
		return Snapshot{
			State:  models.UploadIdle,
			Facing: cur.Facing,
			gen:    cur.gen + 1,
		}, nil
	})
	if err != nil {
		return err
	}
	if old.PreviewURL != "" {
		p.previews.Revoke(old.PreviewURL)
	}
	return nil
}

// UploadAnother starts over after a successful upload
func (p *Pipeline) UploadAnother() error {
	return p.Reset()
}

// Close releases the camera and preview regardless of state
func (p *Pipeline) Close() {
	p.camera.Stop()
	s := p.store.Update(func(cur Snapshot) Snapshot {
		cur.gen++
		return cur
	})
	if s.PreviewURL != "" {
		p.previews.Revoke(s.PreviewURL)
	}
}

// begin starts a new operation; any operation still in flight is superseded
func (p *Pipeline) begin(to models.UploadState, mutate func(*Snapshot)) (uint64, error) {
	next, err := p.store.TryUpdate(func(cur Snapshot) (Snapshot, error) {
		if err := checkTransition(cur.State, to); err != nil {
			return cur, err
		}
		cur.State = to
		cur.gen++
		if mutate != nil {
			mutate(&cur)
		}
		return cur, nil
	})
	if err != nil {
		return 0, err
	}
	return next.gen, nil
}

// complete applies the result of the operation started at gen. Results of
// superseded operations are dropped.
func (p *Pipeline) complete(gen uint64, to models.UploadState, mutate func(*Snapshot)) bool {
	_, err := p.store.TryUpdate(func(cur Snapshot) (Snapshot, error) {
		if cur.gen != gen {
			return cur, errStale
		}
		if err := checkTransition(cur.State, to); err != nil {
			return cur, err
		}
		cur.State = to
		if mutate != nil {
			mutate(&cur)
		}
		return cur, nil
	})
	return err == nil
}

func (p *Pipeline) cameraStarted() {
	facing := p.camera.Facing()
	applied := false
	p.store.TryUpdate(func(cur Snapshot) (Snapshot, error) {
		if cur.State != models.UploadCapturing {
			return cur, errStale
		}
		applied = true
		cur.Facing = facing
		return cur, nil
	})
	if !applied {
		// the flow moved on while the camera was opening
		p.camera.Stop()
	}
}

func (p *Pipeline) failCamera(gen uint64, err error) {
	msg := (&capture.CameraError{Kind: capture.Unknown}).Message()
	var camErr *capture.CameraError
	if errors.As(err, &camErr) {
		msg = camErr.Message()
	}
	p.log.Warn().Err(err).Msg("Camera unavailable")
	p.complete(gen, models.UploadIdle, func(s *Snapshot) {
		s.CameraError = msg
	})
}

func noteFor(s Snapshot) string {
	if note := strings.TrimSpace(s.Note); note != "" {
		return note
	}
	if s.Caption != "" {
		return s.Caption
	}
	return defaultNote
}

func dataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
