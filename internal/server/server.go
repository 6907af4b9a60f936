// Package server exposes the current event and album over HTTP: the guest
// page, the slideshow and a small read-only JSON API.
package server

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"wedding-album/internal/color"
	"wedding-album/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const maxColorSlots = 3

// EventSource returns the event shown to guests
type EventSource interface {
	Current() (models.WeddingEvent, bool)
}

// PhotoSource lists the album, newest first
type PhotoSource interface {
	GetAllPhotos() []models.Photo
}

type Server struct {
	events EventSource
	photos PhotoSource
	log    zerolog.Logger
	router *mux.Router
}

// NewServer creates a new server and registers its routes
func NewServer(events EventSource, photos PhotoSource, logger zerolog.Logger) *Server {
	s := &Server{
		events: events,
		photos: photos,
		log:    logger.With().Str("component", "HTTP").Logger(),
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/api/event", s.getEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/event/qr.png", s.getQRCode).Methods(http.MethodGet)
	r.HandleFunc("/api/photos", s.getPhotos).Methods(http.MethodGet)
	r.HandleFunc("/api/colors/validate", s.validateColors).Methods(http.MethodPost)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("Request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}

type pageData struct {
	Event     models.WeddingEvent
	Photos    []models.Photo
	Variables template.CSS
	Image     func(string) template.URL
}

// index renders the guest page, or the slideshow with ?view=slideshow
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	event, ok := s.currentEvent(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		s.render(w, "no_event.html", nil)
		return
	}

	data := pageData{
		Event:     event,
		Photos:    s.photos.GetAllPhotos(),
		Variables: cssVariables(event.Theme),
		Image:     imageURL,
	}
	name := "guest.html"
	if r.URL.Query().Get("view") == "slideshow" {
		name = "slideshow.html"
	}
	s.render(w, name, data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("Failed to render page")
	}
}

// currentEvent returns the event unless the request asks for a different one
func (s *Server) currentEvent(r *http.Request) (models.WeddingEvent, bool) {
	event, ok := s.events.Current()
	if !ok {
		return models.WeddingEvent{}, false
	}
	if id := r.URL.Query().Get("event"); id != "" && id != event.ID {
		return models.WeddingEvent{}, false
	}
	return event, true
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := s.currentEvent(r)
	if !ok {
		writeError(w, http.StatusNotFound, "no event configured")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) getQRCode(w http.ResponseWriter, r *http.Request) {
	event, ok := s.currentEvent(r)
	if !ok || event.QRCodeURL == "" {
		writeError(w, http.StatusNotFound, "no QR code available")
		return
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(event.QRCodeURL, prefix) {
		writeError(w, http.StatusInternalServerError, "unexpected QR code format")
		return
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(event.QRCodeURL, prefix))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to decode QR code")
		writeError(w, http.StatusInternalServerError, "invalid QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) getPhotos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.photos.GetAllPhotos())
}

type validateColorsRequest struct {
	Colors []string `json:"colors"`
}

type validateColorsResponse struct {
	Results []models.ColorCheckResult `json:"results"`
	Valid   bool                      `json:"valid"`
}

func (s *Server) validateColors(w http.ResponseWriter, r *http.Request) {
	var req validateColorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Colors) == 0 || len(req.Colors) > maxColorSlots {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("expected 1 to %d colors", maxColorSlots))
		return
	}

	resp := validateColorsResponse{Results: color.CheckColors(req.Colors), Valid: true}
	for _, res := range resp.Results {
		resp.Valid = resp.Valid && res.Valid
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func cssVariables(t models.Theme) template.CSS {
	vars := t.CSSVariables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		// values are canonical #rrggbb from the color validator
		fmt.Fprintf(&b, "%s: %s; ", name, vars[name])
	}
	return template.CSS(b.String())
}

// imageURL passes album image URLs through; photo URLs are either http(s)
// links or data URLs built from uploaded bytes
func imageURL(u string) template.URL {
	if strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "data:image/") {
		return template.URL(u)
	}
	return template.URL("about:invalid")
}
