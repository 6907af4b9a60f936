// Package caption generates short captions for guest photos with Gemini.
package caption

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	generativelanguage "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-2.5-flash"

	NotConfiguredMessage = "AI is not configured. Please add an API key."
	FailureMessage       = "Could not generate a caption at this time."

	prompt = "Generate a fun, short, witty caption for this wedding photo in 140 characters or less."
)

// Captioner turns a base64 encoded JPEG into a caption. It never fails; errors
// degrade to an apology string.
type Captioner interface {
	GenerateCaption(ctx context.Context, base64Image string) string
}

type Config struct {
	APIKey string
	Model  string
	// Endpoint overrides the API base URL
	Endpoint string
}

type Service struct {
	api   *generativelanguage.Service
	model string
	log   zerolog.Logger
}

var _ Captioner = (*Service)(nil)

// NewService creates a new caption service. Without an API key the service is
// created unconfigured and answers every request with NotConfiguredMessage.
func NewService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	s := &Service{
		model: cfg.Model,
		log:   logger.With().Str("component", "Caption").Logger(),
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if cfg.APIKey == "" {
		s.log.Error().Msg("API_KEY environment variable not set. Caption features will be disabled.")
		return s, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	api, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create generative language client: %w", err)
	}
	s.api = api
	return s, nil
}

// IsConfigured reports whether an API key was supplied
func (s *Service) IsConfigured() bool {
	return s.api != nil
}

// GenerateCaption implements Captioner
func (s *Service) GenerateCaption(ctx context.Context, base64Image string) string {
	if s.api == nil {
		return NotConfiguredMessage
	}

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Parts: []*generativelanguage.Part{
				{InlineData: &generativelanguage.Blob{MimeType: "image/jpeg", Data: base64Image}},
				{Text: prompt},
			},
		}},
	}
	resp, err := s.api.Models.GenerateContent("models/"+s.model, req).Context(ctx).Do()
	if err != nil {
		s.log.Error().Err(err).Msg("Error generating caption")
		return FailureMessage
	}

	text := responseText(resp)
	if text == "" {
		s.log.Warn().Msg("Caption response had no text")
		return FailureMessage
	}
	return text
}

func responseText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		break
	}
	return strings.TrimSpace(sb.String())
}
