// Package printer renders the printable QR sheet for tables and invitations.
package printer

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"wedding-album/internal/models"
)

const DefaultNote = "Scan this code to upload your photos to our wedding album!"

var ErrNoQRCode = errors.New("event has no QR code")

//go:embed sheet.html
var sheetHTML string

var sheet = template.Must(template.New("sheet").Parse(sheetHTML))

type sheetData struct {
	Event     models.WeddingEvent
	QRCode    template.URL
	Note      string
	Variables template.CSS
}

type Config struct {
	// ChromePath overrides the browser binary; empty lets chromedp find one
	ChromePath string
	Timeout    time.Duration
}

// Printer renders QR sheets to PDF with headless Chrome
type Printer struct {
	cfg Config
	log zerolog.Logger
}

// NewPrinter creates a new printer
func NewPrinter(cfg *Config, logger zerolog.Logger) *Printer {
	p := &Printer{log: logger.With().Str("component", "Printer").Logger()}
	if cfg != nil {
		p.cfg = *cfg
	}
	if p.cfg.Timeout <= 0 {
		p.cfg.Timeout = 30 * time.Second
	}
	return p
}

// RenderSheet returns the printable sheet as HTML. An empty note uses
// DefaultNote.
func RenderSheet(event models.WeddingEvent, note string) ([]byte, error) {
	if event.QRCodeURL == "" {
		return nil, ErrNoQRCode
	}
	if note == "" {
		note = DefaultNote
	}

	var vars bytes.Buffer
	for _, name := range []string{"--primary-color-1", "--primary-color-2", "--primary-color-3"} {
		fmt.Fprintf(&vars, "%s: %s; ", name, event.Theme.CSSVariables()[name])
	}

	var buf bytes.Buffer
	err := sheet.Execute(&buf, sheetData{
		Event: event,
		// generated by the QR compositor, always a PNG data URL
		QRCode:    template.URL(event.QRCodeURL),
		Note:      note,
		Variables: template.CSS(vars.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render sheet: %w", err)
	}
	return buf.Bytes(), nil
}

// Print renders the sheet and prints it to an A4 PDF
func (p *Printer) Print(ctx context.Context, event models.WeddingEvent, note string) ([]byte, error) {
	html, err := RenderSheet(event, note)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
	if p.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.cfg.ChromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString(html)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4: 210mm x 297mm
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	p.log.Info().Str("event", event.ID).Int("bytes", len(pdf)).Msg("QR sheet printed")
	return pdf, nil
}
