// Package qr renders the personalized event QR code: a recolored QR matrix with
// the couple's initials in a cleared center badge.
package qr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	stdcolor "image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"wedding-album/internal/color"
)

const (
	CanvasSize = 256

	// quiet zone around the matrix, in modules
	margin = 1

	centerFraction  = 0.4
	textFitFraction = 0.9
	maxFontSize     = 48
	minFontSize     = 10

	FallbackPrimary   = "#000000"
	FallbackSecondary = "#ffffff"
)

// Artifact is a finished QR code image
type Artifact struct {
	PNG       []byte
	DataURL   string
	Primary   string
	Secondary string
	Text      string
	FontSize  int
	Contrast  float64
	Fallback  bool
}

// Compositor draws branded QR codes
type Compositor struct {
	font *opentype.Font
	log  zerolog.Logger
}

// NewCompositor creates a new compositor using the Go Bold typeface
func NewCompositor(logger zerolog.Logger) (*Compositor, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Compositor{
		font: f,
		log:  logger.With().Str("component", "QR").Logger(),
	}, nil
}

// Compose renders targetURL as a QR code in the theme colors with the couple's
// initials in the middle. Colors with a contrast ratio under 4.5 are replaced
// by black on white.
func (c *Compositor) Compose(targetURL, coupleNames, primary, secondary string) (*Artifact, error) {
	ratio := color.ContrastRatio(primary, secondary)
	art := &Artifact{Primary: primary, Secondary: secondary, Contrast: ratio}
	if ratio < color.MinContrastRatio {
		c.log.Warn().
			Float64("contrast", ratio).
			Str("primary", primary).
			Str("secondary", secondary).
			Msg("Low contrast theme colors, falling back to black and white for the QR code")
		art.Primary, art.Secondary, art.Fallback = FallbackPrimary, FallbackSecondary, true
	}
	fg := toNRGBA(art.Primary)
	bg := toNRGBA(art.Secondary)

	q, err := qrcode.New(targetURL, qrcode.Highest)
	if err != nil {
		return nil, &EncodeError{URL: targetURL, Err: err}
	}
	matrix := renderMatrix(q.Bitmap(), fg)

	canvas := image.NewNRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), matrix, image.Point{}, draw.Over)

	square := CenterSquare()
	draw.Draw(canvas, square, image.NewUniform(bg), image.Point{}, draw.Src)

	art.Text = Initials(coupleNames)
	if art.Text != "" {
		size, err := c.drawText(canvas, art.Text, fg)
		if err != nil {
			return nil, err
		}
		art.FontSize = size
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, &RenderError{Op: "encode png", Err: err}
	}
	art.PNG = buf.Bytes()
	art.DataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString(art.PNG)

	c.log.Debug().
		Str("text", art.Text).
		Int("font_size", art.FontSize).
		Bool("fallback", art.Fallback).
		Int("bytes", len(art.PNG)).
		Msg("QR code composed")
	return art, nil
}

// CenterSquare is the pixel area cleared for the initials badge
func CenterSquare() image.Rectangle {
	side := CanvasSize * centerFraction
	lo := (CanvasSize - side) / 2
	return image.Rect(
		int(math.Floor(lo)), int(math.Floor(lo)),
		int(math.Ceil(lo+side)), int(math.Ceil(lo+side)),
	)
}

// renderMatrix scales the module grid to the canvas with a fixed margin. The
// quiet zone added by the encoder is trimmed first.
func renderMatrix(bitmap [][]bool, fg stdcolor.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))

	top, left, bottom, right := len(bitmap), len(bitmap), -1, -1
	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			top, bottom = min(top, y), max(bottom, y)
			left, right = min(left, x), max(right, x)
		}
	}
	if bottom < 0 {
		return img
	}

	n := max(bottom-top, right-left) + 1
	total := n + 2*margin
	for py := 0; py < CanvasSize; py++ {
		my := py*total/CanvasSize - margin
		if my < 0 || my >= n {
			continue
		}
		for px := 0; px < CanvasSize; px++ {
			mx := px*total/CanvasSize - margin
			if mx < 0 || mx >= n {
				continue
			}
			if bitmap[top+my][left+mx] {
				img.SetNRGBA(px, py, fg)
			}
		}
	}
	return img
}

// textLimit is the widest the couple's initials may be, in 26.6 fixed point
func textLimit() fixed.Int26_6 {
	side := float64(CanvasSize) * centerFraction
	return fixed.Int26_6(side * textFitFraction * 64)
}

func (c *Compositor) drawText(canvas *image.NRGBA, text string, fg stdcolor.NRGBA) (int, error) {
	square := CenterSquare()
	limit := textLimit()

	var face font.Face
	size := maxFontSize
	for {
		f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return 0, &RenderError{Op: "font face", Err: err}
		}
		if font.MeasureString(f, text) <= limit || size <= minFontSize {
			face = f
			break
		}
		f.Close()
		size--
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(fg),
		Face: face,
	}
	m := face.Metrics()
	cx := fixed.I((square.Min.X + square.Max.X) / 2)
	cy := fixed.I((square.Min.Y + square.Max.Y) / 2)
	d.Dot = fixed.Point26_6{
		X: cx - d.MeasureString(text)/2,
		Y: cy + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
	return size, nil
}

func toNRGBA(hex string) stdcolor.NRGBA {
	r, g, b, _ := color.HexToRGB(hex)
	return stdcolor.NRGBA{R: r, G: g, B: b, A: 0xff}
}
