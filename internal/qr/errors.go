package qr

import "fmt"

// EncodeError is returned when the target URL cannot be encoded as a QR code,
// typically because it exceeds the capacity at the highest recovery level.
type EncodeError struct {
	URL string
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode QR code for %q: %v", e.URL, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// RenderError is returned when the composite image cannot be drawn or encoded
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render QR code (%s): %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
