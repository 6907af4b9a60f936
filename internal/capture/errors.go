package capture

import (
	"errors"
	"fmt"
)

var (
	// Devices return these so the session can classify failures
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrDeviceNotFound   = errors.New("camera not found")

	ErrNoStream    = errors.New("no active camera stream")
	ErrStreamEnded = errors.New("camera stream ended")
	ErrSuperseded  = errors.New("camera request superseded")
)

// ErrorKind classifies camera failures
type ErrorKind string

const (
	PermissionDenied ErrorKind = "permission_denied"
	DeviceNotFound   ErrorKind = "device_not_found"
	Unknown          ErrorKind = "unknown"
)

// CameraError is returned when the camera cannot be acquired
type CameraError struct {
	Kind ErrorKind
	Err  error
}

func (e *CameraError) Error() string {
	return fmt.Sprintf("camera error (%s): %v", e.Kind, e.Err)
}

func (e *CameraError) Unwrap() error { return e.Err }

// Message is the guest-facing explanation
func (e *CameraError) Message() string {
	switch e.Kind {
	case PermissionDenied:
		return "Camera access was denied. Please enable camera permissions in your browser settings and try again."
	case DeviceNotFound:
		return "No camera was found on your device. You can still upload a photo from your library."
	default:
		return "Could not access the camera. Please check your device settings."
	}
}

func classify(err error) *CameraError {
	var camErr *CameraError
	if errors.As(err, &camErr) {
		return camErr
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &CameraError{Kind: PermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return &CameraError{Kind: DeviceNotFound, Err: err}
	default:
		return &CameraError{Kind: Unknown, Err: err}
	}
}
