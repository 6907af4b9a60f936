package upload

import (
	"errors"
	"fmt"

	"wedding-album/internal/models"
)

var ErrInvalidTransition = errors.New("invalid upload state transition")

var transitions = map[models.UploadState][]models.UploadState{
	models.UploadIdle:       {models.UploadCapturing, models.UploadChecking},
	models.UploadCapturing:  {models.UploadCapturing, models.UploadIdle, models.UploadChecking},
	models.UploadChecking:   {models.UploadPreview},
	models.UploadPreview:    {models.UploadCaptioning, models.UploadUploading, models.UploadIdle},
	models.UploadCaptioning: {models.UploadPreview, models.UploadIdle},
	models.UploadUploading:  {models.UploadPreview, models.UploadSuccess},
	models.UploadSuccess:    {models.UploadIdle},
}

// CanTransition reports whether the guest flow may move from one state to another
func CanTransition(from, to models.UploadState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to models.UploadState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
