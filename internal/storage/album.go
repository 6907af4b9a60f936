package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"wedding-album/internal/models"
)

// Album keeps the shared photo album in memory, newest first
type Album struct {
	mu     sync.RWMutex
	photos []models.Photo
}

// NewAlbum creates a new album holding seed in the given order
func NewAlbum(seed ...models.Photo) *Album {
	photos := make([]models.Photo, len(seed))
	copy(photos, seed)
	return &Album{photos: photos}
}

// SamplePhotos returns the demo photos the album starts with
func SamplePhotos() []models.Photo {
	return []models.Photo{
		{
			ID:       "sample-guest1",
			ImageURL: "https://picsum.photos/seed/guest1/400/300",
			Note:     "Congratulations! Such a beautiful ceremony.",
		},
		{
			ID:       "sample-guest2",
			ImageURL: "https://picsum.photos/seed/guest2/400/300",
			Note:     "So much fun on the dance floor! Best wishes to you both.",
		},
	}
}

// Add puts a photo at the front of the album. Missing IDs and timestamps are
// filled in; there is no deduplication.
func (a *Album) Add(photo models.Photo) models.Photo {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.photos = append([]models.Photo{photo}, a.photos...)
	return photo
}

// GetAllPhotos returns all photos, newest first
func (a *Album) GetAllPhotos() []models.Photo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	photos := make([]models.Photo, len(a.photos))
	copy(photos, a.photos)
	return photos
}

// Count returns the number of photos
func (a *Album) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.photos)
}
