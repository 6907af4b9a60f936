package upload

import (
	"sync"

	"github.com/google/uuid"
)

// Previews hands out blob: URLs for local file previews and tracks which are
// still held, so every URL can be released explicitly.
type Previews struct {
	mu   sync.Mutex
	urls map[string][]byte
}

// NewPreviews creates an empty registry
func NewPreviews() *Previews {
	return &Previews{urls: make(map[string][]byte)}
}

// Create registers data and returns its URL
func (p *Previews) Create(data []byte) string {
	url := "blob:" + uuid.NewString()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls[url] = data
	return url
}

// Revoke releases url; unknown URLs are ignored
func (p *Previews) Revoke(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.urls, url)
}

// Live returns the number of URLs not yet revoked
func (p *Previews) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}
