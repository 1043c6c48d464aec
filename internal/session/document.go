package session

import (
	"net/url"
	"sync"
)

// MethodSessionIDKey is the body data attribute holding the correlation id.
const MethodSessionIDKey = "method-session-id"

// Document is the page the collector observes.
type Document interface {
	// Path is the path component of the current location.
	Path() string
	// URL is the full current location.
	URL() string
	Referrer() string
	// BodyData returns a data-* attribute of the body, "" when absent.
	BodyData(key string) string
}

// StaticDocument is a Document whose values are set by the host.
// Safe for concurrent use; values may change at any time.
type StaticDocument struct {
	mu       sync.RWMutex
	url      string
	path     string
	referrer string
	data     map[string]string
}

func NewStaticDocument(rawURL, referrer string) *StaticDocument {
	d := &StaticDocument{referrer: referrer, data: make(map[string]string)}
	d.SetURL(rawURL)
	return d
}

// SetURL updates the location; the path is derived from it.
func (d *StaticDocument) SetURL(rawURL string) {
	path := "/"
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	d.mu.Lock()
	d.url = rawURL
	d.path = path
	d.mu.Unlock()
}

// SetBodyData sets a body data attribute. An empty value removes it.
func (d *StaticDocument) SetBodyData(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if value == "" {
		delete(d.data, key)
		return
	}
	d.data[key] = value
}

func (d *StaticDocument) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

func (d *StaticDocument) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

func (d *StaticDocument) Referrer() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.referrer
}

func (d *StaticDocument) BodyData(key string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data[key]
}
