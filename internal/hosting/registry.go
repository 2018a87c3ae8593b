package hosting

import (
	"errors"
	"sync"

	"github.com/westmount/faxbridge/internal/document"
)

// ErrNotFound indicates the requested entry is unknown or already evicted
var ErrNotFound = errors.New("content not found")

// Registry holds self-hosted documents keyed by identifier. It is shared
// across concurrently handled submissions; eviction is idempotent so the
// deferred cleanup task and a manual eviction can both target one entry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*document.Document
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*document.Document)}
}

// Put stores doc under its ID, replacing any previous entry
func (r *Registry) Put(doc *document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[doc.ID] = doc
}

// Get returns the document stored under id
func (r *Registry) Get(id string) (*document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Evict removes the entry for id. Evicting an absent entry is a no-op and
// reports false.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Len returns the number of live entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
