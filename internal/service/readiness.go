package service

import "sync"

// Readiness tracks startup progress. The serving layer refuses requests
// until MarkReady has been called.
type Readiness struct {
	mu                  sync.RWMutex
	embeddingConfigured bool
	ready               bool
	knowledgeEntries    int
	indexPoints         int
}

func NewReadiness() *Readiness {
	return &Readiness{}
}

func (r *Readiness) MarkEmbeddingConfigured() {
	r.mu.Lock()
	r.embeddingConfigured = true
	r.mu.Unlock()
}

// MarkReady records a completed index population. It requires the embedding
// provider to have been configured first and at least one indexed point.
func (r *Readiness) MarkReady(knowledgeEntries, indexPoints int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.embeddingConfigured || indexPoints == 0 {
		return false
	}
	r.knowledgeEntries = knowledgeEntries
	r.indexPoints = indexPoints
	r.ready = true
	return true
}

func (r *Readiness) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

func (r *Readiness) EmbeddingConfigured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.embeddingConfigured
}

// Snapshot returns the counts recorded by MarkReady.
func (r *Readiness) Snapshot() (knowledgeEntries, indexPoints int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.knowledgeEntries, r.indexPoints
}
