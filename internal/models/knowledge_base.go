package models

import (
	"github.com/google/uuid"
)

// KnowledgeEntry describes one known database system. Immutable after load.
type KnowledgeEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// IndexedPoint is a KnowledgeEntry stored in the similarity index.
type IndexedPoint struct {
	ID      uuid.UUID
	Vector  []float32
	Payload KnowledgeEntry
}

// SearchCandidate is a single similarity search hit.
type SearchCandidate struct {
	Name        string
	Similarity  float64
	Description string
}
