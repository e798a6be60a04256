package repository

import (
	"context"

	"db-advisor/internal/models"
)

// VectorIndex is a nearest-neighbour store of IndexedPoints grouped in named collections.
type VectorIndex interface {
	// CreateCollection returns models.ErrCollectionExists when name is already present.
	CreateCollection(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error
	// Search returns up to limit candidates by descending cosine similarity.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.SearchCandidate, error)
	Clear(ctx context.Context, collection string) error
	Count(ctx context.Context, collection string) (int, error)
}
