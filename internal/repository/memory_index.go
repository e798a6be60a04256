package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"db-advisor/internal/models"

	"go.uber.org/zap"
)

// MemoryIndex keeps collections in process memory and answers searches by
// brute-force cosine similarity. Vectors are normalized on insert so a dot
// product with a normalized query equals cosine similarity.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	logger      *zap.Logger
}

type memoryCollection struct {
	dimension int
	points    []memoryPoint
	byID      map[string]int
}

type memoryPoint struct {
	point  models.IndexedPoint
	normed []float32
}

func NewMemoryIndex(logger *zap.Logger) *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string]*memoryCollection),
		logger:      logger,
	}
}

func (m *MemoryIndex) CreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[name]; ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionExists, name)
	}
	m.collections[name] = &memoryCollection{
		dimension: dimension,
		byID:      make(map[string]int),
	}
	m.logger.Info("Collection created", zap.String("collection", name), zap.Int("dimension", dimension))
	return nil
}

// Upsert validates the whole batch before storing anything.
func (m *MemoryIndex) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, collection)
	}
	for _, p := range points {
		if len(p.Vector) != col.dimension {
			return fmt.Errorf("%w: point %s has %d values, collection expects %d",
				models.ErrDimensionMismatch, p.Payload.Name, len(p.Vector), col.dimension)
		}
	}

	for _, p := range points {
		stored := memoryPoint{point: p, normed: normalize(p.Vector)}
		key := p.ID.String()
		if idx, exists := col.byID[key]; exists {
			col.points[idx] = stored
			continue
		}
		col.byID[key] = len(col.points)
		col.points = append(col.points, stored)
	}
	return nil
}

// Search ranks every point; equal scores keep insertion order.
func (m *MemoryIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.SearchCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, collection)
	}
	if len(vector) != col.dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection expects %d",
			models.ErrDimensionMismatch, len(vector), col.dimension)
	}
	if limit <= 0 {
		limit = len(col.points)
	}

	query := normalize(vector)
	results := make([]models.SearchCandidate, 0, len(col.points))
	for _, p := range col.points {
		results = append(results, models.SearchCandidate{
			Name:        p.point.Payload.Name,
			Similarity:  dotProduct(query, p.normed),
			Description: p.point.Payload.Description,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryIndex) Clear(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, collection)
	}
	col.points = nil
	col.byID = make(map[string]int)
	return nil
}

func (m *MemoryIndex) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, ok := m.collections[collection]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, collection)
	}
	return len(col.points), nil
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
