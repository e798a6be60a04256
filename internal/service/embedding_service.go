package service

import (
	"context"
	"fmt"

	"db-advisor/internal/models"

	"go.uber.org/zap"
)

// Embedder maps text to a vector. LLMService is the production implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService pins the embedding dimensionality of a deployment. A
// vector of any other length is a configuration error, never truncated or padded.
type EmbeddingService struct {
	embedder  Embedder
	dimension int
	model     string
	logger    *zap.Logger
}

func NewEmbeddingService(embedder Embedder, dimension int, model string, logger *zap.Logger) *EmbeddingService {
	return &EmbeddingService{
		embedder:  embedder,
		dimension: dimension,
		model:     model,
		logger:    logger,
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s == nil || s.embedder == nil {
		return nil, models.ErrEmbeddingNotConfigured
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: model %s returned %d values, configured %d",
			models.ErrDimensionMismatch, s.model, len(vector), s.dimension)
	}
	return vector, nil
}

func (s *EmbeddingService) Dimension() int {
	return s.dimension
}

func (s *EmbeddingService) Model() string {
	return s.model
}
