package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"db-advisor/internal/models"
	"db-advisor/internal/repository"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const defaultEmbedRetries = 3

// IndexService creates the knowledge collection and fills it with embedded entries.
type IndexService struct {
	index      repository.VectorIndex
	embeddings *EmbeddingService
	collection string
	logger     *zap.Logger

	retryBase  time.Duration
	maxRetries uint64
}

func NewIndexService(index repository.VectorIndex, embeddings *EmbeddingService, collection string, logger *zap.Logger) *IndexService {
	return &IndexService{
		index:      index,
		embeddings: embeddings,
		collection: collection,
		logger:     logger,
		retryBase:  500 * time.Millisecond,
		maxRetries: defaultEmbedRetries,
	}
}

func (s *IndexService) Collection() string {
	return s.collection
}

// CreateCollection treats an already existing collection as success.
func (s *IndexService) CreateCollection(ctx context.Context) error {
	err := s.index.CreateCollection(ctx, s.collection, s.embeddings.Dimension())
	if errors.Is(err, models.ErrCollectionExists) {
		s.logger.Info("Collection already exists, reusing it", zap.String("collection", s.collection))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Populate embeds every entry and upserts the resulting points as one batch.
// Entries whose embedding keeps failing are skipped; configuration errors and
// upsert failures abort. With clearFirst the collection is emptied beforehand
// so a reload does not duplicate points.
func (s *IndexService) Populate(ctx context.Context, entries []models.KnowledgeEntry, clearFirst bool) (int, error) {
	if clearFirst {
		if err := s.index.Clear(ctx, s.collection); err != nil {
			return 0, fmt.Errorf("failed to clear collection: %w", err)
		}
	}

	points := make([]models.IndexedPoint, 0, len(entries))
	for _, entry := range entries {
		vector, err := s.embedWithRetry(ctx, entry.Description)
		if err != nil {
			if isConfigurationError(err) || ctx.Err() != nil {
				return 0, fmt.Errorf("failed to embed %s: %w", entry.Name, err)
			}
			s.logger.Warn("Skipping knowledge entry, embedding failed",
				zap.String("name", entry.Name),
				zap.Error(err),
			)
			continue
		}

		points = append(points, models.IndexedPoint{
			ID:      uuid.New(),
			Vector:  vector,
			Payload: entry,
		})
	}

	if len(points) == 0 {
		return 0, models.ErrEmptyCorpus
	}
	if err := s.index.Upsert(ctx, s.collection, points); err != nil {
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	s.logger.Info("Knowledge base indexed",
		zap.String("collection", s.collection),
		zap.Int("points", len(points)),
		zap.Int("skipped", len(entries)-len(points)),
	)
	return len(points), nil
}

// Count returns the number of points currently in the collection.
func (s *IndexService) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx, s.collection)
}

func (s *IndexService) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(s.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := s.embeddings.Embed(ctx, text)
		if err != nil {
			if isConfigurationError(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		vector = v
		return nil
	})
	return vector, err
}

func isConfigurationError(err error) bool {
	return errors.Is(err, models.ErrEmbeddingNotConfigured) || errors.Is(err, models.ErrDimensionMismatch)
}
