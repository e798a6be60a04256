package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"db-advisor/internal/models"
	"db-advisor/internal/repository"
	"db-advisor/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecommendationOptions tunes the ranking engine. CandidateLimit 0 retrieves
// the whole collection.
type RecommendationOptions struct {
	TopN           int
	CandidateLimit int
}

type RecommendationService struct {
	queryBuilder *QueryBuilder
	embeddings   *EmbeddingService
	index        repository.VectorIndex
	collection   string
	explanations *ExplanationService
	rules        []models.Rule
	opts         RecommendationOptions
	logger       *zap.Logger
}

func NewRecommendationService(
	schema *models.QuestionSchema,
	embeddings *EmbeddingService,
	index repository.VectorIndex,
	collection string,
	explanations *ExplanationService,
	opts RecommendationOptions,
	logger *zap.Logger,
) *RecommendationService {
	if opts.TopN <= 0 {
		opts.TopN = 3
	}
	return &RecommendationService{
		queryBuilder: NewQueryBuilder(schema),
		embeddings:   embeddings,
		index:        index,
		collection:   collection,
		explanations: explanations,
		rules:        schema.Rules,
		opts:         opts,
		logger:       logger,
	}
}

// scoredCandidate is a retrieved database with its raw and adjusted scores.
type scoredCandidate struct {
	name        string
	description string
	raw         float64
	score       float64
}

// Recommend returns at most TopN recommendations for answers, ordered by
// adjusted score. It fails when the query cannot be embedded or the index is empty.
func (s *RecommendationService) Recommend(ctx context.Context, answers models.AnswerSet) (*models.RecommendationResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	}()

	query := s.queryBuilder.Build(answers)

	vector, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		metrics.RecommendationErrors.WithLabelValues("embed").Inc()
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit, err := s.candidateLimit(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := s.index.Search(ctx, s.collection, vector, limit)
	if err != nil {
		metrics.RecommendationErrors.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	if len(candidates) == 0 {
		metrics.RecommendationErrors.WithLabelValues("empty_index").Inc()
		return nil, models.ErrEmptyIndex
	}

	ranked := s.rank(candidates, answers)
	if len(ranked) > s.opts.TopN {
		ranked = ranked[:s.opts.TopN]
	}

	recommendations := make([]models.Recommendation, len(ranked))
	var g errgroup.Group
	for i, c := range ranked {
		i, c := i, c
		g.Go(func() error {
			recommendations[i] = models.Recommendation{
				Name:        c.name,
				Score:       c.score,
				Explanation: s.explanations.Explain(ctx, c.name, c.score, query, c.description),
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RecommendationErrors.WithLabelValues("explain").Inc()
		return nil, fmt.Errorf("failed to explain recommendations: %w", err)
	}

	s.logger.Info("Recommendations generated",
		zap.Int("candidates", len(candidates)),
		zap.Int("count", len(recommendations)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &models.RecommendationResult{
		Recommendations: recommendations,
		QuerySummary:    query,
	}, nil
}

// candidateLimit retrieves enough candidates for every rule target and the
// final cut to be present before adjustment.
func (s *RecommendationService) candidateLimit(ctx context.Context) (int, error) {
	if s.opts.CandidateLimit == 0 {
		count, err := s.index.Count(ctx, s.collection)
		if err != nil {
			metrics.RecommendationErrors.WithLabelValues("search").Inc()
			if errors.Is(err, models.ErrCollectionNotFound) {
				return 0, fmt.Errorf("%w: %v", models.ErrEmptyIndex, err)
			}
			return 0, fmt.Errorf("failed to count index: %w", err)
		}
		if count == 0 {
			metrics.RecommendationErrors.WithLabelValues("empty_index").Inc()
			return 0, models.ErrEmptyIndex
		}
		return count, nil
	}

	limit := s.opts.CandidateLimit
	if s.opts.TopN > limit {
		limit = s.opts.TopN
	}
	if targets := distinctTargets(s.rules); targets > limit {
		limit = targets
	}
	return limit, nil
}

// rank collapses duplicate names to their best hit, applies every matching
// rule and sorts by adjusted score. Ties keep retrieval order.
func (s *RecommendationService) rank(candidates []models.SearchCandidate, answers models.AnswerSet) []scoredCandidate {
	scored := make([]scoredCandidate, 0, len(candidates))
	byName := make(map[string]int, len(candidates))
	for _, c := range candidates {
		if _, dup := byName[c.Name]; dup {
			continue
		}
		byName[c.Name] = len(scored)
		scored = append(scored, scoredCandidate{
			name:        c.Name,
			description: c.Description,
			raw:         c.Similarity,
			score:       c.Similarity,
		})
	}

	for _, rule := range s.rules {
		if !rule.Matches(answers) {
			continue
		}
		idx, ok := byName[rule.Target]
		if !ok {
			continue
		}
		scored[idx].score += rule.Bonus
		metrics.RuleAdjustments.WithLabelValues(rule.Target).Inc()
		s.logger.Debug("Rule adjustment applied",
			zap.String("question", rule.QuestionID),
			zap.String("target", rule.Target),
			zap.Float64("bonus", rule.Bonus),
		)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

func distinctTargets(rules []models.Rule) int {
	targets := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		targets[r.Target] = struct{}{}
	}
	return len(targets)
}
