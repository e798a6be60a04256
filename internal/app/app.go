package app

import (
	"context"
	"errors"
	"fmt"

	"db-advisor/internal/api/handlers"
	"db-advisor/internal/models"
	"db-advisor/internal/repository"
	"db-advisor/internal/service"
	"db-advisor/pkg/config"
	"db-advisor/pkg/metrics"
	"db-advisor/pkg/postgres"

	"go.uber.org/zap"
)

const Version = "1.0.0"

// provider is the external model API: embeddings plus text generation.
type provider interface {
	service.Embedder
	service.TextGenerator
	Authorize(ctx context.Context) error
	Close() error
}

var newProvider = func(cfg *config.GigaChatConfig, logger *zap.Logger) (provider, error) {
	svc, err := service.NewLLMService(cfg, logger)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// App wires the recommendation engine. New builds the components; Start
// configures the provider and indexes the knowledge base.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	provider     provider
	schema       *models.QuestionSchema
	readiness    *service.Readiness
	index        repository.VectorIndex
	indexService *service.IndexService
	recommender  *service.RecommendationService
	explanations *service.ExplanationService
	closers      []func()
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	schema, err := service.SchemaByName(cfg.Engine.Schema, cfg.Engine.RuleBonus)
	if err != nil {
		return nil, err
	}
	if schema.EmbeddingDimension != cfg.Engine.EmbeddingDimension {
		logger.Info("Embedding dimension differs from the schema default",
			zap.String("schema", schema.Name),
			zap.Int("schema_dimension", schema.EmbeddingDimension),
			zap.Int("configured_dimension", cfg.Engine.EmbeddingDimension),
		)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		schema:    schema,
		readiness: service.NewReadiness(),
	}

	a.provider, err = newProvider(&cfg.GigaChat, logger.With(zap.String("component", "gigachat")))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.provider.Close() })

	a.index, err = a.newIndex(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	embeddings := service.NewEmbeddingService(a.provider, cfg.Engine.EmbeddingDimension, cfg.GigaChat.EmbeddingModel, logger)
	a.indexService = service.NewIndexService(a.index, embeddings, cfg.Index.Collection, logger.With(zap.String("component", "indexer")))
	a.explanations = service.NewExplanationService(a.provider, cfg.Engine.UseLLMExplanations, cfg.GigaChat.Timeout, logger.With(zap.String("component", "explanations")))
	a.recommender = service.NewRecommendationService(
		schema,
		embeddings,
		a.index,
		cfg.Index.Collection,
		a.explanations,
		service.RecommendationOptions{
			TopN:           cfg.Engine.TopN,
			CandidateLimit: cfg.Engine.CandidateLimit,
		},
		logger.With(zap.String("component", "recommender")),
	)

	return a, nil
}

func (a *App) newIndex(ctx context.Context) (repository.VectorIndex, error) {
	switch a.cfg.Index.Backend {
	case "memory":
		return repository.NewMemoryIndex(a.logger), nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, &a.cfg.Database, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return repository.NewPostgresIndex(pool, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", a.cfg.Index.Backend)
	}
}

// Start configures the embedding provider, loads the descriptions and
// indexes them. Any error is a startup failure; the app stays not ready.
func (a *App) Start(ctx context.Context) error {
	if err := a.provider.Authorize(ctx); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	a.readiness.MarkEmbeddingConfigured()
	a.logger.Info("Embedding provider configured", zap.String("model", a.cfg.GigaChat.EmbeddingModel))

	loader := service.NewKnowledgeLoader(a.cfg.Engine.DescriptionsDir, a.logger.With(zap.String("component", "loader")))
	entries := loader.Load(service.KnowledgeBaseNames)
	if len(entries) == 0 {
		return fmt.Errorf("no descriptions found in %s: %w", a.cfg.Engine.DescriptionsDir, models.ErrEmptyCorpus)
	}
	metrics.KnowledgeEntries.Set(float64(len(entries)))

	if err := a.indexService.CreateCollection(ctx); err != nil {
		return err
	}
	points, err := a.indexService.Populate(ctx, entries, true)
	if err != nil {
		return fmt.Errorf("failed to populate index: %w", err)
	}
	metrics.IndexPoints.Set(float64(points))

	if !a.readiness.MarkReady(len(entries), points) {
		return errors.New("index population finished without indexed points")
	}
	a.logger.Info("Recommendation engine ready",
		zap.String("schema", a.schema.Name),
		zap.Int("knowledge_entries", len(entries)),
		zap.Int("index_points", points),
		zap.Bool("llm_explanations", a.explanations.Generative()),
	)
	return nil
}

// Recommend runs one recommendation under the configured request timeout.
// A zero timeout leaves ctx without a deadline.
func (a *App) Recommend(ctx context.Context, answers models.AnswerSet) (*models.RecommendationResult, error) {
	if timeout := a.cfg.Server.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.recommender.Recommend(ctx, answers)
}

func (a *App) Recommender() *service.RecommendationService {
	return a.recommender
}

func (a *App) Readiness() *service.Readiness {
	return a.readiness
}

func (a *App) Schema() *models.QuestionSchema {
	return a.schema
}

// Handler returns the HTTP handler bound to this app.
func (a *App) Handler() *handlers.RecommendationHandler {
	return handlers.NewRecommendationHandler(
		a.recommender,
		a.schema,
		a.readiness,
		handlers.ServiceInfo{
			Version:         Version,
			EmbeddingModel:  "GigaChat " + a.cfg.GigaChat.EmbeddingModel,
			LLMExplanations: a.explanations.Generative(),
			LLMModel:        a.cfg.GigaChat.Model,
		},
		a.cfg.Server.RequestTimeout,
		a.logger.With(zap.String("component", "http")),
	)
}

// Close releases the provider client and database pool in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
