package app

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"db-advisor/internal/models"
	"db-advisor/internal/service"
	"db-advisor/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hashProvider embeds text into a small deterministic vector.
type hashProvider struct {
	dimension    int
	authorizeErr error
	authorized   bool
}

func (p *hashProvider) Authorize(ctx context.Context) error {
	if p.authorizeErr != nil {
		return p.authorizeErr
	}
	p.authorized = true
	return nil
}

func (p *hashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.authorized {
		return nil, models.ErrEmbeddingNotConfigured
	}
	v := make([]float32, p.dimension)
	for i := range v {
		h := fnv.New32a()
		_, _ = h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000) + 1
	}
	return v, nil
}

func (p *hashProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("generation disabled in tests")
}

func (p *hashProvider) Close() error { return nil }

func useProvider(t *testing.T, p *hashProvider) {
	t.Helper()
	orig := newProvider
	newProvider = func(cfg *config.GigaChatConfig, logger *zap.Logger) (provider, error) {
		return p, nil
	}
	t.Cleanup(func() { newProvider = orig })
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	return &config.Config{
		GigaChat: config.GigaChatConfig{APIKey: "key", EmbeddingModel: "Embeddings", Model: "GigaChat"},
		Engine: config.EngineConfig{
			Schema:             service.SchemaGuided,
			EmbeddingDimension: 8,
			TopN:               3,
			RuleBonus:          0.1,
			UseLLMExplanations: true,
			DescriptionsDir:    dir,
		},
		Index: config.IndexConfig{Backend: "memory", Collection: "databases"},
	}
}

func writeCorpus(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for i, name := range service.KnowledgeBaseNames {
		for _, want := range names {
			if want == name {
				path := filepath.Join(dir, service.DescriptionFile(i, name))
				require.NoError(t, os.WriteFile(path, []byte(name+" description"), 0o644))
			}
		}
	}
	return dir
}

func TestAppStartAndRecommend(t *testing.T) {
	useProvider(t, &hashProvider{dimension: 8})
	ctx := context.Background()

	a, err := New(ctx, testConfig(t, writeCorpus(t, service.KnowledgeBaseNames...)), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Readiness().Ready())
	require.NoError(t, a.Start(ctx))
	assert.True(t, a.Readiness().Ready())

	entries, points := a.Readiness().Snapshot()
	assert.Equal(t, 7, entries)
	assert.Equal(t, 7, points)

	result, err := a.Recommender().Recommend(ctx, models.AnswerSet{"q1": {service.ChoiceGraph}})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 3)

	seen := map[string]bool{}
	for _, rec := range result.Recommendations {
		assert.False(t, seen[rec.Name], "duplicate %s", rec.Name)
		seen[rec.Name] = true
		assert.Contains(t, rec.Explanation, "Confidence:")
	}
}

func TestAppRestartDoesNotDuplicate(t *testing.T) {
	useProvider(t, &hashProvider{dimension: 8})
	ctx := context.Background()

	a, err := New(ctx, testConfig(t, writeCorpus(t, "Redis", "Neo4j")), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Start(ctx))

	_, points := a.Readiness().Snapshot()
	assert.Equal(t, 2, points)

	result, err := a.Recommender().Recommend(ctx, models.AnswerSet{})
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, 2)
}

func TestAppStartFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("provider not configured", func(t *testing.T) {
		useProvider(t, &hashProvider{dimension: 8, authorizeErr: errors.New("oauth down")})
		a, err := New(ctx, testConfig(t, writeCorpus(t, "Redis")), zap.NewNop())
		require.NoError(t, err)
		defer a.Close()

		assert.Error(t, a.Start(ctx))
		assert.False(t, a.Readiness().Ready())
		assert.False(t, a.Readiness().EmbeddingConfigured())
	})

	t.Run("empty corpus", func(t *testing.T) {
		useProvider(t, &hashProvider{dimension: 8})
		a, err := New(ctx, testConfig(t, t.TempDir()), zap.NewNop())
		require.NoError(t, err)
		defer a.Close()

		assert.ErrorIs(t, a.Start(ctx), models.ErrEmptyCorpus)
		assert.False(t, a.Readiness().Ready())
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		useProvider(t, &hashProvider{dimension: 4})
		a, err := New(ctx, testConfig(t, writeCorpus(t, "Redis")), zap.NewNop())
		require.NoError(t, err)
		defer a.Close()

		assert.ErrorIs(t, a.Start(ctx), models.ErrDimensionMismatch)
	})
}

func TestNewRejectsUnknownSchema(t *testing.T) {
	useProvider(t, &hashProvider{dimension: 8})
	cfg := testConfig(t, t.TempDir())
	cfg.Engine.Schema = "freeform"

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

// deadlineProvider fails embedding calls whose context is already done.
type deadlineProvider struct {
	hashProvider
}

func (p *deadlineProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.hashProvider.Embed(ctx, text)
}

func TestAppRecommendRequestTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"zero disables deadline", 0},
		{"positive deadline", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &deadlineProvider{hashProvider{dimension: 8}}
			orig := newProvider
			newProvider = func(cfg *config.GigaChatConfig, logger *zap.Logger) (provider, error) {
				return p, nil
			}
			t.Cleanup(func() { newProvider = orig })

			ctx := context.Background()
			cfg := testConfig(t, writeCorpus(t, "Redis", "Neo4j"))
			cfg.Server.RequestTimeout = tt.timeout

			a, err := New(ctx, cfg, zap.NewNop())
			require.NoError(t, err)
			defer a.Close()
			require.NoError(t, a.Start(ctx))

			result, err := a.Recommend(ctx, models.AnswerSet{"q1": {service.ChoiceGraph}})
			require.NoError(t, err)
			assert.Len(t, result.Recommendations, 2)
		})
	}
}
