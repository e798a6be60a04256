package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"db-advisor/internal/api/handlers"
	"db-advisor/internal/dto"
	"db-advisor/internal/models"
	"db-advisor/internal/service"
	"db-advisor/pkg/auth"
	"db-advisor/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRecommender struct {
	mu       sync.Mutex
	result   *models.RecommendationResult
	err      error
	received models.AnswerSet
}

func (s *stubRecommender) Recommend(ctx context.Context, answers models.AnswerSet) (*models.RecommendationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = answers
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var testServerConfig = config.ServerConfig{
	ReadTimeout:  30 * time.Second,
	WriteTimeout: 60 * time.Second,
}

func readyState() *service.Readiness {
	r := service.NewReadiness()
	r.MarkEmbeddingConfigured()
	r.MarkReady(7, 7)
	return r
}

func newTestApp(t *testing.T, rec handlers.Recommender, readiness *service.Readiness, jwtManager *auth.JWTManager) *fiber.App {
	t.Helper()
	h := handlers.NewRecommendationHandler(rec, service.GuidedSchema(0.1), readiness, handlers.ServiceInfo{
		Version:         "1.0.0",
		EmbeddingModel:  "GigaChat Embeddings",
		LLMExplanations: true,
		LLMModel:        "GigaChat",
	}, time.Second, zap.NewNop())
	return SetupRouter(h, jwtManager, testServerConfig, zap.NewNop())
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestRoot(t *testing.T) {
	app := newTestApp(t, &stubRecommender{}, readyState(), nil)

	status, body := doJSON(t, app, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, status)

	var resp dto.RootResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Database Recommendation API", resp.Message)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "GigaChat Embeddings", resp.Features.VectorSearch)
	assert.True(t, resp.Features.LLMExplanations)
	assert.Equal(t, "GigaChat", resp.Features.LLMModel)
	assert.Contains(t, resp.Endpoints, "POST /recommend")
	assert.Contains(t, resp.Endpoints, "GET /questions")
}

func TestQuestions(t *testing.T) {
	app := newTestApp(t, &stubRecommender{}, readyState(), nil)

	status, body := doJSON(t, app, http.MethodGet, "/questions", "", nil)
	require.Equal(t, http.StatusOK, status)

	var resp dto.QuestionsResponse
	require.NoError(t, json.Unmarshal(body, &resp))

	schema := service.GuidedSchema(0.1)
	assert.Len(t, resp.Questions, len(schema.Questions))
	for _, q := range schema.Questions {
		assert.Equal(t, q.Prompt, resp.Questions[q.ID])
		choices, ok := resp.AnswerChoices[q.ID]
		require.True(t, ok, q.ID)
		if q.FreeText {
			assert.Empty(t, choices)
		} else {
			assert.Equal(t, q.Choices, choices)
		}
	}
	assert.NotEmpty(t, resp.Description)
}

func TestRecommend(t *testing.T) {
	rec := &stubRecommender{result: &models.RecommendationResult{
		Recommendations: []models.Recommendation{
			{Name: "Neo4j", Score: 0.65, Explanation: "graphs. Confidence: moderate (score: 0.650)"},
			{Name: "PostgreSQL", Score: 0.6, Explanation: "sql. Confidence: moderate (score: 0.600)"},
		},
		QuerySummary: "I need a database",
	}}
	app := newTestApp(t, rec, readyState(), nil)

	status, body := doJSON(t, app, http.MethodPost, "/recommend",
		`{"answers": {"q1": ["`+service.ChoiceGraph+`"], "q10": ["audit log"]}}`, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var resp dto.RecommendResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "Neo4j", resp.Recommendations[0].Name)
	assert.Equal(t, 0.65, resp.Recommendations[0].Score)
	assert.Equal(t, "I need a database", resp.QuerySummary)

	assert.Equal(t, []string{service.ChoiceGraph}, rec.received["q1"])
	assert.Equal(t, []string{"audit log"}, rec.received["q10"])
}

func TestRecommendFailure(t *testing.T) {
	app := newTestApp(t, &stubRecommender{err: models.ErrEmptyIndex}, readyState(), nil)

	status, body := doJSON(t, app, http.MethodPost, "/recommend", `{"answers": {}}`, nil)
	require.Equal(t, http.StatusInternalServerError, status)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Contains(t, resp.Error, models.ErrEmptyIndex.Error())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NotContains(t, raw, "recommendations")
}

func TestRecommendInvalidBody(t *testing.T) {
	app := newTestApp(t, &stubRecommender{}, readyState(), nil)

	status, _ := doJSON(t, app, http.MethodPost, "/recommend", `{"answers": [1, 2`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRecommendBeforeReady(t *testing.T) {
	rec := &stubRecommender{err: errors.New("must not be called")}
	readiness := service.NewReadiness()
	app := newTestApp(t, rec, readiness, nil)

	status, _ := doJSON(t, app, http.MethodPost, "/recommend", `{"answers": {}}`, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Nil(t, rec.received)

	status, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), "starting")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, &stubRecommender{}, readyState(), nil)

	status, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 7, resp.KnowledgeEntries)
	assert.Equal(t, 7, resp.IndexPoints)
}

func TestRecommendRequiresTokenWhenAuthEnabled(t *testing.T) {
	manager := auth.NewJWTManager("test-secret")
	rec := &stubRecommender{result: &models.RecommendationResult{QuerySummary: "q"}}
	app := newTestApp(t, rec, readyState(), manager)

	status, _ := doJSON(t, app, http.MethodPost, "/recommend", `{"answers": {}}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/recommend", `{"answers": {}}`,
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, status)

	token, err := manager.GenerateToken("cli", time.Hour)
	require.NoError(t, err)
	status, body := doJSON(t, app, http.MethodPost, "/recommend", `{"answers": {}}`,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"recommendations":[]`)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, &stubRecommender{}, readyState(), nil)

	status, body := doJSON(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestSetupRouterAppliesServerTimeouts(t *testing.T) {
	app := newTestApp(t, &stubRecommender{}, readyState(), nil)

	assert.Equal(t, 30*time.Second, app.Config().ReadTimeout)
	assert.Equal(t, 60*time.Second, app.Config().WriteTimeout)
}
