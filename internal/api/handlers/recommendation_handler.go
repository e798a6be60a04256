package handlers

import (
	"context"
	"errors"
	"time"

	"db-advisor/internal/dto"
	"db-advisor/internal/models"
	"db-advisor/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const questionsDescription = "Answer these questions to get personalized database recommendations"

// Recommender produces ranked recommendations for a set of answers.
type Recommender interface {
	Recommend(ctx context.Context, answers models.AnswerSet) (*models.RecommendationResult, error)
}

// ServiceInfo is reported by the root endpoint.
type ServiceInfo struct {
	Version         string
	EmbeddingModel  string
	LLMExplanations bool
	LLMModel        string
}

type RecommendationHandler struct {
	recommender Recommender
	schema      *models.QuestionSchema
	readiness   *service.Readiness
	info        ServiceInfo
	timeout     time.Duration
	logger      *zap.Logger
}

func NewRecommendationHandler(
	recommender Recommender,
	schema *models.QuestionSchema,
	readiness *service.Readiness,
	info ServiceInfo,
	timeout time.Duration,
	logger *zap.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		schema:      schema,
		readiness:   readiness,
		info:        info,
		timeout:     timeout,
		logger:      logger,
	}
}

// Root godoc
// @Summary Service information
// @Description Name, version, enabled features and available endpoints
// @Tags info
// @Produce json
// @Success 200 {object} dto.RootResponse
// @Router / [get]
func (h *RecommendationHandler) Root(c *fiber.Ctx) error {
	llmModel := "disabled"
	if h.info.LLMExplanations {
		llmModel = h.info.LLMModel
	}

	return c.JSON(dto.RootResponse{
		Message: "Database Recommendation API",
		Version: h.info.Version,
		Features: dto.FeaturesResponse{
			VectorSearch:    h.info.EmbeddingModel,
			LLMExplanations: h.info.LLMExplanations,
			LLMModel:        llmModel,
		},
		Endpoints: map[string]string{
			"POST /recommend": "Get database recommendations based on your requirements",
			"GET /questions":  "Get the list of questions and possible answers",
			"GET /health":     "Get service readiness",
		},
	})
}

// Questions godoc
// @Summary Questionnaire
// @Description Questions and their answer choices. Free-text questions have an empty choice list.
// @Tags recommendations
// @Produce json
// @Success 200 {object} dto.QuestionsResponse
// @Router /questions [get]
func (h *RecommendationHandler) Questions(c *fiber.Ctx) error {
	questions := make(map[string]string, len(h.schema.Questions))
	choices := make(map[string][]string, len(h.schema.Questions))
	for _, q := range h.schema.Questions {
		questions[q.ID] = q.Prompt
		list := make([]string, len(q.Choices))
		copy(list, q.Choices)
		choices[q.ID] = list
	}

	return c.JSON(dto.QuestionsResponse{
		Questions:     questions,
		AnswerChoices: choices,
		Description:   questionsDescription,
	})
}

// Recommend godoc
// @Summary Recommend databases
// @Description Builds a query from the answers, retrieves the closest databases and ranks them
// @Tags recommendations
// @Accept json
// @Produce json
// @Param request body dto.RecommendRequest true "Selected answers per question"
// @Security Bearer
// @Success 200 {object} dto.RecommendResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /recommend [post]
func (h *RecommendationHandler) Recommend(c *fiber.Ctx) error {
	if !h.readiness.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: "Service is starting, knowledge base is not loaded yet",
		})
	}

	var req dto.RecommendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Invalid request body",
		})
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.recommender.Recommend(ctx, models.AnswerSet(req.Answers))
	if err != nil {
		h.logger.Error("Failed to generate recommendations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Error generating recommendations: " + err.Error(),
		})
	}

	resp := dto.RecommendResponse{
		Recommendations: make([]dto.RecommendationResponse, 0, len(result.Recommendations)),
		QuerySummary:    result.QuerySummary,
	}
	for _, rec := range result.Recommendations {
		resp.Recommendations = append(resp.Recommendations, dto.RecommendationResponse{
			Name:        rec.Name,
			Score:       rec.Score,
			Explanation: rec.Explanation,
		})
	}
	return c.JSON(resp)
}

// Health godoc
// @Summary Readiness
// @Tags info
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *RecommendationHandler) Health(c *fiber.Ctx) error {
	entries, points := h.readiness.Snapshot()
	if !h.readiness.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.HealthResponse{Status: "starting"})
	}
	return c.JSON(dto.HealthResponse{
		Status:           "ok",
		KnowledgeEntries: entries,
		IndexPoints:      points,
	})
}

// ErrorHandler renders errors that escape handlers as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
}
