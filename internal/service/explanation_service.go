package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"db-advisor/pkg/metrics"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	TierHigh     = "high"
	TierModerate = "moderate"
	TierLow      = "low"
)

var errEmptyGeneration = errors.New("generator returned empty text")

// TextGenerator completes a prompt. LLMService is the production implementation.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var databaseExplanations = map[string]string{
	"PostgreSQL": "PostgreSQL is recommended for its robust ACID compliance, strong SQL standards adherence, and hybrid capabilities handling both relational and JSON data with excellent extensibility.",
	"HBase":      "HBase is recommended for its distributed architecture built on Hadoop, ability to handle billions of rows with real-time read/write access, and excellent scalability for big data workloads.",
	"MongoDB":    "MongoDB is recommended for its flexible document-oriented design, horizontal scaling capabilities, and excellent performance with unstructured or semi-structured data requiring rapid development.",
	"CouchDB":    "CouchDB is recommended for its unique multi-master replication, offline-first capabilities, RESTful HTTP API, and eventual consistency model perfect for distributed collaboration systems.",
	"Neo4j":      "Neo4j is recommended for its native graph database design, efficient relationship traversal using Cypher query language, and excellent performance for applications with complex entity connections.",
	"DynamoDB":   "DynamoDB is recommended for its fully managed AWS service, predictable performance at any scale, high availability across multiple zones, and perfect fit for internet-scale applications.",
	"Redis":      "Redis is recommended for its exceptional in-memory performance, support for multiple data structures, versatility as cache/database/message broker, and sub-millisecond response times.",
}

// ConfidenceTier maps a score to a coarse label. Both thresholds are exclusive.
func ConfidenceTier(score float64) string {
	switch {
	case score > 0.7:
		return TierHigh
	case score > 0.5:
		return TierModerate
	default:
		return TierLow
	}
}

// TemplateExplanation never fails and needs no external call.
func TemplateExplanation(name string, score float64) string {
	base, ok := databaseExplanations[name]
	if !ok {
		base = fmt.Sprintf("%s is recommended based on your requirements.", name)
	}
	return fmt.Sprintf("%s Confidence: %s (score: %.3f)", base, ConfidenceTier(score), score)
}

func buildExplanationPrompt(name string, score float64, query, description string) string {
	return fmt.Sprintf(`Explain why the database below was recommended for the user's requirements.

Database: %s
Database description:
%s

User requirements: %s
Similarity score: %.3f (confidence: %s)

Write 2-3 sentences. Start with the database name, name the specific strengths that match the requirements and end with the confidence level.`,
		name, description, query, score, ConfidenceTier(score))
}

// ExplanationService produces the justification shown next to each result.
// In generative mode every failure falls back to the template.
type ExplanationService struct {
	generator  TextGenerator
	generative bool
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[string]
	logger     *zap.Logger
}

func NewExplanationService(generator TextGenerator, generative bool, timeout time.Duration, logger *zap.Logger) *ExplanationService {
	settings := gobreaker.Settings{
		Name:        "explanations",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Explanation circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &ExplanationService{
		generator:  generator,
		generative: generative && generator != nil,
		timeout:    timeout,
		breaker:    gobreaker.NewCircuitBreaker[string](settings),
		logger:     logger,
	}
}

// Generative reports whether explanations come from the text generator.
func (s *ExplanationService) Generative() bool {
	return s.generative
}

func (s *ExplanationService) Explain(ctx context.Context, name string, score float64, query, description string) string {
	if !s.generative {
		metrics.ExplanationsGenerated.WithLabelValues("template").Inc()
		return TemplateExplanation(name, score)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := buildExplanationPrompt(name, score, query, description)
	text, err := s.breaker.Execute(func() (out string, err error) {
		defer func() {
			if r := recover(); r != nil {
				out, err = "", fmt.Errorf("generator panicked: %v", r)
			}
		}()
		out, err = s.generator.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(sanitizeUTF8(out))
		if out == "" {
			return "", errEmptyGeneration
		}
		return out, nil
	})
	if err != nil {
		reason := fallbackReason(err)
		s.logger.Warn("LLM explanation failed, using template",
			zap.String("name", name),
			zap.String("reason", reason),
			zap.Error(err),
		)
		metrics.ExplanationFallbacks.WithLabelValues(reason).Inc()
		metrics.ExplanationsGenerated.WithLabelValues("template").Inc()
		return TemplateExplanation(name, score)
	}

	metrics.ExplanationsGenerated.WithLabelValues("llm").Inc()
	return text
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errEmptyGeneration):
		return "empty"
	default:
		return "error"
	}
}
