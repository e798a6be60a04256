package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RecommendationErrors counts failed requests by pipeline stage
	// ("embed", "search", "empty_index").
	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_recommendation_errors_total",
			Help: "Total number of failed recommendation requests",
		},
		[]string{"stage"},
	)

	RuleAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_rule_adjustments_total",
			Help: "Total number of rule-based score adjustments applied",
		},
		[]string{"target"},
	)

	ExplanationsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_explanations_total",
			Help: "Total number of explanations produced, by mode",
		},
		[]string{"mode"},
	)

	ExplanationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_explanation_fallbacks_total",
			Help: "Total number of generative explanations replaced by the template",
		},
		[]string{"reason"},
	)

	KnowledgeEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_knowledge_entries",
			Help: "Number of knowledge base entries loaded at startup",
		},
	)

	IndexPoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_index_points",
			Help: "Number of points in the similarity index",
		},
	)
)
