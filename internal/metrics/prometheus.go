package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdrf_analysis_duration_seconds",
			Help:    "Step analysis duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"analyzer_type"},
	)

	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdrf_analysis_total",
			Help: "Total number of step analyses",
		},
		[]string{"analyzer_type", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdrf_cache_hits_total",
			Help: "Total suggestion cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdrf_cache_misses_total",
			Help: "Total suggestion cache misses",
		},
		[]string{"cache_type"},
	)

	TermsExtracted = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdrf_terms_extracted_count",
			Help:    "Number of terms extracted per step",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"source"},
	)

	OntologyMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdrf_ontology_matches_count",
			Help:    "Number of vocabulary matches per step",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	SuggestionConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdrf_suggestion_confidence",
			Help:    "Confidence of generated suggestions",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdrf_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	MatcherFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sdrf_matcher_fallbacks_total",
			Help: "Enhanced analyses that fell back to the standard matcher",
		},
	)

	BatchSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdrf_batch_steps_total",
			Help: "Steps processed through batch analysis",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(TermsExtracted)
	prometheus.MustRegister(OntologyMatches)
	prometheus.MustRegister(SuggestionConfidence)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(MatcherFallbacks)
	prometheus.MustRegister(BatchSteps)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
