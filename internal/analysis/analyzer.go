package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/llm"
	"github.com/sdrf-annotator/backend/internal/metrics"
	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// AnalyzerType selects the analysis path for a step.
type AnalyzerType string

const (
	AnalyzerStandard        AnalyzerType = "standard"
	AnalyzerAIAssisted      AnalyzerType = "ai_assisted"
	AnalyzerAIAssistedBatch AnalyzerType = "ai_assisted_batch"
)

func (t AnalyzerType) Valid() bool {
	switch t {
	case AnalyzerStandard, AnalyzerAIAssisted, AnalyzerAIAssistedBatch:
		return true
	}
	return false
}

// Enhanced reports whether this type routes through the LLM.
func (t AnalyzerType) Enhanced() bool {
	return t == AnalyzerAIAssisted || t == AnalyzerAIAssistedBatch
}

// aiConfidencePenalty discounts assistant-extracted terms relative to the
// deterministic rules that produced the same kind of term.
const aiConfidencePenalty = 0.9

// Metadata summarizes one analysis run and travels with the suggestion
// bundle through the cache.
type Metadata struct {
	AnalyzerType          AnalyzerType `json:"analyzer_type"`
	TotalTermsExtracted   int          `json:"total_terms_extracted"`
	TotalMatches          int          `json:"total_matches"`
	HighConfidenceMatches int          `json:"high_confidence_matches"`
	Cached                bool         `json:"cached"`
	AIAssistFailed        bool         `json:"ai_assist_failed,omitempty"`
	UsedStandardFallback  bool         `json:"used_standard_fallback,omitempty"`
	AssistantToolCalls    int          `json:"assistant_tool_calls,omitempty"`
	DurationMs            int64        `json:"duration_ms"`
}

// Result is the envelope every analysis returns; failures carry the error
// message instead of propagating it, matching what the API serves.
type Result struct {
	Success         bool                         `json:"success"`
	StepID          int64                        `json:"step_id"`
	Error           string                       `json:"error,omitempty"`
	SDRFSuggestions map[string][]sdrf.Suggestion `json:"sdrf_suggestions,omitempty"`
	ExtractedTerms  []extraction.ExtractedTerm   `json:"extracted_terms,omitempty"`
	Metadata        *Metadata                    `json:"analysis_metadata,omitempty"`
}

type Config struct {
	MinConfidence    float64
	SuggestionCutoff float64
	VocabularyTypes  []string
}

// Assistant is the slice of the LLM client the analyzer needs.
type Assistant interface {
	ExtractTerms(ctx context.Context, text string) ([]llm.TermSuggestion, error)
	AnalyzeWithTools(ctx context.Context, text string, exec llm.ToolExecutor) (*llm.ToolAnalysis, error)
}

// Analyzer orchestrates extraction, vocabulary matching and suggestion
// generation for protocol steps.
type Analyzer struct {
	db        *sqlite.Client
	cache     *SuggestionCache
	extractor *extraction.Extractor
	matcher   *ontology.Matcher
	generator *sdrf.Generator
	llm       Assistant
	cfg       Config
}

// NewAnalyzer wires the pipeline. llmClient may be nil; enhanced analyzer
// types then degrade to the standard path.
func NewAnalyzer(db *sqlite.Client, cache *SuggestionCache, extractor *extraction.Extractor, matcher *ontology.Matcher, generator *sdrf.Generator, llmClient Assistant, cfg Config) *Analyzer {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = ontology.DefaultMinConfidence
	}
	return &Analyzer{
		db:        db,
		cache:     cache,
		extractor: extractor,
		matcher:   matcher,
		generator: generator,
		llm:       llmClient,
		cfg:       cfg,
	}
}

// AnalyzeStep runs the full pipeline for one step. Cached bundles for the
// current step text short-circuit everything after the hash check.
func (a *Analyzer) AnalyzeStep(ctx context.Context, stepID int64, analyzerType AnalyzerType) *Result {
	start := time.Now()

	result, err := a.analyzeStep(ctx, stepID, analyzerType, start)
	if err != nil {
		logger.Error("Step analysis failed",
			zap.Int64("step_id", stepID),
			zap.String("analyzer_type", string(analyzerType)),
			zap.Error(err),
		)
		metrics.AnalysisTotal.WithLabelValues(string(analyzerType), "error").Inc()
		return &Result{Success: false, StepID: stepID, Error: err.Error()}
	}

	metrics.AnalysisTotal.WithLabelValues(string(analyzerType), "success").Inc()
	metrics.AnalysisDuration.WithLabelValues(string(analyzerType)).Observe(time.Since(start).Seconds())
	return result
}

func (a *Analyzer) analyzeStep(ctx context.Context, stepID int64, analyzerType AnalyzerType, start time.Time) (*Result, error) {
	if !analyzerType.Valid() {
		return nil, fmt.Errorf("unknown analyzer type %q", analyzerType)
	}

	step, err := a.db.GetStep(stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step %d: %w", stepID, err)
	}

	if cached, hit, err := a.cache.Get(ctx, stepID, analyzerType, step.Description); err != nil {
		logger.Warn("Suggestion cache read failed", zap.Int64("step_id", stepID), zap.Error(err))
	} else if hit {
		metrics.CacheHits.WithLabelValues("suggestions").Inc()
		meta := cached.Metadata
		meta.Cached = true
		return &Result{
			Success:         true,
			StepID:          stepID,
			SDRFSuggestions: cached.Suggestions,
			ExtractedTerms:  cached.ExtractedTerms,
			Metadata:        &meta,
		}, nil
	}
	metrics.CacheMisses.WithLabelValues("suggestions").Inc()

	meta := Metadata{AnalyzerType: analyzerType}

	terms := a.extractor.Extract(step.Description)
	metrics.TermsExtracted.WithLabelValues(extraction.SourcePattern).Observe(float64(len(terms)))

	var suggestions map[string][]sdrf.Suggestion
	if analyzerType.Enhanced() && a.llm != nil {
		terms, suggestions = a.runEnhanced(ctx, step.Description, terms, &meta)
	} else {
		suggestions = a.runStandard(terms, &meta)
	}

	suggestions = sdrf.Merge(suggestions, sdrf.DeriveTextSuggestions(step.Description))

	meta.TotalTermsExtracted = len(terms)
	meta.DurationMs = time.Since(start).Milliseconds()
	observeConfidence(suggestions)

	b := &bundle{
		Suggestions:    suggestions,
		ExtractedTerms: terms,
		Metadata:       meta,
	}
	if err := a.cache.Put(ctx, stepID, analyzerType, step.Description, b); err != nil {
		logger.Warn("Suggestion cache write failed", zap.Int64("step_id", stepID), zap.Error(err))
	}

	logger.Info("Step analyzed",
		zap.Int64("step_id", stepID),
		zap.String("analyzer_type", string(analyzerType)),
		zap.Int("terms", len(terms)),
		zap.Int("columns", len(suggestions)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		Success:         true,
		StepID:          stepID,
		SDRFSuggestions: suggestions,
		ExtractedTerms:  terms,
		Metadata:        &meta,
	}, nil
}

// runStandard matches the extracted terms against the vocabularies and
// generates suggestions from the grouped results.
func (a *Analyzer) runStandard(terms []extraction.ExtractedTerm, meta *Metadata) map[string][]sdrf.Suggestion {
	matches := a.matcher.Match(termTexts(terms), a.cfg.VocabularyTypes, a.cfg.MinConfidence)

	meta.TotalMatches = len(matches)
	meta.HighConfidenceMatches = countHighConfidence(matches)
	metrics.OntologyMatches.Observe(float64(len(matches)))

	return a.generator.Generate(ontology.GroupByVocabulary(matches))
}

// runEnhanced augments the rule-extracted terms with assistant terms, then
// asks the assistant for suggestions with the vocabulary tools available.
// When the resulting bundle carries no vocabulary-backed suggestion, the
// standard matcher runs over the combined terms so an assistant that never
// consulted the vocabularies cannot silence the deterministic path.
func (a *Analyzer) runEnhanced(ctx context.Context, text string, terms []extraction.ExtractedTerm, meta *Metadata) ([]extraction.ExtractedTerm, map[string][]sdrf.Suggestion) {
	aiTerms, err := a.llm.ExtractTerms(ctx, text)
	if err != nil {
		logger.Warn("Assistant term extraction failed, continuing with rule terms", zap.Error(err))
		meta.AIAssistFailed = true
	} else {
		terms = appendAITerms(terms, aiTerms)
		metrics.TermsExtracted.WithLabelValues(extraction.SourceAI).Observe(float64(len(aiTerms)))
	}

	toolAnalysis, err := a.llm.AnalyzeWithTools(ctx, text, toolBridge{a})
	if err != nil {
		logger.Warn("Assistant analysis failed, falling back to standard matching", zap.Error(err))
		meta.AIAssistFailed = true
		return terms, a.runStandard(terms, meta)
	}

	meta.AssistantToolCalls = toolAnalysis.OntologySearches
	metrics.LLMTokensUsed.WithLabelValues("chat", "prompt").Add(float64(toolAnalysis.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues("chat", "completion").Add(float64(toolAnalysis.Usage.CompletionTokens))

	suggestions := normalizeAssistantSuggestions(toolAnalysis.Suggestions)

	if countOntologyBacked(suggestions) == 0 {
		logger.Warn("Assistant produced no vocabulary-backed suggestions, re-running standard matcher")
		meta.UsedStandardFallback = true
		metrics.MatcherFallbacks.Inc()
		suggestions = sdrf.Merge(a.runStandard(terms, meta), suggestions)
	} else {
		matches := a.matcher.Match(termTexts(terms), a.cfg.VocabularyTypes, a.cfg.MinConfidence)
		meta.TotalMatches = len(matches)
		meta.HighConfidenceMatches = countHighConfidence(matches)
	}

	return terms, suggestions
}

// toolBridge exposes the deterministic pipeline to the assistant's tools.
type toolBridge struct {
	a *Analyzer
}

func (b toolBridge) SearchOntology(term string, vocabTypes []string) []ontology.MatchResult {
	if len(vocabTypes) == 0 {
		vocabTypes = b.a.cfg.VocabularyTypes
	}
	return b.a.matcher.Match([]string{term}, vocabTypes, b.a.cfg.MinConfidence)
}

func (b toolBridge) SearchModificationDatabase(term string) []ontology.MatchResult {
	return b.a.matcher.Match([]string{term}, []string{ontology.VocabUnimod}, b.a.cfg.MinConfidence)
}

func (b toolBridge) ExtractTerms(text string) []extraction.ExtractedTerm {
	return b.a.extractor.Extract(text)
}

func (b toolBridge) ValidateFormat(column, value string) bool {
	return sdrf.ValidateValue(column, value)
}

func termTexts(terms []extraction.ExtractedTerm) []string {
	texts := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		key := ontology.NormalizeTerm(t.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		texts = append(texts, t.Text)
	}
	return texts
}

// appendAITerms folds assistant terms in with the confidence penalty,
// skipping texts the rules already found.
func appendAITerms(terms []extraction.ExtractedTerm, aiTerms []llm.TermSuggestion) []extraction.ExtractedTerm {
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[ontology.NormalizeTerm(t.Text)] = true
	}

	for _, t := range aiTerms {
		key := ontology.NormalizeTerm(t.Term)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, extraction.ExtractedTerm{
			Text:       t.Term,
			TermType:   extraction.TermType(t.TermType),
			Context:    t.Reason,
			Confidence: t.Confidence * aiConfidencePenalty,
			Source:     extraction.SourceAI,
		})
	}
	return terms
}

// normalizeAssistantSuggestions tags untagged assistant suggestions and
// drops empty values.
func normalizeAssistantSuggestions(suggestions map[string][]sdrf.Suggestion) map[string][]sdrf.Suggestion {
	cleaned := make(map[string][]sdrf.Suggestion, len(suggestions))
	for column, list := range suggestions {
		for _, s := range list {
			if s.Value == "" {
				continue
			}
			if s.Source == "" {
				s.Source = sdrf.SourceAssistant
			}
			cleaned[column] = append(cleaned[column], s)
		}
	}
	return cleaned
}

// countOntologyBacked counts suggestions traceable to a vocabulary record.
func countOntologyBacked(suggestions map[string][]sdrf.Suggestion) int {
	n := 0
	for _, list := range suggestions {
		for _, s := range list {
			if s.Source == sdrf.SourceOntology || s.Accession != "" || s.OntologyID != "" {
				n++
			}
		}
	}
	return n
}

func countHighConfidence(matches []ontology.MatchResult) int {
	n := 0
	for _, m := range matches {
		if m.Confidence >= 0.8 {
			n++
		}
	}
	return n
}

func observeConfidence(suggestions map[string][]sdrf.Suggestion) {
	for _, list := range suggestions {
		for _, s := range list {
			metrics.SuggestionConfidence.Observe(s.Confidence)
		}
	}
}
