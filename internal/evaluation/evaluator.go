package evaluation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// Case pairs a protocol step text with the SDRF values an annotator
// expects per column.
type Case struct {
	Name     string              `json:"name"`
	StepText string              `json:"step_text"`
	Expected map[string][]string `json:"expected"`
}

type Dataset struct {
	Name  string `json:"name"`
	Cases []Case `json:"cases"`
}

// CaseResult scores one case: expected values found, produced values with
// no expectation, and the usual precision/recall over column values.
type CaseResult struct {
	Name       string   `json:"name"`
	Precision  float64  `json:"precision"`
	Recall     float64  `json:"recall"`
	F1         float64  `json:"f1"`
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
}

type Report struct {
	Dataset       string       `json:"dataset"`
	Cases         []CaseResult `json:"cases"`
	MeanPrecision float64      `json:"mean_precision"`
	MeanRecall    float64      `json:"mean_recall"`
	MeanF1        float64      `json:"mean_f1"`
}

// Evaluator runs the deterministic pipeline over regression cases without
// touching storage, so vocabulary or pattern changes can be scored offline.
type Evaluator struct {
	extractor     *extraction.Extractor
	matcher       *ontology.Matcher
	generator     *sdrf.Generator
	minConfidence float64
}

func NewEvaluator(extractor *extraction.Extractor, matcher *ontology.Matcher, generator *sdrf.Generator, minConfidence float64) *Evaluator {
	return &Evaluator{
		extractor:     extractor,
		matcher:       matcher,
		generator:     generator,
		minConfidence: minConfidence,
	}
}

func LoadDatasetFromJSON(data []byte) (*Dataset, error) {
	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if len(dataset.Cases) == 0 {
		return nil, fmt.Errorf("dataset has no cases")
	}
	return &dataset, nil
}

// Run scores every case and aggregates the means.
func (e *Evaluator) Run(dataset *Dataset) *Report {
	report := &Report{Dataset: dataset.Name}

	for _, c := range dataset.Cases {
		result := e.EvaluateCase(c)
		report.Cases = append(report.Cases, result)
		report.MeanPrecision += result.Precision
		report.MeanRecall += result.Recall
		report.MeanF1 += result.F1
	}

	n := float64(len(report.Cases))
	report.MeanPrecision /= n
	report.MeanRecall /= n
	report.MeanF1 /= n

	logger.Info("Evaluation finished",
		zap.String("dataset", dataset.Name),
		zap.Int("cases", len(report.Cases)),
		zap.Float64("mean_f1", report.MeanF1),
	)

	return report
}

func (e *Evaluator) EvaluateCase(c Case) CaseResult {
	suggestions := e.analyze(c.StepText)

	produced := valueSet(suggestions)
	expected := expectedSet(c.Expected)

	var hits int
	var missing, unexpected []string

	for key := range expected {
		if produced[key] {
			hits++
		} else {
			missing = append(missing, key)
		}
	}
	for key := range produced {
		if !expected[key] {
			unexpected = append(unexpected, key)
		}
	}
	sort.Strings(missing)
	sort.Strings(unexpected)

	result := CaseResult{
		Name:       c.Name,
		Missing:    missing,
		Unexpected: unexpected,
	}
	if len(produced) > 0 {
		result.Precision = float64(hits) / float64(len(produced))
	}
	if len(expected) > 0 {
		result.Recall = float64(hits) / float64(len(expected))
	}
	if result.Precision+result.Recall > 0 {
		result.F1 = 2 * result.Precision * result.Recall / (result.Precision + result.Recall)
	}
	return result
}

// analyze runs extraction, matching and generation over raw step text.
func (e *Evaluator) analyze(text string) map[string][]sdrf.Suggestion {
	terms := e.extractor.Extract(text)

	texts := make([]string, 0, len(terms))
	for _, t := range terms {
		texts = append(texts, t.Text)
	}

	matches := e.matcher.Match(texts, nil, e.minConfidence)
	suggestions := e.generator.Generate(ontology.GroupByVocabulary(matches))
	return sdrf.Merge(suggestions, sdrf.DeriveTextSuggestions(text))
}

// GenerateReport renders a report for terminal output.
func (e *Evaluator) GenerateReport(report *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset: %s (%d cases)\n", report.Dataset, len(report.Cases))
	fmt.Fprintf(&b, "Mean precision: %.3f  recall: %.3f  F1: %.3f\n\n", report.MeanPrecision, report.MeanRecall, report.MeanF1)

	for _, c := range report.Cases {
		fmt.Fprintf(&b, "%-30s P=%.3f R=%.3f F1=%.3f\n", c.Name, c.Precision, c.Recall, c.F1)
		for _, m := range c.Missing {
			fmt.Fprintf(&b, "  missing:    %s\n", m)
		}
		for _, u := range c.Unexpected {
			fmt.Fprintf(&b, "  unexpected: %s\n", u)
		}
	}

	return b.String()
}

// valueSet flattens a suggestion bundle into "column: value" keys.
func valueSet(suggestions map[string][]sdrf.Suggestion) map[string]bool {
	set := make(map[string]bool)
	for column, list := range suggestions {
		for _, s := range list {
			set[scoreKey(column, s.Value)] = true
		}
	}
	return set
}

func expectedSet(expected map[string][]string) map[string]bool {
	set := make(map[string]bool)
	for column, values := range expected {
		for _, v := range values {
			set[scoreKey(column, v)] = true
		}
	}
	return set
}

func scoreKey(column, value string) string {
	return strings.ToLower(strings.TrimSpace(column)) + ": " + strings.ToLower(strings.TrimSpace(value))
}
