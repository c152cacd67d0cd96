package sdrf

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// DefaultSuggestionCutoff gates which matches become suggestions. It is
// deliberately stricter than the matcher's acceptance floor so weak guesses
// never reach generated metadata.
const DefaultSuggestionCutoff = 0.7

// Generator turns grouped match results into column-keyed SDRF suggestions.
type Generator struct {
	cutoff float64
}

func NewGenerator(cutoff float64) *Generator {
	if cutoff <= 0 {
		cutoff = DefaultSuggestionCutoff
	}
	return &Generator{cutoff: cutoff}
}

// Generate maps matches onto SDRF columns. Matches below the cutoff, and
// matches whose vocabulary resolves to no column, are dropped. Each column's
// list is sorted by descending confidence.
func (g *Generator) Generate(matchesByVocab map[string][]ontology.MatchResult) map[string][]Suggestion {
	suggestions := make(map[string][]Suggestion)

	for vocabType, matches := range matchesByVocab {
		for _, match := range matches {
			if match.Confidence < g.cutoff {
				continue
			}

			column, ok := ColumnFor(vocabType, normalizeTermType(match.TermType))
			if !ok {
				logger.Debug("No SDRF column for match, skipping",
					zap.String("vocabulary", vocabType),
					zap.String("term_type", match.TermType),
					zap.String("name", match.OntologyName),
				)
				continue
			}

			if column == ColModification {
				for _, s := range EncodeModifications(match) {
					appendUnique(suggestions, column, s)
				}
				continue
			}

			appendUnique(suggestions, column, Suggestion{
				Value:         match.OntologyName,
				Confidence:    match.Confidence,
				Source:        SourceOntology,
				OntologyType:  match.OntologyType,
				OntologyID:    match.OntologyID,
				Accession:     match.Accession,
				MatchType:     string(match.MatchType),
				ExtractedTerm: match.ExtractedTerm,
			})
		}
	}

	sortColumns(suggestions)
	return suggestions
}

// Merge folds text-pattern suggestions into an ontology-derived bundle,
// dropping duplicate values and re-sorting the affected columns.
func Merge(dst, src map[string][]Suggestion) map[string][]Suggestion {
	if dst == nil {
		dst = make(map[string][]Suggestion)
	}
	for column, list := range src {
		for _, s := range list {
			appendUnique(dst, column, s)
		}
	}
	sortColumns(dst)
	return dst
}

func appendUnique(suggestions map[string][]Suggestion, column string, s Suggestion) {
	for _, existing := range suggestions[column] {
		if existing.Value == s.Value {
			return
		}
	}
	suggestions[column] = append(suggestions[column], s)
}

func sortColumns(suggestions map[string][]Suggestion) {
	for _, list := range suggestions {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Confidence > list[j].Confidence
		})
	}
}

func normalizeTermType(termType string) string {
	return strings.ToLower(strings.TrimSpace(termType))
}
