package ontology

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/pkg/logger"
)

const (
	// DefaultMinConfidence is the acceptance floor when the caller passes 0.
	DefaultMinConfidence = 0.5
	// partialThreshold separates partial from fuzzy approximate matches.
	partialThreshold = 0.8
)

// Matcher resolves free-text terms against the term cache. It holds no
// mutable state and is safe for concurrent use.
type Matcher struct {
	cache *TermCache
}

func NewMatcher(cache *TermCache) *Matcher {
	return &Matcher{cache: cache}
}

// Match looks every term up in the requested vocabularies (all cached
// vocabularies when vocabTypes is empty). Exact key hits score 1.0; misses
// fall through to a similarity scan over the vocabulary's keys. Results are
// globally sorted by confidence, deduplicated per
// (ontology type, ontology id, extracted term) and floored at minConfidence.
func (m *Matcher) Match(terms []string, vocabTypes []string, minConfidence float64) []MatchResult {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if len(vocabTypes) == 0 {
		vocabTypes = m.cache.VocabularyTypes()
	}

	var results []MatchResult

	for _, term := range terms {
		normalized := NormalizeTerm(term)
		if normalized == "" {
			continue
		}

		for _, vocabType := range vocabTypes {
			if !m.cache.HasVocabulary(vocabType) {
				continue
			}
			results = append(results, m.matchOne(term, normalized, vocabType, minConfidence)...)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	results = dedupeResults(results)

	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= minConfidence {
			filtered = append(filtered, r)
		}
	}

	logger.Debug("Terms matched",
		zap.Int("terms", len(terms)),
		zap.Int("results", len(filtered)),
	)

	return filtered
}

func (m *Matcher) matchOne(term, normalized, vocabType string, minConfidence float64) []MatchResult {
	if entries := m.cache.Lookup(vocabType, normalized); len(entries) > 0 {
		exact := make([]MatchResult, 0, len(entries))
		for _, entry := range entries {
			exact = append(exact, buildResult(entry.Record, vocabType, term, 1.0, MatchExact))
		}
		return exact
	}

	var approx []MatchResult
	for key, entries := range m.cache.Keys(vocabType) {
		if !lengthsComparable(normalized, key) {
			continue
		}

		ratio := similarityRatio(normalized, key)
		if ratio < minConfidence {
			continue
		}

		for _, entry := range entries {
			matchType := MatchFuzzy
			if ratio >= partialThreshold {
				matchType = MatchPartial
				if entry.ViaSynonym {
					matchType = MatchSynonym
				}
			}
			approx = append(approx, buildResult(entry.Record, vocabType, term, ratio, matchType))
		}
	}
	return approx
}

func buildResult(record *VocabularyRecord, vocabType, term string, confidence float64, matchType MatchType) MatchResult {
	return MatchResult{
		OntologyType:     vocabType,
		OntologyID:       record.ID,
		OntologyName:     record.Name,
		Accession:        record.Accession,
		Confidence:       confidence,
		MatchType:        matchType,
		ExtractedTerm:    term,
		Definition:       record.Definition,
		Synonyms:         record.Synonyms,
		TermType:         record.TermType,
		ChemicalFormula:  record.ChemicalFormula,
		MonoisotopicMass: record.MonoisotopicMass,
		TargetSites:      record.TargetSites,
	}
}

// dedupeResults keeps the first (highest-confidence, input is sorted) result
// per (ontology type, ontology id, extracted term) triple.
func dedupeResults(results []MatchResult) []MatchResult {
	type resultKey struct {
		vocabType string
		id        string
		term      string
	}

	seen := make(map[resultKey]bool, len(results))
	deduped := results[:0]
	for _, r := range results {
		key := resultKey{r.OntologyType, r.OntologyID, r.ExtractedTerm}
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}
	return deduped
}

// GroupByVocabulary buckets match results by ontology type, preserving order.
func GroupByVocabulary(results []MatchResult) map[string][]MatchResult {
	grouped := make(map[string][]MatchResult)
	for _, r := range results {
		grouped[r.OntologyType] = append(grouped[r.OntologyType], r)
	}
	return grouped
}
