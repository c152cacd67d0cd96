package ontology

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/pkg/logger"
)

var nonWordRun = regexp.MustCompile(`[^\w]+`)

// NormalizeTerm lowercases, replaces runs of non-word characters with a single
// space and trims. Cache keys and lookup terms go through the same path so
// lookups stay deterministic.
func NormalizeTerm(term string) string {
	lowered := strings.ToLower(term)
	spaced := nonWordRun.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(spaced)
}

// cacheEntry ties an indexed record to the searchable term that produced the
// key, so the matcher can tell name hits from synonym hits.
type cacheEntry struct {
	Record     *VocabularyRecord
	ViaSynonym bool
}

// RecordSource loads the raw records of one vocabulary. Implemented by the
// sqlite-backed store.
type RecordSource interface {
	LoadVocabulary(vocabType string) ([]VocabularyRecord, error)
}

// TermCache is a normalized-string index over every configured vocabulary.
// It is built once, read-only afterwards, and safe for concurrent readers.
type TermCache struct {
	index map[string]map[string][]cacheEntry
}

// BuildTermCache indexes every vocabulary in vocabTypes from the source.
// A vocabulary that fails to load is logged and indexed as empty; it never
// aborts the others.
func BuildTermCache(source RecordSource, vocabTypes []string) *TermCache {
	if len(vocabTypes) == 0 {
		vocabTypes = AllVocabularyTypes
	}

	cache := &TermCache{index: make(map[string]map[string][]cacheEntry, len(vocabTypes))}

	for _, vocabType := range vocabTypes {
		vocabIndex := make(map[string][]cacheEntry)

		records, err := source.LoadVocabulary(vocabType)
		if err != nil {
			logger.Warn("Failed to load vocabulary, indexing as empty",
				zap.String("vocabulary", vocabType),
				zap.Error(err),
			)
			cache.index[vocabType] = vocabIndex
			continue
		}

		for i := range records {
			record := &records[i]
			seen := make(map[string]bool, len(record.Synonyms)+1)

			nameKey := NormalizeTerm(record.Name)
			if nameKey != "" {
				vocabIndex[nameKey] = append(vocabIndex[nameKey], cacheEntry{Record: record})
				seen[nameKey] = true
			}

			for _, synonym := range record.Synonyms {
				key := NormalizeTerm(synonym)
				if key == "" || seen[key] {
					continue
				}
				vocabIndex[key] = append(vocabIndex[key], cacheEntry{Record: record, ViaSynonym: true})
				seen[key] = true
			}
		}

		cache.index[vocabType] = vocabIndex
		logger.Info("Vocabulary indexed",
			zap.String("vocabulary", vocabType),
			zap.Int("records", len(records)),
			zap.Int("keys", len(vocabIndex)),
		)
	}

	return cache
}

// Lookup returns the entries indexed under the normalized form of term, or
// nil when the vocabulary is unknown or has no such key.
func (c *TermCache) Lookup(vocabType, term string) []cacheEntry {
	vocabIndex, ok := c.index[vocabType]
	if !ok {
		return nil
	}
	return vocabIndex[NormalizeTerm(term)]
}

// Keys returns every normalized key of one vocabulary.
func (c *TermCache) Keys(vocabType string) map[string][]cacheEntry {
	return c.index[vocabType]
}

// HasVocabulary reports whether the cache built an index for vocabType.
func (c *TermCache) HasVocabulary(vocabType string) bool {
	_, ok := c.index[vocabType]
	return ok
}

// VocabularyTypes returns the types the cache was built for.
func (c *TermCache) VocabularyTypes() []string {
	types := make([]string, 0, len(c.index))
	for vocabType := range c.index {
		types = append(types, vocabType)
	}
	return types
}
