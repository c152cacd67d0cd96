package ontology

import (
	"encoding/json"
	"fmt"

	"github.com/sdrf-annotator/backend/internal/storage/models"
)

// VocabularyReader is the slice of the storage layer the store needs.
type VocabularyReader interface {
	ListVocabularyTerms(vocabType string) ([]models.VocabularyTerm, error)
}

// Store adapts persisted vocabulary rows into matcher records. It satisfies
// RecordSource for the term cache builder.
type Store struct {
	db VocabularyReader
}

func NewStore(db VocabularyReader) *Store {
	return &Store{db: db}
}

func (s *Store) LoadVocabulary(vocabType string) ([]VocabularyRecord, error) {
	rows, err := s.db.ListVocabularyTerms(vocabType)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary %s: %w", vocabType, err)
	}

	records := make([]VocabularyRecord, 0, len(rows))
	for _, row := range rows {
		record := VocabularyRecord{
			ID:               row.ID,
			VocabularyType:   row.VocabType,
			Name:             row.Name,
			Accession:        row.Accession,
			Definition:       row.Definition,
			TermType:         row.TermType,
			ChemicalFormula:  row.ChemicalFormula,
			MonoisotopicMass: row.MonoisotopicMass,
		}

		if row.Synonyms != "" {
			if err := json.Unmarshal([]byte(row.Synonyms), &record.Synonyms); err != nil {
				return nil, fmt.Errorf("malformed synonyms for %s/%s: %w", vocabType, row.ID, err)
			}
		}
		if row.TargetSites != "" {
			if err := json.Unmarshal([]byte(row.TargetSites), &record.TargetSites); err != nil {
				return nil, fmt.Errorf("malformed target sites for %s/%s: %w", vocabType, row.ID, err)
			}
		}

		records = append(records, record)
	}

	return records, nil
}
