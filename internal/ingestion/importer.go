package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/storage/models"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// termRecord is the JSON shape of one term in a vocabulary dump file.
type termRecord struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Accession        string   `json:"accession"`
	Synonyms         []string `json:"synonyms"`
	Definition       string   `json:"definition"`
	TermType         string   `json:"term_type"`
	ChemicalFormula  string   `json:"chemical_formula"`
	MonoisotopicMass float64  `json:"monoisotopic_mass"`
	TargetSites      []struct {
		Site           string  `json:"site"`
		MonoMass       float64 `json:"mono_mass"`
		Classification string  `json:"classification"`
		Position       string  `json:"position"`
	} `json:"target_sites"`
}

// Importer loads vocabulary dump files into the term store. Dump files are
// JSON arrays of term records, one file per vocabulary, named
// <vocabulary_type>.json.
type Importer struct {
	db *sqlite.Client
}

func NewImporter(db *sqlite.Client) *Importer {
	return &Importer{db: db}
}

// ImportDirectory imports every recognized vocabulary file in dir and
// returns the total term count. Unknown file names are skipped with a
// warning; a bad file aborts the import.
func (i *Importer) ImportDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read vocabulary directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		vocabType := strings.TrimSuffix(entry.Name(), ".json")
		if !knownVocabulary(vocabType) {
			logger.Warn("Skipping unrecognized vocabulary file", zap.String("file", entry.Name()))
			continue
		}

		count, err := i.ImportFile(filepath.Join(dir, entry.Name()), vocabType)
		if err != nil {
			return total, err
		}
		total += count
	}

	logger.Info("Vocabulary import finished", zap.Int("terms", total))
	return total, nil
}

// ImportFile imports one dump file into the named vocabulary.
func (i *Importer) ImportFile(path, vocabType string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []termRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	count := 0
	skipped := 0
	for idx := range records {
		term, err := buildTerm(&records[idx], vocabType)
		if err != nil {
			skipped++
			continue
		}
		if err := i.db.InsertVocabularyTerm(term); err != nil {
			return count, fmt.Errorf("failed to store term %q: %w", term.Name, err)
		}
		count++
	}

	logger.Info("Vocabulary imported",
		zap.String("vocabulary", vocabType),
		zap.String("file", filepath.Base(path)),
		zap.Int("terms", count),
		zap.Int("skipped", skipped),
	)
	return count, nil
}

func buildTerm(r *termRecord, vocabType string) (*models.VocabularyTerm, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, fmt.Errorf("term has no name")
	}

	id := r.ID
	if id == "" {
		id = r.Accession
	}
	if id == "" {
		id = uuid.New().String()
	}

	synonyms, err := json.Marshal(nonEmpty(r.Synonyms))
	if err != nil {
		return nil, err
	}

	var targetSites []byte
	if len(r.TargetSites) > 0 {
		targetSites, err = json.Marshal(r.TargetSites)
		if err != nil {
			return nil, err
		}
	}

	return &models.VocabularyTerm{
		ID:               id,
		VocabType:        vocabType,
		Name:             strings.TrimSpace(r.Name),
		Accession:        r.Accession,
		Synonyms:         string(synonyms),
		Definition:       r.Definition,
		TermType:         r.TermType,
		ChemicalFormula:  r.ChemicalFormula,
		MonoisotopicMass: r.MonoisotopicMass,
		TargetSites:      string(targetSites),
	}, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func knownVocabulary(vocabType string) bool {
	for _, known := range ontology.AllVocabularyTypes {
		if vocabType == known {
			return true
		}
	}
	return false
}
