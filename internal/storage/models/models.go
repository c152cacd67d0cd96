package models

import "time"

// ProtocolStep is the minimal slice of the LIMS step the engine needs: an
// identity and the free-text description to analyze.
type ProtocolStep struct {
	ID          int64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VocabularyTerm is one persisted controlled-vocabulary row. Synonyms and
// TargetSites are stored as JSON; the ontology store decodes them.
type VocabularyTerm struct {
	ID               string
	VocabType        string
	Name             string
	Accession        string
	Synonyms         string
	Definition       string
	TermType         string
	ChemicalFormula  string
	MonoisotopicMass float64
	TargetSites      string
}

// AnalysisCacheEntry is one stored suggestion bundle, unique per
// (StepID, AnalyzerType). The JSON columns hold the serialized bundle so a
// cache hit round-trips byte-identically.
type AnalysisCacheEntry struct {
	ID               int64
	StepID           int64
	AnalyzerType     string
	ContentHash      string
	SDRFSuggestions  string
	AnalysisMetadata string
	ExtractedTerms   string
	IsValid          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
