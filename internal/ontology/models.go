package ontology

// Vocabulary type identifiers. These are the controlled vocabularies the
// matcher can be asked to search; unknown types are skipped, not rejected.
const (
	VocabSpecies      = "species"
	VocabTissue       = "tissue"
	VocabHumanDisease = "human_disease"
	VocabSubcellular  = "subcellular_location"
	VocabMSTerms      = "ms_unique_vocabularies"
	VocabUnimod       = "unimod"
	VocabChEBI        = "chebi"
	VocabMondo        = "mondo"
	VocabUberon       = "uberon"
	VocabNCBITaxonomy = "ncbi_taxonomy"
	VocabPSIMS        = "psims"
)

// AllVocabularyTypes lists every vocabulary the term cache builds an index for.
var AllVocabularyTypes = []string{
	VocabSpecies,
	VocabTissue,
	VocabHumanDisease,
	VocabSubcellular,
	VocabMSTerms,
	VocabUnimod,
	VocabChEBI,
	VocabMondo,
	VocabUberon,
	VocabNCBITaxonomy,
	VocabPSIMS,
}

type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchFuzzy   MatchType = "fuzzy"
	MatchSynonym MatchType = "synonym"
)

// ModificationSite is one target residue of a protein modification together
// with its monoisotopic mass delta, as recorded by Unimod specificities.
type ModificationSite struct {
	Site           string  `json:"site"`
	MonoMass       float64 `json:"mono_mass,omitempty"`
	Classification string  `json:"classification,omitempty"`
	Position       string  `json:"position,omitempty"`
}

// VocabularyRecord is one controlled-vocabulary entry. Name plus Synonyms form
// the searchable terms indexed by the term cache.
type VocabularyRecord struct {
	ID             string
	VocabularyType string
	Name           string
	Accession      string
	Synonyms       []string
	Definition     string

	// TermType is the sub-category used by generic vocabularies (instrument,
	// cleavage agent, compound class) to pick the right SDRF column.
	TermType string

	ChemicalFormula  string
	MonoisotopicMass float64
	TargetSites      []ModificationSite
}

// MatchResult is one vocabulary hit for an extracted term. Confidence is 1.0
// exactly when MatchType is MatchExact.
type MatchResult struct {
	OntologyType     string             `json:"ontology_type"`
	OntologyID       string             `json:"ontology_id"`
	OntologyName     string             `json:"ontology_name"`
	Accession        string             `json:"accession,omitempty"`
	Confidence       float64            `json:"confidence"`
	MatchType        MatchType          `json:"match_type"`
	ExtractedTerm    string             `json:"extracted_term"`
	Definition       string             `json:"definition,omitempty"`
	Synonyms         []string           `json:"synonyms,omitempty"`
	TermType         string             `json:"term_type,omitempty"`
	ChemicalFormula  string             `json:"chemical_formula,omitempty"`
	MonoisotopicMass float64            `json:"monoisotopic_mass,omitempty"`
	TargetSites      []ModificationSite `json:"target_sites,omitempty"`
}
