package sdrf

// Suggestion sources.
const (
	SourceOntology    = "ontology"
	SourceTextPattern = "text_pattern"
	SourceAssistant   = "ai_generated"
)

// Suggestion is one proposed value for an SDRF column. Value is either a
// plain term or a semicolon-delimited key-value encoding (modifications,
// cleavage agents).
type Suggestion struct {
	Value         string  `json:"value"`
	Confidence    float64 `json:"confidence"`
	Source        string  `json:"source"`
	OntologyType  string  `json:"ontology_type,omitempty"`
	OntologyID    string  `json:"ontology_id,omitempty"`
	Accession     string  `json:"accession,omitempty"`
	MatchType     string  `json:"match_type,omitempty"`
	ExtractedTerm string  `json:"extracted_term,omitempty"`
}
