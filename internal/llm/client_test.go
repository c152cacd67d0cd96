package llm

import (
	"encoding/json"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/ontology"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare array", `[{"term": "mouse"}]`, `[{"term": "mouse"}]`},
		{"fenced json", "```json\n[{\"term\": \"mouse\"}]\n```", `[{"term": "mouse"}]`},
		{"fenced without language", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around object", `Here is the result: {"a": 1}. Hope that helps!`, `{"a": 1}`},
		{"prose around array", `The terms are [{"term": "liver"}] as requested.`, `[{"term": "liver"}]`},
		{"no json at all", "no structured content here", "no structured content here"},
		{"nested braces", `{"outer": {"inner": 1}}`, `{"outer": {"inner": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.content))
		})
	}
}

func TestParseTermSuggestions(t *testing.T) {
	content := "```json\n" + `[
		{"term": "mouse", "term_type": "organism", "confidence": 0.85, "reason": "C57BL/6 strain code"},
		{"term": "", "term_type": "organism", "confidence": 0.9},
		{"term": "liver", "term_type": "tissue", "confidence": 1.5}
	]` + "\n```"

	terms, err := parseTermSuggestions(content)
	require.NoError(t, err)

	// blank terms and out-of-range confidences are dropped
	require.Len(t, terms, 1)
	assert.Equal(t, "mouse", terms[0].Term)
	assert.Equal(t, "organism", terms[0].TermType)
	assert.InDelta(t, 0.85, terms[0].Confidence, 1e-9)
}

func TestParseTermSuggestionsRejectsNonJSON(t *testing.T) {
	_, err := parseTermSuggestions("I could not find any terms.")
	assert.Error(t, err)
}

func TestParseSuggestionBundle(t *testing.T) {
	content := `{"sdrf_suggestions": {"organism": [{"value": "Homo sapiens", "confidence": 0.95, "accession": "NCBITaxon:9606"}]}}`

	suggestions, err := parseSuggestionBundle(content)
	require.NoError(t, err)
	require.Contains(t, suggestions, "organism")
	assert.Equal(t, "Homo sapiens", suggestions["organism"][0].Value)
	assert.Equal(t, "NCBITaxon:9606", suggestions["organism"][0].Accession)
}

func TestParseSuggestionBundleEmptyObject(t *testing.T) {
	suggestions, err := parseSuggestionBundle(`{}`)
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 500}))
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, isTransient(&openai.APIError{HTTPStatusCode: 400}))
	assert.False(t, isTransient(&openai.APIError{HTTPStatusCode: 404}))
	assert.True(t, isTransient(errors.New("connection reset")))
}

type recordingExecutor struct {
	ontologyTerms []string
	modTerms      []string
}

func (r *recordingExecutor) SearchOntology(term string, vocabTypes []string) []ontology.MatchResult {
	r.ontologyTerms = append(r.ontologyTerms, term)
	return []ontology.MatchResult{{OntologyName: "Homo sapiens", Accession: "NCBITaxon:9606", Confidence: 1.0}}
}

func (r *recordingExecutor) SearchModificationDatabase(term string) []ontology.MatchResult {
	r.modTerms = append(r.modTerms, term)
	return nil
}

func (r *recordingExecutor) ExtractTerms(text string) []extraction.ExtractedTerm {
	return []extraction.ExtractedTerm{{Text: "trypsin", TermType: extraction.TermChemical}}
}

func (r *recordingExecutor) ValidateFormat(column, value string) bool {
	return column == "age"
}

func TestDispatchToolSearchOntology(t *testing.T) {
	c := &Client{}
	exec := &recordingExecutor{}
	analysis := &ToolAnalysis{}

	result := c.dispatchTool(&openai.FunctionCall{
		Name:      "search_ontology",
		Arguments: `{"term": "human", "vocabulary_types": ["species"]}`,
	}, exec, analysis)

	assert.Equal(t, 1, analysis.OntologySearches)
	assert.Equal(t, []string{"human"}, exec.ontologyTerms)

	var matches []ontology.MatchResult
	require.NoError(t, json.Unmarshal([]byte(result), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "Homo sapiens", matches[0].OntologyName)
}

func TestDispatchToolModificationSearchCounts(t *testing.T) {
	c := &Client{}
	exec := &recordingExecutor{}
	analysis := &ToolAnalysis{}

	c.dispatchTool(&openai.FunctionCall{
		Name:      "search_modification_database",
		Arguments: `{"term": "phospho"}`,
	}, exec, analysis)

	assert.Equal(t, 1, analysis.OntologySearches)
	assert.Equal(t, []string{"phospho"}, exec.modTerms)
}

func TestDispatchToolExtractAndValidateDoNotCount(t *testing.T) {
	c := &Client{}
	exec := &recordingExecutor{}
	analysis := &ToolAnalysis{}

	result := c.dispatchTool(&openai.FunctionCall{
		Name:      "extract_terms",
		Arguments: `{"text": "digest with trypsin"}`,
	}, exec, analysis)
	assert.Contains(t, result, "trypsin")

	result = c.dispatchTool(&openai.FunctionCall{
		Name:      "validate_format",
		Arguments: `{"column": "age", "value": "40Y"}`,
	}, exec, analysis)
	assert.JSONEq(t, `{"valid": true}`, result)

	assert.Zero(t, analysis.OntologySearches)
}

func TestDispatchToolUnknownAndMalformed(t *testing.T) {
	c := &Client{}
	exec := &recordingExecutor{}
	analysis := &ToolAnalysis{}

	result := c.dispatchTool(&openai.FunctionCall{Name: "drop_tables", Arguments: `{}`}, exec, analysis)
	assert.Contains(t, result, "unknown tool")

	result = c.dispatchTool(&openai.FunctionCall{Name: "search_ontology", Arguments: `{not json`}, exec, analysis)
	assert.Contains(t, result, "malformed arguments")
	assert.Zero(t, analysis.OntologySearches)
}
