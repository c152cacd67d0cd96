package sdrf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrf-annotator/backend/internal/ontology"
)

func TestGenerateRoutesVocabulariesToColumns(t *testing.T) {
	g := NewGenerator(0)

	matches := map[string][]ontology.MatchResult{
		ontology.VocabSpecies: {
			{OntologyType: ontology.VocabSpecies, OntologyName: "Homo sapiens", Accession: "NCBITaxon:9606", Confidence: 1.0, MatchType: ontology.MatchExact},
		},
		ontology.VocabTissue: {
			{OntologyType: ontology.VocabTissue, OntologyName: "liver", Confidence: 0.9, MatchType: ontology.MatchPartial},
		},
		ontology.VocabHumanDisease: {
			{OntologyType: ontology.VocabHumanDisease, OntologyName: "hepatocellular carcinoma", Confidence: 0.85},
		},
	}

	suggestions := g.Generate(matches)

	require.Len(t, suggestions[ColOrganism], 1)
	assert.Equal(t, "Homo sapiens", suggestions[ColOrganism][0].Value)
	assert.Equal(t, SourceOntology, suggestions[ColOrganism][0].Source)

	require.Len(t, suggestions[ColOrganismPart], 1)
	require.Len(t, suggestions[ColDisease], 1)
}

func TestGenerateAppliesCutoff(t *testing.T) {
	g := NewGenerator(0.7)

	matches := map[string][]ontology.MatchResult{
		ontology.VocabSpecies: {
			{OntologyType: ontology.VocabSpecies, OntologyName: "Homo sapiens", Confidence: 0.69},
		},
	}

	assert.Empty(t, g.Generate(matches))
}

func TestGenerateResolvesGenericVocabularyByTermType(t *testing.T) {
	g := NewGenerator(0)

	matches := map[string][]ontology.MatchResult{
		ontology.VocabMSTerms: {
			{OntologyType: ontology.VocabMSTerms, OntologyName: "Orbitrap Fusion", Accession: "MS:1002416", Confidence: 1.0, TermType: "Instrument"},
			{OntologyType: ontology.VocabMSTerms, OntologyName: "HCD", Confidence: 0.9, TermType: "dissociation method"},
			{OntologyType: ontology.VocabMSTerms, OntologyName: "mystery term", Confidence: 0.9, TermType: "no such category"},
		},
	}

	suggestions := g.Generate(matches)

	require.Len(t, suggestions[ColInstrument], 1)
	assert.Equal(t, "Orbitrap Fusion", suggestions[ColInstrument][0].Value)
	require.Len(t, suggestions[ColDissociation], 1)

	// unmapped term type drops the match rather than guessing a column
	total := 0
	for _, list := range suggestions {
		total += len(list)
	}
	assert.Equal(t, 2, total)
}

func TestGenerateEncodesModifications(t *testing.T) {
	g := NewGenerator(0)

	matches := map[string][]ontology.MatchResult{
		ontology.VocabUnimod: {phosphoMatch()},
	}

	suggestions := g.Generate(matches)
	require.Len(t, suggestions[ColModification], 1)
	assert.Contains(t, suggestions[ColModification][0].Value, "NT=Phospho")
	assert.Contains(t, suggestions[ColModification][0].Value, "TA=S,T,Y")
}

func TestGenerateDeduplicatesValuesPerColumn(t *testing.T) {
	g := NewGenerator(0)

	matches := map[string][]ontology.MatchResult{
		ontology.VocabSpecies: {
			{OntologyType: ontology.VocabSpecies, OntologyName: "Homo sapiens", Confidence: 1.0, ExtractedTerm: "human"},
			{OntologyType: ontology.VocabSpecies, OntologyName: "Homo sapiens", Confidence: 0.8, ExtractedTerm: "homo sapiens"},
		},
	}

	suggestions := g.Generate(matches)
	require.Len(t, suggestions[ColOrganism], 1)
	assert.Equal(t, 1.0, suggestions[ColOrganism][0].Confidence)
}

func TestGenerateSortsColumnsByConfidence(t *testing.T) {
	g := NewGenerator(0)

	matches := map[string][]ontology.MatchResult{
		ontology.VocabTissue: {
			{OntologyType: ontology.VocabTissue, OntologyName: "liver", Confidence: 0.75},
			{OntologyType: ontology.VocabTissue, OntologyName: "hepatic lobe", Confidence: 0.95},
		},
	}

	suggestions := g.Generate(matches)
	require.Len(t, suggestions[ColOrganismPart], 2)
	assert.Equal(t, "hepatic lobe", suggestions[ColOrganismPart][0].Value)
}

func TestMergeFoldsTextSuggestions(t *testing.T) {
	dst := map[string][]Suggestion{
		ColLabel: {{Value: "TMT", Confidence: 0.5, Source: SourceTextPattern}},
	}
	src := map[string][]Suggestion{
		ColLabel: {
			{Value: "TMT126", Confidence: 0.8, Source: SourceTextPattern},
			{Value: "TMT", Confidence: 0.6, Source: SourceTextPattern},
		},
		ColSex: {{Value: "female", Confidence: 0.6, Source: SourceTextPattern}},
	}

	merged := Merge(dst, src)

	require.Len(t, merged[ColLabel], 2)
	assert.Equal(t, "TMT126", merged[ColLabel][0].Value)
	require.Len(t, merged[ColSex], 1)
}

func TestMergeIntoNil(t *testing.T) {
	merged := Merge(nil, map[string][]Suggestion{
		ColOrganism: {{Value: "Homo sapiens", Confidence: 1.0}},
	})
	require.Len(t, merged[ColOrganism], 1)
}

func TestColumnForDirectAndGeneric(t *testing.T) {
	column, ok := ColumnFor(ontology.VocabSpecies, "")
	require.True(t, ok)
	assert.Equal(t, ColOrganism, column)

	column, ok = ColumnFor(ontology.VocabUnimod, "")
	require.True(t, ok)
	assert.Equal(t, ColModification, column)

	column, ok = ColumnFor(ontology.VocabPSIMS, "cleavage agent")
	require.True(t, ok)
	assert.Equal(t, ColCleavageAgent, column)

	_, ok = ColumnFor(ontology.VocabMSTerms, "")
	assert.False(t, ok)
}
