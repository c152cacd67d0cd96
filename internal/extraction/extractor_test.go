package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTerm(terms []ExtractedTerm, text string) *ExtractedTerm {
	for i := range terms {
		if terms[i].Text == text {
			return &terms[i]
		}
	}
	return nil
}

func TestExtractEmptyInput(t *testing.T) {
	e := NewExtractor(0)

	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   \n\t  "))
	assert.NotNil(t, e.Extract(""))
}

func TestExtractOrganismAndTissue(t *testing.T) {
	e := NewExtractor(0)

	terms := e.Extract("Homo sapiens liver samples were lysed in urea buffer.")

	binomial := findTerm(terms, "Homo sapiens")
	require.NotNil(t, binomial)
	assert.Equal(t, TermOrganism, binomial.TermType)
	assert.Equal(t, 0.9, binomial.Confidence)
	assert.Equal(t, SourcePattern, binomial.Source)

	tissue := findTerm(terms, "liver")
	require.NotNil(t, tissue)
	assert.Equal(t, TermTissue, tissue.TermType)

	chemical := findTerm(terms, "urea")
	require.NotNil(t, chemical)
	assert.Equal(t, TermChemical, chemical.TermType)
}

func TestExtractInstrumentAndEnzyme(t *testing.T) {
	e := NewExtractor(0)

	terms := e.Extract("Peptides were digested with trypsin and analyzed on an Orbitrap Fusion Lumos.")

	enzyme := findTerm(terms, "trypsin")
	require.NotNil(t, enzyme)
	assert.Equal(t, TermChemical, enzyme.TermType)

	instrument := findTerm(terms, "Orbitrap Fusion Lumos")
	require.NotNil(t, instrument)
	assert.Equal(t, TermInstrument, instrument.TermType)
	assert.Equal(t, 0.85, instrument.Confidence)
}

func TestExtractSortedByConfidenceThenPosition(t *testing.T) {
	e := NewExtractor(0)

	terms := e.Extract("Mouse liver was digested with trypsin after incubation.")
	require.NotEmpty(t, terms)

	for i := 1; i < len(terms); i++ {
		if terms[i-1].Confidence == terms[i].Confidence {
			assert.LessOrEqual(t, terms[i-1].StartPos, terms[i].StartPos)
		} else {
			assert.Greater(t, terms[i-1].Confidence, terms[i].Confidence)
		}
	}
}

func TestExtractDeduplicatesSpans(t *testing.T) {
	e := NewExtractor(0)

	// "phosphopeptide enrichment" hits the enrichment rule; the overlapping
	// "phosphopeptide" span hits the modification rule separately
	terms := e.Extract("TiO2 phosphopeptide enrichment was performed.")

	seen := make(map[string]int)
	for _, term := range terms {
		seen[term.Text]++
	}
	for text, count := range seen {
		assert.Equal(t, 1, count, "duplicate span for %q", text)
	}
}

func TestExtractPositionsReferenceCleanedText(t *testing.T) {
	e := NewExtractor(0)

	text := "Samples from human serum were reduced with DTT."
	terms := e.Extract(text)

	organism := findTerm(terms, "human")
	require.NotNil(t, organism)
	assert.Equal(t, "human", text[organism.StartPos:organism.EndPos])
}

func TestExtractContextContainsTerm(t *testing.T) {
	e := NewExtractor(30)

	terms := e.Extract("Digest overnight with trypsin. Desalt peptides on C18 columns.")
	enzyme := findTerm(terms, "trypsin")
	require.NotNil(t, enzyme)
	assert.Contains(t, enzyme.Context, "trypsin")
}

func TestCleanStepTextStripsMarkup(t *testing.T) {
	html := `<div><p>Digest with <b>trypsin</b> overnight.</p><script>alert(1)</script></div>`

	cleaned := CleanStepText(html)
	assert.Equal(t, "Digest with trypsin overnight.", cleaned)
	assert.NotContains(t, cleaned, "alert")
}

func TestCleanStepTextPlainPassthrough(t *testing.T) {
	assert.Equal(t, "Digest with trypsin.", CleanStepText("  Digest \n with\ttrypsin.  "))
	assert.Equal(t, "", CleanStepText("   "))
}

func TestExtractFromHTMLFragment(t *testing.T) {
	e := NewExtractor(0)

	terms := e.Extract("<p>Mus musculus brain tissue, Q Exactive HF</p>")

	require.NotNil(t, findTerm(terms, "Mus musculus"))
	require.NotNil(t, findTerm(terms, "brain"))
	require.NotNil(t, findTerm(terms, "Q Exactive HF"))
}
