package sdrf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCleavageAgent(t *testing.T) {
	suggestions := DeriveTextSuggestions("Proteins were digested overnight with trypsin at 37C.")

	require.Len(t, suggestions[ColCleavageAgent], 1)
	s := suggestions[ColCleavageAgent][0]
	assert.Equal(t, "NT=Trypsin;AC=MS:1001251;CS=(?<=[KR])(?!P)", s.Value)
	assert.Equal(t, 0.8, s.Confidence)
	assert.Equal(t, SourceTextPattern, s.Source)
}

func TestDeriveCleavageAgentWithoutAccession(t *testing.T) {
	suggestions := DeriveTextSuggestions("Digestion with Glu-C.")

	require.Len(t, suggestions[ColCleavageAgent], 1)
	assert.Equal(t, "NT=Glu-C;CS=(?<=[DE])(?!P)", suggestions[ColCleavageAgent][0].Value)
}

func TestDeriveMultipleCleavageAgents(t *testing.T) {
	suggestions := DeriveTextSuggestions("Sequential digestion with Lys-C then trypsin.")
	assert.Len(t, suggestions[ColCleavageAgent], 2)
}

func TestDeriveTMTChannel(t *testing.T) {
	suggestions := DeriveTextSuggestions("Samples labeled with TMT126 and TMT-127N.")

	require.Len(t, suggestions[ColLabel], 2)
	assert.Equal(t, "TMT126", suggestions[ColLabel][0].Value)
	assert.Equal(t, "TMT127N", suggestions[ColLabel][1].Value)
	assert.Equal(t, 0.8, suggestions[ColLabel][0].Confidence)
}

func TestDerivePlainTMTOnlyWithoutChannels(t *testing.T) {
	suggestions := DeriveTextSuggestions("TMT labeling was performed.")
	require.Len(t, suggestions[ColLabel], 1)
	assert.Equal(t, "TMT", suggestions[ColLabel][0].Value)
	assert.Equal(t, 0.5, suggestions[ColLabel][0].Confidence)

	// channel hit suppresses the weaker plain-TMT rule
	withChannel := DeriveTextSuggestions("TMT labeling, channel TMT131.")
	require.Len(t, withChannel[ColLabel], 1)
	assert.Equal(t, "TMT131", withChannel[ColLabel][0].Value)
}

func TestDeriveSILAC(t *testing.T) {
	plain := DeriveTextSuggestions("SILAC culture for two weeks.")
	require.Len(t, plain[ColLabel], 1)
	assert.Equal(t, "SILAC", plain[ColLabel][0].Value)
	assert.Equal(t, 0.5, plain[ColLabel][0].Confidence)

	heavy := DeriveTextSuggestions("Cells grown in SILAC heavy medium.")
	require.Len(t, heavy[ColLabel], 1)
	assert.Equal(t, "SILAC heavy", heavy[ColLabel][0].Value)
	assert.Equal(t, 0.7, heavy[ColLabel][0].Confidence)
}

func TestDeriveLabelFree(t *testing.T) {
	suggestions := DeriveTextSuggestions("Label-free quantification across runs.")
	require.Len(t, suggestions[ColLabel], 1)
	assert.Equal(t, "label free sample", suggestions[ColLabel][0].Value)
}

func TestDeriveAgeRangeBeforeSingleAge(t *testing.T) {
	ranged := DeriveTextSuggestions("Donors aged 25 to 65 years old.")
	require.Len(t, ranged[ColAge], 1)
	assert.Equal(t, "25Y-65Y", ranged[ColAge][0].Value)

	single := DeriveTextSuggestions("A 40 year old patient.")
	require.Len(t, single[ColAge], 1)
	assert.Equal(t, "40Y", single[ColAge][0].Value)
}

func TestDeriveSex(t *testing.T) {
	suggestions := DeriveTextSuggestions("Serum from a female donor.")
	require.Len(t, suggestions[ColSex], 1)
	assert.Equal(t, "female", suggestions[ColSex][0].Value)
	assert.Equal(t, 0.6, suggestions[ColSex][0].Confidence)
}

func TestDeriveReplicatesAndFractions(t *testing.T) {
	suggestions := DeriveTextSuggestions("3 biological replicates, 2 technical replicates, fraction 12 analyzed.")

	// counts written before the keyword are not captured; the rules only
	// read trailing numbers
	require.Len(t, suggestions[ColFraction], 1)
	assert.Equal(t, "12", suggestions[ColFraction][0].Value)

	trailing := DeriveTextSuggestions("biological replicate 3 and technical replicate 2")
	require.Len(t, trailing[ColBiologicalReplicate], 1)
	assert.Equal(t, "3", trailing[ColBiologicalReplicate][0].Value)
	require.Len(t, trailing[ColTechnicalReplicate], 1)
	assert.Equal(t, "2", trailing[ColTechnicalReplicate][0].Value)
}

func TestDeriveEmptyText(t *testing.T) {
	assert.Empty(t, DeriveTextSuggestions("   "))
}

func TestValidateValue(t *testing.T) {
	assert.True(t, ValidateValue(ColOrganism, "Homo sapiens"))
	assert.False(t, ValidateValue(ColOrganism, "  "))

	assert.True(t, ValidateValue(ColModification, "NT=Phospho;AC=UNIMOD:21;TA=S,T,Y"))
	assert.False(t, ValidateValue(ColModification, "AC=UNIMOD:21"))

	assert.True(t, ValidateValue(ColAge, "40Y"))
	assert.True(t, ValidateValue(ColAge, "25Y-65Y"))
	assert.False(t, ValidateValue(ColAge, "forty"))

	assert.True(t, ValidateValue(ColSex, "Female"))
	assert.False(t, ValidateValue(ColSex, "other"))

	assert.True(t, ValidateValue(ColFraction, "12"))
	assert.False(t, ValidateValue(ColFraction, "twelve"))
}
