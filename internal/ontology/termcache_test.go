package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTerm(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Homo sapiens", "homo sapiens"},
		{"  HeLa-Cell!! ", "hela cell"},
		{"TMT10-plex", "tmt10 plex"},
		{"...", ""},
		{"", ""},
		{"phospho(STY)", "phospho sty"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeTerm(c.in), "input %q", c.in)
	}
}

func TestTermCacheLookupMarksSynonyms(t *testing.T) {
	source := &fakeSource{vocabs: map[string][]VocabularyRecord{
		VocabSpecies: {
			{ID: "sp-1", Name: "Mus musculus", Synonyms: []string{"mouse"}},
		},
	}}
	cache := BuildTermCache(source, []string{VocabSpecies})

	byName := cache.Lookup(VocabSpecies, "mus musculus")
	require.Len(t, byName, 1)
	assert.False(t, byName[0].ViaSynonym)

	bySynonym := cache.Lookup(VocabSpecies, "mouse")
	require.Len(t, bySynonym, 1)
	assert.True(t, bySynonym[0].ViaSynonym)
	assert.Equal(t, "Mus musculus", bySynonym[0].Record.Name)
}

func TestTermCacheSharedKeyHoldsAllRecords(t *testing.T) {
	source := &fakeSource{vocabs: map[string][]VocabularyRecord{
		VocabHumanDisease: {
			{ID: "d-1", Name: "carcinoma"},
			{ID: "d-2", Name: "tumor", Synonyms: []string{"carcinoma"}},
		},
	}}
	cache := BuildTermCache(source, []string{VocabHumanDisease})

	entries := cache.Lookup(VocabHumanDisease, "carcinoma")
	require.Len(t, entries, 2)
}

func TestVocabularyTypesListsConfigured(t *testing.T) {
	cache := testCache(t)
	types := cache.VocabularyTypes()
	assert.ElementsMatch(t, []string{VocabSpecies, VocabTissue, VocabMSTerms}, types)
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarityRatio("liver", "liver"))
	assert.Equal(t, 1.0, similarityRatio("", ""))
	assert.Equal(t, 0.0, similarityRatio("liver", ""))

	// common subsequence "hela cell" of length 9 against lengths 11 and 9
	assert.InDelta(t, 0.9, similarityRatio("hrelaa cell", "hela cell"), 1e-9)

	assert.Less(t, similarityRatio("trypsin", "pepsin"), 0.8)
}

func TestLengthsComparable(t *testing.T) {
	assert.True(t, lengthsComparable("liver", "livers"))
	assert.False(t, lengthsComparable("ab", "abcdefgh"))
	assert.True(t, lengthsComparable("abcd", "abcdefgh"))
}
