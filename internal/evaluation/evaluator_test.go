package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/sdrf"
)

type memorySource struct {
	records map[string][]ontology.VocabularyRecord
}

func (s memorySource) LoadVocabulary(vocabType string) ([]ontology.VocabularyRecord, error) {
	return s.records[vocabType], nil
}

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	source := memorySource{records: map[string][]ontology.VocabularyRecord{
		ontology.VocabSpecies: {
			{ID: "sp-1", Name: "Homo sapiens", Accession: "NCBITaxon:9606", Synonyms: []string{"human"}},
		},
		ontology.VocabTissue: {
			{ID: "ti-1", Name: "liver", Accession: "UBERON:0002107"},
		},
	}}
	cache := ontology.BuildTermCache(source, []string{ontology.VocabSpecies, ontology.VocabTissue})
	return NewEvaluator(
		extraction.NewExtractor(0),
		ontology.NewMatcher(cache),
		sdrf.NewGenerator(0),
		0,
	)
}

func TestEvaluateCaseScoring(t *testing.T) {
	e := testEvaluator(t)

	result := e.EvaluateCase(Case{
		Name:     "liver digest",
		StepText: "Homo sapiens liver was digested with trypsin.",
		Expected: map[string][]string{
			"organism":                {"Homo sapiens"},
			"organism part":           {"liver"},
			"cleavage agent details":  {"NT=Trypsin;AC=MS:1001251;CS=(?<=[KR])(?!P)"},
			"subcellular localization": {"nucleus"},
		},
	})

	// three of four expectations are met; nucleus is never suggested
	assert.InDelta(t, 0.75, result.Recall, 1e-9)
	assert.Equal(t, []string{"subcellular localization: nucleus"}, result.Missing)
	assert.Positive(t, result.Precision)
	assert.Positive(t, result.F1)
}

func TestEvaluateCasePerfectScore(t *testing.T) {
	e := testEvaluator(t)

	result := e.EvaluateCase(Case{
		Name:     "organism only",
		StepText: "Homo sapiens sample.",
		Expected: map[string][]string{"organism": {"homo sapiens"}},
	})

	assert.Equal(t, 1.0, result.Recall)
	assert.Empty(t, result.Missing)
}

func TestEvaluateCaseNothingProduced(t *testing.T) {
	e := testEvaluator(t)

	result := e.EvaluateCase(Case{
		Name:     "empty",
		StepText: "Incubate briefly.",
		Expected: map[string][]string{"organism": {"Homo sapiens"}},
	})

	assert.Zero(t, result.Precision)
	assert.Zero(t, result.Recall)
	assert.Zero(t, result.F1)
	assert.NotEmpty(t, result.Missing)
}

func TestRunAggregatesMeans(t *testing.T) {
	e := testEvaluator(t)

	report := e.Run(&Dataset{
		Name: "smoke",
		Cases: []Case{
			{Name: "hit", StepText: "Homo sapiens sample.", Expected: map[string][]string{"organism": {"Homo sapiens"}}},
			{Name: "miss", StepText: "Incubate briefly.", Expected: map[string][]string{"organism": {"Homo sapiens"}}},
		},
	})

	require.Len(t, report.Cases, 2)
	assert.InDelta(t, 0.5, report.MeanRecall, 1e-9)
	assert.Equal(t, "smoke", report.Dataset)
}

func TestLoadDatasetFromJSON(t *testing.T) {
	dataset, err := LoadDatasetFromJSON([]byte(`{"name": "d", "cases": [{"name": "c", "step_text": "t", "expected": {}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "d", dataset.Name)
	require.Len(t, dataset.Cases, 1)

	_, err = LoadDatasetFromJSON([]byte(`{"name": "empty", "cases": []}`))
	assert.Error(t, err)

	_, err = LoadDatasetFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestGenerateReportRendering(t *testing.T) {
	e := testEvaluator(t)

	text := e.GenerateReport(&Report{
		Dataset:       "smoke",
		Cases:         []CaseResult{{Name: "c1", Precision: 1, Recall: 0.5, F1: 2.0 / 3.0, Missing: []string{"organism: mouse"}}},
		MeanPrecision: 1,
		MeanRecall:    0.5,
		MeanF1:        2.0 / 3.0,
	})

	assert.Contains(t, text, "Dataset: smoke (1 cases)")
	assert.Contains(t, text, "c1")
	assert.Contains(t, text, "missing:    organism: mouse")
}
