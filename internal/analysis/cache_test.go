package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
)

func testCacheClient(t *testing.T) (*SuggestionCache, *sqlite.Client) {
	t.Helper()
	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())
	return NewSuggestionCache(db, nil), db
}

func sampleBundle() *bundle {
	return &bundle{
		Suggestions: map[string][]sdrf.Suggestion{
			sdrf.ColOrganism: {{Value: "Homo sapiens", Confidence: 1.0, Accession: "NCBITaxon:9606", Source: sdrf.SourceOntology}},
		},
		ExtractedTerms: []extraction.ExtractedTerm{
			{Text: "Homo sapiens", TermType: extraction.TermOrganism, Confidence: 0.9, Source: extraction.SourcePattern},
		},
		Metadata: Metadata{AnalyzerType: AnalyzerStandard, TotalTermsExtracted: 1, TotalMatches: 1},
	}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	cache, db := testCacheClient(t)
	ctx := context.Background()

	step, err := db.InsertStep("sample text")
	require.NoError(t, err)

	stored := sampleBundle()
	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerStandard, "sample text", stored))

	got, hit, err := cache.Get(ctx, step.ID, AnalyzerStandard, "sample text")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, stored.Suggestions, got.Suggestions)
	assert.Equal(t, stored.ExtractedTerms, got.ExtractedTerms)
	assert.Equal(t, stored.Metadata, got.Metadata)
}

func TestCacheMissWhenEmpty(t *testing.T) {
	cache, _ := testCacheClient(t)

	_, hit, err := cache.Get(context.Background(), 1, AnalyzerStandard, "anything")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheInvalidatedEntriesAreSkipped(t *testing.T) {
	cache, db := testCacheClient(t)
	ctx := context.Background()

	step, err := db.InsertStep("sample text")
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerStandard, "sample text", sampleBundle()))

	require.NoError(t, cache.Invalidate(ctx, step.ID))

	_, hit, err := cache.Get(ctx, step.ID, AnalyzerStandard, "sample text")
	require.NoError(t, err)
	assert.False(t, hit)

	// the row survives invalidation and is revalidated by the next Put
	entry, err := db.GetCacheEntry(step.ID, string(AnalyzerStandard))
	require.NoError(t, err)
	assert.False(t, entry.IsValid)

	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerStandard, "sample text", sampleBundle()))
	_, hit, err = cache.Get(ctx, step.ID, AnalyzerStandard, "sample text")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCacheEntriesKeyedByAnalyzerType(t *testing.T) {
	cache, db := testCacheClient(t)
	ctx := context.Background()

	step, err := db.InsertStep("sample text")
	require.NoError(t, err)

	standard := sampleBundle()
	enhanced := sampleBundle()
	enhanced.Metadata.AnalyzerType = AnalyzerAIAssisted

	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerStandard, "sample text", standard))
	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerAIAssisted, "sample text", enhanced))

	got, hit, err := cache.Get(ctx, step.ID, AnalyzerAIAssisted, "sample text")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, AnalyzerAIAssisted, got.Metadata.AnalyzerType)
}

func TestCacheDelete(t *testing.T) {
	cache, db := testCacheClient(t)
	ctx := context.Background()

	step, err := db.InsertStep("sample text")
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerStandard, "sample text", sampleBundle()))

	require.NoError(t, cache.Delete(ctx, step.ID, AnalyzerStandard))

	_, hit, err := cache.Get(ctx, step.ID, AnalyzerStandard, "sample text")
	require.NoError(t, err)
	assert.False(t, hit)

	// deleting again is a no-op
	require.NoError(t, cache.Delete(ctx, step.ID, AnalyzerStandard))
}

func TestCacheCleanupRespectsRetention(t *testing.T) {
	cache, db := testCacheClient(t)
	ctx := context.Background()

	step, err := db.InsertStep("sample text")
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, step.ID, AnalyzerStandard, "sample text", sampleBundle()))

	deleted, err := cache.Cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = cache.Cleanup(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
