package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/cache/redis"
	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/internal/storage/models"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/logger"
	"github.com/sdrf-annotator/backend/pkg/utils"
)

// bundle is the serialized payload a cache entry round-trips.
type bundle struct {
	Suggestions    map[string][]sdrf.Suggestion `json:"sdrf_suggestions"`
	ExtractedTerms []extraction.ExtractedTerm   `json:"extracted_terms"`
	Metadata       Metadata                     `json:"analysis_metadata"`
}

// SuggestionCache layers the Redis hot cache over the SQLite entries keyed
// by (step, analyzer type). Entries are validated against the content hash
// of the step text; a stale hash deletes the SQLite row on read.
type SuggestionCache struct {
	db  *sqlite.Client
	hot *redis.Client
}

func NewSuggestionCache(db *sqlite.Client, hot *redis.Client) *SuggestionCache {
	return &SuggestionCache{db: db, hot: hot}
}

// Get returns the cached bundle for the step when one exists, is still
// valid and was computed from the current step text.
func (c *SuggestionCache) Get(ctx context.Context, stepID int64, analyzerType AnalyzerType, text string) (*bundle, bool, error) {
	hash := utils.HashContent(text)

	if c.hot != nil {
		var cached bundle
		hit, err := c.hot.GetSuggestions(ctx, stepID, string(analyzerType), hash, &cached)
		if err != nil {
			logger.Warn("Redis suggestion lookup failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	entry, err := c.db.GetCacheEntry(stepID, string(analyzerType))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if !entry.IsValid {
		return nil, false, nil
	}
	if entry.ContentHash != hash {
		if err := c.db.DeleteCacheEntry(stepID, string(analyzerType)); err != nil {
			logger.Warn("Failed to delete stale cache entry",
				zap.Int64("step_id", stepID),
				zap.Error(err),
			)
		}
		return nil, false, nil
	}

	decoded, err := decodeEntry(entry)
	if err != nil {
		return nil, false, err
	}

	if c.hot != nil {
		if err := c.hot.SetSuggestions(ctx, stepID, string(analyzerType), hash, decoded); err != nil {
			logger.Warn("Redis suggestion backfill failed", zap.Error(err))
		}
	}

	return decoded, true, nil
}

// Put stores the bundle under the content hash of the analyzed text,
// replacing any previous entry for the (step, analyzer type) pair.
func (c *SuggestionCache) Put(ctx context.Context, stepID int64, analyzerType AnalyzerType, text string, b *bundle) error {
	hash := utils.HashContent(text)

	entry, err := encodeEntry(stepID, analyzerType, hash, b)
	if err != nil {
		return err
	}
	if err := c.db.UpsertCacheEntry(entry); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	if c.hot != nil {
		if err := c.hot.SetSuggestions(ctx, stepID, string(analyzerType), hash, b); err != nil {
			logger.Warn("Redis suggestion store failed", zap.Error(err))
		}
	}
	return nil
}

// Invalidate flags every cached bundle for the step invalid without
// deleting it, and drops the hot-cache copies.
func (c *SuggestionCache) Invalidate(ctx context.Context, stepID int64) error {
	if err := c.db.InvalidateStepCache(stepID); err != nil {
		return err
	}
	if c.hot != nil {
		if err := c.hot.InvalidateStep(ctx, stepID); err != nil {
			logger.Warn("Redis invalidation failed", zap.Int64("step_id", stepID), zap.Error(err))
		}
	}
	return nil
}

// Delete removes the stored bundle for one (step, analyzer type) pair.
func (c *SuggestionCache) Delete(ctx context.Context, stepID int64, analyzerType AnalyzerType) error {
	if err := c.db.DeleteCacheEntry(stepID, string(analyzerType)); err != nil {
		return err
	}
	if c.hot != nil {
		if err := c.hot.InvalidateStep(ctx, stepID); err != nil {
			logger.Warn("Redis invalidation failed", zap.Int64("step_id", stepID), zap.Error(err))
		}
	}
	return nil
}

// Cleanup deletes entries older than the retention window.
func (c *SuggestionCache) Cleanup(retention time.Duration) (int64, error) {
	deleted, err := c.db.CleanupCache(time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Info("Analysis cache cleaned up", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

func encodeEntry(stepID int64, analyzerType AnalyzerType, hash string, b *bundle) (*models.AnalysisCacheEntry, error) {
	suggestions, err := json.Marshal(b.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggestions: %w", err)
	}
	terms, err := json.Marshal(b.ExtractedTerms)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extracted terms: %w", err)
	}
	metadata, err := json.Marshal(b.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	return &models.AnalysisCacheEntry{
		StepID:           stepID,
		AnalyzerType:     string(analyzerType),
		ContentHash:      hash,
		SDRFSuggestions:  string(suggestions),
		AnalysisMetadata: string(metadata),
		ExtractedTerms:   string(terms),
		IsValid:          true,
	}, nil
}

func decodeEntry(entry *models.AnalysisCacheEntry) (*bundle, error) {
	var b bundle
	if err := json.Unmarshal([]byte(entry.SDRFSuggestions), &b.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode cached suggestions: %w", err)
	}
	if entry.ExtractedTerms != "" {
		if err := json.Unmarshal([]byte(entry.ExtractedTerms), &b.ExtractedTerms); err != nil {
			return nil, fmt.Errorf("failed to decode cached terms: %w", err)
		}
	}
	if entry.AnalysisMetadata != "" {
		if err := json.Unmarshal([]byte(entry.AnalysisMetadata), &b.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode cached metadata: %w", err)
		}
	}
	return &b, nil
}
