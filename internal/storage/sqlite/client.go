package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/storage/models"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS protocol_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vocabulary_terms (
		id TEXT NOT NULL,
		vocab_type TEXT NOT NULL,
		name TEXT NOT NULL,
		accession TEXT,
		synonyms TEXT,
		definition TEXT,
		term_type TEXT,
		chemical_formula TEXT,
		monoisotopic_mass REAL,
		target_sites TEXT,
		PRIMARY KEY (vocab_type, id)
	);
	CREATE INDEX IF NOT EXISTS idx_vocabulary_type ON vocabulary_terms(vocab_type);
	CREATE INDEX IF NOT EXISTS idx_vocabulary_name ON vocabulary_terms(name);

	CREATE TABLE IF NOT EXISTS analysis_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		step_id INTEGER NOT NULL,
		analyzer_type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		sdrf_suggestions TEXT NOT NULL,
		analysis_metadata TEXT,
		extracted_terms TEXT,
		is_valid INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (step_id, analyzer_type),
		FOREIGN KEY (step_id) REFERENCES protocol_steps(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_cache_step ON analysis_cache(step_id);
	CREATE INDEX IF NOT EXISTS idx_cache_created ON analysis_cache(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertStep(description string) (*models.ProtocolStep, error) {
	now := time.Now()
	result, err := c.db.Exec(
		`INSERT INTO protocol_steps (description, created_at, updated_at) VALUES (?, ?, ?)`,
		description, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read step id: %w", err)
	}

	return &models.ProtocolStep{ID: id, Description: description, CreatedAt: now, UpdatedAt: now}, nil
}

func (c *Client) GetStep(id int64) (*models.ProtocolStep, error) {
	var step models.ProtocolStep
	var createdAt, updatedAt int64

	err := c.db.QueryRow(
		`SELECT id, description, created_at, updated_at FROM protocol_steps WHERE id = ?`, id,
	).Scan(&step.ID, &step.Description, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	step.CreatedAt = time.Unix(createdAt, 0)
	step.UpdatedAt = time.Unix(updatedAt, 0)
	return &step, nil
}

// UpdateStepDescription replaces the step text and invalidates every cached
// analysis for the step: the text change makes all stored bundles stale.
func (c *Client) UpdateStepDescription(id int64, description string) error {
	result, err := c.db.Exec(
		`UPDATE protocol_steps SET description = ?, updated_at = ? WHERE id = ?`,
		description, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}

	if err := c.InvalidateStepCache(id); err != nil {
		return err
	}

	logger.Debug("Step updated, cache invalidated", zap.Int64("step_id", id))
	return nil
}

func (c *Client) InsertVocabularyTerm(term *models.VocabularyTerm) error {
	_, err := c.db.Exec(`
		INSERT INTO vocabulary_terms
			(id, vocab_type, name, accession, synonyms, definition, term_type, chemical_formula, monoisotopic_mass, target_sites)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vocab_type, id) DO UPDATE SET
			name = excluded.name,
			accession = excluded.accession,
			synonyms = excluded.synonyms,
			definition = excluded.definition,
			term_type = excluded.term_type,
			chemical_formula = excluded.chemical_formula,
			monoisotopic_mass = excluded.monoisotopic_mass,
			target_sites = excluded.target_sites
	`,
		term.ID, term.VocabType, term.Name, term.Accession, term.Synonyms,
		term.Definition, term.TermType, term.ChemicalFormula, term.MonoisotopicMass, term.TargetSites,
	)
	if err != nil {
		return fmt.Errorf("failed to insert vocabulary term: %w", err)
	}
	return nil
}

func (c *Client) ListVocabularyTerms(vocabType string) ([]models.VocabularyTerm, error) {
	rows, err := c.db.Query(`
		SELECT id, name, COALESCE(accession, ''), COALESCE(synonyms, ''), COALESCE(definition, ''),
			COALESCE(term_type, ''), COALESCE(chemical_formula, ''), COALESCE(monoisotopic_mass, 0),
			COALESCE(target_sites, '')
		FROM vocabulary_terms WHERE vocab_type = ?
	`, vocabType)
	if err != nil {
		return nil, fmt.Errorf("failed to list vocabulary terms: %w", err)
	}
	defer rows.Close()

	var terms []models.VocabularyTerm
	for rows.Next() {
		t := models.VocabularyTerm{VocabType: vocabType}
		err := rows.Scan(&t.ID, &t.Name, &t.Accession, &t.Synonyms, &t.Definition,
			&t.TermType, &t.ChemicalFormula, &t.MonoisotopicMass, &t.TargetSites)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vocabulary term: %w", err)
		}
		terms = append(terms, t)
	}

	return terms, rows.Err()
}

// UpsertCacheEntry writes a suggestion bundle, replacing any prior entry for
// the same (step, analyzer) key in place. A fresh write is always valid.
func (c *Client) UpsertCacheEntry(entry *models.AnalysisCacheEntry) error {
	now := time.Now().Unix()
	_, err := c.db.Exec(`
		INSERT INTO analysis_cache
			(step_id, analyzer_type, content_hash, sdrf_suggestions, analysis_metadata, extracted_terms, is_valid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(step_id, analyzer_type) DO UPDATE SET
			content_hash = excluded.content_hash,
			sdrf_suggestions = excluded.sdrf_suggestions,
			analysis_metadata = excluded.analysis_metadata,
			extracted_terms = excluded.extracted_terms,
			is_valid = 1,
			updated_at = excluded.updated_at
	`,
		entry.StepID, entry.AnalyzerType, entry.ContentHash,
		entry.SDRFSuggestions, entry.AnalysisMetadata, entry.ExtractedTerms,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	logger.Debug("Analysis cached",
		zap.Int64("step_id", entry.StepID),
		zap.String("analyzer_type", entry.AnalyzerType),
	)
	return nil
}

func (c *Client) GetCacheEntry(stepID int64, analyzerType string) (*models.AnalysisCacheEntry, error) {
	var entry models.AnalysisCacheEntry
	var isValid int
	var createdAt, updatedAt int64

	err := c.db.QueryRow(`
		SELECT id, step_id, analyzer_type, content_hash, sdrf_suggestions,
			COALESCE(analysis_metadata, ''), COALESCE(extracted_terms, ''), is_valid, created_at, updated_at
		FROM analysis_cache WHERE step_id = ? AND analyzer_type = ?
	`, stepID, analyzerType).Scan(
		&entry.ID, &entry.StepID, &entry.AnalyzerType, &entry.ContentHash,
		&entry.SDRFSuggestions, &entry.AnalysisMetadata, &entry.ExtractedTerms,
		&isValid, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	entry.IsValid = isValid != 0
	entry.CreatedAt = time.Unix(createdAt, 0)
	entry.UpdatedAt = time.Unix(updatedAt, 0)
	return &entry, nil
}

// InvalidateStepCache marks every analyzer's entry for the step invalid
// without deleting them.
func (c *Client) InvalidateStepCache(stepID int64) error {
	_, err := c.db.Exec(
		`UPDATE analysis_cache SET is_valid = 0, updated_at = ? WHERE step_id = ?`,
		time.Now().Unix(), stepID,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

func (c *Client) DeleteCacheEntry(stepID int64, analyzerType string) error {
	_, err := c.db.Exec(
		`DELETE FROM analysis_cache WHERE step_id = ? AND analyzer_type = ?`,
		stepID, analyzerType,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// CleanupCache deletes entries created before the retention cutoff,
// regardless of validity.
func (c *Client) CleanupCache(olderThan time.Time) (int64, error) {
	result, err := c.db.Exec(
		`DELETE FROM analysis_cache WHERE created_at < ?`, olderThan.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up cache: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		logger.Info("Cache cleanup completed", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
