package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/sqlite" // pure Go, no cgo needed
	"github.com/google/uuid"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	url         TEXT NOT NULL,
	analyzed_at TIMESTAMP NOT NULL,
	confidence  REAL NOT NULL,
	is_phishing INTEGER NOT NULL,
	target_bank TEXT,
	error       TEXT,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_url ON analysis_results(url);`

const insertResult = `INSERT INTO analysis_results (id, url, analyzed_at, confidence, is_phishing, target_bank, error, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectResults = `SELECT payload FROM analysis_results ORDER BY seq`

// SQLStore appends outcomes to the analysis_results table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) a SQLite database and applies the schema.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := NewSQLStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Migrate creates the results table if needed.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts outcomes in one transaction.
func (s *SQLStore) Save(ctx context.Context, outcomes []models.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, o := range outcomes {
		payload, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to marshal outcome for %s: %w", o.URL, err)
		}

		analyzedAt := s.now()
		var confidence float64
		var phishing bool
		var target sql.NullString
		if o.Result != nil {
			analyzedAt = o.Result.Timestamp
			confidence = o.Result.Confidence
			phishing = o.Result.IsPhishing
			target = sql.NullString{String: o.Result.TargetBank, Valid: o.Result.TargetBank != ""}
		}

		if _, err := tx.ExecContext(ctx, insertResult,
			uuid.NewString(), o.URL, analyzedAt.UTC(), confidence, phishing, target,
			sql.NullString{String: o.Error, Valid: o.Error != ""}, string(payload),
		); err != nil {
			return fmt.Errorf("failed to insert outcome for %s: %w", o.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// Load returns every stored outcome in insertion order.
func (s *SQLStore) Load(ctx context.Context) ([]models.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, selectResults)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var o models.Outcome
		if err := json.Unmarshal([]byte(payload), &o); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }
