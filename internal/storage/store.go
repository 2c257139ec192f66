// Package storage persists finished extraction runs and their records in
// SQLite or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Run is the stored summary of one extraction run.
type Run struct {
	ID          uuid.UUID
	Document    string
	DocType     domain.DocType
	Segments    int
	Records     int
	FailedCalls int
	Duration    time.Duration
	CreatedAt   time.Time
}

// Store is a domain.RunStore over database/sql.
type Store struct {
	db *sql.DB
}

var _ domain.RunStore = (*Store)(nil)

// Open connects to the database and applies the schema. driver is "sqlite" or
// "postgres"; dsn is a file path (or ":memory:") for sqlite and a connection
// URL for postgres.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var sqlDriver string
	switch driver {
	case "sqlite":
		sqlDriver = "sqlite3"
	case "postgres":
		sqlDriver = "postgres"
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unsupported database driver: %s", driver), nil)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, domain.StorageError("open database", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.StorageError("ping database", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domain.StorageError("migrate", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the run summary and all of its records in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *domain.RunResult) error {
	if run == nil {
		return domain.ValidationError("run is nil", nil)
	}
	if run.RunID == uuid.Nil {
		run.RunID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError("begin transaction", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return domain.StorageError("insert run", err)
	}
	for i, rec := range run.Records {
		if err := insertRecord(ctx, tx, run.RunID, i, rec); err != nil {
			return domain.StorageError(fmt.Sprintf("insert record %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError("commit", err)
	}
	return nil
}

// GetRun retrieves a run summary by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, domain.ValidationError(fmt.Sprintf("invalid run id %q", runID), err)
	}

	query := `
		SELECT id, document, doc_type, segments, records, failed_calls, duration_ms, created_at
		FROM runs WHERE id = $1
	`
	var (
		run        Run
		rawID      string
		docType    string
		durationMS int64
	)
	err = s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &run.Document, &docType, &run.Segments, &run.Records,
		&run.FailedCalls, &durationMS, &run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, domain.StorageError("get run", err)
	}
	run.ID = id
	run.DocType = domain.DocType(docType)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return &run, nil
}

// ListRecords returns the records of a run in their original order.
func (s *Store) ListRecords(ctx context.Context, runID string) ([]domain.ExtractedRecord, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT segment_index, title, value, unit, period, metric_type, category, reference,
			has_provenance, verified_prefix, coverage, matched_index, match_score
		FROM records WHERE run_id = $1
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, run.ID.String())
	if err != nil {
		return nil, domain.StorageError("list records", err)
	}
	defer rows.Close()

	records := []domain.ExtractedRecord{}
	for rows.Next() {
		var (
			rec           domain.ExtractedRecord
			metricType    string
			category      string
			hasProvenance bool
			prov          domain.Provenance
		)
		if err := rows.Scan(
			&rec.Index, &rec.Title, &rec.Value, &rec.Unit, &rec.Period, &metricType, &category, &rec.Reference,
			&hasProvenance, &prov.VerifiedPrefix, &prov.Coverage, &prov.MatchedIndex, &prov.MatchScore,
		); err != nil {
			return nil, domain.StorageError("scan record", err)
		}
		rec.Type = domain.MetricType(metricType)
		rec.Category = domain.Category(category)
		if hasProvenance {
			rec.Provenance = &prov
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list records", err)
	}
	return records, nil
}

func insertRun(ctx context.Context, db DB, run *domain.RunResult) error {
	query := `
		INSERT INTO runs (id, document, doc_type, segments, records, failed_calls, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.ExecContext(ctx, query,
		run.RunID.String(), run.Document, string(run.DocType), run.Stats.Segments,
		len(run.Records), run.Stats.FailedCalls, run.Stats.Duration.Milliseconds(), run.CreatedAt,
	)
	return err
}

func insertRecord(ctx context.Context, db DB, runID uuid.UUID, position int, rec domain.ExtractedRecord) error {
	var prov domain.Provenance
	prov.MatchedIndex = -1
	if rec.Provenance != nil {
		prov = *rec.Provenance
	}

	query := `
		INSERT INTO records (run_id, position, segment_index, title, value, unit, period, metric_type,
			category, reference, has_provenance, verified_prefix, coverage, matched_index, match_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := db.ExecContext(ctx, query,
		runID.String(), position, rec.Index, rec.Title, rec.Value, rec.Unit, rec.Period,
		string(rec.Type), string(rec.Category), rec.Reference,
		rec.Provenance != nil, prov.VerifiedPrefix, prov.Coverage, prov.MatchedIndex, prov.MatchScore,
	)
	return err
}
