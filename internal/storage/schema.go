package storage

// schema is valid for both SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id           TEXT PRIMARY KEY,
		document     TEXT NOT NULL,
		doc_type     TEXT NOT NULL,
		segments     INTEGER NOT NULL DEFAULT 0,
		records      INTEGER NOT NULL DEFAULT 0,
		failed_calls INTEGER NOT NULL DEFAULT 0,
		duration_ms  BIGINT NOT NULL DEFAULT 0,
		created_at   TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS records (
		run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		segment_index   INTEGER NOT NULL,
		title           TEXT NOT NULL,
		value           TEXT NOT NULL,
		unit            TEXT NOT NULL,
		period          TEXT NOT NULL,
		metric_type     TEXT NOT NULL,
		category        TEXT NOT NULL,
		reference       TEXT NOT NULL,
		has_provenance  BOOLEAN NOT NULL DEFAULT FALSE,
		verified_prefix TEXT NOT NULL DEFAULT '',
		coverage        DOUBLE PRECISION NOT NULL DEFAULT 0,
		matched_index   INTEGER NOT NULL DEFAULT -1,
		match_score     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_category ON records (run_id, category)`,
}
