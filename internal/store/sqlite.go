package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rule_sets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	document   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	rule_set_id  TEXT,
	source       TEXT,
	total        INTEGER NOT NULL,
	classified   INTEGER NOT NULL,
	unclassified INTEGER NOT NULL,
	by_category  TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rule_sets_name ON rule_sets(name);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRuleSet upserts by name: saving under an existing name replaces the
// stored document.
func (s *SQLiteStore) SaveRuleSet(ctx context.Context, name string, doc []byte) (*RuleSet, error) {
	now := time.Now().UTC()
	rs := &RuleSet{ID: uuid.New().String(), Name: name, Document: doc, CreatedAt: now, UpdatedAt: now}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_sets (id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at`,
		rs.ID, rs.Name, string(doc), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: save rule set")
	}
	// The upsert keeps the original row id; read it back.
	return s.GetRuleSetByName(ctx, name)
}

func (s *SQLiteStore) GetRuleSet(ctx context.Context, id string) (*RuleSet, error) {
	return s.scanRuleSet(s.db.QueryRowContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE id = ?`, id))
}

func (s *SQLiteStore) GetRuleSetByName(ctx context.Context, name string) (*RuleSet, error) {
	return s.scanRuleSet(s.db.QueryRowContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE name = ?`, name))
}

func (s *SQLiteStore) scanRuleSet(row *sql.Row) (*RuleSet, error) {
	var rs RuleSet
	var doc string
	err := row.Scan(&rs.ID, &rs.Name, &doc, &rs.CreatedAt, &rs.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan rule set")
	}
	rs.Document = []byte(doc)
	return &rs, nil
}

func (s *SQLiteStore) ListRuleSets(ctx context.Context) ([]RuleSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, document, created_at, updated_at FROM rule_sets ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rule sets")
	}
	defer rows.Close()

	var out []RuleSet
	for rows.Next() {
		var rs RuleSet
		var doc string
		if err := rows.Scan(&rs.ID, &rs.Name, &doc, &rs.CreatedAt, &rs.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule set")
		}
		rs.Document = []byte(doc)
		out = append(out, rs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rule sets")
}

func (s *SQLiteStore) DeleteRuleSet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rule_sets WHERE id = ?`, id)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete rule set")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: rule set %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) (*Run, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, rule_set_id, source, total, classified, unclassified, by_category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, nullable(run.RuleSetID), nullable(run.Source),
		run.Total, run.Classified, run.Unclassified,
		nullable(string(run.ByCategory)), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: record run")
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_set_id, source, total, classified, unclassified, by_category, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var ruleSetID, source, byCategory sql.NullString
		if err := rows.Scan(&run.ID, &ruleSetID, &source, &run.Total,
			&run.Classified, &run.Unclassified, &byCategory, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		run.RuleSetID = ruleSetID.String
		run.Source = source.String
		if byCategory.Valid {
			run.ByCategory = []byte(byCategory.String)
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
