package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/climate-cli/internal/db"
)

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// most frequently used store operations.
var preparedStatements = map[string]string{
	"get_rule_set":         `SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE id = $1`,
	"get_rule_set_by_name": `SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE name = $1`,
	"insert_run":           `INSERT INTO runs (id, rule_set_id, source, total, classified, unclassified, by_category, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rule_sets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	rule_set_id  TEXT,
	source       TEXT,
	total        INTEGER NOT NULL,
	classified   INTEGER NOT NULL,
	unclassified INTEGER NOT NULL,
	by_category  JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_category_counts (
	run_id      TEXT NOT NULL,
	category_id TEXT NOT NULL,
	name        TEXT NOT NULL,
	color       TEXT NOT NULL,
	count       INTEGER NOT NULL,
	PRIMARY KEY (run_id, category_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRuleSet(ctx context.Context, name string, doc []byte) (*RuleSet, error) {
	now := time.Now().UTC()
	id := uuid.New().String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rule_sets (id, name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		id, name, string(doc), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: save rule set")
	}
	return s.GetRuleSetByName(ctx, name)
}

func (s *PostgresStore) GetRuleSet(ctx context.Context, id string) (*RuleSet, error) {
	return s.scanRuleSet(s.pool.QueryRow(ctx,
		`SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE id = $1`, id))
}

func (s *PostgresStore) GetRuleSetByName(ctx context.Context, name string) (*RuleSet, error) {
	return s.scanRuleSet(s.pool.QueryRow(ctx,
		`SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE name = $1`, name))
}

func (s *PostgresStore) scanRuleSet(row pgx.Row) (*RuleSet, error) {
	var rs RuleSet
	var doc string
	err := row.Scan(&rs.ID, &rs.Name, &doc, &rs.CreatedAt, &rs.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan rule set")
	}
	rs.Document = []byte(doc)
	return &rs, nil
}

func (s *PostgresStore) ListRuleSets(ctx context.Context) ([]RuleSet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, document, created_at, updated_at FROM rule_sets ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rule sets")
	}
	defer rows.Close()

	var out []RuleSet
	for rows.Next() {
		var rs RuleSet
		var doc string
		if err := rows.Scan(&rs.ID, &rs.Name, &doc, &rs.CreatedAt, &rs.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule set")
		}
		rs.Document = []byte(doc)
		out = append(out, rs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rule sets")
}

func (s *PostgresStore) DeleteRuleSet(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rule_sets WHERE id = $1`, id)
	if err != nil {
		return eris.Wrap(err, "postgres: delete rule set")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: rule set %s not found", id)
	}
	return nil
}

// RecordRun inserts the run row and bulk-copies per-category counts into
// run_category_counts for SQL-side reporting.
func (s *PostgresStore) RecordRun(ctx context.Context, run Run) (*Run, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	var byCategory any
	if len(run.ByCategory) > 0 {
		byCategory = string(run.ByCategory)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, rule_set_id, source, total, classified, unclassified, by_category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, nullable(run.RuleSetID), nullable(run.Source),
		run.Total, run.Classified, run.Unclassified, byCategory, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: record run")
	}

	if rows := categoryCountRows(run); len(rows) > 0 {
		if _, err := db.CopyFrom(ctx, s.pool, "run_category_counts",
			[]string{"run_id", "category_id", "name", "color", "count"}, rows); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

// categoryCountRows flattens the ByCategory JSON into COPY rows.
func categoryCountRows(run Run) [][]any {
	if len(run.ByCategory) == 0 {
		return nil
	}
	var counts map[string]struct {
		Name  string `json:"name"`
		Color string `json:"color"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(run.ByCategory, &counts); err != nil {
		return nil
	}
	rows := make([][]any, 0, len(counts))
	for id, c := range counts {
		rows = append(rows, []any{run.ID, id, c.Name, c.Color, c.Count})
	}
	return rows
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, rule_set_id, source, total, classified, unclassified, by_category, created_at
		FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var ruleSetID, source, byCategory *string
		if err := rows.Scan(&run.ID, &ruleSetID, &source, &run.Total,
			&run.Classified, &run.Unclassified, &byCategory, &run.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if ruleSetID != nil {
			run.RuleSetID = *ruleSetID
		}
		if source != nil {
			run.Source = *source
		}
		if byCategory != nil {
			run.ByCategory = []byte(*byCategory)
		}
		out = append(out, run)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}
