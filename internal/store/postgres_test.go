package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rule_sets").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRuleSet(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE id").
		WithArgs("rs-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "document", "created_at", "updated_at"}).
			AddRow("rs-1", "bands", testDoc, now, now))

	got, err := st.GetRuleSet(context.Background(), "rs-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "bands", got.Name)
	assert.JSONEq(t, testDoc, string(got.Document))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRuleSet_Missing(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, document, created_at, updated_at FROM rule_sets WHERE id").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	got, err := st.GetRuleSet(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteRuleSet_NotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM rule_sets WHERE id").
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := st.DeleteRuleSet(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordRun_WithCategoryCounts(t *testing.T) {
	st, mock := newMockStore(t)

	byCategory, _ := json.Marshal(map[string]any{
		"tropical": map[string]any{"name": "Tropical", "color": "#d62728", "count": 3},
	})

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), nil, "cells.geojson", 5, 3, 2, string(byCategory), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"run_category_counts"},
		[]string{"run_id", "category_id", "name", "color", "count"}).
		WillReturnResult(1)

	run, err := st.RecordRun(context.Background(), Run{
		Source:       "cells.geojson",
		Total:        5,
		Classified:   3,
		Unclassified: 2,
		ByCategory:   byCategory,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordRun_InsertError(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := st.RecordRun(context.Background(), Run{Total: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	rsID := "rs-1"
	mock.ExpectQuery("SELECT id, rule_set_id, source, total, classified, unclassified, by_category, created_at").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "rule_set_id", "source", "total", "classified", "unclassified", "by_category", "created_at",
		}).
			AddRow("run-1", &rsID, (*string)(nil), 5, 3, 2, (*string)(nil), now).
			AddRow("run-2", (*string)(nil), (*string)(nil), 1, 1, 0, (*string)(nil), now))

	runs, err := st.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "rs-1", runs[0].RuleSetID)
	assert.Empty(t, runs[1].RuleSetID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
