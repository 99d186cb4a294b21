package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pagelens/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	run := &model.Run{
		ID: "run-1", URL: "https://shop.example/p/1",
		Fields: []string{"rating", "price"},
		Status: model.RunPending, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "https://shop.example/p/1", "rating,price", "pending", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := &model.Run{
		ID: "run-1", URL: "https://shop.example/p/1",
		Status: model.RunSucceeded,
		Result: &model.ExtractionResult{
			URL:    "https://shop.example/p/1",
			Values: map[string]any{"rating": 4.3},
			Source: model.OriginDOM,
			Attempts: []model.InferenceAttempt{
				{Backend: "local", Tier: model.TierLocal, Succeeded: true, ElapsedMs: 90},
			},
		},
	}

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("succeeded", pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO run_attempts`).
		WithArgs("run-1", 0, "local", "local", true, 0, int64(90)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.FinishRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	run := &model.Run{ID: "missing", Status: model.RunFailed}

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	resultJSON, err := json.Marshal(model.ExtractionResult{
		URL:    "https://shop.example/p/1",
		Values: map[string]any{"price": "₹592"},
		Source: model.OriginOCR,
	})
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "url", "fields", "status", "result", "created_at", "updated_at"}).
		AddRow("run-1", "https://shop.example/p/1", "price", "succeeded", resultJSON, now, now)

	mock.ExpectQuery(`SELECT id, url, fields, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"price"}, run.Fields)
	require.NotNil(t, run.Result)
	assert.Equal(t, "₹592", run.Result.Values["price"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, url, fields, status, result, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "url", "fields", "status", "result", "created_at", "updated_at"}).
		AddRow("run-1", "https://shop.example/p/1", "rating", "succeeded", []byte(nil), now, now).
		AddRow("run-2", "https://shop.example/p/2", "rating", "succeeded", []byte(nil), now, now)

	mock.ExpectQuery(`SELECT id, url, fields, status, result, created_at, updated_at FROM runs WHERE 1=1 AND status = \$1`).
		WithArgs("succeeded").
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunSucceeded})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
