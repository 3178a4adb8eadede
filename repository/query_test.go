package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eportal/backend/models"
)

func TestFilterNumbersPlaceholdersAfterBaseArgs(t *testing.T) {
	f := NewFilter(int64(7))
	f.Where("a = ?", "x").
		WhereIf(false, "skipped = ?", "nope").
		Where("(b = ? OR c = ?)", 1, 2)

	assert.Equal(t, " AND a = $2 AND (b = $3 OR c = $4)", f.And())
	assert.Equal(t, " WHERE a = $2 AND (b = $3 OR c = $4)", f.SQL())
	assert.Equal(t, []any{int64(7), "x", 1, 2}, f.Args())
}

func TestFilterEmpty(t *testing.T) {
	f := NewFilter()
	assert.True(t, f.Empty())
	assert.Empty(t, f.And())
	assert.Empty(t, f.SQL())
	assert.Empty(t, f.Args())
}

func TestFilterClauseWithoutMarkers(t *testing.T) {
	f := NewFilter().Where("r.current_status = 'UNDER_REVIEW'")
	assert.Equal(t, " WHERE r.current_status = 'UNDER_REVIEW'", f.SQL())
	assert.Empty(t, f.Args())
}

func TestContainsEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%permit%", Contains("permit"))
	assert.Equal(t, `%50\%\_off%`, Contains("50%_off"))
}

func TestApplyCitizenFilter(t *testing.T) {
	cases := []struct {
		name   string
		filter models.CitizenFilter
		sql    string
		args   []any
	}{
		{name: "all", filter: models.CitizenFilter{Status: "All"}, sql: "", args: []any{int64(1)}},
		{name: "processing", filter: models.CitizenFilter{Status: "PROCESSING"}, sql: " AND r.current_status = 'UNDER_REVIEW'", args: []any{int64(1)}},
		{name: "completed", filter: models.CitizenFilter{Status: "completed"}, sql: " AND r.current_status IN ('APPROVED', 'REJECTED')", args: []any{int64(1)}},
		{
			name:   "raw status",
			filter: models.CitizenFilter{Status: "SUCCESS"},
			sql:    " AND (r.current_status = $2 OR p.status = $3)",
			args:   []any{int64(1), "SUCCESS", "SUCCESS"},
		},
		{
			name:   "search",
			filter: models.CitizenFilter{Search: " water "},
			sql:    " AND (s.name ILIKE $2 OR d.name ILIKE $3)",
			args:   []any{int64(1), "%water%", "%water%"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilter(int64(1))
			applyCitizenFilter(f, tc.filter)
			assert.Equal(t, tc.sql, f.And())
			assert.Equal(t, tc.args, f.Args())
		})
	}
}

func TestApplyStaffFilter(t *testing.T) {
	serviceID := int64(4)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f := NewFilter(int64(9))
	applyStaffFilter(f, models.RequestFilter{
		Name:      "ann",
		RequestID: "12",
		Status:    "approved",
		ServiceID: &serviceID,
		Date:      &date,
	})

	assert.Equal(t,
		" AND u.full_name ILIKE $2 AND CAST(r.id AS TEXT) LIKE $3 AND r.current_status = $4 AND s.id = $5 AND r.submitted_at::date = $6",
		f.And())
	assert.Equal(t, []any{int64(9), "%ann%", "%12%", "APPROVED", int64(4), date}, f.Args())
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})), models.ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	sentinel := errors.New("insert failed")
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	assert.Panics(t, func() {
		_ = WithTx(context.Background(), b, func(pgx.Tx) error { panic("boom") })
	})
	assert.True(t, b.tx.rolledBack)
}

func TestWithTxBeginFailure(t *testing.T) {
	b := &fakeBeginner{err: errors.New("pool closed")}
	called := false
	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestWithTxCommitFailureRollsBack(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("serialization failure")}}
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return nil })
	assert.ErrorContains(t, err, "commit transaction")
	assert.True(t, b.tx.rolledBack)
}
