package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_Begin_SetsLockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '2500ms'")).
		WillReturnResult(pgxmock.NewResult("SET", 0))
	mock.ExpectCommit()

	tx, err := NewTransactor(mock, 2500*time.Millisecond).Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin_NoTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := NewTransactor(mock, 0).Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_Begin_SetFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET LOCAL lock_timeout").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	tx, err := NewTransactor(mock, time.Second).Begin(context.Background())
	assert.Nil(t, tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set lock timeout")
	assert.NoError(t, mock.ExpectationsWereMet(), "the half-open transaction is rolled back")
}

func TestTransactor_Begin_PoolError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err = NewTransactor(mock, time.Second).Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin treasury tx")
}
