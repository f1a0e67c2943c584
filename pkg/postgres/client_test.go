package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE runs (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return db
}

func countRuns(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n))
	return n
}

func TestInTxCommits(t *testing.T) {
	db := openDB(t)
	err := InTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO runs (id) VALUES ('r1')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRuns(t, db))
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")
	err := InTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO runs (id) VALUES ('r1')`); err != nil {
			return err
		}
		return boom
	})
	assert.Same(t, boom, err)
	assert.Equal(t, 0, countRuns(t, db))
}

func TestInTxKeepsCauseWhenRollbackFails(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")
	err := InTx(context.Background(), db, func(tx *sql.Tx) error {
		// The outer rollback then fails with sql.ErrTxDone.
		require.NoError(t, tx.Rollback())
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, sql.ErrTxDone)
	assert.Contains(t, err.Error(), sql.ErrTxDone.Error())
}
