package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func notesMigration() Migration {
	return Migration{
		Version:     20260830090000,
		Description: "create notes table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)")
			return err
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE notes")
			return err
		},
	}
}

func TestMigrationRunnerRunAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	migrations := []Migration{notesMigration()}

	require.NoError(t, runner.Run(ctx, migrations))
	_, err := db.ExecContext(ctx, "INSERT INTO notes (id, body) VALUES ('n1', 'hello')")
	require.NoError(t, err)

	require.NoError(t, runner.Rollback(ctx, migrations))
	_, err = db.ExecContext(ctx, "INSERT INTO notes (id, body) VALUES ('n2', 'gone')")
	assert.Error(t, err, "table must be dropped after rollback")

	// the migration record is gone too, so Run reapplies it
	require.NoError(t, runner.Run(ctx, migrations))
	_, err = db.ExecContext(ctx, "INSERT INTO notes (id, body) VALUES ('n3', 'back')")
	require.NoError(t, err)
}

func TestMigrationRunnerRollbackEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	runner := NewMigrationRunner(openTestDB(t))
	assert.NoError(t, runner.Rollback(ctx, []Migration{notesMigration()}))
}

func TestMigrationRunnerRollbackWithoutDown(t *testing.T) {
	ctx := context.Background()
	runner := NewMigrationRunner(openTestDB(t))

	m := notesMigration()
	m.Down = nil
	require.NoError(t, runner.Run(ctx, []Migration{m}))

	err := runner.Rollback(ctx, []Migration{m})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rollback function")
}
