package sqlitepool

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func openTest(t *testing.T, onConnect func(*sqlite.Conn) error) *Pool {
	t.Helper()
	pool, err := Open(Config{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		PoolSize:  2,
		OnConnect: onConnect,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestOpenAppliesPragmas(t *testing.T) {
	pool := openTest(t, nil)

	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		var mode string
		err := sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				mode = stmt.ColumnText(0)
				return nil
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "wal", mode)
		return nil
	})
	require.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOnConnectSchema(t *testing.T) {
	pool := openTest(t, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`, nil)
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := pool.With(ctx, func(conn *sqlite.Conn) error {
				return sqlitex.Execute(conn, "INSERT OR REPLACE INTO kv (k, v) VALUES (?, ?)", &sqlitex.ExecOptions{
					Args: []any{"key", i},
				})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var count int
	err := pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT count(*) FROM kv", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOnConnectError(t *testing.T) {
	pool := openTest(t, func(*sqlite.Conn) error { return errors.New("boom") })

	conn, err := pool.Take(context.Background())
	assert.Error(t, err)
	assert.Nil(t, conn)
}
