// Package sqlitepool is a fixed-size pool of SQLite connections configured
// for a single-writer, many-reader service database.
package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultPoolSize is used when Config.PoolSize is not positive.
const DefaultPoolSize = 4

// Config configures Open.
type Config struct {
	// Path of the database file. Its parent directory must exist.
	Path string

	PoolSize int

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// OnConnect runs once per connection after the standard pragmas,
	// typically to create the schema. An error discards the connection.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool wraps sqlitex.Pool. Connections are not safe for concurrent use; each
// goroutine takes its own.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA cache_size=-8192",
	"PRAGMA temp_store=MEMORY",
}

// Open creates the pool. Connections are opened lazily on first Take.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = DefaultPoolSize
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: size,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, p := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
			}
			if cfg.OnConnect != nil {
				if err := cfg.OnConnect(conn); err != nil {
					return fmt.Errorf("prepare connection: %w", err)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	log.Info("sqlite pool opened", "path", cfg.Path, "pool_size", size)
	return &Pool{inner: inner, logger: log, path: cfg.Path}, nil
}

// Take borrows a connection, blocking until one is free or ctx is done.
// Every successful Take must be paired with Put.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("take sqlite connection: %w", err)
	}
	return conn, nil
}

// Put returns a connection. nil is ignored.
func (p *Pool) Put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

// With runs fn on a borrowed connection.
func (p *Pool) With(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := p.Take(ctx)
	if err != nil {
		return err
	}
	defer p.Put(conn)
	return fn(conn)
}

// Close waits for borrowed connections to come back, then closes them all.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close failed", "path", p.path, "error", err)
		return fmt.Errorf("close sqlite %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}
