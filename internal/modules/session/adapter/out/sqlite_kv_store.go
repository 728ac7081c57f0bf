package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sessionout "cadence/internal/modules/session/port/out"
	"cadence/internal/platform/clock"

	_ "modernc.org/sqlite"
)

type SQLiteKVStore struct {
	db    *sql.DB
	clock clock.Clock
}

func NewSQLiteKVStore(dbPath string, clk clock.Clock) (sessionout.KVStore, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	store := &SQLiteKVStore{db: db, clock: clk}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func openSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func (s *SQLiteKVStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

// sqlRunner is satisfied by *sql.DB and by the pinned *sql.Conn used inside
// Transact.
type sqlRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	return sqliteKV{run: s.db, clock: s.clock}.Get(ctx, key)
}

func (s *SQLiteKVStore) Set(ctx context.Context, key, value string) error {
	return sqliteKV{run: s.db, clock: s.clock}.Set(ctx, key, value)
}

func (s *SQLiteKVStore) Remove(ctx context.Context, key string) error {
	return sqliteKV{run: s.db, clock: s.clock}.Remove(ctx, key)
}

// Transact runs fn inside BEGIN IMMEDIATE, which takes the database write
// lock up front so a concurrent writer in another process waits on
// busy_timeout instead of interleaving.
func (s *SQLiteKVStore) Transact(ctx context.Context, fn func(tx sessionout.KVStore) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(sqliteKV{run: conn, clock: s.clock}); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`)
		return err
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteKV struct {
	run   sqlRunner
	clock clock.Clock
}

func (k sqliteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := k.run.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (k sqliteKV) Set(ctx context.Context, key, value string) error {
	const stmt = `
INSERT INTO kv (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value=excluded.value,
  updated_at=excluded.updated_at;
`
	if _, err := k.run.ExecContext(ctx, stmt, key, value, k.clock.Now().UTC().Format("2006-01-02T15:04:05Z07:00")); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (k sqliteKV) Remove(ctx context.Context, key string) error {
	if _, err := k.run.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKVStore) Close() error {
	return s.db.Close()
}
