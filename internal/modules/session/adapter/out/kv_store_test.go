package out_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	sessionout "cadence/internal/modules/session/adapter/out"
	sessionport "cadence/internal/modules/session/port/out"
	"cadence/internal/platform/clock"
)

func kvStores(t *testing.T) map[string]sessionport.KVStore {
	t.Helper()
	sqliteStore, err := sessionout.NewSQLiteKVStore(filepath.Join(t.TempDir(), "kv.db"), clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return map[string]sessionport.KVStore{
		"memory": sessionout.NewMemoryKVStore(),
		"file":   sessionout.NewFileKVStore(filepath.Join(t.TempDir(), "store")),
		"sqlite": sqliteStore,
	}
}

func TestKVStoreContract(t *testing.T) {
	t.Parallel()
	for name, store := range kvStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := store.Get(ctx, "sessions"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}
			if err := store.Set(ctx, "sessions", `[]`); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := store.Set(ctx, "sessions", `[{"id":"1"}]`); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			value, ok, err := store.Get(ctx, "sessions")
			if err != nil || !ok || value != `[{"id":"1"}]` {
				t.Fatalf("get after overwrite: %q ok=%v err=%v", value, ok, err)
			}
			if err := store.Remove(ctx, "sessions"); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := store.Remove(ctx, "sessions"); err != nil {
				t.Fatalf("remove missing: %v", err)
			}
			if _, ok, _ := store.Get(ctx, "sessions"); ok {
				t.Fatalf("expected key removed")
			}
		})
	}
}

func TestKVStoreHonorsCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, store := range []sessionport.KVStore{
		sessionout.NewMemoryKVStore(),
		sessionout.NewFileKVStore(t.TempDir()),
	} {
		if err := store.Set(ctx, "k", "v"); err == nil {
			t.Fatalf("expected cancelled set to fail")
		}
	}
}

func TestFileKVStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := sessionout.NewFileKVStore(dir)
	if err := store.Set(context.Background(), "current-session", `{"id":"1"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
	if _, err := os.Stat(filepath.Join(dir, "current-session.json")); err != nil {
		t.Fatalf("expected value file: %v", err)
	}
}

func TestSQLiteKVStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.db")
	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	first, err := sessionout.NewSQLiteKVStore(path, clk)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Set(ctx, "sessions", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	second, err := sessionout.NewSQLiteKVStore(path, clk)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if value, ok, err := second.Get(ctx, "sessions"); err != nil || !ok || value != "[]" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestFileKVStoreKeepsDistinctKeysApart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := sessionout.NewFileKVStore(t.TempDir())
	if err := store.Set(ctx, "a b", "spaced"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "a-b", "dashed"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "../escape", "contained"); err != nil {
		t.Fatalf("set: %v", err)
	}
	for key, want := range map[string]string{"a b": "spaced", "a-b": "dashed", "../escape": "contained"} {
		if got, ok, err := store.Get(ctx, key); err != nil || !ok || got != want {
			t.Fatalf("key %q: got %q ok=%v err=%v", key, got, ok, err)
		}
	}
}

func TestKVStoreTransact(t *testing.T) {
	t.Parallel()
	errAbort := errors.New("abort")
	for name, store := range kvStores(t) {
		tx, ok := store.(sessionport.Transactor)
		if !ok {
			continue
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := tx.Transact(ctx, func(kv sessionport.KVStore) error {
				if err := kv.Set(ctx, "sessions", "[1]"); err != nil {
					return err
				}
				if value, ok, err := kv.Get(ctx, "sessions"); err != nil || !ok || value != "[1]" {
					t.Fatalf("read inside transaction: %q ok=%v err=%v", value, ok, err)
				}
				return kv.Remove(ctx, "current-session")
			})
			if err != nil {
				t.Fatalf("transact: %v", err)
			}
			if value, _, _ := store.Get(ctx, "sessions"); value != "[1]" {
				t.Fatalf("expected committed value, got %q", value)
			}

			err = tx.Transact(ctx, func(kv sessionport.KVStore) error {
				return errAbort
			})
			if !errors.Is(err, errAbort) {
				t.Fatalf("expected fn error returned as is, got %v", err)
			}
			if err := store.Set(ctx, "sessions", "[2]"); err != nil {
				t.Fatalf("set after aborted transaction: %v", err)
			}
		})
	}
}

func TestSQLiteTransactRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := sessionout.NewSQLiteKVStore(filepath.Join(t.TempDir(), "kv.db"), clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tx := store.(sessionport.Transactor)
	_ = tx.Transact(ctx, func(kv sessionport.KVStore) error {
		if err := kv.Set(ctx, "sessions", "[1]"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if _, ok, err := store.Get(ctx, "sessions"); err != nil || ok {
		t.Fatalf("expected rolled back write, got ok=%v err=%v", ok, err)
	}
}
