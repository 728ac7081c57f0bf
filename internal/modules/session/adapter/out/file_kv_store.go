package out

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	sessionout "cadence/internal/modules/session/port/out"
)

const lockFileName = ".lock"

// FileKVStore keeps one file per key under dir. Writes and transactions take
// an exclusive flock on dir/.lock, so processes sharing the directory see
// each other's read-modify-write cycles whole.
type FileKVStore struct {
	dir string
}

func NewFileKVStore(dir string) sessionout.KVStore {
	return &FileKVStore{dir: dir}
}

// Keys are path-escaped so distinct keys never share a file.
func (s *FileKVStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *FileKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	payload, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(payload), true, nil
}

func (s *FileKVStore) Set(ctx context.Context, key, value string) error {
	return s.withLock(ctx, func() error { return s.write(key, value) })
}

func (s *FileKVStore) Remove(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error { return s.remove(key) })
}

func (s *FileKVStore) Transact(ctx context.Context, fn func(tx sessionout.KVStore) error) error {
	return s.withLock(ctx, func() error { return fn(lockedFileKV{s}) })
}

func (s *FileKVStore) write(key, value string) error {
	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, "kv-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (s *FileKVStore) remove(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *FileKVStore) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	fileLock := flock.New(filepath.Join(s.dir, lockFileName))
	if err := fileLock.Lock(); err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	defer fileLock.Unlock()
	return fn()
}

// lockedFileKV is the store as seen from inside Transact, where the lock is
// already held.
type lockedFileKV struct{ s *FileKVStore }

func (t lockedFileKV) Get(ctx context.Context, key string) (string, bool, error) {
	return t.s.Get(ctx, key)
}

func (t lockedFileKV) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.s.write(key, value)
}

func (t lockedFileKV) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.s.remove(key)
}
