package out

import (
	"context"

	"cadence/internal/modules/session/domain"
)

// KVStore is the persistence medium. Get reports ok=false for absent keys.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Transactor is implemented by stores that other processes may share.
// Transact runs fn under one exclusive lock; fn must read and write through
// tx, and fn's error is returned as is.
type Transactor interface {
	Transact(ctx context.Context, fn func(tx KVStore) error) error
}

// SessionIndex is a queryable projection of completed sessions.
type SessionIndex interface {
	Reset(ctx context.Context) error
	UpsertSession(ctx context.Context, session domain.Session) error
	Stats(ctx context.Context) (domain.Stats, error)
}

// SessionExporter renders a completed session somewhere outside the store.
type SessionExporter interface {
	Export(ctx context.Context, dir string, session domain.Session) (string, error)
}
