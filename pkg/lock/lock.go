// Package lock keeps two runs from writing the same target schema at once.
package lock

import (
	"context"
	"errors"
)

var (
	// ErrLockHeld is returned when another run holds the schema.
	ErrLockHeld = errors.New("target schema is locked by another run")
	// ErrLockNotHeld is returned when releasing a lock that expired or was taken over.
	ErrLockNotHeld = errors.New("lock not held")
)

const keyPrefix = "moss:lock:"

// Locker hands out one lock per target schema.
type Locker interface {
	Acquire(ctx context.Context, schema string) (Lock, error)
}

type Lock interface {
	Key() string
	Release(ctx context.Context) error
}

// Key returns the lock key of schema.
func Key(schema string) string {
	return keyPrefix + schema
}
