package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryLocker locks schemas inside one process. It is used when no Redis is
// configured.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]string{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, schema string) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := Key(schema)
	if _, ok := l.held[key]; ok {
		return nil, ErrLockHeld
	}
	token := uuid.New().String()
	l.held[key] = token
	return &memoryLock{locker: l, key: key, token: token}, nil
}

type memoryLock struct {
	locker *MemoryLocker
	key    string
	token  string
}

func (m *memoryLock) Key() string {
	return m.key
}

func (m *memoryLock) Release(_ context.Context) error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()

	if m.locker.held[m.key] != m.token {
		return ErrLockNotHeld
	}
	delete(m.locker.held, m.key)
	return nil
}
