// Package lock hands out one exclusive lock per (cashier, currency).
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/models"
	"golang.org/x/sync/semaphore"
)

var ErrTimeout = errors.New("lock acquisition timed out")

type Key struct {
	Cashier  string
	Currency models.Currency
}

func (k Key) String() string {
	return k.Cashier + "|" + string(k.Currency)
}

// Manager keeps a never-shrinking table of locks, one per Key. Locks are
// weighted semaphores of size one, so waiters are served in FIFO order.
type Manager struct {
	locks sync.Map
	size  atomic.Int64
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) get(key Key) *semaphore.Weighted {
	if sem, ok := m.locks.Load(key); ok {
		return sem.(*semaphore.Weighted)
	}
	sem, loaded := m.locks.LoadOrStore(key, semaphore.NewWeighted(1))
	if !loaded {
		m.size.Add(1)
	}
	return sem.(*semaphore.Weighted)
}

// Acquire waits at most timeout for the key's lock. A non-positive timeout
// only bounds the wait by ctx.
func (m *Manager) Acquire(ctx context.Context, key Key, timeout time.Duration) (*Handle, error) {
	sem := m.get(key)

	if sem.TryAcquire(1) {
		return &Handle{sem: sem}, nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, key, err)
	}
	return &Handle{sem: sem}, nil
}

// Size is the number of keys that have a lock.
func (m *Manager) Size() int {
	return int(m.size.Load())
}

type Handle struct {
	sem  *semaphore.Weighted
	once sync.Once
}

// Release is safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(func() { h.sem.Release(1) })
}
