package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/lock"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lindaEUR = lock.Key{Cashier: "LINDA", Currency: models.CurrencyEUR}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	m := lock.NewManager()
	ctx := context.Background()

	h, err := m.Acquire(ctx, lindaEUR, time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Acquire(ctx, lindaEUR, 50*time.Millisecond)
	assert.ErrorIs(t, err, lock.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	h.Release()
	h.Release()

	h2, err := m.Acquire(ctx, lindaEUR, 50*time.Millisecond)
	require.NoError(t, err)
	h2.Release()
}

func TestDisjointKeysDoNotBlock(t *testing.T) {
	m := lock.NewManager()
	ctx := context.Background()

	held, err := m.Acquire(ctx, lindaEUR, time.Second)
	require.NoError(t, err)
	defer held.Release()

	for _, key := range []lock.Key{
		{Cashier: "LINDA", Currency: models.CurrencyBGN},
		{Cashier: "PETER", Currency: models.CurrencyEUR},
	} {
		h, err := m.Acquire(ctx, key, 10*time.Millisecond)
		require.NoError(t, err, key.String())
		h.Release()
	}
	assert.Equal(t, 3, m.Size())
}

func TestConcurrentCreatorsShareOneLock(t *testing.T) {
	m := lock.NewManager()
	const workers = 64

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			h, err := m.Acquire(context.Background(), lindaEUR, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			h.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 1, maxSeen)
}

func TestWaitersAreServedInOrder(t *testing.T) {
	m := lock.NewManager()
	ctx := context.Background()

	first, err := m.Acquire(ctx, lindaEUR, time.Second)
	require.NoError(t, err)

	const waiters = 5
	order := make(chan int, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.Acquire(ctx, lindaEUR, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			order <- i
			h.Release()
		}(i)
		// let waiter i queue up before i+1
		time.Sleep(20 * time.Millisecond)
	}

	first.Release()
	wg.Wait()
	close(order)

	var got []int
	for i := range order {
		got = append(got, i)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestAcquireHonoursCancelledContext(t *testing.T) {
	m := lock.NewManager()
	held, err := m.Acquire(context.Background(), lindaEUR, time.Second)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Acquire(ctx, lindaEUR, time.Second)
	assert.ErrorIs(t, err, lock.ErrTimeout)
}
