package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/lock"
	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/repository/memory"
	"github.com/Nzyazin/cashdesk/internal/core/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNopLogger())
	err := s.AddJob("every now and then", &countingJob{})
	assert.Error(t, err)
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(logger.NewNopLogger())
	job := &countingJob{err: errors.New("failures are logged, not fatal")}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestRunNowReturnsJobError(t *testing.T) {
	s := New(logger.NewNopLogger())
	job := &countingJob{err: errors.New("boom")}

	assert.EqualError(t, s.RunNow(job), "boom")
	assert.Equal(t, int32(1), job.runs.Load())
}

type balanceRecorder struct {
	mu    sync.Mutex
	at    time.Time
	lines []models.CashierBalance
}

func (r *balanceRecorder) LogBalances(at time.Time, balances []models.CashierBalance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.at = at
	r.lines = append(r.lines, balances...)
}

func TestBalanceSnapshotJobLogsEveryCashier(t *testing.T) {
	repo, err := memory.NewCashierRepository(memory.DefaultSeed(), logger.NewNopLogger())
	require.NoError(t, err)
	balances := usecase.NewCashBalanceUsecase(repo, lock.NewManager(), logger.NewNopLogger(), time.Second)

	rec := &balanceRecorder{}
	job := NewBalanceSnapshotJob(balances, rec, time.Second)
	fixed := time.Date(2025, 8, 24, 18, 45, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, New(logger.NewNopLogger()).RunNow(job))

	assert.Equal(t, fixed, rec.at)
	require.Len(t, rec.lines, 3)
	assert.Equal(t, "LINDA", rec.lines[0].Cashier)
	assert.Equal(t, int64(20), rec.lines[0].Quantity(models.CurrencyEUR, 50))
}

type failingBalances struct{}

func (failingBalances) GetBalances(context.Context, usecase.BalanceFilter) ([]models.CashierBalance, error) {
	return nil, usecase.ErrOperationTimedOut
}

func (failingBalances) Summary(context.Context, usecase.BalanceFilter) (usecase.CurrencySummary, error) {
	return usecase.CurrencySummary{}, usecase.ErrOperationTimedOut
}

func TestBalanceSnapshotJobPropagatesReadError(t *testing.T) {
	rec := &balanceRecorder{}
	job := NewBalanceSnapshotJob(failingBalances{}, rec, time.Second)

	err := job.Run()
	assert.ErrorIs(t, err, usecase.ErrOperationTimedOut)
	assert.Empty(t, rec.lines)
}
