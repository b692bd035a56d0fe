package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/usecase"
)

// BalanceWriter accepts full balance snapshots for the audit trail.
type BalanceWriter interface {
	LogBalances(at time.Time, balances []models.CashierBalance)
}

// BalanceSnapshotJob writes every cashier's full balance to the audit trail.
type BalanceSnapshotJob struct {
	balances usecase.CashBalanceUsecase
	audit    BalanceWriter
	timeout  time.Duration
	now      func() time.Time
}

func NewBalanceSnapshotJob(balances usecase.CashBalanceUsecase, audit BalanceWriter, timeout time.Duration) *BalanceSnapshotJob {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BalanceSnapshotJob{
		balances: balances,
		audit:    audit,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (j *BalanceSnapshotJob) Name() string {
	return "balance_snapshot"
}

func (j *BalanceSnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	balances, err := j.balances.GetBalances(ctx, usecase.BalanceFilter{})
	if err != nil {
		return fmt.Errorf("read balances: %w", err)
	}
	j.audit.LogBalances(j.now(), balances)
	return nil
}
