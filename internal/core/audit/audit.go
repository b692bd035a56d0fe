// Package audit records committed cash operations and balance snapshots to
// append-only targets. Writes are batched on a background goroutine; callers
// only ever enqueue, and a full queue drops the line instead of blocking.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/models"
)

var (
	ErrLogFailure = errors.New("audit log write failed")
	ErrClosed     = errors.New("audit logger closed")
)

type Stream string

const (
	StreamTransaction Stream = "transaction"
	StreamBalance     Stream = "balance"
)

// Logger is what the operation path and the scheduler see.
type Logger interface {
	LogOperation(rec models.OperationRecord)
	LogBalances(at time.Time, balances []models.CashierBalance)
	Close(ctx context.Context) error
}

// Sink is a durable append-only target for one stream.
type Sink interface {
	Append(ctx context.Context, lines []string) error
	Close() error
}

type QueueConfig struct {
	Capacity  int
	BatchSize int
	Interval  time.Duration
}

type Config struct {
	Transactions QueueConfig
	Balances     QueueConfig
	// WriteTimeout bounds a single Append made by the background flusher.
	WriteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Transactions: QueueConfig{Capacity: 100000, BatchSize: 1000, Interval: 100 * time.Millisecond},
		Balances:     QueueConfig{Capacity: 10000, BatchSize: 100, Interval: 200 * time.Millisecond},
		WriteTimeout: 5 * time.Second,
	}
}

func (q QueueConfig) withDefaults(def QueueConfig) QueueConfig {
	if q.Capacity <= 0 {
		q.Capacity = def.Capacity
	}
	if q.BatchSize <= 0 {
		q.BatchSize = def.BatchSize
	}
	if q.BatchSize > q.Capacity {
		q.BatchSize = q.Capacity
	}
	if q.Interval <= 0 {
		q.Interval = def.Interval
	}
	return q
}
