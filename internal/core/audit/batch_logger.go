package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/metrics"
	"github.com/Nzyazin/cashdesk/internal/core/models"
)

type queue struct {
	stream    Stream
	lines     chan string
	signal    chan struct{}
	batchSize int
	interval  time.Duration
	sink      Sink
}

func newQueue(stream Stream, cfg QueueConfig, sink Sink) *queue {
	return &queue{
		stream:    stream,
		lines:     make(chan string, cfg.Capacity),
		signal:    make(chan struct{}, 1),
		batchSize: cfg.BatchSize,
		interval:  cfg.Interval,
		sink:      sink,
	}
}

type Option func(*BatchLogger)

// WithFailureHandler receives every failed batch write, wrapped in ErrLogFailure.
func WithFailureHandler(fn func(error)) Option {
	return func(l *BatchLogger) {
		l.onFailure = fn
	}
}

type BatchLogger struct {
	// mu orders enqueues against Close: enqueues hold it shared, Close takes
	// it exclusively to flip closed, so nothing lands after the final drain.
	mu     sync.RWMutex
	closed bool

	transactions *queue
	balances     *queue

	writeTimeout time.Duration
	log          logger.Logger
	metrics      *metrics.Metrics
	onFailure    func(error)

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewBatchLogger starts the background flusher. Close must be called to
// drain the queues and release the sinks.
func NewBatchLogger(cfg Config, transactionSink, balanceSink Sink, m *metrics.Metrics, log logger.Logger, opts ...Option) *BatchLogger {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if m == nil {
		m = metrics.New(nil)
	}

	l := &BatchLogger{
		transactions: newQueue(StreamTransaction, cfg.Transactions.withDefaults(def.Transactions), transactionSink),
		balances:     newQueue(StreamBalance, cfg.Balances.withDefaults(def.Balances), balanceSink),
		writeTimeout: cfg.WriteTimeout,
		log:          log,
		metrics:      m,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

func (l *BatchLogger) LogOperation(rec models.OperationRecord) {
	l.enqueue(l.transactions, TransactionLine(rec))
	l.enqueue(l.balances, BalanceLine(rec.Timestamp, models.CashierBalance{
		Cashier:  rec.CashierName,
		Balances: map[models.Currency][]models.Denomination{rec.Currency: rec.Balance.Denominations},
	}))
}

func (l *BatchLogger) LogBalances(at time.Time, balances []models.CashierBalance) {
	for _, b := range balances {
		l.enqueue(l.balances, BalanceLine(at, b))
	}
}

func (l *BatchLogger) enqueue(q *queue, line string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.drop(q, ErrClosed)
		return false
	}

	select {
	case q.lines <- line:
	default:
		l.drop(q, errors.New("queue full"))
		return false
	}
	l.metrics.AuditEnqueued.WithLabelValues(string(q.stream)).Inc()

	if len(q.lines) >= q.batchSize {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return true
}

func (l *BatchLogger) drop(q *queue, reason error) {
	l.metrics.AuditDropped.WithLabelValues(string(q.stream)).Inc()
	l.log.Warn("Audit line dropped",
		logger.StringField("stream", string(q.stream)),
		logger.ErrorField("reason", reason))
}

func (l *BatchLogger) run() {
	defer close(l.done)

	txTicker := time.NewTicker(l.transactions.interval)
	defer txTicker.Stop()
	balTicker := time.NewTicker(l.balances.interval)
	defer balTicker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-txTicker.C:
			l.flush(context.Background(), l.transactions)
		case <-l.transactions.signal:
			l.flush(context.Background(), l.transactions)
		case <-balTicker.C:
			l.flush(context.Background(), l.balances)
		case <-l.balances.signal:
			l.flush(context.Background(), l.balances)
		}
	}
}

// flush drains at most one batch from q and appends it in a single write.
// It returns the number of lines taken off the queue.
func (l *BatchLogger) flush(ctx context.Context, q *queue) int {
	n := len(q.lines)
	if n == 0 {
		return 0
	}
	if n > q.batchSize {
		n = q.batchSize
	}

	batch := make([]string, 0, n)
collect:
	for len(batch) < n {
		select {
		case line := <-q.lines:
			batch = append(batch, line)
		default:
			break collect
		}
	}

	writeCtx, cancel := context.WithTimeout(ctx, l.writeTimeout)
	err := q.sink.Append(writeCtx, batch)
	cancel()

	stream := string(q.stream)
	if err != nil {
		failure := fmt.Errorf("%w: %s batch of %d lines: %v", ErrLogFailure, stream, len(batch), err)
		l.metrics.AuditFlushFailures.WithLabelValues(stream).Inc()
		l.metrics.AuditLostLines.WithLabelValues(stream).Add(float64(len(batch)))
		l.log.Error("Failed to write audit batch",
			logger.StringField("stream", stream),
			logger.IntField("lines", len(batch)),
			logger.ErrorField("error", err))
		if l.onFailure != nil {
			l.onFailure(failure)
		}
	} else {
		l.metrics.AuditWrittenLines.WithLabelValues(stream).Add(float64(len(batch)))
	}
	l.metrics.AuditQueueDepth.WithLabelValues(stream).Set(float64(len(q.lines)))

	return len(batch)
}

// Close stops accepting lines, drains both queues to their sinks and closes
// the sinks. It is safe to call more than once; later calls return the first
// result.
func (l *BatchLogger) Close(ctx context.Context) error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()

		close(l.stop)
		<-l.done

		var errs []error
		for _, q := range []*queue{l.transactions, l.balances} {
			drained := 0
			for len(q.lines) > 0 {
				if err := ctx.Err(); err != nil {
					errs = append(errs, fmt.Errorf("drain %s queue: %w", q.stream, err))
					break
				}
				drained += l.flush(ctx, q)
			}
			l.log.Info("Audit queue drained",
				logger.StringField("stream", string(q.stream)),
				logger.IntField("lines", drained))
		}

		if err := l.transactions.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transaction sink: %w", err))
		}
		if l.balances.sink != l.transactions.sink {
			if err := l.balances.sink.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close balance sink: %w", err))
			}
		}
		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}
