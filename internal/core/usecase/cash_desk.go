package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/lock"
	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/metrics"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxDeltaQuantity bounds a single denomination line so quantity sums stay
// far from int64 overflow.
const MaxDeltaQuantity = 1_000_000

const DefaultLockTimeout = time.Second

type CashDeskUsecase interface {
	PerformOperation(ctx context.Context, req *models.OperationRequest) (models.OperationRecord, error)
}

// OperationLogger receives every committed operation. It must not block.
type OperationLogger interface {
	LogOperation(rec models.OperationRecord)
}

type cashDeskUsecase struct {
	repo        repository.CashierRepository
	locks       *lock.Manager
	audit       OperationLogger
	metrics     *metrics.Metrics
	log         logger.Logger
	lockTimeout time.Duration
	now         func() time.Time

	// beforeMutate runs inside the critical section; tests use it to widen
	// the window in which a concurrent mutation could interleave.
	beforeMutate func(req *models.OperationRequest)
}

func NewCashDeskUsecase(
	repo repository.CashierRepository,
	locks *lock.Manager,
	auditLog OperationLogger,
	m *metrics.Metrics,
	log logger.Logger,
	lockTimeout time.Duration,
) CashDeskUsecase {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &cashDeskUsecase{
		repo:        repo,
		locks:       locks,
		audit:       auditLog,
		metrics:     m,
		log:         log,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

func (uc *cashDeskUsecase) PerformOperation(ctx context.Context, req *models.OperationRequest) (models.OperationRecord, error) {
	if req == nil {
		return models.OperationRecord{}, uc.reject(nil, invalidRequest("Invalid request. Request must be defined."))
	}
	uc.logStart(req)

	if strings.TrimSpace(req.CashierName) == "" {
		return models.OperationRecord{}, uc.reject(req, invalidRequest("Invalid request. Cashier cannot be empty."))
	}

	if !uc.repo.Exists(req.CashierName) {
		return models.OperationRecord{}, uc.reject(req, &RequestError{
			Kind:   ErrCashierNotFound,
			Reason: fmt.Sprintf("Cashier not found with the given input data name : '%s'", req.CashierName),
		})
	}

	if err := checkAmount(req); err != nil {
		return models.OperationRecord{}, uc.reject(req, err)
	}

	deltas, err := validateShape(req)
	if err != nil {
		return models.OperationRecord{}, uc.reject(req, err)
	}

	key := lock.Key{Cashier: req.CashierName, Currency: req.Currency}
	handle, err := uc.locks.Acquire(ctx, key, uc.lockTimeout)
	if err != nil {
		return models.OperationRecord{}, uc.reject(req, fmt.Errorf("%w: %s %s: %v", ErrOperationTimedOut, req.OperationType, key, err))
	}

	at := uc.now()
	balance, err := uc.mutate(handle, req, deltas, at)
	if err != nil {
		return models.OperationRecord{}, uc.reject(req, err)
	}

	rec := models.OperationRecord{
		ID:            uuid.New(),
		OperationType: req.OperationType,
		CashierName:   req.CashierName,
		Currency:      req.Currency,
		Amount:        req.Amount,
		Denominations: deltas,
		Timestamp:     at,
		Balance:       balance,
	}
	uc.audit.LogOperation(rec)
	uc.logSuccess(rec)

	return rec, nil
}

// mutate is the critical section. The handle is released on every return.
func (uc *cashDeskUsecase) mutate(handle *lock.Handle, req *models.OperationRequest, deltas []models.DenominationDelta, at time.Time) (models.CurrencyBalance, error) {
	defer handle.Release()

	if uc.beforeMutate != nil {
		uc.beforeMutate(req)
	}

	switch req.OperationType {
	case models.OperationDeposit:
		return uc.deposit(req, deltas, at)
	case models.OperationWithdrawal:
		return uc.withdraw(req, deltas, at)
	default:
		return models.CurrencyBalance{}, invalidRequest("Invalid operation type %q.", req.OperationType)
	}
}

func (uc *cashDeskUsecase) deposit(req *models.OperationRequest, deltas []models.DenominationDelta, at time.Time) (models.CurrencyBalance, error) {
	balance, err := uc.repo.ApplyDelta(req.CashierName, req.Currency, deltas, repository.Credit, at)
	if err != nil {
		return models.CurrencyBalance{}, fmt.Errorf("apply deposit: %w", err)
	}
	return balance, nil
}

// withdraw checks every delta against the inventory before touching any of
// them, so a rejected withdrawal leaves the ledger as it was.
func (uc *cashDeskUsecase) withdraw(req *models.OperationRequest, deltas []models.DenominationDelta, at time.Time) (models.CurrencyBalance, error) {
	holdings, err := uc.repo.Holdings(req.CashierName, req.Currency)
	if err != nil {
		return models.CurrencyBalance{}, fmt.Errorf("read holdings: %w", err)
	}
	if len(holdings) == 0 {
		return models.CurrencyBalance{}, &RequestError{
			Kind:   ErrCurrencyNotSupported,
			Reason: fmt.Sprintf("Currency %s is not supported for this cashier.", req.Currency),
		}
	}

	for _, d := range deltas {
		available, ok := holdings[d.FaceValue]
		if !ok {
			return models.CurrencyBalance{}, &DenominationError{
				Kind:      ErrDenominationNotFound,
				FaceValue: d.FaceValue,
				Requested: d.Quantity,
			}
		}
		if available < d.Quantity {
			return models.CurrencyBalance{}, &DenominationError{
				Kind:      ErrInsufficientDenomination,
				FaceValue: d.FaceValue,
				Requested: d.Quantity,
				Available: available,
			}
		}
	}

	balance, err := uc.repo.ApplyDelta(req.CashierName, req.Currency, deltas, repository.Debit, at)
	if err != nil {
		return models.CurrencyBalance{}, fmt.Errorf("apply withdrawal: %w", err)
	}
	return balance, nil
}

// checkAmount requires the declared amount to equal the denominations sum
// exactly. The sum is taken in decimal so oversized quantities cannot wrap.
func checkAmount(req *models.OperationRequest) error {
	sum := decimal.Zero
	for _, d := range req.Denominations {
		sum = sum.Add(decimal.NewFromInt(int64(d.FaceValue)).Mul(decimal.NewFromInt(d.Quantity)))
	}
	if !req.Amount.Equal(sum) {
		return &RequestError{
			Kind: ErrAmountMismatch,
			Reason: fmt.Sprintf("Invalid request. Amount %s does not match overall denominations sum %s.",
				req.Amount.StringFixed(2), sum.StringFixed(2)),
		}
	}
	return nil
}

// validateShape returns the deltas merged by face value.
func validateShape(req *models.OperationRequest) ([]models.DenominationDelta, error) {
	if len(req.Denominations) == 0 {
		return nil, invalidRequest("Invalid request. Request must contain at least one valid denomination.")
	}
	if !req.Currency.Valid() {
		return nil, invalidRequest("Invalid request. Currency %q is not supported.", req.Currency)
	}
	if !req.OperationType.Valid() {
		return nil, invalidRequest("Invalid request. Operation type %q is not supported.", req.OperationType)
	}
	if req.Amount.LessThan(models.MinOperationAmount) {
		return nil, invalidRequest("Invalid request. Amount must be at least %s.", models.MinOperationAmount.StringFixed(2))
	}
	for _, d := range req.Denominations {
		if !models.IsAllowedFaceValue(d.FaceValue) {
			return nil, invalidRequest("Denominations only of 5, 10, 20, 50 or 100 %s are allowed, got %d.", req.Currency, d.FaceValue)
		}
		if d.Quantity <= 0 || d.Quantity > MaxDeltaQuantity {
			return nil, invalidRequest("Invalid request. Quantity of %d must be between 1 and %d, got %d.", d.FaceValue, MaxDeltaQuantity, d.Quantity)
		}
	}
	return models.MergeDeltas(req.Denominations), nil
}

func (uc *cashDeskUsecase) logStart(req *models.OperationRequest) {
	uc.log.Info("Starting operation",
		logger.StringField("cashier", req.CashierName),
		logger.StringField("type", string(req.OperationType)),
		logger.StringField("currency", string(req.Currency)),
		logger.StringField("amount", req.Amount.StringFixed(2)))
}

func (uc *cashDeskUsecase) logSuccess(rec models.OperationRecord) {
	uc.metrics.Operations.WithLabelValues(string(rec.OperationType), "success").Inc()
	uc.log.Info("Operation successful",
		logger.StringField("operation_id", rec.ID.String()),
		logger.StringField("cashier", rec.CashierName),
		logger.StringField("type", string(rec.OperationType)),
		logger.StringField("currency", string(rec.Currency)),
		logger.StringField("amount", rec.Amount.StringFixed(2)),
		logger.Int64Field("currency_total", rec.Balance.Total()))
}

func (uc *cashDeskUsecase) reject(req *models.OperationRequest, err error) error {
	operation := "UNKNOWN"
	if req != nil && req.OperationType.Valid() {
		operation = string(req.OperationType)
	}
	result := ResultLabel(err)
	uc.metrics.Operations.WithLabelValues(operation, result).Inc()

	fields := []logger.Field{
		logger.StringField("type", operation),
		logger.StringField("result", result),
		logger.ErrorField("error", err),
	}
	if req != nil {
		fields = append(fields, logger.StringField("cashier", req.CashierName))
	}
	if result == "internal_error" {
		uc.log.Error("Operation failed", fields...)
	} else {
		uc.log.Warn("Operation rejected", fields...)
	}
	return err
}

// ResultLabel names the error kind for metrics and logs.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCashierNotFound):
		return "cashier_not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrCurrencyNotSupported):
		return "currency_not_supported"
	case errors.Is(err, ErrDenominationNotFound):
		return "denomination_not_found"
	case errors.Is(err, ErrInsufficientDenomination):
		return "insufficient_denomination"
	case errors.Is(err, ErrOperationTimedOut):
		return "timed_out"
	default:
		return "internal_error"
	}
}
