package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/lock"
	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/repository"
	"github.com/shopspring/decimal"
)

// AllCashiers names the summary when no cashier filter is given.
const AllCashiers = "ALL"

// BalanceFilter narrows a balance query. Zero values mean no bound.
type BalanceFilter struct {
	Cashier string
	From    *time.Time
	To      *time.Time
}

func (f BalanceFilter) hasDateBound() bool {
	return f.From != nil || f.To != nil
}

func (f BalanceFilter) includes(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}

type CurrencySummary struct {
	Cashier string                              `json:"cashier"`
	Date    string                              `json:"date"`
	Totals  map[models.Currency]decimal.Decimal `json:"totals"`
	Total   decimal.Decimal                     `json:"total"`
}

type CashBalanceUsecase interface {
	GetBalances(ctx context.Context, filter BalanceFilter) ([]models.CashierBalance, error)
	Summary(ctx context.Context, filter BalanceFilter) (CurrencySummary, error)
}

type cashBalanceUsecase struct {
	repo        repository.CashierRepository
	locks       *lock.Manager
	log         logger.Logger
	lockTimeout time.Duration
	now         func() time.Time
}

func NewCashBalanceUsecase(repo repository.CashierRepository, locks *lock.Manager, log logger.Logger, lockTimeout time.Duration) CashBalanceUsecase {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &cashBalanceUsecase{
		repo:        repo,
		locks:       locks,
		log:         log,
		lockTimeout: lockTimeout,
		now:         time.Now,
	}
}

func (uc *cashBalanceUsecase) GetBalances(ctx context.Context, filter BalanceFilter) ([]models.CashierBalance, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, &RequestError{
			Kind:   ErrInvalidDateRange,
			Reason: "Invalid request. DateFrom must not be after dateTo.",
		}
	}

	names := uc.matchingCashiers(filter.Cashier)
	at := uc.now()
	result := make([]models.CashierBalance, 0, len(names))
	for _, name := range names {
		balance, err := uc.cashierBalance(ctx, name, filter, at)
		if err != nil {
			uc.log.Error("Failed to read cashier balance",
				logger.StringField("cashier", name),
				logger.ErrorField("error", err))
			return nil, err
		}
		result = append(result, balance)
	}

	uc.log.Debug("Balances read",
		logger.StringField("cashier", filter.Cashier),
		logger.IntField("cashiers", len(result)))
	return result, nil
}

func (uc *cashBalanceUsecase) matchingCashiers(cashier string) []string {
	names := uc.repo.Names()
	sort.Strings(names)
	if strings.TrimSpace(cashier) == "" {
		return names
	}
	for _, name := range names {
		if strings.EqualFold(name, cashier) {
			return []string{name}
		}
	}
	return nil
}

// cashierBalance copies each currency under its own lock, so every
// per-currency copy is consistent but the currencies may be taken at
// slightly different instants.
func (uc *cashBalanceUsecase) cashierBalance(ctx context.Context, name string, filter BalanceFilter, at time.Time) (models.CashierBalance, error) {
	balance := models.CashierBalance{
		Timestamp: at,
		Cashier:   name,
		Balances:  make(map[models.Currency][]models.Denomination),
	}

	for _, currency := range models.Currencies {
		snapshot, err := uc.snapshot(ctx, name, currency)
		if err != nil {
			return models.CashierBalance{}, err
		}

		denominations := snapshot.Denominations
		if filter.hasDateBound() {
			kept := denominations[:0]
			for _, d := range denominations {
				if filter.includes(d.LastUpdated) {
					kept = append(kept, d)
				}
			}
			denominations = kept
		}
		if len(denominations) == 0 {
			continue
		}
		balance.Balances[currency] = denominations
	}
	return balance, nil
}

func (uc *cashBalanceUsecase) snapshot(ctx context.Context, name string, currency models.Currency) (models.CurrencyBalance, error) {
	key := lock.Key{Cashier: name, Currency: currency}
	handle, err := uc.locks.Acquire(ctx, key, uc.lockTimeout)
	if err != nil {
		return models.CurrencyBalance{}, fmt.Errorf("%w: balance read %s: %v", ErrOperationTimedOut, key, err)
	}
	defer handle.Release()

	snapshot, err := uc.repo.SnapshotCurrency(name, currency)
	if err != nil {
		return models.CurrencyBalance{}, fmt.Errorf("snapshot %s: %w", key, err)
	}
	return snapshot, nil
}

func (uc *cashBalanceUsecase) Summary(ctx context.Context, filter BalanceFilter) (CurrencySummary, error) {
	balances, err := uc.GetBalances(ctx, filter)
	if err != nil {
		return CurrencySummary{}, err
	}

	summary := CurrencySummary{
		Cashier: AllCashiers,
		Date:    uc.now().Format(time.DateOnly),
		Totals:  make(map[models.Currency]decimal.Decimal),
		Total:   decimal.Zero,
	}
	if strings.TrimSpace(filter.Cashier) != "" {
		summary.Cashier = filter.Cashier
	}

	for _, b := range balances {
		for currency, denominations := range b.Balances {
			total := decimal.NewFromInt(models.CurrencyBalance{Denominations: denominations}.Total())
			summary.Totals[currency] = summary.Totals[currency].Add(total)
			summary.Total = summary.Total.Add(total)
		}
	}
	return summary, nil
}
