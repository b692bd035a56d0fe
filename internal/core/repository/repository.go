package repository

import (
	"errors"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/models"
)

var (
	ErrCashierNotFound  = errors.New("cashier not found")
	ErrNegativeQuantity = errors.New("denomination quantity would become negative")
)

// Sign selects whether ApplyDelta adds or subtracts quantities.
type Sign int

const (
	Credit Sign = 1
	Debit  Sign = -1
)

// CashierRepository owns the ledger. It performs no locking: callers must
// hold the (cashier, currency) lock before ApplyDelta, Holdings or
// SnapshotCurrency on that key.
type CashierRepository interface {
	Exists(name string) bool
	Names() []string
	Get(name string) (models.CashierBalance, error)
	Holdings(name string, currency models.Currency) (map[int]int64, error)
	ApplyDelta(name string, currency models.Currency, deltas []models.DenominationDelta, sign Sign, at time.Time) (models.CurrencyBalance, error)
	SnapshotCurrency(name string, currency models.Currency) (models.CurrencyBalance, error)
}
