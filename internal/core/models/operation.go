package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationType определяет тип кассовой операции
type OperationType string

const (
	OperationDeposit    OperationType = "DEPOSIT"
	OperationWithdrawal OperationType = "WITHDRAWAL"
)

func ParseOperationType(s string) OperationType {
	return OperationType(strings.ToUpper(strings.TrimSpace(s)))
}

func (t OperationType) Valid() bool {
	return t == OperationDeposit || t == OperationWithdrawal
}

// MinOperationAmount is the smallest amount a single operation may move.
var MinOperationAmount = decimal.NewFromInt(10)

// OperationRequest is a deposit or withdrawal against one cashier's
// inventory in one currency.
type OperationRequest struct {
	CashierName   string
	Currency      Currency
	OperationType OperationType
	Amount        decimal.Decimal
	Denominations []DenominationDelta
}

func (r OperationRequest) String() string {
	return fmt.Sprintf("OperationRequest{cashierName='%s', currency=%s, operationType='%s', amount=%s, denominations=%s}",
		r.CashierName, r.Currency, r.OperationType, r.Amount.StringFixed(2), joinDeltas(r.Denominations))
}

// OperationRecord describes a committed operation and the inventory it left behind.
type OperationRecord struct {
	ID            uuid.UUID
	OperationType OperationType
	CashierName   string
	Currency      Currency
	Amount        decimal.Decimal
	Denominations []DenominationDelta
	Timestamp     time.Time
	Balance       CurrencyBalance
}

func (r OperationRecord) String() string {
	return fmt.Sprintf("OperationRequest{id=%s, cashierName='%s', currency=%s, operationType='%s', amount=%s, denominations=%s}",
		r.ID, r.CashierName, r.Currency, r.OperationType, r.Amount.StringFixed(2), joinDeltas(r.Denominations))
}
