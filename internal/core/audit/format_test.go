package audit_test

import (
	"testing"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/audit"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionLine(t *testing.T) {
	id := uuid.MustParse("6f1c1e9a-0d3b-4a39-9d0c-3b5b8f7e2a10")
	rec := models.OperationRecord{
		ID:            id,
		OperationType: models.OperationDeposit,
		CashierName:   "LINDA",
		Currency:      models.CurrencyEUR,
		Amount:        decimal.RequireFromString("200"),
		Denominations: []models.DenominationDelta{{FaceValue: 50, Quantity: 2}, {FaceValue: 100, Quantity: 1}},
		Timestamp:     time.Date(2025, 8, 24, 18, 45, 3, 0, time.Local),
	}

	assert.Equal(t,
		"2025-08-24T18:45:03 - DEPOSIT : LINDA OperationRequest{id=6f1c1e9a-0d3b-4a39-9d0c-3b5b8f7e2a10, cashierName='LINDA', currency=EUR, operationType='DEPOSIT', amount=200.00, denominations=2x50, 1x100}\n",
		audit.TransactionLine(rec))
}

func TestBalanceLineSkipsEmptyEntries(t *testing.T) {
	balance := models.CashierBalance{
		Cashier: "PETER",
		Balances: map[models.Currency][]models.Denomination{
			models.CurrencyEUR: {{FaceValue: 10, Quantity: 100}, {FaceValue: 50, Quantity: 0}},
			models.CurrencyBGN: {{FaceValue: 10, Quantity: 50}, {FaceValue: 50, Quantity: 10}},
		},
	}

	assert.Equal(t,
		"2025-08-24T20:38:00 - PETER: {BGN=[50x10, 10x50], EUR=[100x10]}\n",
		audit.BalanceLine(time.Date(2025, 8, 24, 20, 38, 0, 0, time.Local), balance))
}
