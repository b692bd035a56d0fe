package usecase

import (
	"errors"
	"fmt"
)

// Определение ошибок сервиса
var (
	ErrCashierNotFound          = errors.New("cashier not found")
	ErrInvalidRequest           = errors.New("invalid request")
	ErrAmountMismatch           = errors.New("amount does not match denominations sum")
	ErrCurrencyNotSupported     = errors.New("currency not supported for cashier")
	ErrDenominationNotFound     = errors.New("denomination not found")
	ErrInsufficientDenomination = errors.New("insufficient denomination")
	ErrOperationTimedOut        = errors.New("operation timed out waiting for lock")
	ErrAuditLogFailure          = errors.New("audit log failure")
	ErrInvalidDateRange         = errors.New("invalid date range")
)

// RequestError carries the reason a request was rejected before touching
// the ledger. Kind is one of the sentinel errors above.
type RequestError struct {
	Kind   error
	Reason string
}

func (e *RequestError) Error() string {
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

func invalidRequest(format string, args ...interface{}) error {
	return &RequestError{Kind: ErrInvalidRequest, Reason: fmt.Sprintf(format, args...)}
}

// DenominationError reports a withdrawal that the inventory cannot cover.
// Available is zero when Kind is ErrDenominationNotFound.
type DenominationError struct {
	Kind      error
	FaceValue int
	Requested int64
	Available int64
}

func (e *DenominationError) Error() string {
	if errors.Is(e.Kind, ErrDenominationNotFound) {
		return fmt.Sprintf("Denomination %d not found in cashier's balance.", e.FaceValue)
	}
	return fmt.Sprintf("Insufficient denominations: requested %dx%d, but only %dx%d available.",
		e.Requested, e.FaceValue, e.Available, e.FaceValue)
}

func (e *DenominationError) Unwrap() error {
	return e.Kind
}
