package models

import (
	"sort"
	"strings"
	"time"
)

// CurrencyBalance is a copy of one cashier's inventory in one currency.
type CurrencyBalance struct {
	Cashier       string         `json:"cashier"`
	Currency      Currency       `json:"currency"`
	Denominations []Denomination `json:"denominations"`
}

func (b CurrencyBalance) Total() int64 {
	var total int64
	for _, d := range b.Denominations {
		total += d.TotalAmount()
	}
	return total
}

// Quantity returns the quantity held of faceValue, zero when absent.
func (b CurrencyBalance) Quantity(faceValue int) int64 {
	for _, d := range b.Denominations {
		if d.FaceValue == faceValue {
			return d.Quantity
		}
	}
	return 0
}

// CashierBalance is a point-in-time copy of all of a cashier's inventories.
type CashierBalance struct {
	Timestamp time.Time                   `json:"-"`
	Cashier   string                      `json:"cashier"`
	Balances  map[Currency][]Denomination `json:"balances"`
}

// Quantity returns the quantity held of faceValue in currency, zero when absent.
func (b CashierBalance) Quantity(currency Currency, faceValue int) int64 {
	return CurrencyBalance{Denominations: b.Balances[currency]}.Quantity(faceValue)
}

// NonZeroString renders the balances as {BGN=[50x10, 10x50], EUR=[...]},
// skipping empty entries.
func (b CashierBalance) NonZeroString() string {
	currencies := make([]string, 0, len(b.Balances))
	for c := range b.Balances {
		currencies = append(currencies, string(c))
	}
	sort.Strings(currencies)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range currencies {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c)
		sb.WriteString("=[")
		written := 0
		for _, d := range b.Balances[Currency(c)] {
			if d.Quantity == 0 {
				continue
			}
			if written > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.String())
			written++
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('}')
	return sb.String()
}
