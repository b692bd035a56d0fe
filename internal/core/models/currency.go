package models

import (
	"encoding/json"
	"strings"
)

// Currency is the closed set of currencies a cashier can hold.
type Currency string

const (
	CurrencyBGN Currency = "BGN"
	CurrencyEUR Currency = "EUR"
	// CurrencyUnknown is what any unrecognised input decodes to, so that
	// validation can reject it with a business error instead of a decode error.
	CurrencyUnknown Currency = "UNKNOWN"
)

// Currencies lists every supported currency in a stable order.
var Currencies = []Currency{CurrencyBGN, CurrencyEUR}

func ParseCurrency(s string) Currency {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyBGN:
		return CurrencyBGN
	case CurrencyEUR:
		return CurrencyEUR
	default:
		return CurrencyUnknown
	}
}

func (c Currency) Valid() bool {
	return c == CurrencyBGN || c == CurrencyEUR
}

func (c Currency) String() string {
	return string(c)
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*c = CurrencyUnknown
		return nil
	}
	*c = ParseCurrency(raw)
	return nil
}
