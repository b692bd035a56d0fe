package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout used on the wire and in audit lines.
const TimestampLayout = "2006-01-02T15:04:05"

// AllowedFaceValues are the banknote values accepted for every currency.
var AllowedFaceValues = []int{5, 10, 20, 50, 100}

func IsAllowedFaceValue(v int) bool {
	for _, allowed := range AllowedFaceValues {
		if v == allowed {
			return true
		}
	}
	return false
}

// Denomination is one inventory entry: Quantity banknotes of FaceValue.
type Denomination struct {
	FaceValue   int       `json:"value"`
	Quantity    int64     `json:"quantity"`
	LastUpdated time.Time `json:"timestamp"`
}

// TotalAmount is always derived from the pair, never stored.
func (d Denomination) TotalAmount() int64 {
	return int64(d.FaceValue) * d.Quantity
}

func (d Denomination) String() string {
	return fmt.Sprintf("%dx%d", d.Quantity, d.FaceValue)
}

func (d Denomination) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Quantity    int64  `json:"quantity"`
		Value       int    `json:"value"`
		TotalAmount int64  `json:"totalAmount"`
		Timestamp   string `json:"timestamp"`
	}{
		Quantity:    d.Quantity,
		Value:       d.FaceValue,
		TotalAmount: d.TotalAmount(),
		Timestamp:   d.LastUpdated.Format(TimestampLayout),
	})
}

// DenominationDelta is a requested change of Quantity banknotes of FaceValue.
type DenominationDelta struct {
	FaceValue int   `json:"value"`
	Quantity  int64 `json:"quantity"`
}

func (d DenominationDelta) String() string {
	return fmt.Sprintf("%dx%d", d.Quantity, d.FaceValue)
}

// SumDeltas returns Σ faceValue*quantity.
func SumDeltas(deltas []DenominationDelta) int64 {
	var sum int64
	for _, d := range deltas {
		sum += int64(d.FaceValue) * d.Quantity
	}
	return sum
}

// MergeDeltas folds repeated face values into one delta each, ordered by face value.
func MergeDeltas(deltas []DenominationDelta) []DenominationDelta {
	byValue := make(map[int]int64, len(deltas))
	for _, d := range deltas {
		byValue[d.FaceValue] += d.Quantity
	}

	merged := make([]DenominationDelta, 0, len(byValue))
	for value, qty := range byValue {
		merged = append(merged, DenominationDelta{FaceValue: value, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].FaceValue < merged[j].FaceValue })
	return merged
}

func joinDeltas(deltas []DenominationDelta) string {
	parts := make([]string, len(deltas))
	for i, d := range deltas {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
