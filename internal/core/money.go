// Package core provides price parsing and handling utilities.
//
// Prices arrive as JSON numbers, spreadsheet-formatted strings ("€ 1.234,50")
// or garbage. Coercion never fails loudly: a value that cannot be read is
// reported as non-numeric and contributes 0 to revenue totals.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParsePrice coerces a cell to a Price.
//
// Examples:
//
//	ParsePrice(12.5)        -> {Amount: 12.5, Numeric: true}
//	ParsePrice("12,50")     -> {Amount: 12.5, Numeric: true}
//	ParsePrice("€ 1.234,5") -> {Amount: 1234.5, Numeric: true}
//	ParsePrice("n.v.t.")    -> {Amount: 0, Numeric: false, Present: true}
//	ParsePrice(nil)         -> {Present: false}
func ParsePrice(v any) Price {
	switch t := v.(type) {
	case nil:
		return Price{}
	case float64:
		return numericPrice(t, strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return numericPrice(float64(t), strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return numericPrice(float64(t), strconv.Itoa(t))
	case int64:
		return numericPrice(float64(t), strconv.FormatInt(t, 10))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return numericPrice(f, t.String())
		}
		return Price{Raw: t.String(), Present: true}
	case string:
		raw := strings.TrimSpace(t)
		if raw == "" {
			return Price{}
		}
		if f, ok := ParseAmount(raw); ok {
			return Price{Amount: f, Raw: raw, Present: true, Numeric: true}
		}
		return Price{Raw: raw, Present: true}
	default:
		raw := TextValue(t)
		if raw == "" {
			return Price{}
		}
		if f, ok := ParseAmount(raw); ok {
			return Price{Amount: f, Raw: raw, Present: true, Numeric: true}
		}
		return Price{Raw: raw, Present: true}
	}
}

func numericPrice(f float64, raw string) Price {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Price{Raw: raw, Present: true}
	}
	return Price{Amount: f, Raw: raw, Present: true, Numeric: true}
}

// ParseAmount reads a decimal amount written with either separator
// convention. When both '.' and ',' occur, the last one is the decimal
// separator and the other groups thousands.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, false
	}
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Value returns the amount that counts towards revenue.
func (p Price) Value() float64 {
	if !p.Numeric {
		return 0
	}
	return p.Amount
}
