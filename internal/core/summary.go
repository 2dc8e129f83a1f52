package core

import (
	"strconv"
	"strings"
)

// GroupKey is a tuple of field values. Grouping compares tuples; the
// display string is only produced when result rows are built.
type GroupKey []string

// Key builds a GroupKey from its parts.
func Key(parts ...string) GroupKey {
	return GroupKey(parts)
}

// ID encodes the tuple unambiguously (length-prefixed parts), so that
// ("a - b", "c") and ("a", "b - c") never collide.
func (k GroupKey) ID() string {
	var b strings.Builder
	for _, p := range k {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// Dash renders "a - b - c".
func (k GroupKey) Dash() string {
	return strings.Join(k, " - ")
}

// Labelled renders the last part in parentheses: "a (b)", "a - b (c)".
func (k GroupKey) Labelled() string {
	if len(k) < 2 {
		return k.Dash()
	}
	return k[:len(k)-1].Dash() + " (" + k[len(k)-1] + ")"
}

// Count is a {name, value} pair as consumed by bar and pie charts.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Revenue is the turnover of one product/color/kind combination.
type Revenue struct {
	Name   string  `json:"name"`
	Omzet  float64 `json:"omzet"`
	Aantal int     `json:"aantal"`
}

// TypeCount is the number of sales of one product kind.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ConversionItem relates samples to subsequent sales of one name/color.
type ConversionItem struct {
	Name           string      `json:"name"`
	Samples        int         `json:"samples"`
	Sales          int         `json:"sales"`
	ConversionRate float64     `json:"conversionRate"`
	SalesByType    []TypeCount `json:"salesByType"`
}

// SalesDetails renders SalesByType as "type: n | type: m".
func (c ConversionItem) SalesDetails() string {
	parts := make([]string, 0, len(c.SalesByType))
	for _, tc := range c.SalesByType {
		parts = append(parts, tc.Type+": "+strconv.Itoa(tc.Count))
	}
	return strings.Join(parts, " | ")
}

// ConversionSummary holds the KPI cards of the samples dashboard.
type ConversionSummary struct {
	TotalSamples int     `json:"totalSamples"`
	TotalSales   int     `json:"totalSales"`
	AverageRate  float64 `json:"averageConversionRate"`
	BestSample   string  `json:"bestSample,omitempty"`
	HasBest      bool    `json:"hasBest"`
}

// MonthRevenue is the turnover of one calendar month.
type MonthRevenue struct {
	Month      string  `json:"name"`
	MonthIndex int     `json:"month"`
	Omzet      float64 `json:"omzet"`
}

// LatLng is a map coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CityMarker is a city with known coordinates and its sales count.
type CityMarker struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	LatLng
}
