package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Columns maps Record fields to the column headers of the source table.
type Columns struct {
	Kind     string
	Name     string
	Color    string
	Size     string
	Customer string
	City     string
	Period   string
	Date     string
	Price    string
}

// DefaultColumns returns the headers used by the 2024 sales export.
func DefaultColumns() Columns {
	return Columns{
		Kind:     "Soort",
		Name:     "Naam",
		Color:    "Kleur",
		Size:     "Afmeting",
		Customer: "Naam Klant",
		City:     "Plaatsnaam",
		Period:   "Maand",
		Date:     "Datum",
		Price:    "Prijs incl. BTW",
	}
}

// RecordFromRow converts one loosely typed row into a Record. Headers are
// matched exactly first and then case-insensitively after trimming.
func RecordFromRow(row map[string]any, cols Columns) Record {
	get := func(header string) any {
		if v, ok := row[header]; ok {
			return v
		}
		for k, v := range row {
			if strings.EqualFold(strings.TrimSpace(k), header) {
				return v
			}
		}
		return nil
	}
	text := func(header string) Field {
		return NewField(TextValue(get(header)))
	}
	return Record{
		Kind:     text(cols.Kind),
		Name:     text(cols.Name),
		Color:    text(cols.Color),
		Size:     text(cols.Size),
		Customer: text(cols.Customer),
		City:     text(cols.City),
		Period:   text(cols.Period),
		Date:     text(cols.Date),
		Price:    ParsePrice(get(cols.Price)),
	}
}

// TextValue renders a cell as text. Values that a spreadsheet would show
// as blank or that count as "nothing" (nil, false, numeric zero) yield "".
func TextValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		f, err := t.Float64()
		if err == nil && f == 0 {
			return ""
		}
		return t.String()
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		if t == 0 {
			return ""
		}
		return strconv.Itoa(t)
	case int64:
		if t == 0 {
			return ""
		}
		return strconv.FormatInt(t, 10)
	case bool:
		if !t {
			return ""
		}
		return "true"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
