package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SampleKind is the Soort value of a free sample request.
	SampleKind = "staaltje"

	// AllPeriods disables the period filter.
	AllPeriods = "all"
	// AllPeriodsLabel is the drop-down label that maps to AllPeriods.
	AllPeriodsLabel = "Alle maanden"
)

// Field names accepted by the count aggregations.
const (
	FieldKind     FieldName = "kind"
	FieldProduct  FieldName = "name"
	FieldColor    FieldName = "color"
	FieldSize     FieldName = "size"
	FieldPrice    FieldName = "price"
	FieldCustomer FieldName = "customer"
	FieldCity     FieldName = "city"
	FieldPeriod   FieldName = "period"
	FieldDate     FieldName = "date"
)

type (
	// FieldName identifies one column of a Record.
	FieldName string

	// Field is an optional text value. Present is false when the source cell
	// was missing, null or blank.
	Field struct {
		Value   string
		Present bool
	}

	// Price is the "Prijs incl. BTW" cell. Numeric is false when the raw
	// value could not be coerced; Amount is 0 in that case.
	Price struct {
		Amount  float64
		Raw     string
		Present bool
		Numeric bool
	}

	// Record is one row of the sales export.
	Record struct {
		Kind     Field // Soort
		Name     Field // Naam
		Color    Field // Kleur
		Size     Field // Afmeting
		Customer Field // Naam Klant
		City     Field // Plaatsnaam
		Period   Field // Maand
		Date     Field // Datum
		Price    Price // Prijs incl. BTW
	}

	// FilterSelection is the user's current period/product choice.
	FilterSelection struct {
		Period  string `json:"period"`
		Product string `json:"product,omitempty"`
	}
)

var (
	ErrUnknownField       = errors.New("unknown field")
	ErrNoRecords          = errors.New("no records")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NewField trims v and marks it present when something is left.
func NewField(v string) Field {
	v = strings.TrimSpace(v)
	return Field{Value: v, Present: v != ""}
}

func (f Field) String() string {
	return f.Value
}

// AllFieldNames lists the fields in column order.
func AllFieldNames() []FieldName {
	return []FieldName{FieldKind, FieldProduct, FieldColor, FieldSize, FieldPrice, FieldCustomer, FieldCity, FieldPeriod, FieldDate}
}

// ParseFieldName validates an externally supplied field name.
func ParseFieldName(s string) (FieldName, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range AllFieldNames() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Field returns the named column. The price is exposed through its raw
// text so it can be counted like any other column. ok is false for an
// unknown name.
func (r Record) Field(name FieldName) (f Field, ok bool) {
	switch name {
	case FieldKind:
		return r.Kind, true
	case FieldProduct:
		return r.Name, true
	case FieldColor:
		return r.Color, true
	case FieldSize:
		return r.Size, true
	case FieldPrice:
		return Field{Value: r.Price.Raw, Present: r.Price.Present}, true
	case FieldCustomer:
		return r.Customer, true
	case FieldCity:
		return r.City, true
	case FieldPeriod:
		return r.Period, true
	case FieldDate:
		return r.Date, true
	}
	return Field{}, false
}

// IsSample reports whether the row is a sample request.
func (r Record) IsSample() bool {
	return r.Kind.Value == SampleKind
}

// HasAll reports whether every listed field is present.
func (r Record) HasAll(names ...FieldName) bool {
	for _, n := range names {
		f, ok := r.Field(n)
		if !ok || !f.Present {
			return false
		}
	}
	return true
}

// NewFilterSelection maps the empty period and the "Alle maanden" label to
// AllPeriods. Product is kept verbatim apart from trimming.
func NewFilterSelection(period, product string) FilterSelection {
	period = strings.TrimSpace(period)
	if period == "" || period == AllPeriodsLabel {
		period = AllPeriods
	}
	return FilterSelection{Period: period, Product: strings.TrimSpace(product)}
}

// IsAllPeriods reports whether the period filter is disabled.
func (s FilterSelection) IsAllPeriods() bool {
	return s.Period == AllPeriods
}
