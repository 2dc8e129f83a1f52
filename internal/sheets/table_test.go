package sheets

import (
	"context"
	"errors"
	"testing"

	"verkoop/internal/core"
)

func TestRecordsFromTable(t *testing.T) {
	header := []string{"Soort", "Naam", "Kleur", "", "Prijs incl. BTW", "Maand"}
	rows := [][]any{
		{"staaltje", "Roos", "Rood", "ignored", "0", ""},
		{"", "", nil},
		{"standaard behang", "Tulp", "Geel", nil, 12.5, "maart 2024"},
		{"custom behang", "Lelie"},
	}

	got := RecordsFromTable(header, rows, core.DefaultColumns(), "januari 2024")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Name.Value != "Roos" || got[0].Period.Value != "januari 2024" {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].Period.Value != "maart 2024" || got[1].Price.Value() != 12.5 {
		t.Fatalf("unexpected second record %+v", got[1])
	}
	if got[2].Color.Present || got[2].Price.Present {
		t.Fatalf("short row should leave trailing fields absent: %+v", got[2])
	}
}

func TestLoadTabsSkipsFailingTabs(t *testing.T) {
	tabs := []string{"januari 2024", "februari 2024", "maart 2024"}
	var calls []string
	got, err := LoadTabs(context.Background(), "test", tabs, func(_ context.Context, tab string) ([]core.Record, error) {
		calls = append(calls, tab)
		if tab == "februari 2024" {
			return nil, errors.New("boom")
		}
		return []core.Record{{Period: core.NewField(tab)}}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("every tab should be tried in order, got %v", calls)
	}
	if len(got) != 2 || got[0].Period.Value != "januari 2024" || got[1].Period.Value != "maart 2024" {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestLoadTabsAllFailing(t *testing.T) {
	boom := errors.New("boom")
	_, err := LoadTabs(context.Background(), "test", []string{"a", "b"}, func(context.Context, string) ([]core.Record, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error wrapping boom, got %v", err)
	}
}

func TestLoadTabsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadTabs(ctx, "test", []string{"a"}, func(context.Context, string) ([]core.Record, error) {
		t.Fatal("fetch should not be called")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecordsFromValues(t *testing.T) {
	values := [][]any{
		{"Verkoop januari"},
		{},
		{"Datum", "Soort", "Naam", "Kleur", "Afmeting", "Prijs incl. BTW", "Naam Klant", "Plaatsnaam"},
		{"02-01-2024", "staaltje", "Roos", "Rood", "", 0.0, "Jan", "Utrecht"},
		{"05-01-2024", "standaard behang", "Roos", "Rood", "300x250", 149.95, "Jan", "Utrecht"},
		{"", "", "", ""},
		{"07-01-2024", "custom behang", "Tulp"},
	}
	got := RecordsFromValues(values, core.DefaultColumns(), "januari 2024")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for _, r := range got {
		if r.Period.Value != "januari 2024" {
			t.Fatalf("tab name should fill the period, got %q", r.Period.Value)
		}
	}
	if got[1].Size.Value != "300x250" || got[1].Price.Value() != 149.95 || got[1].City.Value != "Utrecht" {
		t.Fatalf("unexpected sale row %+v", got[1])
	}
	if got[2].Color.Present {
		t.Fatalf("short row should not have a color: %+v", got[2])
	}
}

func TestRecordsFromValuesWithoutHeader(t *testing.T) {
	values := [][]any{{"a", "b"}, {1.0, 2.0}}
	if got := RecordsFromValues(values, core.DefaultColumns(), "x"); got != nil {
		t.Fatalf("expected nil without a header row, got %+v", got)
	}
	if got := RecordsFromValues(nil, core.DefaultColumns(), "x"); got != nil {
		t.Fatalf("expected nil for empty sheet, got %+v", got)
	}
}

func TestStringRows(t *testing.T) {
	got := StringRows([][]string{{"a", "b"}, {}})
	if len(got) != 2 || got[0][1] != "b" || len(got[1]) != 0 {
		t.Fatalf("unexpected rows %v", got)
	}
}
