package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"verkoop/internal/core"
	ports "verkoop/internal/sheets"
)

// SourceName identifies this adapter in logs and import runs.
const SourceName = "memory"

var _ ports.SnapshotStore = (*Store)(nil)

// Store keeps records and the import log in memory.
type Store struct {
	mu      sync.RWMutex
	records []core.Record
	runs    []core.ImportRun
}

func New(records ...core.Record) *Store {
	return &Store{records: slices.Clone(records)}
}

// LoadRecords returns a copy of the current records.
func (s *Store) LoadRecords(_ context.Context) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

// ReplaceRecords swaps the snapshot and logs the run.
func (s *Store) ReplaceRecords(_ context.Context, run core.ImportRun, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.Clone(records)
	run.Records = len(records)
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) RecordImport(_ context.Context, run core.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) LastImport(_ context.Context) (core.ImportRun, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return core.ImportRun{}, false, nil
	}
	return s.runs[len(s.runs)-1], true, nil
}

// Imports returns every logged run, oldest first.
func (s *Store) Imports() []core.ImportRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.runs)
}

// Demo returns a deterministic dataset covering every month of year, used
// by the memory backend in development.
func Demo(year int) []core.Record {
	products := []struct{ name, color string }{
		{"Roos", "Rood"}, {"Tulp", "Geel"}, {"Lelie", "Wit"}, {"Anjer", "Roze"}, {"Varen", "Groen"},
	}
	kinds := []string{core.SampleKind, "standaard behang", core.SampleKind, "behangcirkel", "custom behang", core.SampleKind, "standaard behang"}
	sizes := []string{"100x250", "200x250", "300x250", "ø 120"}
	cities := []string{"Amsterdam", "Rotterdam", "Utrecht", "Den Haag", "Eindhoven", "Enschede", "Zwolle"}
	customers := []string{"De Vries", "Jansen", "Bakker", "Visser", "Smit", "Meijer"}
	prices := map[string]float64{core.SampleKind: 0, "standaard behang": 89.95, "behangcirkel": 59.5, "custom behang": 149}

	var out []core.Record
	n := 0
	for _, period := range core.YearPeriods(year) {
		month := n/9%12 + 1
		for i := 0; i < 9; i++ {
			p := products[(n*7+i)%len(products)]
			kind := kinds[(n+i*3)%len(kinds)]
			day := (n*5)%27 + 1
			out = append(out, core.Record{
				Kind:     core.NewField(kind),
				Name:     core.NewField(p.name),
				Color:    core.NewField(p.color),
				Size:     core.NewField(sizes[n%len(sizes)]),
				Customer: core.NewField(customers[(n*11)%len(customers)]),
				City:     core.NewField(cities[(n*n+i)%len(cities)]),
				Period:   core.NewField(period),
				Date:     core.NewField(fmt.Sprintf("%04d-%02d-%02d", year, month, day)),
				Price:    core.ParsePrice(prices[kind]),
			})
			n++
		}
	}
	return out
}
