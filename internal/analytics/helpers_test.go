package analytics

import "verkoop/internal/core"

// rec builds a record from header/value pairs, the way the sources do.
func rec(kv ...any) core.Record {
	row := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		row[kv[i].(string)] = kv[i+1]
	}
	return core.RecordFromRow(row, core.DefaultColumns())
}

func sale(name, color, kind string) core.Record {
	return rec("Naam", name, "Kleur", color, "Soort", kind, "Naam Klant", "Klant")
}
