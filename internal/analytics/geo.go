package analytics

import "verkoop/internal/core"

// Coordinates maps a city name to its position on the map.
type Coordinates map[string]core.LatLng

// DefaultCoordinates are the cities the map knows out of the box.
func DefaultCoordinates() Coordinates {
	return Coordinates{
		"Amsterdam": {Lat: 52.3676, Lng: 4.9041},
		"Rotterdam": {Lat: 51.9244, Lng: 4.4777},
		"Utrecht":   {Lat: 52.0907, Lng: 5.1214},
		"Den Haag":  {Lat: 52.0705, Lng: 4.3007},
		"Eindhoven": {Lat: 51.4416, Lng: 5.4697},
		"Enschede":  {Lat: 52.2215, Lng: 6.8937},
	}
}

// DefaultCenter is used when no marker can be placed.
var DefaultCenter = core.LatLng{Lat: 52.3676, Lng: 4.9041}

// CitySales counts records per city, most sales first, without truncation.
func CitySales(records []core.Record) []core.Count {
	return CountByField(records, core.FieldCity, 0)
}

// CityMarkers keeps the cities with known coordinates, in counts order.
func CityMarkers(counts []core.Count, coords Coordinates) []core.CityMarker {
	out := make([]core.CityMarker, 0, len(counts))
	for _, c := range counts {
		pos, ok := coords[c.Name]
		if !ok {
			continue
		}
		out = append(out, core.CityMarker{Name: c.Name, Value: c.Value, LatLng: pos})
	}
	return out
}

// MapCenter centres the map on the first marker, or DefaultCenter.
func MapCenter(markers []core.CityMarker) core.LatLng {
	if len(markers) == 0 {
		return DefaultCenter
	}
	return markers[0].LatLng
}
