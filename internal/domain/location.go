package domain

// Immutable geographic coordinates (latitude, longitude), WGS-84.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates fall inside the WGS-84 ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Return coordinates as [lng, lat] for external API compatibility.
func (l Location) LngLat() []float64 { return []float64{l.Lng, l.Lat} }
