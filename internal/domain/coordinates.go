package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (latitude, longitude).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Validate reports whether both components are finite and within WGS84 range.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: "lat", Message: fmt.Sprintf("latitude %v out of range [-90, 90]", c.Lat)}
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{Field: "lon", Message: fmt.Sprintf("longitude %v out of range [-180, 180]", c.Lon)}
	}
	return nil
}

// String renders "lat,lon", the form used in cache keys and deep links.
func (c Coordinates) String() string {
	return fmt.Sprintf("%v,%v", c.Lat, c.Lon)
}

// NamedOrigin pairs a human-readable label with its resolved coordinates.
type NamedOrigin struct {
	Label  string
	Coords Coordinates
}

// Default origins used when callers do not choose their own.
var (
	// Resolved once via OpenStreetMap Nominatim.
	DefaultCarOrigin = NamedOrigin{
		Label:  "Fyrskeppsvägen 55, 121 54 Johanneshov",
		Coords: Coordinates{Lat: 59.2878842, Lon: 18.1067874},
	}

	// Approximate location of the Kärrtorp metro station.
	DefaultTransitOrigin = NamedOrigin{
		Label:  "Kärrtorps tunnelbanestation",
		Coords: Coordinates{Lat: 59.28416, Lon: 18.11463},
	}
)
