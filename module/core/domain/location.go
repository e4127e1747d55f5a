package domain

import (
	"math"
	"time"
)

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether c is a finite, in-range position.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Sample is one reading from a user's location provider.
type Sample struct {
	UserID    string     `json:"user_id"`
	Position  Coordinate `json:"position"`
	Timestamp time.Time  `json:"timestamp"`
}

// LocationShare is the latest position published for a guardian to watch.
// There is one per user.
type LocationShare struct {
	UserID     string     `json:"user_id"`
	Position   Coordinate `json:"position"`
	IsDeviated bool       `json:"is_deviated"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type HistoryQuery struct {
	UserID string
	Start  time.Time
	End    time.Time
}
