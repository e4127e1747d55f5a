package domain

import "time"

type Place struct {
	Name     string     `json:"name"`
	Address  string     `json:"address"`
	Position Coordinate `json:"position"`
}

// RouteHistoryEntry is a trip the user has taken. Repeating the same origin
// and destination names bumps UsedCount instead of adding an entry.
type RouteHistoryEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Origin      Place     `json:"origin"`
	Destination Place     `json:"destination"`
	DurationMin int       `json:"duration_min"`
	DistanceM   int       `json:"distance_m"`
	IsFavorite  bool      `json:"is_favorite"`
	UsedCount   int       `json:"used_count"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}
