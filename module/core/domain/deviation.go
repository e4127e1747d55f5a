package domain

import "time"

// TrackingState is the state of the deviation state machine.
type TrackingState string

const (
	OnRoute  TrackingState = "on_route"
	Deviated TrackingState = "deviated"
)

// DeviationResult is the outcome of comparing one position to a route.
type DeviationResult struct {
	IsDeviated  bool    `json:"is_deviated"`
	MinDistance float64 `json:"min_distance"`
}

// DeviationState is owned by a single tracking session.
type DeviationState struct {
	IsDeviated     bool      `json:"is_deviated"`
	DistanceMeters float64   `json:"distance_meters"`
	LastAlertAt    time.Time `json:"last_alert_at"`
}

// State maps the flag onto the state machine's named states.
func (s DeviationState) State() TrackingState {
	if s.IsDeviated {
		return Deviated
	}
	return OnRoute
}

// Transition describes what processing one sample did.
type Transition struct {
	From      TrackingState
	To        TrackingState
	Result    DeviationResult
	Alerted   bool
	Recovered bool
}

// DeviationAlert is dispatched to every alert channel for one deviation event.
type DeviationAlert struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	GuardianID     string     `json:"guardian_id,omitempty"`
	Position       Coordinate `json:"position"`
	DistanceMeters float64    `json:"distance_meters"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasGuardian reports whether the alert should reach a guardian.
func (a DeviationAlert) HasGuardian() bool {
	return a.GuardianID != ""
}
