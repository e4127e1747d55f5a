package domain

// UrgencyLevel is a coarse classification used to tune the assistant's tone.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

type TimeOfDay string

const (
	Dawn      TimeOfDay = "dawn"
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// NavigationSnapshot is assembled once per evaluation and passed by value.
// CurrentLocation is nil until the first sample arrives.
type NavigationSnapshot struct {
	UserID          string
	CurrentLocation *Coordinate
	Destination     string
	CurrentStep     string
	IsNavigating    bool
	Deviation       DeviationState
}

// Weather is optional input to the context summary. TempC is nil when unknown.
type Weather struct {
	Condition string
	TempC     *float64
}

type ContextSummary struct {
	Urgency     UrgencyLevel `json:"urgency"`
	Summary     string       `json:"summary"`
	TimeOfDay   TimeOfDay    `json:"time_of_day"`
	IsLateNight bool         `json:"is_late_night"`
	WeatherNote string       `json:"weather_note,omitempty"`
}
