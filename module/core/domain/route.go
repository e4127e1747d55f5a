package domain

// Route is the planned trip for one navigating user. Points is read-only
// once handed to a session.
type Route struct {
	UserID      string
	GuardianID  string
	Destination string
	Steps       []string
	Points      []Coordinate
}

// HasGuardian reports whether a guardian is linked to the route's user.
func (r Route) HasGuardian() bool {
	return r.GuardianID != ""
}
