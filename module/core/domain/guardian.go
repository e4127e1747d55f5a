package domain

import "time"

type LinkStatus string

const (
	LinkPending LinkStatus = "pending"
	LinkActive  LinkStatus = "linked"
)

// GuardianLink pairs a user with the guardian who redeemed the user's code.
// A user has at most one link; generating a new code resets it.
type GuardianLink struct {
	UserID     string     `json:"user_id"`
	Code       string     `json:"guardian_code"`
	GuardianID string     `json:"guardian_id,omitempty"`
	Status     LinkStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	LinkedAt   *time.Time `json:"linked_at,omitempty"`
}

func (l GuardianLink) Linked() bool {
	return l.Status == LinkActive && l.GuardianID != ""
}
