package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNoActiveSession   = errors.New("no active navigation session")
	ErrLocationDenied    = errors.New("location permission denied")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrStaleSample       = errors.New("sample older than last processed")
	ErrInvalidRoute      = errors.New("invalid route history entry")
)

// Guardian linking.
var (
	ErrInvalidLinkCode   = errors.New("invalid guardian link code")
	ErrLinkCodeTaken     = errors.New("guardian link code already in use")
	ErrGuardianNotLinked = errors.New("guardian not linked to user")
)

// Chat completion failures, wrapped by chat adapters so callers can pick a fallback.
var (
	ErrChatRateLimited = errors.New("chat completion rate limited")
	ErrChatServer      = errors.New("chat completion server error")
	ErrChatMalformed   = errors.New("chat completion malformed response")
)
