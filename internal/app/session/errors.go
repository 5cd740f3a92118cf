package session

import "errors"

var (
	// ErrNotAuthenticated is returned by operations that need a logged-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrSuperseded is returned when a logout happened while the call was in flight.
	ErrSuperseded = errors.New("session changed while the request was in flight")
)
