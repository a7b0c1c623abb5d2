package authctl

import "errors"

// Sentinel kinds for CLI errors.
var (
	ErrUsage       = errors.New("usage")
	ErrInvalidFlag = errors.New("invalid flag")
	ErrNotLoggedIn = errors.New("not logged in")
)
