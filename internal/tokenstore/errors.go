package tokenstore

import "errors"

// Sentinel kinds for token storage.
var (
	ErrNoToken      = errors.New("no stored token")
	ErrCorruptStore = errors.New("token store corrupt")
	ErrNotJWT       = errors.New("token is not a JWT")
)
