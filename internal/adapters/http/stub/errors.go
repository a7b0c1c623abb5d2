package stub

import "errors"

// Sentinel kinds for stub server errors.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrCaptchaExpired = errors.New("captcha expired")
	ErrCaptchaWrong   = errors.New("captcha incorrect")
	ErrBadCredentials = errors.New("username or password incorrect")
	ErrAccountLocked  = errors.New("account locked")
	ErrUserExists     = errors.New("user already exists")
	ErrNoSession      = errors.New("session missing or expired")
	ErrSamePassword   = errors.New("new password must differ from the old one")
	ErrOldPassword    = errors.New("old password incorrect")
)
