package authclient

import "time"

// AuthType identifies the calling platform in login and register bodies.
type AuthType string

const (
	AuthTypeWeb AuthType = "web"
)

// LoginStatus is the status vocabulary callers use to present auth failures.
type LoginStatus int

const (
	LoginStatusSuccess      LoginStatus = 200
	LoginStatusUnauthorized LoginStatus = 401
	LoginStatusForbidden    LoginStatus = 403
	LoginStatusLocked       LoginStatus = 423
	LoginStatusServerError  LoginStatus = 500
)

// Endpoint paths.
const (
	PathLogin        = "/auth/login"
	PathRegister     = "/auth/register"
	PathRefresh      = "/auth/refresh"
	PathGetInfo      = "/system/user/getInfo"
	PathLogout       = "/auth/logout"
	PathCurrentUser  = "/auth/info"
	PathValidate     = "/auth/validate"
	PathPassword     = "/auth/password"
	PathCaptchaImage = "/code"
)

// CaptchaTimeout bounds the captcha request.
const CaptchaTimeout = 20000 * time.Millisecond

// clientTypeKey is the body field carrying AuthType.
const clientTypeKey = "clientType"
