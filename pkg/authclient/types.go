package authclient

import (
	"errors"
	"time"

	"github.com/okian/authclient/pkg/request"
)

// LoginResult is the data of a successful login or refresh.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in,omitempty"`
	Username    string    `json:"username"`
	Nickname    string    `json:"nickname"`
	IssuedAt    time.Time `json:"issued_at"`
}

// CaptchaImage is the GetCodeImg body. Img is a base64 encoded image.
type CaptchaImage struct {
	CaptchaEnabled bool   `json:"captchaEnabled"`
	UUID           string `json:"uuid"`
	Img            string `json:"img"`
}

// User is the profile returned by GetInfo and GetCurrentUserInfo.
type User struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	NickName string `json:"nickName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phonenumber,omitempty"`
}

// UserInfo is the GetInfo body.
type UserInfo struct {
	User        User     `json:"user"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// StatusOf maps an executor error onto the LoginStatus vocabulary. A nil
// error is LoginStatusSuccess and a server answer keeps its code. Every
// failure that never produced an answer maps to LoginStatusServerError,
// including requests the executor refused locally (duplicate submission,
// rate limit, invalid or unencodable request, token lookup). Use Rejected to
// tell those apart before presenting a server error.
func StatusOf(err error) LoginStatus {
	if err == nil {
		return LoginStatusSuccess
	}
	var se *request.StatusError
	if errors.As(err, &se) {
		return LoginStatus(se.Code)
	}
	return LoginStatusServerError
}

// Rejected reports whether err is a refusal by the client itself: the
// request never reached the server.
func Rejected(err error) bool {
	return errors.Is(err, request.ErrRepeatSubmit) ||
		errors.Is(err, request.ErrRateLimit) ||
		errors.Is(err, request.ErrInvalidRequest) ||
		errors.Is(err, request.ErrEncode) ||
		errors.Is(err, request.ErrToken)
}
