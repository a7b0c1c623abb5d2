package authclient

import (
	"net/http"

	"github.com/okian/authclient/pkg/request"
)

// LoginBody is the login payload.
type LoginBody struct {
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	Code       string   `json:"code"`
	UUID       string   `json:"uuid"`
	ClientType AuthType `json:"clientType"`
}

// PasswordChangeBody is the change-password payload.
type PasswordChangeBody struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// LoginRequest builds the descriptor for Login.
func LoginRequest(username, password, code, uuid string) *request.Request {
	return &request.Request{
		URL:    PathLogin,
		Method: http.MethodPost,
		Headers: request.Headers{
			IsToken:      request.Off,
			RepeatSubmit: request.Off,
		},
		Body: LoginBody{
			Username:   username,
			Password:   password,
			Code:       code,
			UUID:       uuid,
			ClientType: AuthTypeWeb,
		},
	}
}

// RegisterRequest builds the descriptor for Register. The body is a copy of
// fields with clientType forced to "web", whatever the caller passed.
func RegisterRequest(fields map[string]any) *request.Request {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body[clientTypeKey] = AuthTypeWeb
	return &request.Request{
		URL:     PathRegister,
		Method:  http.MethodPost,
		Headers: request.Headers{IsToken: request.Off},
		Body:    body,
	}
}

// RefreshTokenRequest builds the descriptor for RefreshToken.
func RefreshTokenRequest() *request.Request { return request.Post(PathRefresh) }

// GetInfoRequest builds the descriptor for GetInfo.
func GetInfoRequest() *request.Request { return request.Get(PathGetInfo) }

// LogoutRequest builds the descriptor for Logout.
func LogoutRequest() *request.Request { return request.Delete(PathLogout) }

// GetCurrentUserInfoRequest builds the descriptor for GetCurrentUserInfo.
func GetCurrentUserInfoRequest() *request.Request { return request.Get(PathCurrentUser) }

// ValidateTokenRequest builds the descriptor for ValidateToken.
func ValidateTokenRequest() *request.Request { return request.Get(PathValidate) }

// ChangePasswordRequest builds the descriptor for ChangePassword.
func ChangePasswordRequest(oldPassword, newPassword string) *request.Request {
	return &request.Request{
		URL:    PathPassword,
		Method: http.MethodPut,
		Body:   PasswordChangeBody{OldPassword: oldPassword, NewPassword: newPassword},
	}
}

// GetCodeImgRequest builds the descriptor for GetCodeImg.
func GetCodeImgRequest() *request.Request {
	return &request.Request{
		URL:     PathCaptchaImage,
		Method:  http.MethodGet,
		Headers: request.Headers{IsToken: request.Off},
		Timeout: CaptchaTimeout,
	}
}
