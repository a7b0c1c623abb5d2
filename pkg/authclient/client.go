// Package authclient maps the web frontend's authentication calls onto HTTP
// request descriptors. Every operation builds one request.Request and hands
// it to an Executor, returning the executor's response and error unchanged.
package authclient

import (
	"context"

	"github.com/okian/authclient/pkg/request"
)

// Executor performs one request descriptor. *request.Executor implements it.
type Executor interface {
	Do(ctx context.Context, req *request.Request) (*request.Response, error)
}

// Client issues auth API calls. It holds no state besides the executor and
// is safe for concurrent use.
type Client struct {
	exec Executor
}

// New creates a Client backed by exec.
func New(exec Executor) *Client {
	return &Client{exec: exec}
}

// Login authenticates with username, password and the captcha answer code
// for captcha session uuid. No token is attached and repeat-submission
// suppression is off.
func (c *Client) Login(ctx context.Context, username, password, code, uuid string) (*request.Response, error) {
	return c.exec.Do(ctx, LoginRequest(username, password, code, uuid))
}

// Register creates an account from fields. fields is not modified.
func (c *Client) Register(ctx context.Context, fields map[string]any) (*request.Response, error) {
	return c.exec.Do(ctx, RegisterRequest(fields))
}

// RefreshToken renews the current session token.
func (c *Client) RefreshToken(ctx context.Context) (*request.Response, error) {
	return c.exec.Do(ctx, RefreshTokenRequest())
}

// GetInfo fetches the user profile with roles and permissions.
func (c *Client) GetInfo(ctx context.Context) (*request.Response, error) {
	return c.exec.Do(ctx, GetInfoRequest())
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) (*request.Response, error) {
	return c.exec.Do(ctx, LogoutRequest())
}

// GetCurrentUserInfo fetches the identity bound to the current token.
func (c *Client) GetCurrentUserInfo(ctx context.Context) (*request.Response, error) {
	return c.exec.Do(ctx, GetCurrentUserInfoRequest())
}

// ValidateToken asks the server whether the current token is still valid.
func (c *Client) ValidateToken(ctx context.Context) (*request.Response, error) {
	return c.exec.Do(ctx, ValidateTokenRequest())
}

// ChangePassword replaces the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (*request.Response, error) {
	return c.exec.Do(ctx, ChangePasswordRequest(oldPassword, newPassword))
}

// GetCodeImg fetches a captcha image and its session uuid.
func (c *Client) GetCodeImg(ctx context.Context) (*request.Response, error) {
	return c.exec.Do(ctx, GetCodeImgRequest())
}
