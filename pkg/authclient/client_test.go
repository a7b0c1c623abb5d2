package authclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/okian/authclient/pkg/authclient"
	"github.com/okian/authclient/pkg/request"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

type mockExecutor struct{ mock.Mock }

func (m *mockExecutor) Do(ctx context.Context, req *request.Request) (*request.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*request.Response)
	return resp, args.Error(1)
}

// capture runs call against a mock that records the descriptor it received.
func capture(call func(c *authclient.Client) (*request.Response, error)) (*request.Request, *request.Response, error) {
	exec := &mockExecutor{}
	var got *request.Request
	want := &request.Response{StatusCode: http.StatusOK, Code: 200}
	exec.On("Do", mock.Anything, mock.AnythingOfType("*request.Request")).
		Run(func(args mock.Arguments) { got = args.Get(1).(*request.Request) }).
		Return(want, nil).Once()
	resp, err := call(authclient.New(exec))
	return got, resp, err
}

func TestLogin(t *testing.T) {
	Convey("Given a client", t, func() {
		Convey("When logging in", func() {
			req, _, err := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.Login(context.Background(), "admin", "secret", "7", "u-1")
			})

			Convey("Then the descriptor should match the login contract", func() {
				So(err, ShouldBeNil)
				So(req.Method, ShouldEqual, http.MethodPost)
				So(req.URL, ShouldEqual, "/auth/login")
				So(req.Body, ShouldResemble, authclient.LoginBody{
					Username:   "admin",
					Password:   "secret",
					Code:       "7",
					UUID:       "u-1",
					ClientType: "web",
				})
				So(req.Headers.IsToken, ShouldEqual, request.Off)
				So(req.Headers.RepeatSubmit, ShouldEqual, request.Off)
				So(req.Timeout, ShouldEqual, 0)
			})
		})
	})
}

func TestRegister(t *testing.T) {
	Convey("Given a client", t, func() {
		Convey("When registering with arbitrary fields", func() {
			fields := map[string]any{"username": "bob", "password": "pw123456", "age": 3}
			req, _, err := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.Register(context.Background(), fields)
			})

			Convey("Then the body should be the fields plus clientType", func() {
				So(err, ShouldBeNil)
				So(req.Method, ShouldEqual, http.MethodPost)
				So(req.URL, ShouldEqual, "/auth/register")
				So(req.Body, ShouldResemble, map[string]any{
					"username":   "bob",
					"password":   "pw123456",
					"age":        3,
					"clientType": authclient.AuthTypeWeb,
				})
				So(req.Headers, ShouldResemble, request.Headers{IsToken: request.Off})
			})

			Convey("And the caller's map should be untouched", func() {
				_, ok := fields["clientType"]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the caller supplies its own clientType", func() {
			req, _, _ := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.Register(context.Background(), map[string]any{"clientType": "app"})
			})

			Convey("Then it should be overwritten with web", func() {
				So(req.Body, ShouldResemble, map[string]any{"clientType": authclient.AuthTypeWeb})
			})
		})

		Convey("When registering with a nil map", func() {
			req, _, _ := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.Register(context.Background(), nil)
			})

			Convey("Then only clientType should be sent", func() {
				So(req.Body, ShouldResemble, map[string]any{"clientType": authclient.AuthTypeWeb})
			})
		})
	})
}

func TestChangePasswordAndCaptcha(t *testing.T) {
	Convey("Given a client", t, func() {
		Convey("When changing the password", func() {
			req, _, _ := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.ChangePassword(context.Background(), "old", "new")
			})

			Convey("Then a PUT with both passwords should be built", func() {
				So(req.Method, ShouldEqual, http.MethodPut)
				So(req.URL, ShouldEqual, "/auth/password")
				So(req.Body, ShouldResemble, authclient.PasswordChangeBody{OldPassword: "old", NewPassword: "new"})
				So(req.Headers, ShouldResemble, request.Headers{})
			})
		})

		Convey("When fetching the captcha", func() {
			req, _, _ := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.GetCodeImg(context.Background())
			})

			Convey("Then it should skip the token and wait up to 20 seconds", func() {
				So(req.Method, ShouldEqual, http.MethodGet)
				So(req.URL, ShouldEqual, "/code")
				So(req.Body, ShouldBeNil)
				So(req.Headers.IsToken, ShouldEqual, request.Off)
				So(req.Headers.RepeatSubmit, ShouldEqual, request.Default)
				So(req.Timeout, ShouldEqual, 20000*time.Millisecond)
			})
		})
	})
}

func TestDefaultHeaderOperations(t *testing.T) {
	ops := []struct {
		name   string
		call   func(c *authclient.Client) (*request.Response, error)
		method string
		path   string
	}{
		{"RefreshToken", func(c *authclient.Client) (*request.Response, error) { return c.RefreshToken(context.Background()) }, http.MethodPost, "/auth/refresh"},
		{"GetInfo", func(c *authclient.Client) (*request.Response, error) { return c.GetInfo(context.Background()) }, http.MethodGet, "/system/user/getInfo"},
		{"Logout", func(c *authclient.Client) (*request.Response, error) { return c.Logout(context.Background()) }, http.MethodDelete, "/auth/logout"},
		{"GetCurrentUserInfo", func(c *authclient.Client) (*request.Response, error) { return c.GetCurrentUserInfo(context.Background()) }, http.MethodGet, "/auth/info"},
		{"ValidateToken", func(c *authclient.Client) (*request.Response, error) { return c.ValidateToken(context.Background()) }, http.MethodGet, "/auth/validate"},
	}

	Convey("Given the operations without arguments", t, func() {
		for _, op := range ops {
			op := op
			Convey("When calling "+op.name+" twice", func() {
				first, _, _ := capture(op.call)
				second, _, _ := capture(op.call)

				Convey("Then it should build an empty request with no overrides", func() {
					So(first.Method, ShouldEqual, op.method)
					So(first.URL, ShouldEqual, op.path)
					So(first.Body, ShouldBeNil)
					So(first.Headers, ShouldResemble, request.Headers{})
					So(first.Timeout, ShouldEqual, 0)
				})

				Convey("And both descriptors should be identical but distinct", func() {
					So(second, ShouldResemble, first)
					So(second, ShouldNotPointTo, first)
				})
			})
		}
	})
}

func TestPassThrough(t *testing.T) {
	Convey("Given an executor that fails", t, func() {
		exec := &mockExecutor{}
		failure := &request.StatusError{Kind: request.ErrLocked, Code: 423, Msg: "locked"}
		exec.On("Do", mock.Anything, mock.Anything).Return(nil, failure)
		c := authclient.New(exec)

		Convey("When logging in", func() {
			resp, err := c.Login(context.Background(), "a", "b", "c", "d")

			Convey("Then the executor's error should come back unchanged", func() {
				So(resp, ShouldBeNil)
				So(err, ShouldEqual, failure)
				So(authclient.StatusOf(err), ShouldEqual, authclient.LoginStatusLocked)
				exec.AssertNumberOfCalls(t, "Do", 1)
			})
		})
	})

	Convey("Given an executor that succeeds", t, func() {
		Convey("When validating the token", func() {
			_, resp, err := capture(func(c *authclient.Client) (*request.Response, error) {
				return c.ValidateToken(context.Background())
			})

			Convey("Then the executor's response should come back unchanged", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})

	Convey("Given a context", t, func() {
		exec := &mockExecutor{}
		type key struct{}
		ctx := context.WithValue(context.Background(), key{}, "v")
		exec.On("Do", ctx, mock.Anything).Return(&request.Response{}, nil)

		_, err := authclient.New(exec).GetInfo(ctx)

		Convey("Then it should be handed to the executor as is", func() {
			So(err, ShouldBeNil)
			exec.AssertExpectations(t)
		})
	})
}

func TestConstants(t *testing.T) {
	Convey("Given the exported constants", t, func() {
		So(string(authclient.AuthTypeWeb), ShouldEqual, "web")
		So(int(authclient.LoginStatusSuccess), ShouldEqual, 200)
		So(int(authclient.LoginStatusUnauthorized), ShouldEqual, 401)
		So(int(authclient.LoginStatusForbidden), ShouldEqual, 403)
		So(int(authclient.LoginStatusLocked), ShouldEqual, 423)
		So(int(authclient.LoginStatusServerError), ShouldEqual, 500)
	})
}

func TestStatusOf(t *testing.T) {
	Convey("Given executor errors", t, func() {
		So(authclient.StatusOf(nil), ShouldEqual, authclient.LoginStatusSuccess)
		So(authclient.StatusOf(&request.StatusError{Kind: request.ErrUnauthorized, Code: 401}), ShouldEqual, authclient.LoginStatusUnauthorized)
		So(authclient.StatusOf(&request.StatusError{Kind: request.ErrForbidden, Code: 403}), ShouldEqual, authclient.LoginStatusForbidden)
		So(authclient.StatusOf(request.WrapKind("op", request.ErrTransport, errors.New("refused"))), ShouldEqual, authclient.LoginStatusServerError)
	})

	Convey("Given local refusals", t, func() {
		dup := request.NewKind("op", request.ErrRepeatSubmit)
		limited := request.WrapKind("op", request.ErrRateLimit, context.DeadlineExceeded)

		Convey("Then StatusOf still reports a server error", func() {
			So(authclient.StatusOf(dup), ShouldEqual, authclient.LoginStatusServerError)
		})

		Convey("Then Rejected tells them apart from failures on the wire", func() {
			So(authclient.Rejected(dup), ShouldBeTrue)
			So(authclient.Rejected(limited), ShouldBeTrue)
			So(authclient.Rejected(request.NewKind("op", request.ErrInvalidRequest)), ShouldBeTrue)
			So(authclient.Rejected(request.WrapKind("op", request.ErrTransport, errors.New("refused"))), ShouldBeFalse)
			So(authclient.Rejected(request.WrapKind("op", request.ErrTimeout, context.DeadlineExceeded)), ShouldBeFalse)
			So(authclient.Rejected(&request.StatusError{Kind: request.ErrServer, Code: 500}), ShouldBeFalse)
			So(authclient.Rejected(nil), ShouldBeFalse)
		})
	})
}
