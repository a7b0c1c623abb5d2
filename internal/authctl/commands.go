package authctl

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/okian/authclient/internal/tokenstore"
	"github.com/okian/authclient/pkg/authclient"
	"github.com/okian/authclient/pkg/logger"
	"github.com/okian/authclient/pkg/request"
)

const imageFilePermission = 0o600

type command func(ctx context.Context, args []string) error

func (a *App) commands() map[string]command {
	return map[string]command{
		"captcha":  a.captcha,
		"login":    a.login,
		"register": a.register,
		"refresh":  a.refresh,
		"info":     a.info,
		"whoami":   a.whoami,
		"validate": a.validateToken,
		"passwd":   a.passwd,
		"logout":   a.logout,
		"status":   a.status,
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return nil
}

func (a *App) captcha(ctx context.Context, args []string) error {
	fs := a.flags("captcha")
	out := fs.String("out", "", "Write the captcha PNG to this file")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	resp, err := a.client.GetCodeImg(ctx)
	if err != nil {
		return err
	}
	var img authclient.CaptchaImage
	if err := resp.Decode(&img); err != nil {
		return err
	}
	if !img.CaptchaEnabled {
		fmt.Fprintln(a.out, "captcha disabled")
		return nil
	}
	fmt.Fprintf(a.out, "uuid: %s\n", img.UUID)

	if *out == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(img.Img)
	if err != nil {
		return fmt.Errorf("decode captcha image: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(*out), raw, imageFilePermission); err != nil {
		return fmt.Errorf("write captcha image: %w", err)
	}
	fmt.Fprintf(a.out, "image: %s\n", *out)
	return nil
}

type loginInput struct {
	Username string `flag:"u" validate:"required"`
	Password string `flag:"p" validate:"required"`
	Code     string `flag:"code" validate:"required_with=UUID"`
	UUID     string `flag:"uuid" validate:"required_with=Code"`
}

func (a *App) login(ctx context.Context, args []string) error {
	var in loginInput
	fs := a.flags("login")
	fs.StringVar(&in.Username, "u", "", "Username")
	fs.StringVar(&in.Password, "p", "", "Password")
	fs.StringVar(&in.Code, "code", "", "Captcha answer")
	fs.StringVar(&in.UUID, "uuid", "", "Captcha uuid")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.check(in); err != nil {
		return err
	}

	resp, err := a.client.Login(ctx, in.Username, in.Password, in.Code, in.UUID)
	if err != nil {
		return err
	}
	lr, err := a.remember(ctx, resp)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", lr.Username)
	return nil
}

// fieldsFlag collects repeated -field key=value pairs.
type fieldsFlag map[string]any

func (f fieldsFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func (f fieldsFlag) Set(v string) error {
	key, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	f[strings.TrimSpace(key)] = val
	return nil
}

type registerInput struct {
	Username string `flag:"u" validate:"required"`
	Password string `flag:"p" validate:"required"`
}

func (a *App) register(ctx context.Context, args []string) error {
	var in registerInput
	fields := fieldsFlag{}
	fs := a.flags("register")
	fs.StringVar(&in.Username, "u", "", "Username")
	fs.StringVar(&in.Password, "p", "", "Password")
	fs.Var(fields, "field", "Extra body field as key=value (repeatable)")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.check(in); err != nil {
		return err
	}

	body := map[string]any(fields)
	body["username"] = in.Username
	body["password"] = in.Password
	resp, err := a.client.Register(ctx, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Msg)
	return nil
}

func (a *App) refresh(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("refresh"), args); err != nil {
		return err
	}
	resp, err := a.client.RefreshToken(ctx)
	if err != nil {
		return err
	}
	lr, err := a.remember(ctx, resp)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "token refreshed for %s\n", lr.Username)
	return nil
}

func (a *App) info(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("info"), args); err != nil {
		return err
	}
	resp, err := a.client.GetInfo(ctx)
	if err != nil {
		return err
	}
	var info authclient.UserInfo
	if err := resp.Decode(&info); err != nil {
		return err
	}
	return a.print(info)
}

func (a *App) whoami(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("whoami"), args); err != nil {
		return err
	}
	resp, err := a.client.GetCurrentUserInfo(ctx)
	if err != nil {
		return err
	}
	var user authclient.User
	if err := resp.DecodeData(&user); err != nil {
		return err
	}
	return a.print(user)
}

func (a *App) validateToken(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("validate"), args); err != nil {
		return err
	}
	resp, err := a.client.ValidateToken(ctx)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := resp.DecodeData(&data); err != nil {
		fmt.Fprintln(a.out, "token valid")
		return nil //nolint:nilerr // a bare success envelope still means valid
	}
	return a.print(data)
}

type passwdInput struct {
	Old string `flag:"old" validate:"required"`
	New string `flag:"new" validate:"required"`
}

func (a *App) passwd(ctx context.Context, args []string) error {
	var in passwdInput
	fs := a.flags("passwd")
	fs.StringVar(&in.Old, "old", "", "Current password")
	fs.StringVar(&in.New, "new", "", "New password")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.check(in); err != nil {
		return err
	}
	resp, err := a.client.ChangePassword(ctx, in.Old, in.New)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Msg)
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("logout"), args); err != nil {
		return err
	}
	_, err := a.client.Logout(ctx)
	if cerr := a.store.Clear(ctx); cerr != nil {
		a.log.Warn(ctx, "failed to clear session", logger.Error(cerr))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *App) status(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("status"), args); err != nil {
		return err
	}
	sess, err := a.store.Load(ctx)
	if errors.Is(err, tokenstore.ErrNoToken) {
		return ErrNotLoggedIn
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "token file: %s\n", a.tokenFile())
	if sess.Username != "" {
		fmt.Fprintf(a.out, "username:   %s\n", sess.Username)
	}
	claims, err := tokenstore.Inspect(sess.AccessToken)
	if err != nil {
		fmt.Fprintln(a.out, "token:      opaque")
		return nil //nolint:nilerr // opaque tokens are valid, just not inspectable
	}
	if claims.Subject != "" {
		fmt.Fprintf(a.out, "subject:    %s\n", claims.Subject)
	}
	if !claims.IssuedAt.IsZero() {
		fmt.Fprintf(a.out, "issued:     %s\n", claims.IssuedAt.Format(time.RFC3339))
	}
	if !claims.ExpiresAt.IsZero() {
		state := "valid"
		if expired, _ := tokenstore.Expired(sess.AccessToken, a.now()); expired {
			state = "expired"
		}
		fmt.Fprintf(a.out, "expires:    %s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
	}
	return nil
}

func (a *App) tokenFile() string {
	if f, ok := a.store.(*tokenstore.File); ok {
		return f.Path()
	}
	return "(memory)"
}

// remember persists the token carried by a login or refresh response.
func (a *App) remember(ctx context.Context, resp *request.Response) (authclient.LoginResult, error) {
	var lr authclient.LoginResult
	if err := resp.DecodeData(&lr); err != nil {
		return lr, err
	}
	sess := tokenstore.Session{
		AccessToken: lr.AccessToken,
		TokenType:   lr.TokenType,
		Username:    lr.Username,
	}
	if exp, err := tokenstore.Expiry(lr.AccessToken); err == nil && !exp.IsZero() {
		sess.ExpiresAt = exp
	} else if lr.ExpiresIn > 0 {
		sess.ExpiresAt = a.now().Add(time.Duration(lr.ExpiresIn) * time.Second)
	}
	if err := a.store.Save(ctx, sess); err != nil {
		return lr, fmt.Errorf("save session: %w", err)
	}
	a.log.Debug(ctx, "session saved", logger.String("username", lr.Username))
	return lr, nil
}

func (a *App) print(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	return nil
}
