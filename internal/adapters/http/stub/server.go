// Package stub serves an in-memory auth backend speaking the same envelope
// as the real one. It backs local development and integration tests.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/authclient/pkg/authclient"
	"github.com/okian/authclient/pkg/logger"
	"github.com/okian/authclient/pkg/metrics"
)

const (
	defaultTokenTTL = 2 * time.Hour
	defaultSecret   = "change-me"
	tokenType       = "Bearer"
	maxBodyBytes    = 1 << 20
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type seedUser struct {
	username string
	password string
	nickname string
	roles    []string
}

// Server implements the auth endpoints in memory.
type Server struct {
	secret         []byte
	tokenTTL       time.Duration
	captchaEnabled bool
	now            func() time.Time
	logger         logger.Logger
	seed           []seedUser

	users    *userStore
	sessions *sessionStore
	captchas *captchaStore
	validate *validator.Validate
}

// NewServer creates a stub server. Seeded accounts are created eagerly.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		secret:         []byte(defaultSecret),
		tokenTTL:       defaultTokenTTL,
		captchaEnabled: true,
		now:            time.Now,
		logger:         logger.Nop(),
	}
	s.users = newUserStore(s.clock)
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newSessionStore(s.secret, s.tokenTTL, s.clock)
	s.captchas = newCaptchaStore(s.clock)

	s.validate = validator.New(validator.WithRequiredStructEnabled())
	if err := s.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	for _, u := range s.seed {
		if _, err := s.users.create(u.username, u.password, u.nickname, u.roles); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) clock() time.Time { return s.now() }

// Register attaches all routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET "+authclient.PathCaptchaImage, MetricsMiddleware(s.handleCaptcha, "code"))
	mux.HandleFunc("POST "+authclient.PathLogin, MetricsMiddleware(s.handleLogin, "login"))
	mux.HandleFunc("POST "+authclient.PathRegister, MetricsMiddleware(s.handleRegister, "register"))
	mux.HandleFunc("POST "+authclient.PathRefresh, MetricsMiddleware(s.authenticated(s.handleRefresh), "refresh"))
	mux.HandleFunc("DELETE "+authclient.PathLogout, MetricsMiddleware(s.authenticated(s.handleLogout), "logout"))
	mux.HandleFunc("GET "+authclient.PathCurrentUser, MetricsMiddleware(s.authenticated(s.handleCurrentUser), "info"))
	mux.HandleFunc("GET "+authclient.PathValidate, MetricsMiddleware(s.authenticated(s.handleValidate), "validate"))
	mux.HandleFunc("GET "+authclient.PathGetInfo, MetricsMiddleware(s.authenticated(s.handleGetInfo), "getInfo"))
	mux.HandleFunc("PUT "+authclient.PathPassword, MetricsMiddleware(s.authenticated(s.handlePassword), "password"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.Handle("GET /metrics", metrics.Handler())
}

// CaptchaAnswer returns the pending answer for a captcha uuid.
func (s *Server) CaptchaAnswer(uuid string) (string, bool) {
	return s.captchas.peek(uuid)
}

// ActiveSessions returns the number of live sessions.
func (s *Server) ActiveSessions() int {
	return s.sessions.count()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.count()})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess session)

func (s *Server) authenticated(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.resolve(r.Header.Get("Authorization"))
		if err != nil {
			s.logger.Debug(r.Context(), "rejected request", logger.String("path", r.URL.Path), logger.Error(err))
			writeError(w, http.StatusUnauthorized, ErrNoSession)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		authclient.CaptchaImage
	}{Code: http.StatusOK, Msg: "ok"}
	body.CaptchaEnabled = s.captchaEnabled
	if s.captchaEnabled {
		id, img, err := s.captchas.issue()
		if err != nil {
			s.logger.Error(r.Context(), "captcha render failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		body.UUID, body.Img = id, img
	}
	writeJSON(w, http.StatusOK, body)
}

type loginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Code       string `json:"code"`
	UUID       string `json:"uuid"`
	ClientType string `json:"clientType"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	if s.captchaEnabled {
		if err := s.captchas.verify(req.UUID, req.Code); err != nil {
			metrics.RecordServerLogin("captcha")
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	acct, err := s.users.authenticate(req.Username, req.Password)
	switch {
	case errors.Is(err, ErrAccountLocked):
		metrics.RecordServerLogin("locked")
		s.logger.Warn(ctx, "account locked", logger.String("username", req.Username))
		writeError(w, http.StatusLocked, err)
		return
	case errors.Is(err, ErrBadCredentials):
		metrics.RecordServerLogin("rejected")
		writeError(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		metrics.RecordServerLogin("error")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if !s.writeLogin(w, r, acct) {
		metrics.RecordServerLogin("error")
		return
	}
	metrics.RecordServerLogin("success")
	s.logger.Info(ctx, "login", logger.String("username", acct.username))
}

// writeLogin issues a session for acct and writes the LoginResult.
func (s *Server) writeLogin(w http.ResponseWriter, r *http.Request, acct *account) bool {
	token, sess, err := s.sessions.issue(acct)
	if err != nil {
		s.logger.Error(r.Context(), "sign token failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return false
	}
	metrics.UpdateServerActiveSessions(s.sessions.count())
	writeData(w, authclient.LoginResult{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresIn:   int64(s.tokenTTL / time.Second),
		Username:    acct.username,
		Nickname:    acct.nickname,
		IssuedAt:    sess.issuedAt.UTC(),
	})
	return true
}

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=2,max=20,username"`
	Password        string `json:"password" validate:"required,min=6,max=50"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
	Nickname        string `json:"nickname" validate:"omitempty,max=30"`
	ClientType      string `json:"clientType" validate:"required,eq=web"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	acct, err := s.users.create(req.Username, req.Password, req.Nickname, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrUserExists) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	s.logger.Info(r.Context(), "registered", logger.String("username", acct.username))
	writeJSON(w, http.StatusOK, envelope{Code: http.StatusOK, Msg: "registered"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, sess session) {
	acct, ok := s.users.get(sess.username)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrNoSession)
		return
	}
	s.sessions.revoke(sess.jti)
	s.writeLogin(w, r, acct)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess session) {
	s.sessions.revoke(sess.jti)
	metrics.UpdateServerActiveSessions(s.sessions.count())
	s.logger.Info(r.Context(), "logout", logger.String("username", sess.username))
	writeJSON(w, http.StatusOK, envelope{Code: http.StatusOK, Msg: "logged out"})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, _ *http.Request, sess session) {
	acct, ok := s.users.get(sess.username)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrNoSession)
		return
	}
	writeData(w, profile(acct))
}

type validation struct {
	Valid     bool      `json:"valid"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleValidate(w http.ResponseWriter, _ *http.Request, sess session) {
	writeData(w, validation{Valid: true, Username: sess.username, ExpiresAt: sess.expiresAt.UTC()})
}

func (s *Server) handleGetInfo(w http.ResponseWriter, _ *http.Request, sess session) {
	acct, ok := s.users.get(sess.username)
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrNoSession)
		return
	}
	permissions := []string{}
	for _, role := range acct.roles {
		if role == "admin" {
			permissions = []string{"*:*:*"}
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		authclient.UserInfo
	}{
		Code:     http.StatusOK,
		Msg:      "ok",
		UserInfo: authclient.UserInfo{User: profile(acct), Roles: acct.roles, Permissions: permissions},
	})
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=50"`
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request, sess session) {
	var req passwordRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.users.changePassword(sess.username, req.OldPassword, req.NewPassword); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrNoSession) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, err)
		return
	}
	s.logger.Info(r.Context(), "password changed", logger.String("username", sess.username))
	writeJSON(w, http.StatusOK, envelope{Code: http.StatusOK, Msg: "password changed"})
}

func profile(a *account) authclient.User {
	return authclient.User{UserID: a.id, UserName: a.username, NickName: a.nickname}
}

// decode reads a JSON body into v and validates it. On failure it writes a
// 400 and reports false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return false
	}
	return true
}

type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: http.StatusOK, Msg: "ok", Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, envelope{Code: status, Msg: msg})
}
