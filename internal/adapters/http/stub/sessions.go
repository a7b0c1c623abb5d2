package stub

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenClaims is the access token payload.
type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type session struct {
	jti       string
	userID    int64
	username  string
	issuedAt  time.Time
	expiresAt time.Time
}

// sessionStore issues HS256 tokens and remembers which ones are live so that
// logout and refresh can revoke them.
type sessionStore struct {
	mu       sync.Mutex
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]session
}

func newSessionStore(secret []byte, ttl time.Duration, now func() time.Time) *sessionStore {
	return &sessionStore{
		secret:   secret,
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]session),
	}
}

func (s *sessionStore) issue(a *account) (string, session, error) {
	now := s.now()
	sess := session{
		jti:       uuid.NewString(),
		userID:    a.id,
		username:  a.username,
		issuedAt:  now,
		expiresAt: now.Add(s.ttl),
	}
	claims := tokenClaims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.jti,
			Subject:   strconv.FormatInt(a.id, 10),
			IssuedAt:  jwt.NewNumericDate(sess.issuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", session{}, err
	}

	s.mu.Lock()
	s.sweep(now)
	s.sessions[sess.jti] = sess
	s.mu.Unlock()
	return signed, sess, nil
}

// resolve verifies an Authorization header value and returns the live session.
func (s *sessionStore) resolve(header string) (session, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return session{}, ErrNoSession
	}
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return session{}, errors.Join(ErrNoSession, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[claims.ID]
	if !ok || !s.now().Before(sess.expiresAt) {
		return session{}, ErrNoSession
	}
	return sess, nil
}

func (s *sessionStore) revoke(jti string) {
	s.mu.Lock()
	delete(s.sessions, jti)
	s.mu.Unlock()
}

// count returns the number of live sessions.
func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.sessions)
}

func (s *sessionStore) sweep(now time.Time) {
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
