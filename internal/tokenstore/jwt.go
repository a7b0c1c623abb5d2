package tokenstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the client inspects.
type Claims struct {
	Subject   string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect reads token's claims without verifying the signature. The client
// never holds the signing key; this is for display and expiry checks only.
func Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if v, ok := mc["username"].(string); ok {
		c.Username = v
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Expiry returns the token's exp claim, or the zero time when it has none.
func Expiry(token string) (time.Time, error) {
	c, err := Inspect(token)
	if err != nil {
		return time.Time{}, err
	}
	return c.ExpiresAt, nil
}

// Expired reports whether token's exp lies at or before now. Tokens without
// exp never expire.
func Expired(token string, now time.Time) (bool, error) {
	exp, err := Expiry(token)
	if err != nil {
		return false, err
	}
	return !exp.IsZero() && !now.Before(exp), nil
}
