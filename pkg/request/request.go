// Package request is the HTTP transport behind the auth client: it turns a
// Request descriptor into one outbound call, attaches the session token,
// suppresses repeated submissions and normalizes the {code, msg, data}
// response envelope into errors.
package request

import (
	"net/http"
	"time"
)

// Flag is a tri-state per-request override. The zero value defers to the
// executor's policy.
type Flag uint8

const (
	Default Flag = iota
	On
	Off
)

// Enabled resolves the flag against the executor default.
func (f Flag) Enabled(def bool) bool {
	switch f {
	case On:
		return true
	case Off:
		return false
	default:
		return def
	}
}

func (f Flag) String() string {
	switch f {
	case On:
		return "on"
	case Off:
		return "off"
	default:
		return "default"
	}
}

// Headers carries the recognized per-request overrides. Headers{} means no
// explicit overrides.
type Headers struct {
	// IsToken controls whether the session token is attached (default on).
	IsToken Flag
	// RepeatSubmit controls duplicate-submission suppression for POST and
	// PUT (default on).
	RepeatSubmit Flag
}

// Request describes one outbound call. Builders return a fresh value per
// call; the executor never mutates it.
type Request struct {
	URL     string
	Method  string
	Headers Headers
	// Body is JSON-encoded when non-nil.
	Body any
	// Timeout overrides the executor default when positive.
	Timeout time.Duration
}

// Get, Post, Put and Delete are shorthands for the methods the auth API uses.
func Get(url string) *Request    { return &Request{URL: url, Method: http.MethodGet} }
func Post(url string) *Request   { return &Request{URL: url, Method: http.MethodPost} }
func Put(url string) *Request    { return &Request{URL: url, Method: http.MethodPut} }
func Delete(url string) *Request { return &Request{URL: url, Method: http.MethodDelete} }
