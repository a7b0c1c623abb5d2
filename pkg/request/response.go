package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Response is a successful call: HTTP 2xx and envelope code 200.
type Response struct {
	StatusCode int
	Header     http.Header
	// Code and Msg come from the envelope; Code is 200 when absent.
	Code int
	Msg  string
	Body []byte
}

type envelope struct {
	Code *int            `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the whole body into v. Some endpoints place their
// payload next to code/msg instead of under data.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return WrapKind("response.decode", ErrDecode, err)
	}
	return nil
}

// DecodeData unmarshals the envelope's data field into v.
func (r *Response) DecodeData(v any) error {
	const op = "response.decode_data"
	var env envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return WrapKind(op, ErrDecode, err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return WrapKind(op, ErrDecode, fmt.Errorf("response has no data field"))
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return WrapKind(op, ErrDecode, err)
	}
	return nil
}

// isJSON reports whether body holds an envelope. An empty body never does,
// whatever the Content-Type says.
func isJSON(h http.Header, body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	return strings.Contains(h.Get("Content-Type"), "json") || trimmed[0] == '{'
}
