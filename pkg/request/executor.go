package request

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/authclient/internal/domain/dedupe"
	"github.com/okian/authclient/pkg/logger"
	"github.com/okian/authclient/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultRepeatInterval = time.Second

	// Bodies above this size skip the repeat-submission check.
	maxGuardedBodyBytes = 5 * 1024 * 1024

	successCode = http.StatusOK

	headerRequestID = "X-Request-Id"
	contentTypeJSON = "application/json;charset=utf-8"
)

// Executor performs Request descriptors over HTTP. It is safe for
// concurrent use; each call builds its own http.Request.
type Executor struct {
	baseURL        string
	client         HTTPDoer
	timeout        time.Duration
	tokens         TokenProvider
	repeatInterval time.Duration
	guardOpts      []dedupe.Option
	guard          dedupe.Deduper
	limiter        *rate.Limiter
	onUnauthorized func(ctx context.Context)
	logger         logger.Logger
	metrics        *metrics.Manager
}

// NewExecutor creates an executor. Without options it sends requests to
// relative URLs, which only works together with WithBaseURL.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		client:         &http.Client{},
		timeout:        defaultTimeout,
		repeatInterval: defaultRepeatInterval,
		logger:         logger.Nop(),
		metrics:        metrics.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.guard = dedupe.NewInMemoryDeduper(append([]dedupe.Option{dedupe.WithInterval(e.repeatInterval)}, e.guardOpts...)...)
	e.logger = e.logger.Named("request")
	return e
}

// Do sends req and returns the normalized response. Any failure is returned
// as an error matching one of the package sentinels; *StatusError carries
// the server's code and message.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	const op = "request.do"
	if req == nil || strings.TrimSpace(req.URL) == "" {
		return nil, e.fail(NewKind(op, ErrInvalidRequest))
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, e.fail(WrapKind(op, ErrEncode, err))
		}
		payload = b
	}

	release := func() {}
	if e.guarded(method, req, payload) {
		fp := fingerprint(payload)
		if e.guard.SeenAndRecord(ctx, req.URL, fp) {
			e.metrics.RecordRepeatSubmitBlocked(req.URL)
			e.logger.Warn(ctx, "repeat submission suppressed", logger.String("method", method), logger.String("url", req.URL))
			return nil, e.fail(NewKind(op, ErrRepeatSubmit))
		}
		release = func() { e.guard.Unrecord(ctx, req.URL, fp) }
	}

	timeout := e.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	// the limiter wait counts against the request timeout
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if e.limiter != nil {
		start := time.Now()
		if err := e.limiter.Wait(callCtx); err != nil {
			release()
			return nil, e.fail(WrapKind(op, ErrRateLimit, err))
		}
		e.metrics.RecordRateLimitWait(float64(time.Since(start).Milliseconds()))
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(callCtx, method, e.baseURL+req.URL, body)
	if err != nil {
		release()
		return nil, e.fail(WrapKind(op, ErrInvalidRequest, err))
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(headerRequestID, requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}

	tokenSent := false
	if req.Headers.IsToken.Enabled(true) && e.tokens != nil {
		token, err := e.tokens.Token(ctx)
		if err != nil {
			release()
			return nil, e.fail(WrapKind(op, ErrToken, err))
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
			tokenSent = true
			e.metrics.RecordTokenAttached()
		}
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		release()
		kind := ErrTransport
		if isTimeout(callCtx, err) {
			kind = ErrTimeout
		}
		e.logger.Debug(ctx, "request failed",
			logger.String("method", method),
			logger.String("url", req.URL),
			logger.String("request_id", requestID),
			logger.Error(err))
		return nil, e.fail(WrapKind(op, kind, err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	took := time.Since(start)
	e.metrics.RecordClientRequest(req.URL, method, strconv.Itoa(resp.StatusCode), float64(took.Milliseconds()))
	if err != nil {
		kind := ErrTransport
		if isTimeout(callCtx, err) {
			kind = ErrTimeout
		}
		return nil, e.fail(WrapKind(op, kind, err))
	}

	e.logger.Debug(ctx, "request completed",
		logger.String("method", method),
		logger.String("url", req.URL),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", took))

	out, err := e.normalize(ctx, op, method, req.URL, resp, raw, tokenSent)
	if err != nil {
		return nil, e.fail(err)
	}
	return out, nil
}

// guarded reports whether req is subject to repeat-submission suppression.
func (e *Executor) guarded(method string, req *Request, payload []byte) bool {
	if method != http.MethodPost && method != http.MethodPut {
		return false
	}
	if !req.Headers.RepeatSubmit.Enabled(true) || e.repeatInterval == 0 {
		return false
	}
	return len(payload) <= maxGuardedBodyBytes
}

// normalize applies the envelope rules: a missing code means success, and
// any non-success HTTP status or code becomes a *StatusError. The 401 hook
// runs only when the request carried a token.
func (e *Executor) normalize(ctx context.Context, op, method, url string, resp *http.Response, raw []byte, tokenSent bool) (*Response, error) {
	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Code:       successCode,
		Body:       raw,
	}

	if isJSON(resp.Header, raw) {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil, WrapKind(op, ErrDecode, err)
			}
		} else {
			if env.Code != nil {
				out.Code = *env.Code
			}
			out.Msg = env.Msg
		}
	}

	if out.Code == successCode && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		out.Code = resp.StatusCode
	}
	if out.Code == successCode {
		return out, nil
	}

	if out.Msg == "" {
		out.Msg = defaultMessage(out.Code)
	}
	kind := kindForCode(out.Code)
	if errors.Is(kind, ErrUnauthorized) && tokenSent && e.onUnauthorized != nil {
		e.onUnauthorized(ctx)
	}
	return nil, &StatusError{
		Op:         op,
		Kind:       kind,
		Method:     method,
		URL:        url,
		HTTPStatus: resp.StatusCode,
		Code:       out.Code,
		Msg:        out.Msg,
		Response:   out,
	}
}

func (e *Executor) fail(err error) error {
	e.metrics.RecordClientError(kindLabel(err))
	return err
}

func fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// String describes the executor for logs.
func (e *Executor) String() string {
	return fmt.Sprintf("request.Executor{base=%q timeout=%s}", e.baseURL, e.timeout)
}
