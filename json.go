// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/errors"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// HTTPOption configures PostCall.
type HTTPOption func(*httpOptions)

type httpOptions struct {
	headers     http.Header
	queryParams url.Values
	errors      *ErrorRegistry
}

func newHTTPOptions(opts []HTTPOption) *httpOptions {
	o := &httpOptions{
		headers:     make(http.Header),
		queryParams: make(url.Values),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.errors == nil {
		o.errors = NewErrorRegistry()
	}
	return o
}

// WithHeader adds a request header.
func WithHeader(key, value string) HTTPOption {
	return func(o *httpOptions) { o.headers.Add(key, value) }
}

// WithQueryParam adds a query parameter, such as the player name.
func WithQueryParam(key, value string) HTTPOption {
	return func(o *httpOptions) { o.queryParams.Add(key, value) }
}

// WithHTTPErrors sets the registry used to rebuild remote errors.
func WithHTTPErrors(r *ErrorRegistry) HTTPOption {
	return func(o *httpOptions) { o.errors = r }
}

// newHTTPClient creates a client without connection reuse, so a retried
// request never lands on a half-closed pooled connection.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe")
}

// PostCall performs method as a one-shot call over HTTP and decodes the
// result into reply. Transient connection failures are retried with
// exponential backoff. Remote errors are rebuilt with the configured
// registry.
func PostCall(
	ctx context.Context,
	uri *url.URL,
	method string,
	params any,
	reply any,
	options ...HTTPOption,
) error {
	body, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return errors.Annotatef(err, "encoding request for %q", method)
	}

	ops := newHTTPOptions(options)
	target := *uri
	if len(ops.queryParams) > 0 {
		target.RawQuery = ops.queryParams.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return errors.Trace(ctx.Err())
			case <-time.After(wait):
			}
		}

		request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
		if err != nil {
			return errors.Annotate(err, "creating request")
		}
		request.Header = ops.headers.Clone()
		request.Header.Set("Content-Type", "application/json")

		resp, err := newHTTPClient().Do(request)
		if err != nil {
			lastErr = err
			logger.Debugf("%s attempt %d failed: %v", method, attempt+1, err)
			if isRetryableError(err) {
				continue
			}
			return errors.Annotatef(err, "posting %q", method)
		}
		return decodeHTTPResponse(resp, reply, ops.errors)
	}
	return errors.Annotatef(lastErr, "posting %q after %d attempts", method, maxRetries)
}

func decodeHTTPResponse(resp *http.Response, reply any, errs *ErrorRegistry) error {
	defer CleanlyCloseBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("received status code: %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err := json2.DecodeClientResponse(resp.Body, reply)
	var wire *json2.Error
	switch {
	case err == nil, errors.Is(err, json2.ErrNullResult):
		return nil
	case errors.As(err, &wire):
		return errs.fromWireError(wire)
	}
	return &DecodeError{What: "response", Err: err}
}

// replyCapture records the single reply an endpoint produces for a request.
type replyCapture struct {
	mu   sync.Mutex
	text string
}

func (c *replyCapture) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

func (c *replyCapture) reply() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// HTTPHandler serves one request envelope per POST against a shared method
// registry. Calls are answered in the response body; notifications get
// 204 No Content.
type HTTPHandler struct {
	methods *MethodRegistry
	opts    []Option
	maxBody int64
}

// NewHTTPHandler dispatches against methods. Only the error registry,
// middleware and clock options apply; dispatch is always inline.
func NewHTTPHandler(methods *MethodRegistry, opts ...Option) *HTTPHandler {
	o := newOptions(opts)
	return &HTTPHandler{methods: methods, opts: opts, maxBody: int64(o.maxFrameSize)}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.maxBody {
		http.Error(w, ErrFrameTooLarge.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	capture := &replyCapture{}
	opts := append(append([]Option{}, h.opts...), WithMethodRegistry(h.methods), WithConcurrentDispatch(false))
	ep := NewEndpoint(capture, opts...)
	defer ep.Close()

	err = ep.HandleIncoming(r.Context(), string(body))
	text := capture.reply()
	if text == "" {
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, text)
}
