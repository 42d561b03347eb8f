package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"mangaba/internal/logging"
	"mangaba/internal/types"

	"github.com/tidwall/gjson"
)

// statusRule maps one HTTP status to a classification.
type statusRule struct {
	kind    ErrorKind
	message string
}

// statusTable is the per-variant status vocabulary.
type statusTable map[int]statusRule

// commonStatuses is the vocabulary most backends share.
var commonStatuses = statusTable{
	http.StatusBadRequest:      {KindInvalidRequest, "invalid request"},
	http.StatusUnauthorized:    {KindInvalidCredentials, "invalid API key"},
	http.StatusForbidden:       {KindInvalidCredentials, "API key rejected"},
	http.StatusNotFound:        {KindModelNotFound, "model not found"},
	http.StatusTooManyRequests: {KindRateLimited, "rate limit exceeded"},
}

// with returns a copy of t with overrides applied.
func (t statusTable) with(overrides statusTable) statusTable {
	out := make(statusTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// refineFunc lets a variant classify a response from its body before the
// status table applies. ok=false falls through to the table.
type refineFunc func(status int, detail string) (kind ErrorKind, message string, ok bool)

// transport is the shared HTTP helper every variant owns one of. It applies
// the timeout, performs exactly one request, and classifies every failure so
// no raw transport error escapes.
type transport struct {
	id       types.ProviderID
	baseURL  string
	headers  map[string]string
	query    url.Values
	client   *http.Client
	timeout  time.Duration
	statuses statusTable
	refine   refineFunc
}

func newTransport(id types.ProviderID, baseURL string, timeout time.Duration, httpClient *http.Client, statuses statusTable) *transport {
	// The deadline lives on the request context, not the client, so calls
	// such as an Ollama pull can run past the per-request timeout.
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &transport{
		id:       id,
		baseURL:  strings.TrimRight(baseURL, "/"),
		headers:  make(map[string]string),
		query:    url.Values{},
		client:   httpClient,
		timeout:  timeout,
		statuses: statuses,
	}
}

// do sends payload (JSON, may be nil) and decodes a 2xx body into out (may be nil).
func (t *transport) do(ctx context.Context, method, path string, payload, out interface{}) error {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return NewError(t.id, KindInvalidRequest, "failed to marshal request", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := t.baseURL + path
	if len(t.query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + t.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return NewError(t.id, KindInvalidRequest, fmt.Sprintf("invalid endpoint %q", t.baseURL), err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	// Log the path only: the query may carry a key.
	startTime := time.Now()
	logging.ProviderDebug("[%s] %s %s", t.id, method, path)

	resp, err := t.client.Do(req)
	if err != nil {
		return t.classifyTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return t.classifyTransport(err)
	}
	logging.ProviderDebug("[%s] %s %s -> %d in %v (%d bytes)", t.id, method, path, resp.StatusCode, time.Since(startTime), len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return t.classifyStatus(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(t.id, KindInvalidResponse, "malformed response body", err)
	}
	return nil
}

func (t *transport) classifyTransport(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		msg := "request timed out"
		if t.id.IsLocal() {
			msg += "; the model may still be loading"
		}
		logging.ProviderWarn("[%s] %s: %v", t.id, msg, err)
		return NewError(t.id, KindTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return NewError(t.id, KindUnknown, "request canceled", err)
	case errors.Is(err, syscall.ECONNREFUSED):
		var msg string
		if t.id.IsLocal() {
			msg = fmt.Sprintf("could not connect to %s at %s; start the local server", t.id.Name(), t.baseURL)
		} else {
			msg = fmt.Sprintf("connection to %s refused; check network connectivity", t.host())
		}
		logging.ProviderWarn("[%s] %s", t.id, msg)
		return NewError(t.id, KindConnectionRefused, msg, err)
	default:
		logging.ProviderError("[%s] network error: %v", t.id, err)
		return NewError(t.id, KindUnknown, fmt.Sprintf("network error: %v", err), err)
	}
}

func (t *transport) classifyStatus(status int, body []byte) *Error {
	detail := errorDetail(body)

	var (
		kind ErrorKind
		msg  string
		ok   bool
	)
	if t.refine != nil {
		kind, msg, ok = t.refine(status, detail)
	}
	if !ok {
		if rule, found := t.statuses[status]; found {
			kind, msg, ok = rule.kind, rule.message, true
			switch {
			case kind == KindInvalidRequest && detail != "":
				msg = detail
			case kind == KindUnknown:
				msg = fmt.Sprintf("HTTP %d: %s", status, rule.message)
				if detail != "" {
					msg += ": " + detail
				}
			}
		}
	}
	if !ok {
		kind = KindUnknown
		msg = fmt.Sprintf("HTTP %d", status)
		if detail != "" {
			msg += ": " + detail
		}
	}

	logging.ProviderWarn("[%s] HTTP %d classified as %s: %s", t.id, status, kind, msg)
	return &Error{Kind: kind, Provider: t.id, Status: status, Message: msg}
}

func (t *transport) host() string {
	if u, err := url.Parse(t.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return t.baseURL
}

// errorDetail pulls a human readable message out of an error body.
// Backends disagree on where it lives.
func errorDetail(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 || strings.HasPrefix(text, "<") {
			return ""
		}
		return text
	}
	for _, path := range []string{"error.message", "message", "error", "detail", "msg"} {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
