package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangaba/internal/config"
	"mangaba/internal/types"
)

func TestClassifyStatus_CommonTable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, KindInvalidCredentials, "invalid API key"},
		{"forbidden", http.StatusForbidden, ``, KindInvalidCredentials, "API key rejected"},
		{"rate limited", http.StatusTooManyRequests, `{}`, KindRateLimited, "rate limit"},
		{"not found", http.StatusNotFound, `{}`, KindModelNotFound, "model not found"},
		{"bad request detail", http.StatusBadRequest, `{"error":{"message":"temperature too high"}}`, KindInvalidRequest, "temperature too high"},
		{"unmapped", http.StatusTeapot, `{"message":"short and stout"}`, KindUnknown, "HTTP 418: short and stout"},
		{"unmapped html", http.StatusBadGateway, `<html>bad gateway</html>`, KindUnknown, "HTTP 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeBackend(t, tt.status, tt.body)
			c := pointed(t, types.ProviderOpenAI, srv.URL)

			_, err := c.Execute(context.Background(), "hello", "")
			require.Error(t, err)

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.want, perr.Kind)
			assert.Equal(t, tt.status, perr.Status)
			assert.Contains(t, perr.Message, tt.msg)
		})
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{``, ""},
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"message":"flat"}`, "flat"},
		{`{"error":"string"}`, "string"},
		{`{"detail":"fastapi"}`, "fastapi"},
		{`{"msg":"short"}`, "short"},
		{`{"other":1}`, ""},
		{`plain text`, "plain text"},
		{`<html></html>`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorDetail([]byte(tt.body)), "body %q", tt.body)
	}
}

// closedAddress returns a URL nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr
}

func TestConnectionRefused_Local(t *testing.T) {
	url := closedAddress(t)
	c := NewOllamaClient(config.ProviderConfig{BaseURL: url}, Options{})

	_, err := c.Execute(context.Background(), "hello", "")
	require.True(t, IsKind(err, KindConnectionRefused), "got %v", err)
	assert.Contains(t, err.Error(), url)
	assert.Contains(t, err.Error(), "start the local server")
}

func TestConnectionRefused_Cloud(t *testing.T) {
	url := closedAddress(t)
	c := pointed(t, types.ProviderCohere, url)

	_, err := c.Execute(context.Background(), "hello", "")
	require.True(t, IsKind(err, KindConnectionRefused), "got %v", err)
	assert.Contains(t, err.Error(), "check network connectivity")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := NewOllamaClient(config.ProviderConfig{BaseURL: srv.URL}, Options{Timeout: 50 * time.Millisecond})
	_, err := c.Execute(context.Background(), "hello", "")
	require.True(t, IsKind(err, KindTimeout), "got %v", err)
	assert.Contains(t, err.Error(), "may still be loading")

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable())
}

func TestTimeout_CallerDeadlineWins(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := pointed(t, types.ProviderOpenAI, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Execute(ctx, "hello", "")
	assert.True(t, IsKind(err, KindTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := NewOllamaClient(config.ProviderConfig{BaseURL: srv.URL}, Options{ProbeTimeout: 50 * time.Millisecond})
	status := c.TestConnection(context.Background())
	assert.False(t, status.Success)
	assert.Contains(t, status.Error, "timed out")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindRateLimited, KindOf(NewError(types.ProviderGroq, KindRateLimited, "slow down", nil)))

	wrapped := errors.Join(errors.New("outer"), NewError(types.ProviderGroq, KindTimeout, "late", nil))
	assert.True(t, IsKind(wrapped, KindTimeout))
}

func TestNotConfiguredHint(t *testing.T) {
	assert.Contains(t, notConfigured(types.ProviderOpenAI).Message, "--api-key")
	assert.Contains(t, notConfigured(types.ProviderOllama).Message, "--base-url")
}
