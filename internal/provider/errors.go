package provider

import (
	"errors"
	"fmt"

	"mangaba/internal/types"
)

// ErrorKind classifies a failure independently of the backend that produced it.
type ErrorKind string

const (
	KindNotConfigured      ErrorKind = "not_configured"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindRateLimited        ErrorKind = "rate_limited"
	KindModelNotFound      ErrorKind = "model_not_found"
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindInvalidResponse    ErrorKind = "invalid_response"
	KindConnectionRefused  ErrorKind = "connection_refused"
	KindTimeout            ErrorKind = "timeout"
	KindNoProviderSelected ErrorKind = "no_provider_selected"
	KindUnknown            ErrorKind = "unknown"
)

// Error is the only error type that leaves a provider client.
// Raw transport errors are kept in Err for logging but never surface on their own.
type Error struct {
	Kind     ErrorKind
	Provider types.ProviderID
	Status   int // HTTP status, 0 when no response was received
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a caller-level retry could succeed.
// Clients themselves never retry.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout
}

// NewError builds a classified error.
func NewError(id types.ProviderID, kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: id, Message: message, Err: cause}
}

// KindOf extracts the classification of err. Unclassified errors are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func notConfigured(id types.ProviderID) *Error {
	ident, _ := types.Lookup(id)
	hint := fmt.Sprintf("run 'mangaba config set %s --api-key <key>'", id)
	if ident.Kind == types.EndpointLocal {
		hint = fmt.Sprintf("run 'mangaba config set %s --base-url <url>'", id)
	}
	return NewError(id, KindNotConfigured, fmt.Sprintf("%s is not configured; %s", id.Name(), hint), nil)
}
