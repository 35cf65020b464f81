package model

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrCredentialsNotConfigured   = errors.New("credentials not configured")
	ErrConnectionExpiredOrRevoked = errors.New("connection expired or revoked")
	ErrQuotaExceeded              = errors.New("quota exceeded")
	ErrSettingsUnavailable        = errors.New("settings unavailable")
	ErrNotFound                   = errors.New("not found")
	ErrRefreshNotSupported        = errors.New("refresh not supported for this protocol")
	ErrInvalidInput               = errors.New("invalid input")
	ErrConflict                   = errors.New("conflict")
	ErrUnsupportedPlatform        = errors.New("unsupported platform")
)

// DecryptError reports a stored secret that failed authentication or was malformed.
type DecryptError struct {
	Reason string
	Err    error
}

func (e *DecryptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decrypt failed: %s: %v", e.Reason, e.Err)
	}
	return "decrypt failed: " + e.Reason
}

func (e *DecryptError) Unwrap() error { return e.Err }

type OAuthErrorKind string

const (
	OAuthAccessDenied     OAuthErrorKind = "access_denied"
	OAuthRedirectMismatch OAuthErrorKind = "redirect_mismatch"
	OAuthInvalidScope     OAuthErrorKind = "invalid_scope"
	OAuthServerError      OAuthErrorKind = "server_error"
	OAuthInvalidState     OAuthErrorKind = "invalid_state"
)

// OAuthProviderError is a failed authorization or token exchange, classified by remediation path.
type OAuthProviderError struct {
	Kind        OAuthErrorKind
	Description string
	Err         error
}

func NewOAuthProviderError(kind OAuthErrorKind, description string, err error) *OAuthProviderError {
	return &OAuthProviderError{Kind: kind, Description: description, Err: err}
}

func (e *OAuthProviderError) Error() string {
	msg := "oauth provider error: " + string(e.Kind)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OAuthProviderError) Unwrap() error { return e.Err }

// OAuthErrorKindFromCode maps an RFC 6749 error code to a taxonomy kind.
func OAuthErrorKindFromCode(code string) OAuthErrorKind {
	switch code {
	case "access_denied", "denied":
		return OAuthAccessDenied
	case "redirect_uri_mismatch", "redirect_mismatch":
		return OAuthRedirectMismatch
	case "invalid_scope":
		return OAuthInvalidScope
	default:
		return OAuthServerError
	}
}

// ProviderHTTPError is a non-2xx answer from a social platform API. Body is kept for logs
// and never shows up in Error.
type ProviderHTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *ProviderHTTPError) Error() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return fmt.Sprintf("provider responded %d %s", e.StatusCode, text)
	}
	return fmt.Sprintf("provider responded %d", e.StatusCode)
}

// ProviderError wraps a failure returned by an AI provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
