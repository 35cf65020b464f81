package model

import (
	"errors"
	"fmt"
	"time"
)

type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSuccess AttemptStatus = "success"
	AttemptFailed  AttemptStatus = "failed"
)

type ErrorClass string

const (
	ErrorClassNone       ErrorClass = "none"
	ErrorClassAuth       ErrorClass = "auth"
	ErrorClassPermission ErrorClass = "permission"
	ErrorClassRateLimit  ErrorClass = "rate_limit"
	ErrorClassTransient  ErrorClass = "transient"
	ErrorClassPermanent  ErrorClass = "permanent"
)

type PublishAttempt struct {
	ID                  int64           `json:"id"`
	OwnerID             string          `json:"owner_id"`
	PostID              string          `json:"post_id"`
	Platform            string          `json:"platform"`
	ProtocolVersion     ProtocolVersion `json:"protocol_version,omitempty"`
	Status              AttemptStatus   `json:"status"`
	ErrorClass          ErrorClass      `json:"error_class"`
	ErrorMessage        string          `json:"error_message,omitempty"`
	PublishedExternalID *string         `json:"published_external_id,omitempty"`
	AttemptedAt         time.Time       `json:"attempted_at"`
}

func SucceededAttempt(ownerID, postID, platform string, protocol ProtocolVersion, externalID string, at time.Time) *PublishAttempt {
	id := externalID
	return &PublishAttempt{
		OwnerID:             ownerID,
		PostID:              postID,
		Platform:            platform,
		ProtocolVersion:     protocol,
		Status:              AttemptSuccess,
		ErrorClass:          ErrorClassNone,
		PublishedExternalID: &id,
		AttemptedAt:         at,
	}
}

func FailedAttempt(ownerID, postID, platform string, protocol ProtocolVersion, class ErrorClass, message string, at time.Time) *PublishAttempt {
	if class == ErrorClassNone || class == "" {
		class = ErrorClassPermanent
	}
	return &PublishAttempt{
		OwnerID:         ownerID,
		PostID:          postID,
		Platform:        platform,
		ProtocolVersion: protocol,
		Status:          AttemptFailed,
		ErrorClass:      class,
		ErrorMessage:    message,
		AttemptedAt:     at,
	}
}

// Validate enforces that successes carry an external id and failures carry a class.
func (a *PublishAttempt) Validate() error {
	switch a.Status {
	case AttemptSuccess:
		if a.PublishedExternalID == nil || *a.PublishedExternalID == "" {
			return fmt.Errorf("%w: successful attempt without external id", ErrInvalidInput)
		}
	case AttemptFailed:
		if a.ErrorClass == "" || a.ErrorClass == ErrorClassNone {
			return fmt.Errorf("%w: failed attempt without error class", ErrInvalidInput)
		}
	case AttemptPending:
	default:
		return fmt.Errorf("%w: unknown attempt status %q", ErrInvalidInput, a.Status)
	}
	return nil
}

// ClassifyStatus maps an HTTP status from a social API to an error class.
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code >= 200 && code < 300:
		return ErrorClassNone
	case code == 401:
		return ErrorClassAuth
	case code == 403:
		return ErrorClassPermission
	case code == 429:
		return ErrorClassRateLimit
	case code >= 500:
		return ErrorClassTransient
	default:
		return ErrorClassPermanent
	}
}

// ClassifyPublishError maps a publisher error to an error class. Anything that is not an
// HTTP answer from the provider (timeouts, resets, DNS) is transient.
func ClassifyPublishError(err error) ErrorClass {
	if err == nil {
		return ErrorClassNone
	}
	var httpErr *ProviderHTTPError
	if errors.As(err, &httpErr) {
		return ClassifyStatus(httpErr.StatusCode)
	}
	var decErr *DecryptError
	if errors.As(err, &decErr) || errors.Is(err, ErrInvalidInput) {
		return ErrorClassPermanent
	}
	return ErrorClassTransient
}

type PublisherKey struct {
	Platform string
	Protocol ProtocolVersion
}

func (k PublisherKey) String() string { return k.Platform + "/" + string(k.Protocol) }

// PublishRequest is what a platform publisher receives: decrypted tokens and final text.
type PublishRequest struct {
	Tokens            TokenMaterial
	AccountIdentifier string
	Content           string
}
