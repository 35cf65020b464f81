package model

import (
	"fmt"
	"time"
)

type ProtocolVersion string

const (
	ProtocolOAuth1 ProtocolVersion = "1.0a"
	ProtocolOAuth2 ProtocolVersion = "2.0"
)

// TokenMaterial is either OAuth1Material or OAuth2Material. Callers type-switch on it.
type TokenMaterial interface {
	Protocol() ProtocolVersion
}

// OAuth1Material is a non-expiring token pair; there is no refresh grant.
type OAuth1Material struct {
	Token       string
	TokenSecret string
}

func (OAuth1Material) Protocol() ProtocolVersion { return ProtocolOAuth1 }

type OAuth2Material struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

func (OAuth2Material) Protocol() ProtocolVersion { return ProtocolOAuth2 }

func (m OAuth2Material) Refreshable() bool { return m.RefreshToken != "" }

// SplitTokenMaterial returns the values stored in the access and secondary slots.
func SplitTokenMaterial(m TokenMaterial) (primary, secondary string, expiresAt *time.Time) {
	switch t := m.(type) {
	case OAuth1Material:
		return t.Token, t.TokenSecret, nil
	case OAuth2Material:
		return t.AccessToken, t.RefreshToken, t.ExpiresAt
	}
	return "", "", nil
}

// JoinTokenMaterial rebuilds the variant from the stored slots of a connection.
func JoinTokenMaterial(protocol ProtocolVersion, primary, secondary string, expiresAt *time.Time) (TokenMaterial, error) {
	switch protocol {
	case ProtocolOAuth1:
		return OAuth1Material{Token: primary, TokenSecret: secondary}, nil
	case ProtocolOAuth2:
		return OAuth2Material{AccessToken: primary, RefreshToken: secondary, ExpiresAt: expiresAt}, nil
	}
	return nil, fmt.Errorf("%w: unknown protocol %q", ErrInvalidInput, protocol)
}

// OAuthConnection is the result of a completed OAuth flow. Rows are soft-revoked, never deleted.
type OAuthConnection struct {
	ID                 int64           `json:"id"`
	OwnerID            string          `json:"owner_id"`
	Platform           string          `json:"platform"`
	ProtocolVersion    ProtocolVersion `json:"protocol_version"`
	AccessTokenRef     string          `json:"-"`
	SecondaryTokenRef  string          `json:"-"`
	AccountIdentifier  string          `json:"account_identifier"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty"`
	IsActive           bool            `json:"is_active"`
	LastValidatedAt    *time.Time      `json:"last_validated_at,omitempty"`
	DeactivatedAt      *time.Time      `json:"deactivated_at,omitempty"`
	DeactivationReason string          `json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Expired reports whether an OAuth 2.0 access token has passed its expiry.
// OAuth 1.0a tokens never expire on their own.
func (c *OAuthConnection) Expired(now time.Time) bool {
	if c.ProtocolVersion == ProtocolOAuth1 || c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionExpired      ConnectionState = "expired"
	ConnectionNotConnected ConnectionState = "not_connected"
)

type ConnectionStatus struct {
	Platform          string          `json:"platform"`
	State             ConnectionState `json:"state"`
	ProtocolVersion   ProtocolVersion `json:"protocol_version,omitempty"`
	AccountIdentifier string          `json:"account_identifier,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	LastValidatedAt   *time.Time      `json:"last_validated_at,omitempty"`
	Refreshable       bool            `json:"refreshable"`
}

// PendingAuthorization is the server-side half of an in-flight authorization, keyed by state.
type PendingAuthorization struct {
	State         string          `json:"state"`
	OwnerID       string          `json:"owner_id"`
	Platform      string          `json:"platform"`
	Protocol      ProtocolVersion `json:"protocol"`
	ReturnURL     string          `json:"return_url,omitempty"`
	CodeVerifier  string          `json:"code_verifier,omitempty"`
	RequestToken  string          `json:"request_token,omitempty"`
	RequestSecret string          `json:"request_secret,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuthorizationStart is what a flow produces when a connect is initiated.
type AuthorizationStart struct {
	AuthURL       string
	CodeVerifier  string
	RequestToken  string
	RequestSecret string
}

// CallbackParams carries the provider redirect query for both protocols.
type CallbackParams struct {
	State            string
	Code             string
	OAuthToken       string
	OAuthVerifier    string
	Denied           string
	Error            string
	ErrorDescription string
}

type ExchangeResult struct {
	Material          TokenMaterial
	AccountIdentifier string
}

type CallbackOutcome struct {
	OwnerID   string            `json:"owner_id"`
	ReturnURL string            `json:"return_url,omitempty"`
	Status    *ConnectionStatus `json:"status"`
}
