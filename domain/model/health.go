package model

import "time"

type HealthState string

const (
	HealthNotConfigured          HealthState = "not_configured"
	HealthConfiguredNotConnected HealthState = "configured_not_connected"
	HealthConnected              HealthState = "connected"
	HealthConnectedExpired       HealthState = "connected_expired"
)

// ConnectionHealth is the single derived view over setup and connection for one platform.
type ConnectionHealth struct {
	Platform          string          `json:"platform"`
	State             HealthState     `json:"state"`
	Configured        bool            `json:"configured"`
	ProtocolVersion   ProtocolVersion `json:"protocol_version,omitempty"`
	AccountIdentifier string          `json:"account_identifier,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
}

// Usable reports whether the platform can be published to right now.
func (h *ConnectionHealth) Usable() bool { return h.State == HealthConnected }
