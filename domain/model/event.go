package model

import "time"

const (
	EventGenerationStatus = "generation_status"
	EventPublishStatus    = "publish_status"
)

// StatusEvent is pushed to subscribers whenever a job platform or a publish attempt changes.
type StatusEvent struct {
	Type       string     `json:"type"`
	OwnerID    string     `json:"owner_id"`
	JobID      string     `json:"job_id,omitempty"`
	PostID     string     `json:"post_id,omitempty"`
	Platform   string     `json:"platform"`
	Status     string     `json:"status"`
	JobStatus  JobStatus  `json:"job_status,omitempty"`
	Progress   int        `json:"progress,omitempty"`
	ErrorClass ErrorClass `json:"error_class,omitempty"`
	Message    string     `json:"message,omitempty"`
	ExternalID *string    `json:"external_id,omitempty"`
	At         time.Time  `json:"at"`
}
