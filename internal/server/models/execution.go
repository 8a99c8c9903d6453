package models

import "time"

type ExecutionType string

const (
	ExecutionMobile  ExecutionType = "mobile"
	ExecutionDesktop ExecutionType = "desktop"
	ExecutionUnknown ExecutionType = "unknown"
)

// Execution records one granted script delivery.
type Execution struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	OwnerIdentity string        `json:"owner_identity,omitempty"`
	Type          ExecutionType `json:"execution_type"`
	ExecutedAt    time.Time     `json:"executed_at"`
}
