package models

import "time"

// APIKey is a project-scoped integration token. Only its hash is stored.
type APIKey struct {
	ID        string
	ProjectID string
	Name      string
	CreatorID string
	KeyHash   []byte
	CreatedAt time.Time
}
