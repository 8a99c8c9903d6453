// Package keys stores license keys and their device binding.
package keys

import (
	"context"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, key *models.Key) error
	GetByKey(ctx context.Context, key string) (*models.Key, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Key, error)

	// BindFingerprint sets the fingerprint only if the key is still unbound
	// and reports whether this call performed the bind.
	BindFingerprint(ctx context.Context, key, fingerprint string) (bool, error)
	ResetFingerprint(ctx context.Context, projectID, key string) error
	UpdateNote(ctx context.Context, projectID, key, note string) error

	Delete(ctx context.Context, projectID, key string) error
	DeleteByProject(ctx context.Context, projectID string) error
}
