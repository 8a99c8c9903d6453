// Package apikeys stores hashed project integration tokens.
package apikeys

import (
	"context"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, k *models.APIKey) (*models.APIKey, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.APIKey, error)
	Delete(ctx context.Context, projectID, id string) error
	DeleteByProject(ctx context.Context, projectID string) error
}
