// Package projects stores protected-script projects.
package projects

import (
	"context"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
	// GetOldest returns the first project ever created. It backs deployments
	// that serve a single project without naming it.
	GetOldest(ctx context.Context) (*models.Project, error)
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id string) error
}
