// Package executions stores the delivery log used for project analytics.
package executions

import (
	"context"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Execution) error
	Count(ctx context.Context, projectID string) (int64, error)
	// List returns the newest executions first, at most limit rows.
	List(ctx context.Context, projectID string, limit int) ([]*models.Execution, error)
	DeleteByProject(ctx context.Context, projectID string) error
}
