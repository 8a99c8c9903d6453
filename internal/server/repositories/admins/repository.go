// Package admins stores management principals and their project grants.
package admins

import (
	"context"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Admin, error)
	Upsert(ctx context.Context, a *models.Admin) error
	Delete(ctx context.Context, id string) error

	IsProjectAdmin(ctx context.Context, projectID, adminID string) (bool, error)
	AddProjectAdmin(ctx context.Context, projectID, adminID string) error
	DeleteProjectAdmins(ctx context.Context, projectID string) error
}
