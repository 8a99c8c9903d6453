package admins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/dbx"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Admin, error) {
	query := `SELECT admin_id, name, email FROM admins WHERE admin_id = $1`

	var a models.Admin
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, a *models.Admin) error {
	query :=
		`INSERT INTO admins (admin_id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (admin_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
		`

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Name, a.Email); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE admin_id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) IsProjectAdmin(ctx context.Context, projectID, adminID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM project_admins WHERE project_id = $1 AND admin_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, projectID, adminID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// AddProjectAdmin is idempotent.
func (r *PostgresRepository) AddProjectAdmin(ctx context.Context, projectID, adminID string) error {
	query :=
		`INSERT INTO project_admins (project_id, admin_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		`

	if _, err := r.db.ExecContext(ctx, query, projectID, adminID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteProjectAdmins(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_admins WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
