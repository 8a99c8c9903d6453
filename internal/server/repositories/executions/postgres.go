package executions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/scriptguard/internal/dbx"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Execution) error {
	query :=
		`INSERT INTO project_executions (id, project_id, owner_identity, execution_type, executed_at)
		 VALUES ($1, $2, $3, $4, $5)
		`

	owner := sql.NullString{String: e.OwnerIdentity, Valid: e.OwnerIdentity != ""}
	if _, err := r.db.ExecContext(ctx, query, e.ID, e.ProjectID, owner, string(e.Type), e.ExecutedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM project_executions WHERE project_id = $1`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context, projectID string, limit int) ([]*models.Execution, error) {
	query :=
		`SELECT id, project_id, owner_identity, execution_type, executed_at
		 FROM project_executions WHERE project_id = $1
		 ORDER BY executed_at DESC LIMIT $2
		`

	rows, err := r.db.QueryContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Execution
	for rows.Next() {
		var (
			e     models.Execution
			owner sql.NullString
			typ   string
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &owner, &typ, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.OwnerIdentity = owner.String
		e.Type = models.ExecutionType(typ)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_executions WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
