package apikeys

import (
	"context"
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

func (r *PostgresRepository) Create(ctx context.Context, k *models.APIKey) (*models.APIKey, error) {
	query :=
		`INSERT INTO project_api_keys (id, project_id, name, creator_id, key_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		`

	out := *k
	err := r.db.QueryRowContext(ctx, query, k.ID, k.ProjectID, k.Name, k.CreatorID, k.KeyHash).Scan(&out.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

// ListByCreator never returns key hashes.
func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.APIKey, error) {
	query :=
		`SELECT id, project_id, name, creator_id, created_at
		 FROM project_api_keys WHERE creator_id = $1 ORDER BY created_at
		`

	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.ProjectID, &k.Name, &k.CreatorID, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, projectID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_api_keys WHERE project_id = $1 AND id = $2`, projectID, id)
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

func (r *PostgresRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_api_keys WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
