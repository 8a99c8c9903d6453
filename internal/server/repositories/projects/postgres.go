package projects

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

const projectColumns = `project_id, name, description, author_id, license_mode, asset_source, asset_owner, asset_repo, asset_path, asset_token, companion_link, webhook_url, paywall_key_duration, created_at`

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query :=
		`INSERT INTO projects (project_id, name, description, author_id, license_mode, asset_source, asset_owner, asset_repo, asset_path, asset_token, companion_link, webhook_url, paywall_key_duration)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at
		`

	out := *p
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.AuthorID, string(p.LicenseMode), string(p.AssetSource),
		p.AssetOwner, p.AssetRepo, p.AssetPath, p.AssetToken,
		nullString(p.CompanionLink), nullString(p.WebhookURL), p.PaywallKeyDuration,
	).Scan(&out.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE project_id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetOldest(ctx context.Context) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at, project_id LIMIT 1`
	return r.getOne(ctx, query)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE author_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update rewrites the mutable columns. ID, author and creation time never change.
func (r *PostgresRepository) Update(ctx context.Context, p *models.Project) error {
	query :=
		`UPDATE projects SET name = $2, description = $3, license_mode = $4, asset_source = $5,
		 asset_owner = $6, asset_repo = $7, asset_path = $8, asset_token = $9,
		 companion_link = $10, webhook_url = $11, paywall_key_duration = $12
		 WHERE project_id = $1
		`

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, string(p.LicenseMode), string(p.AssetSource),
		p.AssetOwner, p.AssetRepo, p.AssetPath, p.AssetToken,
		nullString(p.CompanionLink), nullString(p.WebhookURL), p.PaywallKeyDuration)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return mustAffect(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE project_id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return mustAffect(res)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*models.Project, error) {
	var (
		p                models.Project
		mode, source     string
		link, webhookURL sql.NullString
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.AuthorID, &mode, &source,
		&p.AssetOwner, &p.AssetRepo, &p.AssetPath, &p.AssetToken,
		&link, &webhookURL, &p.PaywallKeyDuration, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.LicenseMode = models.LicenseMode(mode)
	p.AssetSource = models.AssetSource(source)
	p.CompanionLink = link.String
	p.WebhookURL = webhookURL.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
