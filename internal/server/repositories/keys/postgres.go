package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

const keyColumns = `project_id, key, key_type, expires_at, bound_fingerprint, owner_identity, display_name, note, executor`

func (r *PostgresRepository) Create(ctx context.Context, k *models.Key) error {
	query :=
		`INSERT INTO license_keys (project_id, key, key_type, expires_at, bound_fingerprint, owner_identity, display_name, note, executor)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`

	_, err := r.db.ExecContext(ctx, query,
		k.ProjectID, k.Key, string(k.Type), nullTime(k), nullString(k.BoundFingerprint),
		k.OwnerIdentity, k.DisplayName, nullString(k.Note), nullString(k.Executor))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*models.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM license_keys WHERE key = $1`

	k, err := scanKey(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM license_keys WHERE project_id = $1 ORDER BY key`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// BindFingerprint is a single conditional UPDATE, so two concurrent first
// uses cannot both win.
func (r *PostgresRepository) BindFingerprint(ctx context.Context, key, fingerprint string) (bool, error) {
	query :=
		`UPDATE license_keys SET bound_fingerprint = $2
		 WHERE key = $1 AND bound_fingerprint IS NULL
		`

	res, err := r.db.ExecContext(ctx, query, key, fingerprint)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ResetFingerprint(ctx context.Context, projectID, key string) error {
	query :=
		`UPDATE license_keys SET bound_fingerprint = NULL, executor = NULL
		 WHERE project_id = $1 AND key = $2
		`
	return r.execOne(ctx, query, projectID, key)
}

func (r *PostgresRepository) UpdateNote(ctx context.Context, projectID, key, note string) error {
	query :=
		`UPDATE license_keys SET note = $3
		 WHERE project_id = $1 AND key = $2
		`
	return r.execOne(ctx, query, projectID, key, nullString(strings.TrimSpace(note)))
}

func (r *PostgresRepository) Delete(ctx context.Context, projectID, key string) error {
	query := `DELETE FROM license_keys WHERE project_id = $1 AND key = $2`
	return r.execOne(ctx, query, projectID, key)
}

func (r *PostgresRepository) DeleteByProject(ctx context.Context, projectID string) error {
	query := `DELETE FROM license_keys WHERE project_id = $1`
	if _, err := r.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// execOne runs a statement that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (*models.Key, error) {
	var (
		k                           models.Key
		keyType                     string
		expires                     sql.NullTime
		fingerprint, note, executor sql.NullString
	)
	err := s.Scan(&k.ProjectID, &k.Key, &keyType, &expires, &fingerprint,
		&k.OwnerIdentity, &k.DisplayName, &note, &executor)
	if err != nil {
		return nil, err
	}
	k.Type = models.KeyType(keyType)
	if expires.Valid {
		t := expires.Time
		k.ExpiresAt = &t
	}
	k.BoundFingerprint = fingerprint.String
	k.Note = note.String
	k.Executor = executor.String
	return &k, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(k *models.Key) sql.NullTime {
	if k.ExpiresAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *k.ExpiresAt, Valid: true}
}
