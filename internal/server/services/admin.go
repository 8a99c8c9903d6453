package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/cryptox"
	"github.com/dmitrijs2005/scriptguard/internal/dbx"
	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	APIKeyPrefix = "sgk_"

	DefaultExecutionsLimit = 100
	MaxExecutionsLimit     = 1000
)

// ProjectInput holds the mutable fields of a project.
type ProjectInput struct {
	Name               string             `json:"name" validate:"required,max=100"`
	Description        string             `json:"description" validate:"max=2000"`
	LicenseMode        models.LicenseMode `json:"license_mode" validate:"required,oneof=paid free-paywall"`
	AssetSource        models.AssetSource `json:"asset_source" validate:"omitempty,oneof=github s3"`
	AssetOwner         string             `json:"asset_owner" validate:"required"`
	AssetRepo          string             `json:"asset_repo" validate:"required"`
	AssetPath          string             `json:"asset_path" validate:"required"`
	AssetToken         string             `json:"asset_token"`
	CompanionLink      string             `json:"companion_link" validate:"omitempty,url"`
	WebhookURL         string             `json:"webhook_url" validate:"omitempty,url"`
	PaywallKeyDuration int                `json:"paywall_key_duration" validate:"gte=0"`
}

func (in ProjectInput) apply(p *models.Project) {
	p.Name = in.Name
	p.Description = in.Description
	p.LicenseMode = in.LicenseMode
	p.AssetSource = in.AssetSource
	if p.AssetSource == "" {
		p.AssetSource = models.AssetSourceGitHub
	}
	p.AssetOwner = in.AssetOwner
	p.AssetRepo = in.AssetRepo
	p.AssetPath = in.AssetPath
	p.AssetToken = in.AssetToken
	p.CompanionLink = in.CompanionLink
	p.WebhookURL = in.WebhookURL
	p.PaywallKeyDuration = in.PaywallKeyDuration
}

// KeyInput creates a license key. An empty Key is generated.
type KeyInput struct {
	Key           string         `json:"key" validate:"omitempty,min=8,max=128,printascii"`
	Type          models.KeyType `json:"key_type" validate:"required,oneof=temporary permanent checkpoint"`
	ExpiresAt     *time.Time     `json:"expires_at"`
	OwnerIdentity string         `json:"owner_identity" validate:"required,max=100"`
	DisplayName   string         `json:"display_name" validate:"required,max=100"`
	Note          string         `json:"note" validate:"max=500"`
}

// AdminService implements the management operations. Every call takes the
// calling admin's id, which must belong to a registered admin; project
// scoped calls also require a grant on that project.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	validate    *validator.Validate
	logger      logging.Logger
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: m,
		validate:    newValidator(),
		logger:      l.With("module", "admin_service"),
	}
}

// EnsureAdmin registers or refreshes an admin. It performs no permission
// check and is meant for operator tooling.
func (s *AdminService) EnsureAdmin(ctx context.Context, a *models.Admin) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: admin id is required", common.ErrorValidation)
	}
	return s.repomanager.Admins(s.db).Upsert(ctx, a)
}

func (s *AdminService) validateAdmin(ctx context.Context, adminID string) (*models.Admin, error) {
	if adminID == "" {
		return nil, common.ErrorUnauthorized
	}
	a, err := s.repomanager.Admins(s.db).Get(ctx, adminID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return a, nil
}

func (s *AdminService) validatePermissions(ctx context.Context, adminID, projectID string) (*models.Project, error) {
	if _, err := s.validateAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Projects(s.db).Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repomanager.Admins(s.db).IsProjectAdmin(ctx, projectID, adminID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return p, nil
}

func (s *AdminService) CreateProject(ctx context.Context, adminID string, in ProjectInput) (*models.Project, error) {
	if _, err := s.validateAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	id, err := common.RandomAlphanumeric(15, 20)
	if err != nil {
		return nil, fmt.Errorf("generate project id: %w", err)
	}

	p := &models.Project{ID: id, AuthorID: adminID}
	in.apply(p)

	var created *models.Project
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Projects(tx).Create(ctx, p)
		if err != nil {
			return err
		}
		return s.repomanager.Admins(tx).AddProjectAdmin(ctx, id, adminID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "project created", "project_id", id, "admin_id", adminID)
	return created, nil
}

func (s *AdminService) ListProjects(ctx context.Context, adminID string) ([]*models.Project, error) {
	if _, err := s.validateAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.repomanager.Projects(s.db).ListByAuthor(ctx, adminID)
}

func (s *AdminService) GetProject(ctx context.Context, adminID, projectID string) (*models.Project, error) {
	return s.validatePermissions(ctx, adminID, projectID)
}

func (s *AdminService) UpdateProject(ctx context.Context, adminID, projectID string, in ProjectInput) (*models.Project, error) {
	p, err := s.validatePermissions(ctx, adminID, projectID)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	in.apply(p)
	if err := s.repomanager.Projects(s.db).Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *AdminService) DeleteProject(ctx context.Context, adminID, projectID string) error {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return err
	}

	err := dbx.WithRetry(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.deleteProjectTx(ctx, tx, projectID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "project deleted", "project_id", projectID, "admin_id", adminID)
	return nil
}

// deleteProjectTx removes a project and everything that references it.
func (s *AdminService) deleteProjectTx(ctx context.Context, tx dbx.DBTX, projectID string) error {
	if err := s.repomanager.Keys(tx).DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.repomanager.Executions(tx).DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.repomanager.APIKeys(tx).DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.repomanager.Admins(tx).DeleteProjectAdmins(ctx, projectID); err != nil {
		return err
	}
	return s.repomanager.Projects(tx).Delete(ctx, projectID)
}

func (s *AdminService) AddProjectAdmin(ctx context.Context, adminID, projectID, targetAdminID string) error {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return err
	}
	if _, err := s.repomanager.Admins(s.db).Get(ctx, targetAdminID); err != nil {
		return err
	}
	return s.repomanager.Admins(s.db).AddProjectAdmin(ctx, projectID, targetAdminID)
}

// CreateAPIKey returns the stored record and the plaintext token. The
// token is not recoverable afterwards.
func (s *AdminService) CreateAPIKey(ctx context.Context, adminID, projectID, name string) (*models.APIKey, string, error) {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return nil, "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", common.ErrorValidation)
	}

	suffix, err := common.RandomAlphanumeric(25, 30)
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	token := APIKeyPrefix + suffix

	k, err := s.repomanager.APIKeys(s.db).Create(ctx, &models.APIKey{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		CreatorID: adminID,
		KeyHash:   HashAPIKey(token),
	})
	if err != nil {
		return nil, "", err
	}
	return k, token, nil
}

func HashAPIKey(token string) []byte {
	return cryptox.HashToken(token)
}

func (s *AdminService) ListAPIKeys(ctx context.Context, adminID string) ([]*models.APIKey, error) {
	if _, err := s.validateAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	return s.repomanager.APIKeys(s.db).ListByCreator(ctx, adminID)
}

func (s *AdminService) DeleteAPIKey(ctx context.Context, adminID, projectID, apiKeyID string) error {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return err
	}
	return s.repomanager.APIKeys(s.db).Delete(ctx, projectID, apiKeyID)
}

func (s *AdminService) CreateKey(ctx context.Context, adminID, projectID string, in KeyInput) (*models.Key, error) {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return nil, err
	}
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(in.Key)
	if token == "" {
		var err error
		if token, err = common.RandomAlphanumeric(32, 32); err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
	}

	k := &models.Key{
		ProjectID:     projectID,
		Key:           token,
		Type:          in.Type,
		ExpiresAt:     in.ExpiresAt,
		OwnerIdentity: in.OwnerIdentity,
		DisplayName:   in.DisplayName,
		Note:          strings.TrimSpace(in.Note),
	}
	if err := s.repomanager.Keys(s.db).Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

func (s *AdminService) ListKeys(ctx context.Context, adminID, projectID string) ([]*models.Key, error) {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return nil, err
	}
	return s.repomanager.Keys(s.db).ListByProject(ctx, projectID)
}

func (s *AdminService) DeleteKey(ctx context.Context, adminID, projectID, key string) error {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return err
	}
	return s.repomanager.Keys(s.db).Delete(ctx, projectID, key)
}

// ResetFingerprint unbinds a key so the next device to use it claims it.
func (s *AdminService) ResetFingerprint(ctx context.Context, adminID, projectID, key string) error {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return err
	}
	if err := s.repomanager.Keys(s.db).ResetFingerprint(ctx, projectID, key); err != nil {
		return err
	}
	s.logger.Info(ctx, "key fingerprint reset", "project_id", projectID, "admin_id", adminID)
	return nil
}

// UpdateKeyNote stores note; a blank note clears it.
func (s *AdminService) UpdateKeyNote(ctx context.Context, adminID, projectID, key, note string) error {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return err
	}
	if len(note) > 500 {
		return fmt.Errorf("%w: note: max=500", common.ErrorValidation)
	}
	return s.repomanager.Keys(s.db).UpdateNote(ctx, projectID, key, strings.TrimSpace(note))
}

func (s *AdminService) CountExecutions(ctx context.Context, adminID, projectID string) (int64, error) {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return 0, err
	}
	return s.repomanager.Executions(s.db).Count(ctx, projectID)
}

// ListExecutions returns the newest executions first. limit <= 0 means
// DefaultExecutionsLimit; larger values are capped at MaxExecutionsLimit.
func (s *AdminService) ListExecutions(ctx context.Context, adminID, projectID string, limit int) ([]*models.Execution, error) {
	if _, err := s.validatePermissions(ctx, adminID, projectID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultExecutionsLimit
	case limit > MaxExecutionsLimit:
		limit = MaxExecutionsLimit
	}
	return s.repomanager.Executions(s.db).List(ctx, projectID, limit)
}

// DeleteAccount removes every project the admin authored and then the
// admin, in one transaction.
func (s *AdminService) DeleteAccount(ctx context.Context, adminID string) error {
	if _, err := s.validateAdmin(ctx, adminID); err != nil {
		return err
	}

	err := dbx.WithRetry(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		owned, err := s.repomanager.Projects(tx).ListByAuthor(ctx, adminID)
		if err != nil {
			return err
		}
		for _, p := range owned {
			if err := s.deleteProjectTx(ctx, tx, p.ID); err != nil {
				return err
			}
		}
		return s.repomanager.Admins(tx).Delete(ctx, adminID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "admin account deleted", "admin_id", adminID)
	return nil
}
