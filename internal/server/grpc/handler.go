package grpc

import (
	"context"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// Admin is the management service the handlers delegate to.
type Admin interface {
	CreateProject(ctx context.Context, adminID string, in services.ProjectInput) (*models.Project, error)
	ListProjects(ctx context.Context, adminID string) ([]*models.Project, error)
	GetProject(ctx context.Context, adminID, projectID string) (*models.Project, error)
	UpdateProject(ctx context.Context, adminID, projectID string, in services.ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, adminID, projectID string) error
	AddProjectAdmin(ctx context.Context, adminID, projectID, targetAdminID string) error
	CreateAPIKey(ctx context.Context, adminID, projectID, name string) (*models.APIKey, string, error)
	ListAPIKeys(ctx context.Context, adminID string) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, adminID, projectID, apiKeyID string) error
	CreateKey(ctx context.Context, adminID, projectID string, in services.KeyInput) (*models.Key, error)
	ListKeys(ctx context.Context, adminID, projectID string) ([]*models.Key, error)
	DeleteKey(ctx context.Context, adminID, projectID, key string) error
	ResetFingerprint(ctx context.Context, adminID, projectID, key string) error
	UpdateKeyNote(ctx context.Context, adminID, projectID, key, note string) error
	CountExecutions(ctx context.Context, adminID, projectID string) (int64, error)
	ListExecutions(ctx context.Context, adminID, projectID string, limit int) ([]*models.Execution, error)
	DeleteAccount(ctx context.Context, adminID string) error
}

type projectRef struct {
	ProjectID string `json:"project_id"`
}

type keyRef struct {
	ProjectID string `json:"project_id"`
	Key       string `json:"key"`
}

// call resolves the principal, decodes the request into req and runs fn.
// A nil result from fn is answered with an empty Struct.
func call[T any](s *GRPCServer, ctx context.Context, in *structpb.Struct, fn func(adminID string, req T) (any, error)) (*structpb.Struct, error) {
	adminID, err := adminIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var req T
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	resp, err := fn(adminID, req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if resp == nil {
		resp = empty{}
	}
	return encode(resp)
}

func (s *GRPCServer) CreateProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req services.ProjectInput) (any, error) {
		p, err := s.admin.CreateProject(ctx, adminID, req)
		if err != nil {
			return nil, err
		}
		return newProjectView(p), nil
	})
}

func (s *GRPCServer) ListProjects(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, _ empty) (any, error) {
		list, err := s.admin.ListProjects(ctx, adminID)
		if err != nil {
			return nil, err
		}
		views := make([]projectView, 0, len(list))
		for _, p := range list {
			views = append(views, newProjectView(p))
		}
		return map[string]any{"projects": views}, nil
	})
}

func (s *GRPCServer) GetProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req projectRef) (any, error) {
		p, err := s.admin.GetProject(ctx, adminID, req.ProjectID)
		if err != nil {
			return nil, err
		}
		return newProjectView(p), nil
	})
}

type updateProjectRequest struct {
	ProjectID string `json:"project_id"`
	services.ProjectInput
}

func (s *GRPCServer) UpdateProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req updateProjectRequest) (any, error) {
		p, err := s.admin.UpdateProject(ctx, adminID, req.ProjectID, req.ProjectInput)
		if err != nil {
			return nil, err
		}
		return newProjectView(p), nil
	})
}

func (s *GRPCServer) DeleteProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req projectRef) (any, error) {
		return nil, s.admin.DeleteProject(ctx, adminID, req.ProjectID)
	})
}

type addProjectAdminRequest struct {
	ProjectID string `json:"project_id"`
	AdminID   string `json:"admin_id"`
}

func (s *GRPCServer) AddProjectAdmin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req addProjectAdminRequest) (any, error) {
		return nil, s.admin.AddProjectAdmin(ctx, adminID, req.ProjectID, req.AdminID)
	})
}

type createAPIKeyRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

func (s *GRPCServer) CreateAPIKey(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req createAPIKeyRequest) (any, error) {
		k, token, err := s.admin.CreateAPIKey(ctx, adminID, req.ProjectID, req.Name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"api_key": newAPIKeyView(k), "token": token}, nil
	})
}

func (s *GRPCServer) ListAPIKeys(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, _ empty) (any, error) {
		list, err := s.admin.ListAPIKeys(ctx, adminID)
		if err != nil {
			return nil, err
		}
		views := make([]apiKeyView, 0, len(list))
		for _, k := range list {
			views = append(views, newAPIKeyView(k))
		}
		return map[string]any{"api_keys": views}, nil
	})
}

type deleteAPIKeyRequest struct {
	ProjectID string `json:"project_id"`
	APIKeyID  string `json:"api_key_id"`
}

func (s *GRPCServer) DeleteAPIKey(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req deleteAPIKeyRequest) (any, error) {
		return nil, s.admin.DeleteAPIKey(ctx, adminID, req.ProjectID, req.APIKeyID)
	})
}

type createKeyRequest struct {
	ProjectID string `json:"project_id"`
	services.KeyInput
}

func (s *GRPCServer) CreateKey(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req createKeyRequest) (any, error) {
		k, err := s.admin.CreateKey(ctx, adminID, req.ProjectID, req.KeyInput)
		if err != nil {
			return nil, err
		}
		return newKeyView(k), nil
	})
}

func (s *GRPCServer) ListKeys(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req projectRef) (any, error) {
		list, err := s.admin.ListKeys(ctx, adminID, req.ProjectID)
		if err != nil {
			return nil, err
		}
		views := make([]keyView, 0, len(list))
		for _, k := range list {
			views = append(views, newKeyView(k))
		}
		return map[string]any{"keys": views}, nil
	})
}

func (s *GRPCServer) DeleteKey(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req keyRef) (any, error) {
		return nil, s.admin.DeleteKey(ctx, adminID, req.ProjectID, req.Key)
	})
}

func (s *GRPCServer) ResetFingerprint(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req keyRef) (any, error) {
		return nil, s.admin.ResetFingerprint(ctx, adminID, req.ProjectID, req.Key)
	})
}

type updateKeyNoteRequest struct {
	ProjectID string `json:"project_id"`
	Key       string `json:"key"`
	Note      string `json:"note"`
}

func (s *GRPCServer) UpdateKeyNote(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req updateKeyNoteRequest) (any, error) {
		return nil, s.admin.UpdateKeyNote(ctx, adminID, req.ProjectID, req.Key, req.Note)
	})
}

func (s *GRPCServer) CountExecutions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req projectRef) (any, error) {
		n, err := s.admin.CountExecutions(ctx, adminID, req.ProjectID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"count": n}, nil
	})
}

type listExecutionsRequest struct {
	ProjectID string `json:"project_id"`
	Limit     int    `json:"limit"`
}

func (s *GRPCServer) ListExecutions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, req listExecutionsRequest) (any, error) {
		list, err := s.admin.ListExecutions(ctx, adminID, req.ProjectID, req.Limit)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []*models.Execution{}
		}
		return map[string]any{"executions": list}, nil
	})
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return call(s, ctx, in, func(adminID string, _ empty) (any, error) {
		return nil, s.admin.DeleteAccount(ctx, adminID)
	})
}
