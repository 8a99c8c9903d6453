package grpc

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// decode copies the fields of in into dst through their JSON form.
func decode(in *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

type empty struct{}

type projectView struct {
	ID                 string             `json:"project_id"`
	Name               string             `json:"name"`
	Description        string             `json:"description,omitempty"`
	AuthorID           string             `json:"author_id"`
	LicenseMode        models.LicenseMode `json:"license_mode"`
	AssetSource        models.AssetSource `json:"asset_source"`
	AssetOwner         string             `json:"asset_owner"`
	AssetRepo          string             `json:"asset_repo"`
	AssetPath          string             `json:"asset_path"`
	HasAssetToken      bool               `json:"has_asset_token"`
	CompanionLink      string             `json:"companion_link,omitempty"`
	WebhookURL         string             `json:"webhook_url,omitempty"`
	PaywallKeyDuration int                `json:"paywall_key_duration"`
	CreatedAt          time.Time          `json:"created_at"`
}

func newProjectView(p *models.Project) projectView {
	return projectView{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		AuthorID:           p.AuthorID,
		LicenseMode:        p.LicenseMode,
		AssetSource:        p.AssetSource,
		AssetOwner:         p.AssetOwner,
		AssetRepo:          p.AssetRepo,
		AssetPath:          p.AssetPath,
		HasAssetToken:      p.AssetToken != "",
		CompanionLink:      p.CompanionLink,
		WebhookURL:         p.WebhookURL,
		PaywallKeyDuration: p.PaywallKeyDuration,
		CreatedAt:          p.CreatedAt,
	}
}

type keyView struct {
	ProjectID        string         `json:"project_id"`
	Key              string         `json:"key"`
	Type             models.KeyType `json:"key_type"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	BoundFingerprint string         `json:"bound_fingerprint,omitempty"`
	OwnerIdentity    string         `json:"owner_identity"`
	DisplayName      string         `json:"display_name"`
	Note             string         `json:"note,omitempty"`
	Executor         string         `json:"executor,omitempty"`
}

func newKeyView(k *models.Key) keyView {
	return keyView{
		ProjectID:        k.ProjectID,
		Key:              k.Key,
		Type:             k.Type,
		ExpiresAt:        k.ExpiresAt,
		BoundFingerprint: k.BoundFingerprint,
		OwnerIdentity:    k.OwnerIdentity,
		DisplayName:      k.DisplayName,
		Note:             k.Note,
		Executor:         k.Executor,
	}
}

type apiKeyView struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newAPIKeyView(k *models.APIKey) apiKeyView {
	return apiKeyView{
		ID:        k.ID,
		ProjectID: k.ProjectID,
		Name:      k.Name,
		CreatorID: k.CreatorID,
		CreatedAt: k.CreatedAt,
	}
}
