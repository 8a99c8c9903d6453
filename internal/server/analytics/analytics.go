// Package analytics records granted script deliveries.
package analytics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/executions"
	"github.com/google/uuid"
)

type Recorder interface {
	Record(ctx context.Context, e *models.Execution) error
}

// NewExecution builds an execution record with a fresh id.
func NewExecution(projectID, ownerIdentity, userAgent string, at time.Time) *models.Execution {
	return &models.Execution{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		OwnerIdentity: ownerIdentity,
		Type:          ClassifyExecutor(userAgent),
		ExecutedAt:    at.UTC(),
	}
}

var (
	mobileMarkers  = []string{"android", "iphone", "ipad", "ios", "mobile"}
	desktopMarkers = []string{"windows", "win64", "macintosh", "mac os", "linux", "x86_64"}
)

// ClassifyExecutor guesses the device class from a user agent string.
func ClassifyExecutor(userAgent string) models.ExecutionType {
	ua := strings.ToLower(userAgent)
	for _, m := range mobileMarkers {
		if strings.Contains(ua, m) {
			return models.ExecutionMobile
		}
	}
	for _, m := range desktopMarkers {
		if strings.Contains(ua, m) {
			return models.ExecutionDesktop
		}
	}
	return models.ExecutionUnknown
}

type PostgresRecorder struct {
	repo executions.Repository
}

func NewPostgresRecorder(repo executions.Repository) *PostgresRecorder {
	return &PostgresRecorder{repo: repo}
}

func (r *PostgresRecorder) Record(ctx context.Context, e *models.Execution) error {
	return r.repo.Create(ctx, e)
}

// MultiRecorder fans one execution out to every recorder and joins their
// errors. A failing recorder does not stop the others.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, e *models.Execution) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
