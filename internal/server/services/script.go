// Package services contains server-side business logic. ScriptService
// answers script requests; AdminService backs the management API.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/analytics"
	"github.com/dmitrijs2005/scriptguard/internal/server/assets"
	"github.com/dmitrijs2005/scriptguard/internal/server/composer"
	"github.com/dmitrijs2005/scriptguard/internal/server/config"
	"github.com/dmitrijs2005/scriptguard/internal/server/gate"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/repomanager"
)

type Evaluator interface {
	Evaluate(ctx context.Context, project *models.Project, fingerprint, key string) gate.Decision
}

// Observer receives per-request measurements.
type Observer interface {
	ObserveDecision(kind, reason string)
	ObserveFetch(source string, ok bool, d time.Duration)
	AnalyticsError()
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(string, string)           {}
func (nopObserver) ObserveFetch(string, bool, time.Duration) {}
func (nopObserver) AnalyticsError()                          {}

// ScriptRequest is what the transport extracted from one inbound request.
// An empty ProjectID selects the configured default project.
type ScriptRequest struct {
	ProjectID   string
	Fingerprint string
	Key         string
	UserAgent   string
}

type ScriptService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	gate             Evaluator
	fetcher          assets.Fetcher
	composer         *composer.Composer
	recorder         analytics.Recorder
	observer         Observer
	logger           logging.Logger
	defaultProjectID string
	fetchTimeout     time.Duration
	now              func() time.Time
}

func NewScriptService(db *sql.DB, m repomanager.RepositoryManager, g Evaluator, f assets.Fetcher,
	c *composer.Composer, r analytics.Recorder, obs Observer, l logging.Logger, cfg *config.Config) *ScriptService {
	if obs == nil {
		obs = nopObserver{}
	}
	return &ScriptService{
		db:               db,
		repomanager:      m,
		gate:             g,
		fetcher:          f,
		composer:         c,
		recorder:         r,
		observer:         obs,
		logger:           l.With("module", "script_service"),
		defaultProjectID: cfg.ProjectID,
		fetchTimeout:     cfg.FetchTimeout,
		now:              time.Now,
	}
}

// Serve runs one request through the gate and renders the payload. It
// never fails: every error path yields an abort payload.
func (s *ScriptService) Serve(ctx context.Context, req ScriptRequest) composer.Payload {
	project, err := s.resolveProject(ctx, req.ProjectID)
	if err != nil {
		s.logger.Error(ctx, "project lookup failed", "project_id", req.ProjectID, "error", err)
		p := s.composer.Abort(nil, gate.ReasonInternal)
		s.observer.ObserveDecision(string(p.Kind), string(p.Reason))
		return p
	}

	d := s.gate.Evaluate(ctx, project, req.Fingerprint, req.Key)

	var res assets.Result
	if d.Granted() {
		s.record(ctx, project, d, req.UserAgent)
		res = s.fetch(ctx, project)
	}

	p := s.composer.Compose(project, d, res)
	s.observer.ObserveDecision(string(p.Kind), string(p.Reason))

	if project != nil {
		s.logger.Debug(ctx, "script request", "project_id", project.ID, "kind", p.Kind, "reason", p.Reason)
	}
	return p
}

// resolveProject returns nil without error when no project matches, which
// the gate reports as not configured.
func (s *ScriptService) resolveProject(ctx context.Context, id string) (*models.Project, error) {
	repo := s.repomanager.Projects(s.db)

	if id == "" {
		id = s.defaultProjectID
	}

	var (
		p   *models.Project
		err error
	)
	if id == "" {
		p, err = repo.GetOldest(ctx)
	} else {
		p, err = repo.Get(ctx, id)
	}
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *ScriptService) fetch(ctx context.Context, project *models.Project) assets.Result {
	loc := assets.LocatorFor(project)
	start := s.now()
	res := assets.FetchWithTimeout(ctx, s.fetcher, loc, s.fetchTimeout)
	s.observer.ObserveFetch(string(loc.Source), res.OK(), s.now().Sub(start))

	if !res.OK() {
		s.logger.Warn(ctx, "asset fetch failed", "project_id", project.ID, "locator", loc.String(), "error", res.Err)
	}
	return res
}

// record is best effort; a failure is logged and counted only.
func (s *ScriptService) record(ctx context.Context, project *models.Project, d gate.Decision, userAgent string) {
	if s.recorder == nil {
		return
	}
	e := analytics.NewExecution(project.ID, d.Claims.OwnerIdentity, userAgent, s.now())
	if err := s.recorder.Record(ctx, e); err != nil {
		s.observer.AnalyticsError()
		s.logger.Warn(ctx, "execution record failed", "project_id", project.ID, "error", err)
	}
}
