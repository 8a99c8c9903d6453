// Package gate decides whether a device may receive a project's script.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

// DefaultBindAttempts bounds how often a lost bind race is re-evaluated.
const DefaultBindAttempts = 3

var errBindAttemptsExhausted = errors.New("bind attempts exhausted")

// KeyStore is the part of the key repository the gate needs.
type KeyStore interface {
	GetByKey(ctx context.Context, key string) (*models.Key, error)
	BindFingerprint(ctx context.Context, key, fingerprint string) (bool, error)
}

type Gate struct {
	keys         KeyStore
	now          func() time.Time
	logger       logging.Logger
	bindAttempts int
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(g *Gate) { g.logger = l.With("module", "gate") }
}

func WithBindAttempts(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.bindAttempts = n
		}
	}
}

func New(keys KeyStore, opts ...Option) *Gate {
	g := &Gate{
		keys:         keys,
		now:          time.Now,
		logger:       logging.Nop(),
		bindAttempts: DefaultBindAttempts,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Evaluate runs the license check for one request against the resolved
// project. A nil project means no project is configured.
func (g *Gate) Evaluate(ctx context.Context, project *models.Project, fingerprint, key string) Decision {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return deny(ReasonInvalidClient)
	}
	if project == nil {
		return deny(ReasonNotConfigured)
	}

	switch project.LicenseMode {
	case models.LicenseModeFreePaywall:
		return grant(&Claims{Fingerprint: fingerprint})
	case models.LicenseModePaid:
		d := g.evaluatePaid(ctx, project, fingerprint, strings.TrimSpace(key))
		if d.Reason == ReasonInternal {
			g.logger.Error(ctx, "gate internal failure", "project_id", project.ID, "error", d.Err)
		}
		return d
	default:
		return denyInternal(fmt.Errorf("unknown license mode %q", project.LicenseMode))
	}
}

func (g *Gate) evaluatePaid(ctx context.Context, project *models.Project, fingerprint, key string) Decision {
	if key == "" {
		return deny(ReasonMissingKey)
	}

	now := g.now()
	for attempt := 0; attempt < g.bindAttempts; attempt++ {
		k, err := g.keys.GetByKey(ctx, key)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return deny(ReasonInvalidKey)
			}
			return denyInternal(err)
		}

		// A key of another project looks exactly like an unknown key.
		if k.ProjectID != project.ID {
			return deny(ReasonInvalidKey)
		}
		if k.ExpiredAt(now) {
			return deny(ReasonKeyExpired)
		}

		if k.Bound() {
			if k.BoundFingerprint != fingerprint {
				return deny(ReasonDeviceMismatch)
			}
			return grant(claimsFor(k, now))
		}

		won, err := g.keys.BindFingerprint(ctx, key, fingerprint)
		if err != nil {
			return denyInternal(err)
		}
		if won {
			k.BoundFingerprint = fingerprint
			return grant(claimsFor(k, now))
		}
		// Another request bound the key first; re-read and compare.
		g.logger.Debug(ctx, "bind race lost", "project_id", project.ID, "attempt", attempt+1)
	}
	return denyInternal(errBindAttemptsExhausted)
}

func claimsFor(k *models.Key, now time.Time) *Claims {
	c := &Claims{
		OwnerIdentity: k.OwnerIdentity,
		DisplayName:   k.DisplayName,
		Note:          k.Note,
		Fingerprint:   k.BoundFingerprint,
		Premium:       true,
	}
	if k.ExpiresAt != nil {
		r := k.ExpiresAt.Sub(now)
		c.Remaining = &r
	}
	return c
}
