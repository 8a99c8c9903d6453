package assets

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

// Router dispatches to the fetcher registered for a locator's source.
type Router struct {
	fetchers map[models.AssetSource]Fetcher
}

func NewRouter() *Router {
	return &Router{fetchers: make(map[models.AssetSource]Fetcher)}
}

func (r *Router) Register(src models.AssetSource, f Fetcher) *Router {
	r.fetchers[src] = f
	return r
}

func (r *Router) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	f, ok := r.fetchers[loc.Source]
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for source %q", ErrUpstream, loc.Source)
	}
	return f.Fetch(ctx, loc)
}
