// Package assets fetches protected script bodies from their configured
// backend.
package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/scriptguard/internal/server/models"
)

// MaxAssetSize caps how many bytes a fetcher reads from any backend.
const MaxAssetSize = 8 << 20

var (
	ErrNotFound = errors.New("asset not found")
	ErrUpstream = errors.New("asset upstream error")
	ErrTimeout  = errors.New("asset fetch timed out")
	ErrTooLarge = errors.New("asset exceeds size limit")
)

// Locator identifies one file. Token is an optional per-project credential.
type Locator struct {
	Source models.AssetSource
	Owner  string
	Repo   string
	Path   string
	Token  string
}

func LocatorFor(p *models.Project) Locator {
	return Locator{
		Source: p.AssetSource,
		Owner:  p.AssetOwner,
		Repo:   p.AssetRepo,
		Path:   p.AssetPath,
		Token:  p.AssetToken,
	}
}

func (l Locator) String() string {
	return fmt.Sprintf("%s:%s/%s/%s", l.Source, l.Owner, l.Repo, l.Path)
}

type Fetcher interface {
	Fetch(ctx context.Context, loc Locator) ([]byte, error)
}

// Result is either the asset content or the reason it could not be fetched.
type Result struct {
	Content []byte
	Err     error
}

func Ok(content []byte) Result { return Result{Content: content} }

func Failed(err error) Result { return Result{Err: err} }

func (r Result) OK() bool { return r.Err == nil }

// FetchWithTimeout bounds one fetch. A deadline hit is reported as ErrTimeout.
func FetchWithTimeout(ctx context.Context, f Fetcher, loc Locator, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := f.Fetch(ctx, loc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			if !errors.Is(err, ErrTimeout) {
				err = fmt.Errorf("%w: %v", ErrTimeout, err)
			}
		}
		return Failed(err)
	}
	return Ok(b)
}

// classify maps transport errors from ctx-aware clients onto the asset
// error set.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
