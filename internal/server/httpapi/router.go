package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/composer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RateObserver interface {
	RateLimited()
}

// RouterConfig carries everything NewRouter needs beyond the handler.
type RouterConfig struct {
	Composer       *composer.Composer
	Metrics        http.Handler
	RateObserver   RateObserver
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(h *Handler, cfg RouterConfig, l logging.Logger) http.Handler {
	l = l.With("module", "http_router")

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(l))
	r.Use(Recoverer(cfg.Composer, l))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, throttled(cfg, l))
	r.Route("/api/script", func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Get("/", h.Script)
		r.Get("/{projectID}", h.Script)
	})
	return r
}

func throttled(cfg RouterConfig, l logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.RateObserver != nil {
			cfg.RateObserver.RateLimited()
		}
		l.Warn(r.Context(), "rate limit exceeded", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		w.Header().Set("Retry-After", "1")
		writePayload(w, http.StatusTooManyRequests, cfg.Composer.Abort(nil, composer.ReasonRateLimited))
	})
}
