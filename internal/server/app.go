// Package server wires the storage, gate, asset and transport layers into
// a runnable application: the public HTTP script endpoint and the admin
// gRPC API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/analytics"
	"github.com/dmitrijs2005/scriptguard/internal/server/assets"
	"github.com/dmitrijs2005/scriptguard/internal/server/composer"
	"github.com/dmitrijs2005/scriptguard/internal/server/config"
	"github.com/dmitrijs2005/scriptguard/internal/server/gate"
	"github.com/dmitrijs2005/scriptguard/internal/server/httpapi"
	"github.com/dmitrijs2005/scriptguard/internal/server/metrics"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/dmitrijs2005/scriptguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/scriptguard/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"

	gs "github.com/dmitrijs2005/scriptguard/internal/server/grpc"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	metrics       *metrics.Metrics
	scriptService *services.ScriptService
	adminService  *services.AdminService
	closers       []io.Closer
}

// OpenDatabase connects through the pgx stdlib driver and applies pending
// migrations.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	return db, rm, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(os.Stdout, c.Environment, c.LogLevel)

	db, rm, err := OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}
	app.closers = append(app.closers, db)

	fetcher, err := app.newFetcher(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	recorder, err := app.newRecorder(rm)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	g := gate.New(rm.Keys(db), gate.WithLogger(logger))
	app.scriptService = services.NewScriptService(db, rm, g, fetcher, composer.New(c.Brand), recorder, app.metrics, logger, c)
	app.adminService = services.NewAdminService(db, rm, logger)

	return app, nil
}

// newFetcher routes GitHub locators to the GitHub API and, when S3 is
// configured, s3 locators to the bucket store. A configured Redis fronts
// both.
func (app *App) newFetcher(ctx context.Context) (assets.Fetcher, error) {
	c := app.config
	router := assets.NewRouter().
		Register(models.AssetSourceGitHub, assets.NewGitHubFetcher(c.GitHubAPIURL, c.GitHubToken, &http.Client{}))

	if c.S3BaseEndpoint != "" || c.S3RootUser != "" {
		client, err := assets.NewS3Client(ctx, assets.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		router.Register(models.AssetSourceS3, assets.NewS3Fetcher(client))
	}

	if c.RedisURL == "" || c.AssetCacheTTL <= 0 {
		return router, nil
	}

	client, err := assets.ConnectRedis(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	app.closers = append(app.closers, client)
	return assets.NewCachedFetcher(router, assets.NewRedisCache(client), c.AssetCacheTTL, app.logger), nil
}

func (app *App) newRecorder(rm repomanager.RepositoryManager) (analytics.Recorder, error) {
	recorders := analytics.MultiRecorder{analytics.NewPostgresRecorder(rm.Executions(app.db))}

	if len(app.config.KafkaBrokers) > 0 {
		w, err := analytics.NewKafkaWriter(app.config.KafkaBrokers, app.config.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("kafka init error: %w", err)
		}
		kr := analytics.NewKafkaRecorder(w, app.logger)
		app.closers = append(app.closers, kr)
		recorders = append(recorders, kr)
	}
	return recorders, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.scriptService, app.db, app.config.KeyHeader, app.logger)
	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		Composer:       composer.New(app.config.Brand),
		Metrics:        app.metrics.Handler(),
		RateObserver:   app.metrics,
		RateLimitRPS:   app.config.RateLimitRPS,
		RateLimitBurst: app.config.RateLimitBurst,
	}, app.logger)

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.adminService, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or either server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "shutdown error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases connections in reverse order of acquisition.
func (app *App) Close() error {
	var firstErr error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	app.closers = nil
	return firstErr
}
