package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/handler"
	"github.com/Phurinho/outcome-career-align/internal/repository"
	"github.com/Phurinho/outcome-career-align/internal/service"
	"github.com/Phurinho/outcome-career-align/migrations"
	"github.com/Phurinho/outcome-career-align/pkg/cache"
	"github.com/Phurinho/outcome-career-align/pkg/config"
	"github.com/Phurinho/outcome-career-align/pkg/database"
)

const tokenIssuer = "outcome-career-align"

// App owns the HTTP router and every long-lived dependency.
type App struct {
	Config *config.Config
	Router *gin.Engine
	Logger *zap.Logger

	db       *sqlx.DB
	redis    *redis.Client
	services *services
}

type stores struct {
	clos     service.CLOStore
	mappings service.MappingStore
	catalog  *repository.CatalogRepository
}

type services struct {
	metrics   *service.MetricsService
	cache     *service.CacheService
	clo       *service.CLOService
	mapping   *service.MappingService
	scoring   *service.ScoringService
	analytics *service.AnalyticsService
	export    *service.ExportService
	auth      *service.AuthService
}

type handlers struct {
	clo       *handler.CLOHandler
	mapping   *handler.MappingHandler
	scoring   *handler.ScoringHandler
	analytics *handler.AnalyticsHandler
	catalog   *handler.CatalogHandler
	export    *handler.ExportHandler
	metrics   *handler.MetricsHandler
	auth      *handler.AuthHandler
}

// New builds the application. Postgres and Redis are only dialled when the
// configuration asks for them; everything else runs in memory.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	st, err := a.initStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	cacheRepo := a.initCache(ctx)
	a.services = a.initServices(st, cacheRepo)
	a.services.scoring.Start(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Router = gin.New()
	a.registerRoutes(a.Router, a.initHandlers(st))
	return a, nil
}

func (a *App) initStores(ctx context.Context) (*stores, error) {
	catalog, err := repository.LoadCatalog(a.Config.Catalog.File)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	units, _ := catalog.Units(ctx)
	a.Logger.Info("catalog loaded", zap.Int("units", len(units)), zap.String("file", a.Config.Catalog.File))

	if a.Config.StoreDriver != config.StorePostgres {
		a.Logger.Info("using in-memory stores")
		return &stores{
			clos:     repository.NewMemoryCLOStore(),
			mappings: repository.NewMemoryMappingStore(),
			catalog:  catalog,
		}, nil
	}

	db, err := database.NewPostgres(ctx, a.Config.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := database.Migrate(ctx, db, migrations.Files); err != nil {
		return nil, err
	}
	a.Logger.Info("using postgres stores", zap.String("host", a.Config.Database.Host), zap.String("database", a.Config.Database.Name))
	return &stores{
		clos:     repository.NewCLORepository(db),
		mappings: repository.NewMappingRepository(db),
		catalog:  catalog,
	}, nil
}

// initCache returns nil when caching is disabled or Redis is unreachable.
func (a *App) initCache(ctx context.Context) service.CacheRepository {
	if !a.Config.Analytics.CacheEnabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, a.Config.Redis)
	if err != nil {
		a.Logger.Warn("analytics cache disabled", zap.Error(err))
		return nil
	}
	a.redis = client
	return repository.NewCacheRepository(client, a.Logger)
}

func (a *App) initServices(st *stores, cacheRepo service.CacheRepository) *services {
	validate := validator.New()
	s := &services{}

	s.metrics = service.NewMetricsService()
	s.cache = service.NewCacheService(cacheRepo, s.metrics, a.Config.Analytics.CacheTTL, a.Logger, cacheRepo != nil)
	s.clo = service.NewCLOService(st.clos, st.mappings, s.cache, validate, a.Logger)
	s.mapping = service.NewMappingService(st.mappings, st.clos, st.catalog,
		service.NewLexicalScorer(a.Config.Scoring.MinConfidence), s.cache, s.metrics, a.Logger)
	s.scoring = service.NewScoringService(s.mapping, service.ScoringQueueConfig{
		Workers:    a.Config.Scoring.Workers,
		Retries:    a.Config.Scoring.Retries,
		RetryDelay: a.Config.Scoring.RetryDelay,
		RunTTL:     a.Config.Scoring.RunTTL,
	}, s.metrics, a.Logger)
	s.analytics = service.NewAnalyticsService(st.clos, st.mappings, st.catalog, s.cache, s.metrics, a.Logger)
	s.export = service.NewExportService(s.mapping, a.Logger)
	s.auth = service.NewAuthService(validate, a.Logger, service.AuthConfig{
		Secret: a.Config.JWT.Secret,
		Expiry: a.Config.JWT.Expiration,
		Issuer: tokenIssuer,
	})
	return s
}

func (a *App) initHandlers(st *stores) *handlers {
	checks := map[string]handler.ReadinessCheck{}
	if a.db != nil {
		checks["postgres"] = func(ctx context.Context) error { return a.db.PingContext(ctx) }
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return &handlers{
		clo:       handler.NewCLOHandler(a.services.clo),
		mapping:   handler.NewMappingHandler(a.services.mapping),
		scoring:   handler.NewScoringHandler(a.services.scoring),
		analytics: handler.NewAnalyticsHandler(a.services.analytics),
		catalog:   handler.NewCatalogHandler(st.catalog),
		export:    handler.NewExportHandler(a.services.export),
		metrics:   handler.NewMetricsHandler(a.services.metrics, checks),
		auth:      handler.NewAuthHandler(a.services.auth),
	}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", a.Config.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops background workers and releases connections.
func (a *App) Close() {
	if a.services != nil && a.services.scoring != nil {
		a.services.scoring.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn("close postgres", zap.Error(err))
		}
	}
}
