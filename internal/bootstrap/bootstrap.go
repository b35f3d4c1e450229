package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/cloverkingdom/academy/internal/app/controllers"
	"github.com/cloverkingdom/academy/internal/app/grimoire"
	appMigrations "github.com/cloverkingdom/academy/internal/app/migrations"
	appRepos "github.com/cloverkingdom/academy/internal/app/repositories"
	appRoutes "github.com/cloverkingdom/academy/internal/app/routes"
	appServices "github.com/cloverkingdom/academy/internal/app/services"
	"github.com/cloverkingdom/academy/internal/config"
	"github.com/cloverkingdom/academy/internal/db"
	appMiddleware "github.com/cloverkingdom/academy/internal/middleware"
	"github.com/cloverkingdom/academy/internal/pkg/logger"
	"github.com/cloverkingdom/academy/internal/seed"
)

// ConfigPathEnv overrides the default config file location
const ConfigPathEnv = "ACADEMY_CONFIG"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Catalog             grimoire.Catalog
	AdmissionService    appServices.AdmissionService
	AdmissionController *appControllers.AdmissionController
	Repo                appRepos.RequestRepository
	Logger              zerolog.Logger
}

// Store is the request repository selected by the config plus its cleanup
type Store struct {
	Repo  appRepos.RequestRepository
	close func()
}

// Close releases the underlying database handle
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// ConfigPath returns the config file to load
func ConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnv)); p != "" {
		return p
	}
	return filepath.Join("configs", "config.yaml")
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  prettyLog,
		Service: "academy",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured database, applies migrations and returns
// the matching request repository.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Store, error) {
	driver := strings.ToLower(cfg.Database.Driver)
	lgr.Info().Str("driver", driver).Msg("Setting up request store...")

	switch driver {
	case config.DriverPostgres:
		database, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		migrator := appMigrations.NewMigrator(database.Pool, lgr)
		if err := migrator.MigrateFS(ctx, appMigrations.FS, appMigrations.PostgresDir); err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")
		return &Store{Repo: appRepos.NewPostgresRequestRepository(database.Pool), close: database.Close}, nil

	case config.DriverSQLite:
		database, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Str("path", cfg.Database.SQLitePath).Msg("Failed to open sqlite database")
			return nil, err
		}
		if err := appMigrations.MigrateSQLite(ctx, database.DB, appMigrations.FS, appMigrations.SQLiteDir); err != nil {
			_ = database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Str("path", cfg.Database.SQLitePath).Msg("SQLite store ready")
		return &Store{
			Repo: appRepos.NewSQLiteRequestRepository(database.DB),
			close: func() {
				if err := database.Close(); err != nil {
					lgr.Error().Err(err).Msg("Failed to close sqlite database")
				}
			},
		}, nil

	case config.DriverMemory:
		lgr.Warn().Msg("Using in-memory store, data is lost on restart")
		return &Store{Repo: appRepos.NewMemoryRequestRepository()}, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// BuildCatalog returns the configured grimoire catalog, or the default one
// when the config lists none.
func BuildCatalog(cfg *config.Config) (grimoire.Catalog, error) {
	if len(cfg.Grimoire.Catalog) == 0 {
		return grimoire.DefaultCatalog(), nil
	}
	return grimoire.NewCatalog(cfg.Grimoire.Catalog)
}

// BuildDependencies initializes services and controllers on top of repo.
func BuildDependencies(cfg *config.Config, repo appRepos.RequestRepository, lgr zerolog.Logger) (*Dependencies, error) {
	catalog, err := BuildCatalog(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Invalid grimoire catalog")
		return nil, err
	}

	var src grimoire.Source
	if cfg.Grimoire.Seed != 0 {
		src = grimoire.NewLockedSource(grimoire.NewSeededSource(cfg.Grimoire.Seed))
		lgr.Info().Uint64("seed", cfg.Grimoire.Seed).Msg("Grimoire draws are seeded")
	}

	deps := &Dependencies{
		Catalog: catalog,
		Repo:    repo,
		Logger:  lgr,
	}
	deps.AdmissionService = appServices.NewAdmissionService(repo, grimoire.NewWeightedAssigner(src), catalog, lgr)
	deps.AdmissionController = appControllers.NewAdmissionController(deps.AdmissionService)

	lgr.Info().Int("variants", catalog.Len()).Int("totalWeight", catalog.TotalWeight()).Msg("Grimoire catalog loaded")
	return deps, nil
}

// SeedData creates the demo requests when enabled. Failures are logged only.
func SeedData(ctx context.Context, cfg *config.Config, deps *Dependencies) {
	if !cfg.Seed.Demo {
		return
	}
	if err := seed.CreateDemoData(ctx, deps.AdmissionService, deps.Logger); err != nil {
		deps.Logger.Error().Err(err).Msg("Failed to create demo data, proceeding anyway...")
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		appMiddleware.RequestID(lgr),
		appMiddleware.RequestLogger(),
		appMiddleware.Recovery(),
	)

	appRoutes.SetupRouter(router, deps.AdmissionController)
	return router
}
