package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/campuskizuna/internal/app/auth"
	appControllers "github.com/yigit/campuskizuna/internal/app/controllers"
	appMigrations "github.com/yigit/campuskizuna/internal/app/migrations"
	appRepos "github.com/yigit/campuskizuna/internal/app/repositories"
	appRoutes "github.com/yigit/campuskizuna/internal/app/routes"
	appServices "github.com/yigit/campuskizuna/internal/app/services"
	"github.com/yigit/campuskizuna/internal/config"
	"github.com/yigit/campuskizuna/internal/db"
	"github.com/yigit/campuskizuna/internal/jobs"
	appMiddleware "github.com/yigit/campuskizuna/internal/middleware"
	pkgAuth "github.com/yigit/campuskizuna/internal/pkg/auth"
	"github.com/yigit/campuskizuna/internal/pkg/cache"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
	"github.com/yigit/campuskizuna/internal/pkg/logger"
	"github.com/yigit/campuskizuna/internal/pkg/validation"
	"github.com/yigit/campuskizuna/internal/pkg/websocket"
	"github.com/yigit/campuskizuna/internal/seed"
)

// backlogSize is how many recent events per topic a new websocket client receives
const backlogSize = 20

// Storage holds the persistence backends chosen by configuration
type Storage struct {
	Repos    *appRepos.Repositories
	Sessions appRepos.SessionStore
	DB       *db.PostgresDB    // nil with the memory driver
	Redis    *cache.RedisCache // nil when redis is disabled or unreachable
}

// Close releases every open backend
func (s *Storage) Close(lgr zerolog.Logger) {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			lgr.Error().Err(err).Msg("Redis close error")
		}
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Storage *Storage

	JWTService   *pkgAuth.JWTService
	AuthzService *appAuth.AuthorizationService

	UserService       appServices.UserService
	ContentService    appServices.ContentService
	SchedulingService appServices.SchedulingService
	SessionService    appServices.SessionService
	ExportService     appServices.ExportService

	SessionController  *appControllers.SessionController
	UserController     *appControllers.UserController
	ContentController  *appControllers.ContentController
	AcademicController *appControllers.AcademicController
	ExportController   *appControllers.ExportController

	AuthMiddleware *appMiddleware.AuthMiddleware
	Hub            *websocket.Hub
	Backlog        *websocket.Backlog
	WSHandler      *websocket.Handler
	Cron           *jobs.CronManager

	Logger zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured document store, applies migrations when it
// is postgres, connects redis when enabled, and seeds the demo data.
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	storage := &Storage{}

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		storage.DB = database
		lgr.Info().Msg("Database connection successfully established.")

		lgr.Info().Str("dir", cfg.Database.MigrationsDir).Msg("Running database migrations...")
		migrator := appMigrations.NewMigrator(database.Pool, lgr)
		if err := migrator.MigrateFromDirectory(ctx, cfg.Database.MigrationsDir); err != nil {
			lgr.Error().Err(err).Msg("Database migration error")
			database.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")
		storage.Repos = appRepos.NewPostgresRepositories(database)
	default:
		lgr.Info().Msg("Using in-memory storage")
		storage.Repos = appRepos.NewMemoryRepositories()
	}

	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			// Sessions fall back to process memory and rate limiting is skipped
			lgr.Error().Err(err).Msg("Redis unavailable, continuing without it")
		} else {
			storage.Redis = rc
			lgr.Info().Msg("Redis connection established")
		}
	}
	if storage.Redis != nil {
		storage.Sessions = appRepos.NewRedisSessionStore(storage.Redis, time.Now)
	} else {
		storage.Sessions = appRepos.NewMemorySessionStore(time.Now)
	}

	if cfg.Storage.Seed {
		opts := seed.Options{Password: cfg.Storage.SeedPassword, BcryptCost: pkgAuth.BcryptCost}
		if err := seed.CreateDefaultData(ctx, storage.Repos, helpers.SystemClock{}, opts, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return storage, nil
}

// BuildDependencies initializes services, controllers, the websocket hub and cron jobs.
func BuildDependencies(cfg *config.Config, storage *Storage, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Storage: storage, Logger: lgr}
	repos := storage.Repos
	clock := helpers.SystemClock{}
	locks := keylock.New()

	deps.Hub = websocket.NewHub(lgr)
	deps.Backlog = websocket.NewBacklog(deps.Hub, backlogSize, lgr)
	deps.WSHandler = websocket.NewHandler(deps.Hub, deps.Backlog, func(userID string) []string {
		return []string{appServices.TopicFeed, appServices.UserTopic(userID)}
	}, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(repos.Users, lgr)

	deps.UserService = appServices.NewUserService(repos, locks, clock, deps.Hub, lgr)
	deps.ContentService = appServices.NewContentService(repos, locks, clock, deps.Hub, lgr)
	deps.SchedulingService = appServices.NewSchedulingService(repos, locks, clock, cfg.Location(), deps.Hub, lgr)
	deps.SessionService = appServices.NewSessionService(
		storage.Sessions,
		repos,
		deps.UserService,
		deps.JWTService,
		appServices.AcceptAnyOTP{},
		locks,
		clock,
		appServices.SessionConfig{
			TTL:        cfg.SessionTTL(),
			OTPLength:  cfg.Session.OTPLength,
			BcryptCost: pkgAuth.BcryptCost,
		},
		lgr,
	)
	deps.ExportService = appServices.NewExportService(repos, appServices.ExportConfig{
		TermStart: cfg.TermStartDate(),
		TermWeeks: cfg.Academic.TermWeeks,
		Location:  cfg.Location(),
	}, clock, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.SessionService)

	deps.SessionController = appControllers.NewSessionController(deps.SessionService)
	deps.UserController = appControllers.NewUserController(deps.UserService, deps.ContentService, deps.AuthzService)
	deps.ContentController = appControllers.NewContentController(deps.ContentService)
	deps.AcademicController = appControllers.NewAcademicController(deps.SchedulingService)
	deps.ExportController = appControllers.NewExportController(deps.ExportService)

	if cfg.Jobs.Enabled {
		deps.Cron = jobs.NewCronManager(jobs.Schedules{
			SessionSweep:   cfg.Jobs.SessionSweep,
			StatsReconcile: cfg.Jobs.StatsReconcile,
		}, deps.SessionService, deps.UserService, lgr)
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.RegisterTags(v); err != nil {
			return nil, fmt.Errorf("failed to register validation tags: %w", err)
		}
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestID(),
		appMiddleware.Logger(lgr.With().Str("component", "http").Logger()),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
		appMiddleware.SecurityHeaders(),
	)

	appRoutes.SetupSwagger(router)

	appRoutes.SetupRouter(router,
		deps.SessionController,
		deps.UserController,
		deps.ContentController,
		deps.AcademicController,
		deps.ExportController,
		deps.WSHandler,
		deps.AuthMiddleware,
		appMiddleware.RateLimit(deps.Storage.Redis, cfg.RateLimit.Requests, cfg.RateLimitWindow()),
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
