package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"

	"quartermaster/internal/caching"
	"quartermaster/internal/config"
	"quartermaster/internal/handlers"
	"quartermaster/internal/jobs"
	"quartermaster/internal/middleware"
	"quartermaster/internal/models"
	"quartermaster/internal/repositories"
	"quartermaster/internal/schema"
	"quartermaster/internal/services"
	"quartermaster/pkg/database"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" && cfg.Auth.JWKSURL == "" {
		jwtSecret = random.String(32)
		logger.Warn("using generated JWT secret, tokens will not survive restarts")
	}

	// Onboarding schema
	sch, err := schema.LoadFile(cfg.Onboarding.SchemaFile, logger)
	if err != nil {
		logger.Fatal("failed to load onboarding schema",
			zap.String("path", cfg.Onboarding.SchemaFile),
			zap.Error(err))
	}

	// KV store
	kv := caching.NewRedisKVStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)

	// Audit trail (optional)
	var auditRepo repositories.AuditLogsRepository
	var auditPool repositories.PgxPool
	if cfg.AuditDB.Enabled && cfg.AuditDB.URL != "" {
		pool, err := database.NewPool(cfg.AuditDB.URL)
		if err != nil {
			logger.Fatal("failed to connect audit database", zap.Error(err))
		}
		defer pool.Close()
		auditPool = pool
		auditRepo = repositories.NewAuditLogsRepo(pool)
	} else {
		logger.Info("audit database disabled")
	}

	// Repositories
	stateRepo := repositories.NewSettingsStateRepo(kv, sch, logger)
	ownershipRepo := repositories.NewOwnershipRepo(kv, logger)
	roleRepo := repositories.NewRoleRepo(kv, logger)

	// External collaborators
	adminSource := services.NewHTTPAdminSource(
		cfg.AdminAPI.Endpoint,
		cfg.AdminAPI.APIKey,
		time.Duration(cfg.AdminAPI.TimeoutSeconds)*time.Second,
	)
	extractor := services.NewHTTPExtractor(
		cfg.Extractor.Endpoint,
		cfg.Extractor.APIKey,
		time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second,
		logger,
	)

	// Snapshot export (optional)
	var snapshotter services.Snapshotter
	if cfg.Snapshots.Enabled {
		snapshotSvc, err := services.NewSnapshotService(
			cfg.Snapshots.Endpoint,
			cfg.Snapshots.AccessKey,
			cfg.Snapshots.SecretKey,
			cfg.Snapshots.Bucket,
			cfg.Snapshots.UseSSL,
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create snapshot client", zap.Error(err))
		}
		if err := snapshotSvc.EnsureBucket(context.Background()); err != nil {
			logger.Warn("snapshot bucket check failed", zap.Error(err))
		}
		snapshotter = snapshotSvc
	}

	// Services
	roleService := services.NewRoleService(roleRepo, auditRepo, logger)
	ownershipService := services.NewOwnershipService(ownershipRepo, roleRepo, adminSource, auditRepo, logger)
	onboardingService := services.NewOnboardingService(sch, stateRepo, auditRepo, snapshotter, logger)
	extractionService := services.NewExtractionService(sch, extractor, onboardingService, logger)

	// Reminder job
	reminderInterval := time.Duration(cfg.Onboarding.ReminderMinutes) * time.Minute
	reminder, err := jobs.NewReminderScheduler(stateRepo, onboardingService, nil, reminderInterval, logger)
	if err != nil {
		logger.Fatal("failed to create reminder scheduler", zap.Error(err))
	}
	reminder.Start()
	defer reminder.Stop()

	// HTTP surface
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())

	jwtMw, err := middleware.JWTMiddleware(jwtSecret, cfg.Auth.JWKSURL, logger)
	if err != nil {
		logger.Fatal("failed to create JWT middleware", zap.Error(err))
	}
	authorizeMw := middleware.NewAuthorizeMiddleware(roleService)

	onboardingHandlers := handlers.NewOnboardingHandlers(
		onboardingService, extractionService, ownershipService, roleService,
		cfg.Server.AgentID, logger)
	roleHandlers := handlers.NewRoleHandlers(roleService, logger)
	ownershipHandlers := handlers.NewOwnershipHandlers(ownershipService, cfg.Server.AgentID, logger)
	healthHandlers := handlers.NewHealthHandlers(auditPool, kv, version)

	e.GET("/health", healthHandlers.HealthCheck)

	api := e.Group("/api/v1", jwtMw)
	api.POST("/messages", onboardingHandlers.HandleMessage)

	tenants := api.Group("/tenants/:tenant_id")
	tenants.GET("/onboarding", onboardingHandlers.GetStatus, authorizeMw.RequireRole(models.RoleAdmin))
	tenants.POST("/settings", onboardingHandlers.ApplySettings, authorizeMw.RequireRole(models.RoleAdmin))
	tenants.PUT("/roles/:principal_id", roleHandlers.SetRole)
	tenants.GET("/roles", roleHandlers.ListRoles, authorizeMw.RequireRole(models.RoleAdmin))
	// Registration is driven by the platform's tenant-join signal, before
	// any role exists; it is gated by authentication only.
	tenants.POST("/ownership", ownershipHandlers.Register)
	tenants.POST("/ownership/recover", ownershipHandlers.Recover)

	if auditRepo != nil {
		auditHandlers := handlers.NewAuditLogsHandlers(auditRepo, logger)
		tenants.GET("/audit", auditHandlers.List, authorizeMw.RequireRole(models.RoleAdmin))
	}

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("agent_id", cfg.Server.AgentID),
		zap.String("version", version))
	if err := e.Start(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
