package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/unicampus/registrar-api/api/swagger"
	"github.com/unicampus/registrar-api/internal/handler"
	"github.com/unicampus/registrar-api/internal/models"
	"github.com/unicampus/registrar-api/internal/persist"
	"github.com/unicampus/registrar-api/internal/registry"
	"github.com/unicampus/registrar-api/internal/service"
	"github.com/unicampus/registrar-api/internal/store"
	"github.com/unicampus/registrar-api/pkg/cache"
	"github.com/unicampus/registrar-api/pkg/config"
	"github.com/unicampus/registrar-api/pkg/database"
	"github.com/unicampus/registrar-api/pkg/logger"
	"github.com/unicampus/registrar-api/pkg/middleware/cors"
	"github.com/unicampus/registrar-api/pkg/middleware/requestid"
)

// @title Unicampus Registrar API
// @version 1.0.0
// @description Course catalog and enrollment management
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer log.Sync()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer st.Close()

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	catalog, ledger, accounts, err := buildRegistries(loadCtx, st)
	loadCancel()
	if err != nil {
		log.Fatal("failed to restore state from store", zap.Error(err))
	}
	log.Info("state restored",
		zap.String("driver", cfg.Store.Driver),
		zap.Int("courses", catalog.Len()),
		zap.Int("registrations", ledger.Len()),
		zap.Int("users", accounts.Len()),
	)

	metrics := service.NewMetricsService(service.RegistrySizes{
		Courses:       catalog.Len,
		Registrations: ledger.Len,
		Users:         accounts.Len,
	})

	snapshotter := persist.NewSnapshotter(st, persist.Sources{
		Courses:       catalog.Records,
		Registrations: ledger.Records,
		Users:         accounts.Records,
	}, persist.Config{
		Workers: cfg.Store.SnapshotWorkers,
		Retries: cfg.Store.SnapshotRetries,
		Logger:  log,
		OnSave:  metrics.RecordSnapshotSave,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	snapshotter.Start(ctx)

	cacheService := buildCatalogCache(cfg, metrics, log)

	validate := validator.New()
	authService := service.NewAuthService(accounts, snapshotter, validate, log, service.AuthConfig{
		Secret:            cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		RefreshExpiry:     cfg.JWT.RefreshExpiration,
		Issuer:            cfg.JWT.Issuer,
	})
	courseService := service.NewCourseService(catalog, cacheService, snapshotter, validate, log)
	registrationService := service.NewRegistrationService(ledger, catalog, snapshotter, service.RegistrationPolicy{
		RejectConflicts:  cfg.Registrations.RejectConflicts,
		CleanupAfterDays: cfg.Registrations.CleanupAfterDays,
	}, validate, log)
	reportService := service.NewReportService(ledger, catalog, metrics, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(cors.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Dependencies{
		Auth:           authService,
		Courses:        courseService,
		Registrations:  registrationService,
		Reports:        reportService,
		Metrics:        metrics,
		Logger:         log,
		ReportsEnabled: cfg.Reports.Enabled,
	})

	go runCleanupLoop(ctx, registrationService, cfg.Registrations.CleanupInterval, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	snapshotter.Stop()
	if err := snapshotter.Flush(shutdownCtx); err != nil {
		log.Error("final snapshot flush failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		st, err := store.NewPostgresStore(db, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := store.NewJSONStore(cfg.Store.DataDir, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}

// buildRegistries restores the in-memory state from the last snapshot. Seat
// counters are not trusted from disk: every course starts at zero enrolled and
// active registrations are replayed through the catalog, so the counters always
// agree with the registration ledger.
func buildRegistries(ctx context.Context, st store.Store) (*registry.CourseRegistry, *registry.RegistrationRegistry, *registry.UserRegistry, error) {
	courseRecords, err := st.LoadCourses(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load courses: %w", err)
	}
	registrationRecords, err := st.LoadRegistrations(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load registrations: %w", err)
	}
	userRecords, err := st.LoadUsers(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load users: %w", err)
	}

	catalog := registry.NewCourseRegistry()
	for _, rec := range courseRecords {
		course, err := models.CourseFromRecord(rec)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("restore course: %w", err)
		}
		course.Enrolled = 0
		if !catalog.Add(course) {
			return nil, nil, nil, fmt.Errorf("duplicate course %s in snapshot", course.ID)
		}
	}

	regs := make([]*models.Registration, 0, len(registrationRecords))
	for _, rec := range registrationRecords {
		reg, err := models.RegistrationFromRecord(rec)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("restore registration: %w", err)
		}
		regs = append(regs, reg)
	}

	ledger := registry.NewRegistrationRegistry(catalog)
	ledger.Load(regs)
	for _, reg := range regs {
		if !reg.IsActive() {
			continue
		}
		// Seat, not Enroll: an inactive course keeps the students it had when
		// it was soft-removed. Only an unknown course id or a ledger holding
		// more active registrations than seats aborts the boot.
		if !catalog.Seat(reg.CourseID) {
			return nil, nil, nil, fmt.Errorf("registration %s references unknown or oversubscribed course %s", reg.ID, reg.CourseID)
		}
	}

	accounts := registry.NewUserRegistry()
	for _, rec := range userRecords {
		user, err := models.UserFromRecord(rec)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("restore user: %w", err)
		}
		if !accounts.Add(user) {
			return nil, nil, nil, fmt.Errorf("duplicate user %s in snapshot", user.ID)
		}
	}

	return catalog, ledger, accounts, nil
}

func buildCatalogCache(cfg *config.Config, metrics *service.MetricsService, log *zap.Logger) *service.CacheService {
	if !cfg.Catalog.CacheEnabled {
		return service.NewCacheService(nil, metrics, 0, log, false)
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		return service.NewCacheService(nil, metrics, 0, log, false)
	}
	return service.NewCacheService(cache.NewRepository(client), metrics, cfg.Catalog.CacheTTL, log, true)
}

func runCleanupLoop(ctx context.Context, registrations *service.RegistrationService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := registrations.Cleanup(ctx)
			if removed > 0 {
				log.Info("stale registrations purged", zap.Int("removed", removed))
			}
		}
	}
}
