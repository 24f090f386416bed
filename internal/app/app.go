// Package app assembles the portal from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/config"
	"github.com/school-portal/portal-backend/internal/db"
	portalhttp "github.com/school-portal/portal-backend/internal/http"
	"github.com/school-portal/portal-backend/internal/http/api/admin"
	"github.com/school-portal/portal-backend/internal/http/api/front"
	"github.com/school-portal/portal-backend/internal/logging"
	"github.com/school-portal/portal-backend/internal/metrics"
	"github.com/school-portal/portal-backend/internal/points"
	"github.com/school-portal/portal-backend/internal/ratelimit"
	"github.com/school-portal/portal-backend/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	settingsRefreshInterval = 30 * time.Second
	shutdownTimeout         = 10 * time.Second
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	return db.Migrate(conn)
}

// RunServer boots the portal HTTP server and the ledger auditor, and blocks until ctx is done.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	conn, fileCfg, logCloser, err := bootstrap(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	defer closeDatabase(conn)

	jwtCfg, errJWT := fileCfg.JWTSettings()
	if errJWT != nil {
		return errJWT
	}
	if db.IsSQLite(conn) {
		log.Warn("running on SQLite: keep a single portal instance, ledger locks are in-process")
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("load settings: %w", errRefresh)
	}
	go refreshSettings(ctx, conn)

	m := metrics.New()
	svc, errService := newPointsService(conn, fileCfg, m)
	if errService != nil {
		return errService
	}

	limiter := newLimiter(ctx, fileCfg.Redis)
	defer func() { _ = limiter.Close() }()

	router := newRouter(conn, svc, jwtCfg, limiter, m)

	points.NewAuditor(svc, time.Duration(fileCfg.Points.AuditIntervalSeconds)*time.Second).Start(ctx)

	srv := &http.Server{
		Addr:              fileCfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errServe := make(chan error, 1)
	go func() {
		log.Infof("portal listening on %s", fileCfg.Server.Addr)
		errServe <- srv.ListenAndServe()
	}()

	select {
	case errListen := <-errServe:
		if errors.Is(errListen, http.ErrServerClosed) {
			return nil
		}
		return errListen
	case <-ctx.Done():
	}

	log.Info("shutting down portal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// Reconcile audits every account once and returns the mismatches.
func Reconcile(ctx context.Context, cfg config.AppConfig) ([]points.Mismatch, error) {
	conn, fileCfg, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	defer closeDatabase(conn)

	svc, errService := newPointsService(conn, fileCfg, nil)
	if errService != nil {
		return nil, errService
	}
	return svc.ReconcileAll(ctx)
}

// bootstrap loads the config file, applies its logging settings and opens the database.
// Logging is configured before the database opens.
func bootstrap(cfg config.AppConfig) (*gorm.DB, *config.Config, io.Closer, error) {
	fileCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	logCloser, err := logging.Setup(fileCfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	conn, err := openConfiguredDatabase(fileCfg)
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, nil, err
	}
	return conn, fileCfg, logCloser, nil
}

func loadConfig(cfg config.AppConfig) (*config.Config, error) {
	return config.Load(config.ResolveConfigPath(cfg.ConfigPath))
}

// openDatabase loads the config file and opens the configured database.
func openDatabase(cfg config.AppConfig) (*gorm.DB, *config.Config, error) {
	fileCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	conn, err := openConfiguredDatabase(fileCfg)
	if err != nil {
		return nil, nil, err
	}
	return conn, fileCfg, nil
}

func openConfiguredDatabase(fileCfg *config.Config) (*gorm.DB, error) {
	dsn, err := fileCfg.DatabaseDSN()
	if err != nil {
		return nil, err
	}
	conn, err := db.OpenWithOptions(dsn, db.Options{
		TimeZone:     fileCfg.Database.TimeZone,
		MaxOpenConns: fileCfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("database opened (dialect=%s)", db.DialectName(conn))
	return conn, nil
}

func closeDatabase(conn *gorm.DB) {
	if sqlDB, errDB := conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
}

// newPointsService builds the ledger service. m may be nil.
func newPointsService(conn *gorm.DB, fileCfg *config.Config, m *metrics.Metrics) (*points.Service, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(fileCfg.Database.TimeZone); tz != "" {
		loaded, errLoad := time.LoadLocation(tz)
		if errLoad != nil {
			return nil, fmt.Errorf("config: database.time-zone: %w", errLoad)
		}
		loc = loaded
	}
	opts := []points.Option{
		points.WithLocation(loc),
		points.WithDefaults(points.Defaults{
			AttendReward:      fileCfg.Points.AttendReward,
			MealPhotoReward:   fileCfg.Points.MealPhotoReward,
			ExchangeValidDays: fileCfg.Points.ExchangeValidDays,
		}),
	}
	if m != nil {
		opts = append(opts, points.WithMetrics(m))
	}
	return points.NewService(conn, opts...), nil
}

// newLimiter connects to Redis when configured and falls back to an in-process limiter.
func newLimiter(ctx context.Context, redisCfg config.RedisConfig) ratelimit.Limiter {
	if strings.TrimSpace(redisCfg.Addr) == "" {
		return ratelimit.NewMemory()
	}
	limiter, errRedis := ratelimit.NewRedis(ctx, redisCfg)
	if errRedis != nil {
		log.WithError(errRedis).Warnf("redis unavailable at %s, using in-process rate limiting", redisCfg.Addr)
		return ratelimit.NewMemory()
	}
	return limiter
}

func newRouter(conn *gorm.DB, svc *points.Service, jwtCfg config.JWTConfig, limiter ratelimit.Limiter, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), portalhttp.RequestIDMiddleware(), portalhttp.RequestLogMiddleware())

	healthHandler := newHealthHandler(conn)
	router.GET("/healthz", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	front.RegisterFrontRoutes(router, conn, svc, jwtCfg, limiter)
	admin.RegisterAdminRoutes(router, conn, svc, jwtCfg)
	return router
}

func newHealthHandler(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := conn.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// refreshSettings reloads the settings snapshot so edits made by other instances are picked up.
func refreshSettings(ctx context.Context, conn *gorm.DB) {
	ticker := time.NewTicker(settingsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil && ctx.Err() == nil {
				log.WithError(errRefresh).Warn("refresh settings snapshot")
			}
		}
	}
}
