package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classroom-api/api/swagger"
	"github.com/noah-isme/classroom-api/internal/catalog"
	"github.com/noah-isme/classroom-api/internal/handler"
	internalmiddleware "github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/ranking"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/cache"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/jobs"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
	"github.com/noah-isme/classroom-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classroom-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classroom-api/pkg/middleware/requestid"
	"github.com/noah-isme/classroom-api/pkg/storage"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = time.Hour
)

// @title Classroom API
// @version 1.0.0
// @description Exam results, curriculum progress and leaderboards for a single class roster
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := kvstore.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logr.Warn("catalog unavailable, every gate stays closed", zap.String("path", cfg.Catalog.Path), zap.Error(err))
		cat = catalog.Empty()
	} else {
		logr.Info("catalog loaded",
			zap.Int("units", len(cat.Units())),
			zap.Int("leaves", cat.TotalLeaves()),
			zap.Int("exams", len(cat.Exams())),
		)
	}

	validate := service.NewValidator()
	metricsSvc := service.NewMetricsService()

	studentRepo := repository.NewStudentRepository(store, cfg.Store.KeyPrefix)
	resultRepo := repository.NewResultRepository(store, cfg.Store.KeyPrefix)
	progressRepo := repository.NewProgressRepository(store, cfg.Store.KeyPrefix)

	cacheSvc := newLeaderboardCache(ctx, cfg, store, metricsSvc, logr)

	rankingSvc := service.NewRankingService(ranking.NewEngine(cfg.Ranking.TimeCeiling), studentRepo, resultRepo, cat, cacheSvc, metricsSvc, logr.Named("ranking"))
	if cacheSvc.Enabled() {
		warmer := jobs.NewQueue("ranking-warmup", rankingSvc.HandleWarmup, jobs.QueueConfig{
			Workers:    cfg.Ranking.WarmupWorkers,
			MaxRetries: 1,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		warmer.Start(ctx)
		defer warmer.Stop()
		rankingSvc.UseWarmer(warmer)
	}

	studentSvc := service.NewStudentService(studentRepo, []service.StudentDataRemover{resultRepo, progressRepo}, rankingSvc, cfg.Roster.Classes, validate, logr.Named("students"))
	resultSvc := service.NewResultService(resultRepo, studentRepo, cat, rankingSvc, metricsSvc, validate, logr.Named("results"))
	completionSvc := service.NewCompletionService(progressRepo, studentRepo, cat, metricsSvc, logr.Named("completion"))
	profileSvc := service.NewProfileService(studentRepo, completionSvc, rankingSvc, logr.Named("profiles"))

	authSvc, err := service.NewAuthService(studentRepo, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		TeacherPassword:   cfg.Auth.TeacherPassword,
	})
	if err != nil {
		logr.Fatal("failed to init auth", zap.Error(err))
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}
	exportSvc := service.NewExportService(
		rankingSvc,
		resultSvc,
		exportStorage,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr.Named("exports"),
	)
	go runCleanup(ctx, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	routes := handler.Routes{
		Auth:         handler.NewAuthHandler(authSvc),
		Students:     handler.NewStudentHandler(studentSvc),
		Results:      handler.NewResultHandler(resultSvc),
		Progress:     handler.NewProgressHandler(completionSvc),
		Rankings:     handler.NewRankingHandler(rankingSvc),
		Profiles:     handler.NewProfileHandler(profileSvc),
		Catalog:      handler.NewCatalogHandler(cat),
		Exports:      handler.NewExportHandler(exportSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc, store, logr),
		Authenticate: internalmiddleware.JWT(authSvc),
		Gate:         internalmiddleware.RequireGate(completionSvc),
	}
	routes.RegisterProbes(r)
	routes.Register(r.Group(cfg.APIPrefix))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logr.Sugar().Fatalw("server failed", "error", err)
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		_ = srv.Close()
	}
}

// newLeaderboardCache returns a disabled cache unless RANKING_CACHE_ENABLED is set.
// The redis store's client is reused when the store already runs on redis.
func newLeaderboardCache(ctx context.Context, cfg *config.Config, store kvstore.Store, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Ranking.CacheEnabled {
		return service.NewCacheService(nil, metrics, cfg.Ranking.CacheTTL, logr, false)
	}

	var client *redis.Client
	if rs, ok := store.(*kvstore.RedisStore); ok {
		client = rs.Client()
	} else {
		c, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("leaderboard cache disabled, redis unreachable", zap.Error(err))
			return service.NewCacheService(nil, metrics, cfg.Ranking.CacheTTL, logr, false)
		}
		client = c
	}

	repo := repository.NewCacheRepository(client, cfg.Store.KeyPrefix+"cache:", logr)
	logr.Info("leaderboard cache enabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Duration("ttl", cfg.Ranking.CacheTTL))
	return service.NewCacheService(repo, metrics, cfg.Ranking.CacheTTL, logr.Named("cache"), true)
}

func runCleanup(ctx context.Context, exports *service.ExportService) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			exports.Cleanup()
		}
	}
}
