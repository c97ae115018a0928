package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-result-engine/api/swagger"
	"github.com/noah-isme/sma-result-engine/internal/handler"
	"github.com/noah-isme/sma-result-engine/internal/middleware"
	"github.com/noah-isme/sma-result-engine/internal/models"
	"github.com/noah-isme/sma-result-engine/internal/repository"
	"github.com/noah-isme/sma-result-engine/internal/service"
	"github.com/noah-isme/sma-result-engine/pkg/cache"
	"github.com/noah-isme/sma-result-engine/pkg/config"
	"github.com/noah-isme/sma-result-engine/pkg/database"
	"github.com/noah-isme/sma-result-engine/pkg/events"
	"github.com/noah-isme/sma-result-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-result-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-result-engine/pkg/middleware/requestid"
	"github.com/noah-isme/sma-result-engine/pkg/reportcard"
	"github.com/noah-isme/sma-result-engine/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

// @title School Result Engine API
// @version 1.0.0
// @description Result computation, ranking and report card generation
// @BasePath /
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Results.RankingCache {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, ranking cache disabled", zap.Error(err))
		}
	}

	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher, err = events.NewPublisher(cfg.Events, logr)
		if err != nil {
			logr.Fatal("failed to init events publisher", zap.Error(err))
		}
		defer publisher.Close() //nolint:errcheck
	}

	media, err := storage.NewLocalStorage(cfg.Reports.MediaDir)
	if err != nil {
		logr.Fatal("failed to init media storage", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	router := newRouter(cfg, logr, metrics, wiring{
		db:        db,
		redis:     redisClient,
		publisher: publisher,
		media:     media,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type wiring struct {
	db        *sqlx.DB
	redis     *redis.Client
	publisher *events.Publisher
	media     *storage.LocalStorage
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, w wiring) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()

	results := repository.NewResultRepository(w.db)
	configs := repository.NewResultConfigRepository(w.db)
	enrollments := repository.NewEnrollmentRepository(w.db)
	assignments := repository.NewTeacherAssignmentRepository(w.db)
	directory := repository.NewDirectoryRepository(w.db)
	attendance := repository.NewAttendanceRepository(w.db)
	templates := repository.NewTemplateRepository(w.db)

	var cacheRepo *repository.CacheRepository
	if w.redis != nil {
		cacheRepo = repository.NewCacheRepository(w.redis, logr)
	} else {
		cacheRepo = repository.NewCacheRepository(nil, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Results.RankingCacheTTL, logr, w.redis != nil)

	cumulative := service.NewCumulativeCalculator(cfg.Results.ProgressiveWeights)
	ranking := service.NewRankingService(results, enrollments, cacheSvc, service.NewRankingPolicy(cfg.Results.RankingPolicy), cfg.Results.RankingCacheTTL, logr)
	resultSvc := service.NewResultService(results, configs, enrollments, assignments, cumulative, ranking, w.publisher, metrics, validate, logr,
		service.ResultServiceConfig{BatchConcurrency: cfg.Results.BatchConcurrency})

	renderer := reportcard.NewRenderer(w.media, reportcard.Options{FooterText: cfg.Reports.FooterText}, logr)
	reportSvc := service.NewReportCardService(service.ReportCardDeps{
		Directory:   directory,
		Results:     results,
		Configs:     configs,
		Enrollments: enrollments,
		Teachers:    assignments,
		Ranking:     ranking,
		Attendance:  attendance,
		Templates:   service.NewTemplateResolver(templates, logr),
		Renderer:    renderer,
		Cumulative:  cumulative,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
	})
	broadsheetSvc := service.NewBroadsheetService(directory, results, ranking, assignments, validate, logr)
	tokens := service.NewTokenService(cfg.JWT)

	resultHandler := handler.NewResultHandler(resultSvc, ranking)
	reportHandler := handler.NewReportCardHandler(reportSvc, broadsheetSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": w.db.PingContext,
		"redis": func(ctx context.Context) error {
			if w.redis == nil {
				return nil
			}
			return cache.Ping(ctx, w.redis)
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher}
	admins := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}

	api := r.Group(cfg.APIPrefix, middleware.JWT(tokens))
	resultsGroup := api.Group("/results")
	resultsGroup.POST("", middleware.RequireRoles(staff...), resultHandler.Submit)
	resultsGroup.POST("/batch", middleware.RequireRoles(staff...), resultHandler.Batch)
	resultsGroup.POST("/publish", middleware.RequireRoles(admins...), resultHandler.Publish)
	resultsGroup.GET("/classes/:id/ranking", middleware.RequireRoles(staff...), resultHandler.Ranking)

	reports := api.Group("/report-cards")
	reports.GET("/students/:id", reportHandler.StudentReportCard)
	reports.GET("/classes/:id/broadsheet", middleware.RequireRoles(staff...), reportHandler.ClassBroadsheet)

	return r
}
