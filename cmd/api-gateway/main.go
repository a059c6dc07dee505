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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/harborview/timetable-api/api/swagger"
	"github.com/harborview/timetable-api/internal/handler"
	"github.com/harborview/timetable-api/internal/middleware"
	"github.com/harborview/timetable-api/internal/repository"
	"github.com/harborview/timetable-api/internal/service"
	"github.com/harborview/timetable-api/pkg/cache"
	"github.com/harborview/timetable-api/pkg/config"
	"github.com/harborview/timetable-api/pkg/database"
	"github.com/harborview/timetable-api/pkg/jobs"
	"github.com/harborview/timetable-api/pkg/logger"
	corsmiddleware "github.com/harborview/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/harborview/timetable-api/pkg/middleware/requestid"
)

// @title Harborview Timetable API
// @version 1.0.0
// @description Timetable optimization and enrollment placement service
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	// Redis is optional: without it run reports are served from the store.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, run report caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	catalogRepo := repository.NewCatalogRepository(db)
	optimizationRepo := repository.NewOptimizationRepository(db)
	slotRepo := repository.NewScheduleSlotRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	catalogService := service.NewCatalogService(catalogRepo, logr)
	authService := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	scheduleService := service.NewScheduleService(slotRepo, logr)
	exportService := service.NewExportService(slotRepo, catalogRepo, cfg.Exports.SchoolName, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, catalogRepo, slotRepo, metricsService, validate, logr)

	// The queue dispatcher is bound after the service exists because the
	// service is also the queue's handler.
	optimizerService := service.NewOptimizerService(optimizationRepo, slotRepo, catalogService, nil, cacheRepo, metricsService, validate, logr, cfg.Solver)
	queue := jobs.NewQueue("optimizer", optimizerService.HandleJob, jobs.QueueConfig{
		Workers: cfg.Solver.QueueWorkers,
		Logger:  logr,
	})
	optimizerService.SetDispatcher(queue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)
	defer queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	authHandler := handler.NewAuthHandler(authService)
	optimizerHandler := handler.NewOptimizerHandler(optimizerService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	exportHandler := handler.NewExportHandler(exportService, cfg.Exports.Enabled)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/schedule", scheduleHandler.Term)
	authed.GET("/schedule/teachers/:id", scheduleHandler.Teacher)
	authed.GET("/schedule/rooms/:id", scheduleHandler.Room)

	scheduling := authed.Group("", middleware.RequireRoles(middleware.RoleAdmin, middleware.RoleScheduler))
	scheduling.POST("/optimizer/runs", optimizerHandler.StartRun)
	scheduling.GET("/optimizer/runs", optimizerHandler.ListRuns)
	scheduling.GET("/optimizer/runs/:id", optimizerHandler.GetRun)
	scheduling.GET("/optimizer/configs", optimizerHandler.ListConfigs)
	scheduling.POST("/optimizer/configs", optimizerHandler.CreateConfig)
	scheduling.PUT("/optimizer/configs/:id", optimizerHandler.UpdateConfig)
	scheduling.DELETE("/optimizer/configs/:id", optimizerHandler.DeleteConfig)

	scheduling.POST("/enrollment/placements", enrollmentHandler.RunPlacement)
	scheduling.GET("/enrollment/waitlists/:unitId", enrollmentHandler.Waitlist)
	scheduling.POST("/enrollment/waitlists/:unitId/promote", enrollmentHandler.Promote)

	authed.GET("/exports/schedule", exportHandler.Master)
	authed.GET("/exports/teachers/:id", exportHandler.Teacher)
	authed.GET("/exports/rooms/:id", exportHandler.Room)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
