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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-core-api/api/swagger"
	"github.com/noah-isme/academic-core-api/internal/handler"
	"github.com/noah-isme/academic-core-api/internal/middleware"
	"github.com/noah-isme/academic-core-api/internal/repository"
	"github.com/noah-isme/academic-core-api/internal/service"
	"github.com/noah-isme/academic-core-api/pkg/cache"
	"github.com/noah-isme/academic-core-api/pkg/config"
	"github.com/noah-isme/academic-core-api/pkg/database"
	"github.com/noah-isme/academic-core-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-core-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-core-api/pkg/middleware/requestid"
)

// @title Academic Core API
// @version 1.0.0
// @description Enrollment, grading and attendance for a college academic system.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	readiness := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		redisRepo := repository.NewCacheRepository(client, "academic", logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		readiness["redis"] = cache.Pinger{Client: client}
	} else {
		cacheRepo = repository.NewMemoryCacheRepository(cache.NewLocal(cfg.Cache))
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	students := repository.NewStudentRepository(db)
	courses := repository.NewCourseRepository(db)
	faculty := repository.NewFacultyRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	validate := service.NewValidator()
	guard := service.NewGuard(students, courses, faculty, enrollmentRepo)
	policy := service.NewCoursePolicy(guard)

	cgpaWorker := service.NewCGPAWorker(gradeRepo, students, cacheSvc, metrics, cfg.Jobs, logr)
	cgpaWorker.Start(ctx)
	defer cgpaWorker.Stop()

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, guard, policy, cgpaWorker, cacheSvc, metrics, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, guard, policy, cacheSvc, metrics, cfg.Bulk.MaxItems, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, guard, policy, cacheSvc, metrics, cfg.Attendance, cfg.Bulk.MaxItems, validate, logr)
	exportSvc := service.NewExportService(enrollmentRepo, attendanceSvc, guard, logr)
	authSvc := service.NewAuthService(cfg.JWT)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	system := handler.NewMetricsHandler(metrics, readiness)
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)
	r.GET("/metrics", system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Handlers{
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc, exportSvc),
	}.Register(r.Group(cfg.APIPrefix), middleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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
