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

	_ "github.com/pacific-edu/pacemis-api/api/swagger"
	"github.com/pacific-edu/pacemis-api/internal/handler"
	"github.com/pacific-edu/pacemis-api/internal/middleware"
	"github.com/pacific-edu/pacemis-api/internal/notify"
	"github.com/pacific-edu/pacemis-api/internal/repository"
	"github.com/pacific-edu/pacemis-api/internal/service"
	"github.com/pacific-edu/pacemis-api/pkg/cache"
	"github.com/pacific-edu/pacemis-api/pkg/config"
	"github.com/pacific-edu/pacemis-api/pkg/database"
	"github.com/pacific-edu/pacemis-api/pkg/logger"
	corsmiddleware "github.com/pacific-edu/pacemis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pacific-edu/pacemis-api/pkg/middleware/requestid"
)

// @title PacEMIS API
// @version 1.0.0
// @description School information management for the inclusive education programme
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	systemUserRepo := repository.NewSystemUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrolmentRepo := repository.NewEnrolmentRepository(db)

	validate := validator.New()

	var referenceSvc *service.ReferenceService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, reference caching disabled", zap.Error(err))
		referenceSvc = service.NewReferenceService(schoolRepo, nil, cfg.Reference.CacheTTL, logr)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		referenceSvc = service.NewReferenceService(schoolRepo, cacheRepo, cfg.Reference.CacheTTL, logr)
	}

	var mailer notify.Mailer
	if cfg.Notifications.Provider == "sendgrid" && cfg.Notifications.SendgridKey != "" {
		mailer = notify.NewSendgridMailer(cfg.Notifications.SendgridKey, cfg.Notifications.FromName, cfg.Notifications.FromEmail)
	} else {
		mailer = notify.NewConsoleMailer(logr)
	}
	notificationSvc := service.NewNotificationService(mailer, cfg.Notifications, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	staffSvc := service.NewStaffService(staffRepo, validate, logr)
	systemUserSvc := service.NewSystemUserService(systemUserRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrolmentRepo, schoolRepo, notificationSvc, validate, logr)
	matcherSvc := service.NewMatcherService(studentRepo, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	staffHandler := handler.NewStaffHandler(staffSvc)
	systemUserHandler := handler.NewSystemUserHandler(systemUserSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, matcherSvc)
	referenceHandler := handler.NewReferenceHandler(referenceSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("", middleware.Authenticate(authSvc, userSvc))
	secured.GET("/auth/me", authHandler.Me)

	secured.GET("/staff", staffHandler.List)
	secured.GET("/staff/:id", staffHandler.Get)
	secured.PUT("/staff/:id", staffHandler.Update)
	secured.GET("/staff/:id/assignments", staffHandler.Assignments)
	secured.POST("/staff/:id/assignments", staffHandler.CreateAssignment)
	secured.PUT("/assignments/:id", staffHandler.UpdateAssignment)
	secured.DELETE("/assignments/:id", staffHandler.DeleteAssignment)

	secured.GET("/students", studentHandler.List)
	secured.GET("/students/matches", studentHandler.Matches)
	if cfg.Exports.Enabled {
		secured.GET("/students/export", studentHandler.Export)
	}
	secured.GET("/students/:id", studentHandler.Get)
	secured.POST("/students", studentHandler.Create)
	secured.PUT("/students/:id", studentHandler.Update)
	secured.DELETE("/students/:id", studentHandler.Delete)
	secured.GET("/students/:id/enrolments", studentHandler.Enrolments)
	secured.POST("/students/:id/enrolments", studentHandler.AddEnrolment)
	secured.PUT("/enrolments/:id", studentHandler.UpdateEnrolment)
	secured.DELETE("/enrolments/:id", studentHandler.DeleteEnrolment)

	systemUsers := secured.Group("/system-users", middleware.RequireSystemLevel())
	systemUsers.GET("", systemUserHandler.List)
	systemUsers.GET("/:id", systemUserHandler.Get)
	systemUsers.PUT("/:id", systemUserHandler.Update)

	users := secured.Group("/users", middleware.RequireAdmin())
	users.GET("/pending", userHandler.Pending)
	users.POST("/staff-profile", userHandler.AssignStaff)
	users.POST("/system-profile", userHandler.AssignSystemUser)
	users.PUT("/:id/groups", userHandler.ReassignGroups)

	secured.GET("/reference/schools", referenceHandler.Schools)
	secured.GET("/reference/allowed-schools", referenceHandler.AllowedSchools)
	secured.GET("/reference/school-years", referenceHandler.SchoolYears)
	secured.GET("/reference/class-levels", referenceHandler.ClassLevels)
	secured.GET("/reference/job-titles", referenceHandler.JobTitles)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
