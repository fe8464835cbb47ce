package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sf10-api/api/swagger"
	"github.com/noah-isme/sf10-api/internal/handler"
	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/repository"
	"github.com/noah-isme/sf10-api/internal/service"
	"github.com/noah-isme/sf10-api/pkg/cache"
	"github.com/noah-isme/sf10-api/pkg/config"
	"github.com/noah-isme/sf10-api/pkg/database"
	"github.com/noah-isme/sf10-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sf10-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sf10-api/pkg/middleware/requestid"
)

// @title SF10 API
// @version 1.0.0
// @description School records administration backend
// @BasePath /
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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	enrolleeRepo := repository.NewEnrolleeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	auditSvc := service.NewAuditService(auditRepo, logr)
	authSvc := service.NewAuthService(teacherRepo, auditSvc, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
	})
	enrolleeSvc := service.NewEnrolleeService(enrolleeRepo, auditSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, sectionRepo, enrolleeRepo, cacheSvc, auditSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, cacheSvc, auditSvc, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, enrolleeRepo, teacherRepo, recordRepo, cacheSvc, auditSvc, validate, logr)
	gradeSvc := service.NewGradeService(sectionRepo, recordRepo, studentRepo, teacherRepo, cacheSvc, auditSvc, cfg.School, validate, logr)
	recordSvc := service.NewRecordService(recordRepo, studentRepo, auditSvc, cfg.School, validate, logr)
	exportSvc := service.NewExportService(recordRepo, sectionRepo, studentRepo, enrolleeRepo, cfg.School, logr)

	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Enrollee: handler.NewEnrolleeHandler(enrolleeSvc),
		Student:  handler.NewStudentHandler(studentSvc, recordSvc, gradeSvc, exportSvc),
		Section:  handler.NewSectionHandler(sectionSvc, exportSvc),
		Teacher:  handler.NewTeacherHandler(teacherSvc),
		Log:      handler.NewLogHandler(auditSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r, cfg.APIPrefix, authSvc, handlers)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
