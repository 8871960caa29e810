package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/coursemark/coursemark-api/api/swagger"
	"github.com/coursemark/coursemark-api/internal/handler"
	"github.com/coursemark/coursemark-api/internal/middleware"
	"github.com/coursemark/coursemark-api/internal/repository"
	"github.com/coursemark/coursemark-api/internal/service"
	"github.com/coursemark/coursemark-api/pkg/cache"
	"github.com/coursemark/coursemark-api/pkg/config"
	"github.com/coursemark/coursemark-api/pkg/database"
	"github.com/coursemark/coursemark-api/pkg/logger"
	corsmiddleware "github.com/coursemark/coursemark-api/pkg/middleware/cors"
	reqidmiddleware "github.com/coursemark/coursemark-api/pkg/middleware/requestid"
)

// @title CourseMark API
// @version 1.0.0
// @description Grade tracking, required-mark projection, and cohort rankings for university courses
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Rankings.CacheTTL, logr, redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	universityRepo := repository.NewUniversityRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	rankRepo := repository.NewRankRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	universitySvc := service.NewUniversityService(universityRepo)
	courseSvc := service.NewCourseService(courseRepo, validate, logr, cfg.Catalog.AutocompleteLimit)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, assessmentRepo, validate, logr)
	rankSvc := service.NewRankService(rankRepo, assessmentRepo, enrollmentRepo, cacheSvc, metricsSvc, logr, cfg.Rankings.CacheTTL, cfg.Rankings.Enabled)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, enrollmentRepo, rankSvc, validate, logr)
	gradeSvc := service.NewGradeService(enrollmentRepo, assessmentRepo, logr, cfg.Grades.DefaultTargetGrade)
	exportSvc := service.NewExportService(enrollmentSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	universityHandler := handler.NewUniversityHandler(universitySvc)
	courseHandler := handler.NewCourseHandler(courseSvc, cfg.Catalog.DefaultUniversityID)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc, exportSvc)
	rankHandler := handler.NewRankHandler(rankSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		api.GET("/universities", universityHandler.List)
		api.GET("/courses/lookup", courseHandler.Lookup)

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.GET("/courses", courseHandler.List)
			protected.GET("/courses/autocomplete", courseHandler.Autocomplete)
			protected.GET("/courses/:id", courseHandler.Get)
			protected.POST("/courses", courseHandler.Create)
			protected.POST("/courses/import", courseHandler.Import)

			protected.GET("/enrollments", enrollmentHandler.List)
			protected.POST("/enrollments", enrollmentHandler.Create)
			protected.GET("/enrollments/:id", enrollmentHandler.Get)
			protected.DELETE("/enrollments/:id", enrollmentHandler.Delete)
			protected.GET("/enrollments/:id/grade", gradeHandler.Overall)
			protected.GET("/enrollments/:id/required-mark", gradeHandler.RequiredMark)

			protected.POST("/assessments", assessmentHandler.Create)
			protected.PATCH("/assessments/:id/mark", assessmentHandler.UpdateMark)
			protected.PATCH("/assessments/:id/weight", assessmentHandler.UpdateWeight)
			protected.DELETE("/assessments/:id", assessmentHandler.Delete)
			protected.GET("/assessments/:id/rank", rankHandler.Rank)

			protected.GET("/grades/summary/export", gradeHandler.ExportSummary)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
