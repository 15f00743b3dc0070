package main

import (
	"context"
	"net/http"
	"time"

	"github.com/500AN/Question-Bank/config"
	"github.com/500AN/Question-Bank/database"
	_ "github.com/500AN/Question-Bank/docs" // Swagger docs
	adminctrl "github.com/500AN/Question-Bank/internal/controller/admin"
	userctrl "github.com/500AN/Question-Bank/internal/controller/user"
	"github.com/500AN/Question-Bank/internal/logger"
	"github.com/500AN/Question-Bank/internal/middleware"
	"github.com/500AN/Question-Bank/internal/model"
	"github.com/500AN/Question-Bank/internal/repository"
	"github.com/500AN/Question-Bank/internal/router"
	"github.com/500AN/Question-Bank/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Question Bank Test Attempt API
// @version 1.0
// @description Test attempt lifecycle, scoring and improvement analytics.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			database.NewRedis,
			NewGinEngine,
		),

		fx.Provide(
			NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewUserRepository,
			repository.NewAttemptRepository,
		),

		fx.Provide(
			service.NewGeminiClient,
			service.NewCoachingService,
			service.NewAttemptService,
			service.NewImprovementService,
		),

		fx.Provide(
			userctrl.NewAttemptController,
			adminctrl.NewResultController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterClientHooks),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// NewTestRepository fronts the database with the Redis cache when one is configured.
func NewTestRepository(db *gorm.DB, rdb *redis.Client, cfg *config.Config) repository.TestRepository {
	repo := repository.NewTestRepository(db)
	if rdb == nil {
		return repo
	}
	return repository.NewCachedTestRepository(repo, rdb, cfg.Redis.TestCacheTTL)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	logger.Apply(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(cfg.Server.GinMode)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterClientHooks closes the optional Redis and Gemini clients on shutdown.
func RegisterClientHooks(lc fx.Lifecycle, rdb *redis.Client, gemini *genai.Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if gemini != nil {
				if err := gemini.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close Gemini client")
				}
			}
			if rdb != nil {
				return rdb.Close()
			}
			return nil
		},
	})
}

func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	engine *gin.Engine,
	cfg *config.Config,
	attemptCtrl *userctrl.AttemptController,
	resultCtrl *adminctrl.ResultController,
) {
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET is not set. Every authenticated request will be rejected.")
	}
	router.Register(engine, cfg, attemptCtrl, resultCtrl)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Question Bank API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.Test{},
		&model.TestQuestion{},
		&model.Attempt{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
