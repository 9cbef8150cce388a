package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"github.com/getsentry/sentry-mcp-sub001/config"
	"github.com/getsentry/sentry-mcp-sub001/internal/controller"
	"github.com/getsentry/sentry-mcp-sub001/internal/llm"
	"github.com/getsentry/sentry-mcp-sub001/internal/postgres"
	"github.com/getsentry/sentry-mcp-sub001/internal/sentryapi"
	"github.com/getsentry/sentry-mcp-sub001/internal/service"
	"github.com/getsentry/sentry-mcp-sub001/internal/translator"
)

// @title           Natural Language Telemetry Search API
// @version         1.0
// @description     Translates natural language questions about errors, logs and performance spans into validated structured queries and executes them against Sentry.

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

// @tag.name         search
// @tag.description  Natural language search operations

func main() {
	app := fx.New(
		// Core Dependencies
		fx.Provide(
			NewConfig,
		),
		// Infrastructure Dependencies
		fx.Provide(
			NewGinEngine,
			NewLLMProvider,
			sentryapi.NewClient,
			service.NewBackendFactory,
			translator.NewTranslator,
			postgres.ProvidePostgresPool,
			service.NewSearchService,
			controller.NewSearchController,
		),
		fx.Invoke(RegisterAPIRoutes),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}
}

func NewConfig() (*config.Config, error) {
	return config.NewConfig()
}

// NewLLMProvider wires the Anthropic client behind the provider
// interface. A missing API key fails startup, not individual requests.
func NewLLMProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.NewAnthropicClient(cfg)
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add swagger route
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	searchController *controller.SearchController,
) {
	if searchController != nil {
		controller.RegisterSearchRoutes(router, searchController)
	} else {
		log.Warn().Msg("SearchController not provided, skipping search API routes.")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
