package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/mixramp/publisher/internal/archive"
	"github.com/mixramp/publisher/internal/auth"
	"github.com/mixramp/publisher/internal/client"
	"github.com/mixramp/publisher/internal/config"
	"github.com/mixramp/publisher/internal/destination"
	"github.com/mixramp/publisher/internal/handler"
	applog "github.com/mixramp/publisher/internal/logger"
	"github.com/mixramp/publisher/internal/middleware"
	"github.com/mixramp/publisher/internal/model"
	"github.com/mixramp/publisher/internal/service"
	"github.com/mixramp/publisher/internal/status"
	"github.com/mixramp/publisher/internal/worker"
	ws "github.com/mixramp/publisher/internal/websocket"
)

// @title          MixRamp Publisher API
// @version        1.0
// @description    Publishing pipeline for radio shows: intake, multi-destination upload, archival.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogger := applog.New(cfg.Server.Env, cfg.Server.LogLevel)

	if err := os.MkdirAll(cfg.Jobs.WorkDir, 0o755); err != nil {
		log.Fatalf("Failed to create work dir: %v", err)
	}
	if err := os.MkdirAll(cfg.Jobs.ArchiveDir, 0o755); err != nil {
		log.Fatalf("Failed to create archive dir: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize destination clients
	azuracastClient := client.NewAzuraCastClient(&cfg.AzuraCast)
	mixcloudClient := client.NewMixcloudClient(&cfg.Mixcloud)
	soundcloudClient := client.NewSoundCloudClient(&cfg.SoundCloud)
	parserClient := client.NewParserClient(&cfg.Parser)

	// Initialize mirror client (optional - archival stays local if not configured)
	var mirror client.ObjectStorage
	if cfg.Mirror.AccessKeyID != "" && cfg.Mirror.SecretAccessKey != "" {
		mirrorClient, err := client.NewMirrorClient(&cfg.Mirror)
		if err != nil {
			log.Printf("Warning: mirror client not initialized: %v", err)
		} else {
			mirror = mirrorClient
		}
	} else {
		log.Println("Info: archive mirror not configured, archiving locally only")
	}

	// Initialize Zitadel JWKS verifier (optional - falls back to legacy JWT)
	var jwksVerifier *auth.JWKSVerifier
	if cfg.Zitadel.Issuer != "" {
		var err error
		jwksVerifier, err = auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Printf("Warning: JWKS verifier not initialized: %v", err)
		} else {
			defer jwksVerifier.Close()
		}
	}

	// Initialize pipeline
	store := status.NewStore(cfg.Jobs.WorkDir)
	archiver := archive.NewManager(cfg.Jobs.ArchiveDir, mirror, slogger)

	adapters := map[model.Destination]destination.Adapter{
		model.DestinationAzuraCast:  destination.NewAzuraCast(azuracastClient, slogger),
		model.DestinationMixcloud:   destination.NewMixcloud(mixcloudClient, slogger),
		model.DestinationSoundCloud: destination.NewSoundCloud(soundcloudClient, cfg.SoundCloud.PlaceholderArtwork, slogger),
	}

	orchestrator := worker.NewOrchestrator(store, parserClient, adapters, archiver, hub, cfg.Jobs.WorkDir, slogger)

	// Initialize services
	intakeService := service.NewIntakeService(cfg.Jobs.WorkDir, store)
	publishService := service.NewPublishService(store, intakeService, archiver, asynqClient)

	// Initialize handlers
	jobHandler := handler.NewJobHandler(intakeService, publishService, validate)
	publishHandler := handler.NewPublishHandler(publishService)

	// Initialize auth handler for ForwardAuth verification
	var tokenVerifier auth.TokenVerifier
	if jwksVerifier != nil {
		tokenVerifier = jwksVerifier
	}
	authHandler := handler.NewAuthHandler(tokenVerifier, cfg.JWT.Secret)

	// Initialize middleware (with fallback support)
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		// Direct mode: auth is handled by the backend itself
		var authMiddleware *middleware.AuthMiddleware
		if jwksVerifier != nil && cfg.JWT.Secret != "" {
			authMiddleware = middleware.NewAuthMiddlewareWithFallback(jwksVerifier, cfg.JWT.Secret)
		} else if jwksVerifier != nil {
			authMiddleware = middleware.NewAuthMiddleware(jwksVerifier)
		} else {
			authMiddleware = middleware.NewLegacyAuthMiddleware(cfg.JWT.Secret)
		}
		apiAuthMiddleware = authMiddleware.Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    512 * 1024 * 1024, // audio uploads
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"azuracast":  azuracastClient.IsConfigured(),
				"mixcloud":   mixcloudClient.IsConfigured(),
				"soundcloud": soundcloudClient.IsConfigured(),
				"parser":     parserClient.IsConfigured(),
				"mirror":     mirror != nil,
				"auth":       jwksVerifier != nil || cfg.JWT.Secret != "",
			},
		})
	})

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Job intake routes
	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.IntakeLimit(cfg.RateLimit.IntakePerHour), jobHandler.Create)
	jobs.Post("/:jobId/confirm-songs", jobHandler.ConfirmSongs)

	// Publish routes
	publish := api.Group("/publish")
	publish.Post("/start/:jobId", rateLimiter.StartLimit(cfg.RateLimit.StartPerHour), publishHandler.Start)
	publish.Get("/status/:jobId", rateLimiter.StatusLimit(cfg.RateLimit.StatusPerMin), publishHandler.Status)
	publish.Get("/archive/:jobId", publishHandler.ArchiveStatus)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, orchestrator, store, slogger)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, orchestrator *worker.Orchestrator, store *status.Store, slogger *slog.Logger) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Jobs.Concurrency,
			Queues: map[string]int{
				"publish": cfg.Jobs.Concurrency,
			},
			LogLevel: asynqLogLevel,
		},
	)

	publishWorker := worker.NewPublishWorker(orchestrator, store, slogger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePublish, publishWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
