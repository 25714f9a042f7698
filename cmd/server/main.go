package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nammatraffic/backend/internal/config"
	"github.com/nammatraffic/backend/internal/delivery/http"
	"github.com/nammatraffic/backend/internal/logger"
	"github.com/nammatraffic/backend/internal/mirror"
	"github.com/nammatraffic/backend/internal/repository/postgres"
	"github.com/nammatraffic/backend/internal/service"
)

func main() {
	// A missing .env falls through to the system environment
	_ = godotenv.Load()

	log := logger.Setup()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database connection, mock storage when unavailable
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var dataRepo service.DataRepository
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set, running with in-memory storage")
		dataRepo = postgres.NewMockRepository()
	} else if pool, err := pgxpool.New(ctx, cfg.DatabaseURL); err != nil {
		log.Warn("could not connect to database, running with in-memory storage", "error", err)
		dataRepo = postgres.NewMockRepository()
	} else {
		defer pool.Close()
		log.Info("connected to PostgreSQL")
		dataRepo = postgres.NewPostgresRepository(pool)
	}

	// Control loop
	system := service.NewSystem(cfg, dataRepo)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	if err := system.Start(runCtx); err != nil {
		log.Error("failed to start control loop", "error", err)
		os.Exit(1)
	}

	// Optional Redis mirror of the live update feed
	mr := mirror.Open(cfg.RedisAddr, cfg.RedisChannel)
	if mr != nil {
		_, updates := system.Subscribe()
		go mr.Run(runCtx, updates)
		log.Info("mirroring updates to redis", "channel", cfg.RedisChannel)
	}

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Namma Traffic API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, system)

	// Graceful shutdown
	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}
	system.Shutdown()
	if err := mr.Close(); err != nil {
		log.Warn("failed to close redis mirror", "error", err)
	}
	log.Info("server exited gracefully")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
