package main

import (
	"context"
	"time"

	"github.com/anjiri1684/mock_exams/cache"
	config "github.com/anjiri1684/mock_exams/configs"
	"github.com/anjiri1684/mock_exams/database"
	"github.com/anjiri1684/mock_exams/handlers"
	"github.com/anjiri1684/mock_exams/jobs"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/notifications"
	"github.com/anjiri1684/mock_exams/routes"
	"github.com/anjiri1684/mock_exams/services"
	"github.com/anjiri1684/mock_exams/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	if err := logger.Init(config.ConfigDefault("APP_ENV", "development")); err != nil {
		panic(err)
	}
	defer logger.Log.Sync()

	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	if redisURL := config.Config("REDIS_URL"); redisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.Connect(ctx, redisURL, 10*time.Minute)
		cancel()
		if err != nil {
			logger.Log.Warn("redis unavailable, path cache disabled", "error", err)
		} else {
			cache.Resolve = rc
			defer rc.Close()
			logger.Log.Info("path cache enabled")
		}
	}

	go func() {
		if _, err := services.FetchRates(); err != nil {
			logger.Log.Warn("initial exchange rate fetch failed", "error", err)
		}
	}()

	c := cron.New()
	if _, err := c.AddFunc("@hourly", jobs.AuditSlugPaths); err != nil {
		logger.Log.Fatal("scheduling slug audit failed", "error", err)
	}
	if _, err := c.AddFunc("*/15 * * * *", jobs.ExpirePendingEnrollments); err != nil {
		logger.Log.Fatal("scheduling enrollment expiry failed", "error", err)
	}
	c.Start()
	defer c.Stop()
	logger.Log.Info("cron jobs scheduled")

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Mock Exams",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  60 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  config.ConfigDefault("CORS_ORIGINS", "*"),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization, X-Cache",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to the Mock Exams API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.Setup(app)
	go websocket.RunHub()

	port := config.ConfigDefault("PORT", "8080")
	logger.Log.Info("server starting", "port", port)
	if err := app.Listen(":" + port); err != nil {
		logger.Log.Fatal("server failed to start", "error", err)
	}
}
