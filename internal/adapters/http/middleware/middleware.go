package middleware

import (
	"time"

	"btg-funds/internal/config"
	"btg-funds/internal/pkg/metrics"
	"btg-funds/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

// Setup configures all middlewares for the application
func Setup(app *fiber.App, cfg *config.Config) {
	// Recover middleware - catches panics
	app.Use(recover.New())

	// Prometheus request metrics
	app.Use(metrics.Middleware())

	// Gzip Compression middleware
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Security Headers middleware (Helmet)
	app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "SAMEORIGIN",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		PermissionPolicy:          "geolocation=(), microphone=(), camera=()",
	}))

	// General API limit per IP
	app.Use(rateLimiter(100, "", "Too many requests, please wait a moment"))

	// Request log; user_id is filled in once the auth middleware has run
	format := "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:userID}\n"
	if !cfg.IsDev() {
		format = "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:userID} | ${error}\n"
	}
	app.Use(logger.New(logger.Config{Format: format, TimeFormat: "2006-01-02 15:04:05"}))

	// CORS: credentials (refresh cookie) only with an explicit origin list
	origins := cfg.GetAllowedOrigins()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: origins != "*",
	}))
}

// AuthRateLimiter limits login and refresh to 5 requests per minute per IP
func AuthRateLimiter() fiber.Handler {
	return rateLimiter(5, "-auth", "Too many login attempts, please wait one minute")
}

// StrictRateLimiter limits registration to 3 requests per minute per IP
func StrictRateLimiter() fiber.Handler {
	return rateLimiter(3, "-strict", "Please wait before trying again")
}

// rateLimiter builds a per-IP limiter answering with the standard error envelope
func rateLimiter(limit int, keySuffix, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + keySuffix
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("⚠️ Rate limit reached")
			return response.Error(c, fiber.StatusTooManyRequests, message)
		},
	})
}

// CustomErrorHandler handles errors globally
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("❌ Unhandled error")
	}

	return response.Error(c, code, message)
}
