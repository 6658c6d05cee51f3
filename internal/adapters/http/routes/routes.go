package routes

import (
	"btg-funds/internal/adapters/http/handlers"
	"btg-funds/internal/adapters/http/middleware"
	"btg-funds/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
)

// Deps holds everything the route table needs
type Deps struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Client      *handlers.ClientHandler
	Fund        *handlers.FundHandler
	Transaction *handlers.TransactionHandler
	Tokens      middleware.TokenValidator
	RateLimit   bool
}

// Setup configures all routes for the application
func Setup(app *fiber.App, d Deps) {
	auth := middleware.AuthMiddleware(d.Tokens)

	// Health check & root routes
	app.Get("/", d.Health.Root)
	app.Get("/health", d.Health.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	setupAuthRoutes(app.Group("/auth"), d.Auth, auth, d.RateLimit)

	// Admin routes
	admin := app.Group("/admin", auth, middleware.AdminOnly())
	admin.Get("/ping", d.Auth.AdminPing)

	// API routes (authenticated)
	api := app.Group("/api", auth)
	setupClientRoutes(api.Group("/clientes"), d.Client)
	setupFundRoutes(api.Group("/fondos"), d.Fund)
	setupTransactionRoutes(api.Group("/transacciones"), d.Transaction)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, auth fiber.Handler, rateLimit bool) {
	register, login := []fiber.Handler{}, []fiber.Handler{}
	if rateLimit {
		register = append(register, middleware.StrictRateLimiter())
		login = append(login, middleware.AuthRateLimiter())
	}

	// Public routes
	router.Post("/register", append(register, handler.Register)...)
	router.Post("/login", append(login, handler.Login)...)
	router.Post("/refresh", append(login, handler.Refresh)...)

	// Protected routes
	router.Post("/revoke", auth, handler.Revoke)
}

// setupClientRoutes configures client profile routes
func setupClientRoutes(router fiber.Router, handler *handlers.ClientHandler) {
	router.Post("/", middleware.ClientOnly(), handler.Create)
	router.Get("/:id", handler.Get)
}

// setupFundRoutes configures fund catalog and subscription routes
func setupFundRoutes(router fiber.Router, handler *handlers.FundHandler) {
	router.Get("/", middleware.AdminOnly(), handler.List)
	router.Post("/suscribirse", middleware.ClientOnly(), handler.Subscribe)
	router.Post("/cancelar", middleware.ClientOnly(), handler.Cancel)
}

// setupTransactionRoutes configures ledger history routes
func setupTransactionRoutes(router fiber.Router, handler *handlers.TransactionHandler) {
	router.Get("/historial/:clientId", handler.History)
}
