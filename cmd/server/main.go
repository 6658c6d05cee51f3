package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btg-funds/internal/adapters/http/handlers"
	"btg-funds/internal/adapters/http/middleware"
	"btg-funds/internal/adapters/http/routes"
	"btg-funds/internal/adapters/notify"
	"btg-funds/internal/config"
	"btg-funds/internal/core/services"
	"btg-funds/internal/pkg/logger"
	"btg-funds/internal/pkg/password"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	_ "btg-funds/docs" // Swagger docs
)

// @title BTG Funds API
// @version 1.0
// @description Fund subscription ledger with JWT access and refresh tokens.

// @contact.name API Support

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command; without a subcommand it serves HTTP
func newRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:           "btg-funds",
		Short:         "BTG funds subscription API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Setup(logger.Config{Level: loaded.Log.Level, Pretty: loaded.Log.Pretty})
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate, seed and start the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the storage schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBackend(cmd.Context(), cfg, func(ctx context.Context, b *backend) error {
					return migrate(ctx, b)
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the fund catalog and the optional admin user",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBackend(cmd.Context(), cfg, func(ctx context.Context, b *backend) error {
					return seed(ctx, cfg, b)
				})
			},
		},
		&cobra.Command{
			Use:   "sweep-tokens",
			Short: "Delete expired refresh tokens once",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBackend(cmd.Context(), cfg, func(ctx context.Context, b *backend) error {
					removed, err := services.NewTokenSweeper(b.users, cfg.Cron.TokenSweep, cfg.JWT.RefreshTTL(), log.Logger).Sweep(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired refresh tokens\n", removed)
					return nil
				})
			},
		},
	)

	return rootCmd
}

func withBackend(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, b *backend) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(context.Background()); err != nil {
			log.Error().Err(err).Msg("❌ Failed to close storage")
		}
	}()
	return fn(ctx, b)
}

func migrate(ctx context.Context, b *backend) error {
	if err := b.migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	log.Info().Msg("✅ Database migration completed")
	return nil
}

func seed(ctx context.Context, cfg *config.Config, b *backend) error {
	hasher := password.NewHasher(bcrypt.DefaultCost)
	return config.NewSeeder(b.funds, b.users, hasher, cfg.Seed).Run(ctx)
}

// serve wires the services and runs the HTTP server until SIGINT/SIGTERM
func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withBackend(ctx, cfg, func(ctx context.Context, b *backend) error {
		if err := migrate(ctx, b); err != nil {
			return err
		}
		if err := seed(ctx, cfg, b); err != nil {
			return err
		}

		// Notifications
		notifier, err := notify.New(cfg.Notify, logger.Component("notify"))
		if err != nil {
			return err
		}
		notifications := services.NewNotificationService(notifier, cfg.Notify.QueueSize, cfg.Notify.RatePerSecond, logger.Component("notifications"))
		notifications.Start(context.Background())
		defer notifications.Stop()

		// Core services
		tokens := services.NewTokenManager(services.TokenManagerConfig{
			Secret:         cfg.JWT.Secret,
			Issuer:         cfg.JWT.Issuer,
			AccessTTL:      cfg.JWT.AccessTTL(),
			RefreshTTL:     cfg.JWT.RefreshTTL(),
			ReuseDetection: cfg.JWT.ReuseDetection,
		})
		hasher := password.NewHasher(bcrypt.DefaultCost)
		authService := services.NewAuthService(b.users, hasher, tokens, cfg.Ledger.MaxRetries, logger.Component("auth"))
		clientService := services.NewClientService(b.clients, b.funds, cfg.Ledger.InitialBalance, logger.Component("clients"))
		ledger := services.NewLedgerService(b.clients, b.funds, b.txlog, b.transactor, notifications, cfg.Ledger.MaxRetries, logger.Component("ledger"))

		// Refresh token sweeper
		sweeper := services.NewTokenSweeper(b.users, cfg.Cron.TokenSweep, tokens.Retention(), log.Logger)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start token sweeper: %w", err)
		}
		defer sweeper.Stop()

		// Create Fiber app
		app := fiber.New(fiber.Config{
			AppName:      "BTG Funds API v1.0",
			ErrorHandler: middleware.CustomErrorHandler,
		})
		middleware.Setup(app, cfg)
		routes.Setup(app, routes.Deps{
			Health:      handlers.NewHealthHandler(cfg.AppMode, cfg.Storage.Driver, b.ping),
			Auth:        handlers.NewAuthHandler(authService, cfg),
			Client:      handlers.NewClientHandler(clientService),
			Fund:        handlers.NewFundHandler(clientService, ledger),
			Transaction: handlers.NewTransactionHandler(ledger),
			Tokens:      authService,
			RateLimit:   true,
		})

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			log.Info().Msg("🛑 Shutting down server...")
			if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("❌ Error during shutdown")
			}
		}()

		log.Info().Str("port", cfg.Port).Str("mode", cfg.AppMode).Msg("🚀 Server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		log.Info().Msg("✅ Server stopped gracefully")
		return nil
	})
}
