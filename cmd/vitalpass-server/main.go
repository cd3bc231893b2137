package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vitalpass/vitalpass/internal/config"
	"github.com/vitalpass/vitalpass/internal/domain/access"
	"github.com/vitalpass/vitalpass/internal/domain/audittrail"
	"github.com/vitalpass/vitalpass/internal/domain/consent"
	"github.com/vitalpass/vitalpass/internal/domain/emergency"
	"github.com/vitalpass/vitalpass/internal/domain/identity"
	"github.com/vitalpass/vitalpass/internal/domain/policy"
	"github.com/vitalpass/vitalpass/internal/domain/record"
	"github.com/vitalpass/vitalpass/internal/domain/verification"
	"github.com/vitalpass/vitalpass/internal/platform/auth"
	"github.com/vitalpass/vitalpass/internal/platform/db"
	"github.com/vitalpass/vitalpass/internal/platform/limiter"
	"github.com/vitalpass/vitalpass/internal/platform/middleware"
)

func main() {
	root := &cobra.Command{
		Use:   "vitalpass-server",
		Short: "Patient-held health record with consent-based sharing",
	}

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	var dir string

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrate.PersistentFlags().StringVar(&dir, "dir", "migrations", "migrations directory")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := db.NewMigrator(pool, dir).Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", n)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = fmt.Sprintf("applied %s", s.AppliedAt.Format(time.RFC3339))
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	migrate.AddCommand(up, status)
	return migrate
}

func seedCmd() *cobra.Command {
	var file string

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load demo fixtures into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			sql, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read fixture file: %w", err)
			}
			if _, err := pool.Exec(cmd.Context(), string(sql)); err != nil {
				return fmt.Errorf("load fixtures: %w", err)
			}
			fmt.Printf("loaded %s\n", file)
			return nil
		},
	}
	seed.Flags().StringVar(&file, "file", "fixtures/demo.sql", "fixture SQL file")
	return seed
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	// Override attempt limiter: Redis when configured, per-process otherwise.
	var attempts limiter.Limiter
	window := time.Duration(cfg.OverrideWindowMinutes) * time.Minute
	if cfg.RedisURL != "" {
		client, err := limiter.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		attempts = limiter.NewRedis(client, cfg.OverrideMaxAttempts, window)
		logger.Info().Msg("override limiter backed by redis")
	} else {
		attempts = limiter.NewMemory(cfg.OverrideMaxAttempts, window)
		logger.Warn().Msg("override limiter is in-memory; use REDIS_URL with multiple instances")
	}

	// Repositories
	factRepo := record.NewFactRepoPG(pool)
	eventRepo := audittrail.NewEventRepoPG(pool)
	patientRepo := identity.NewPatientRepoPG(pool)
	clinicianRepo := identity.NewClinicianRepoPG(pool)
	policyRepo := policy.NewPolicyRepoPG(pool)
	linkRepo := consent.NewLinkRepoPG(pool)
	verificationRepo := verification.NewVerificationRepoPG(pool)

	// Services
	auditSvc := audittrail.NewService(eventRepo)
	recordSvc := record.NewService(factRepo, auditSvc)
	policySvc := policy.NewService(policyRepo)
	identitySvc := identity.NewService(patientRepo, clinicianRepo, policySvc, cfg.EmergencyCodePrefix)
	consentSvc := consent.NewService(linkRepo)
	verificationSvc := verification.NewService(verificationRepo, factRepo, identitySvc, auditSvc, pool, cfg.LockOnVerify)
	resolver := access.NewResolver(consentSvc, policySvc, factRepo, identitySvc, auditSvc)
	gate := emergency.NewGate(patientRepo, policySvc, factRepo, auditSvc, attempts)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Request-ID"},
	}))
	e.Use(middleware.AccessLog(logger))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// The emergency group is public by design: a responder has no account.
	public := e.Group("/emergency")
	emergency.NewHandler(gate).RegisterRoutes(public)

	api := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		api.Use(auth.DevAuthMiddleware())
	} else {
		api.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	identity.NewHandler(identitySvc).RegisterRoutes(api)
	record.NewHandler(recordSvc).RegisterRoutes(api)
	policy.NewHandler(policySvc).RegisterRoutes(api)
	consent.NewHandler(consentSvc).RegisterRoutes(api)
	verification.NewHandler(verificationSvc).RegisterRoutes(api)
	access.NewHandler(resolver).RegisterRoutes(api)
	audittrail.NewHandler(auditSvc).RegisterRoutes(api)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
