package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/perfpulse/meetsched/internal/googlecal"
	"github.com/perfpulse/meetsched/internal/hierarchy"
	"github.com/perfpulse/meetsched/internal/instrumentation"
	"github.com/perfpulse/meetsched/internal/notetaker"
	"github.com/perfpulse/meetsched/internal/orchestrator"
	"github.com/perfpulse/meetsched/internal/server"
	"github.com/perfpulse/meetsched/internal/store"
	"github.com/perfpulse/meetsched/internal/vault"
	"github.com/perfpulse/meetsched/internal/zoom"
)

// serveConfig holds the resolved configuration for the serve command.
type serveConfig struct {
	debugMode bool
	httpAddr  string
	dbDSN     string

	googleClientID     string
	googleClientSecret string
	googleRedirectURL  string
	zoomClientID       string
	zoomClientSecret   string
	zoomRedirectURL    string

	botAPIKey  string
	botBaseURL string
	botName    string

	jwtSecret string

	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	var cfg serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the meeting scheduling HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Local development settings live in .env; absence is fine.
			_ = godotenv.Load()
			applyEnvFallbacks(&cfg)

			if cfg.jwtSecret == "" {
				return fmt.Errorf("a JWT secret is required (--jwt-secret or JWT_SECRET)")
			}
			if cfg.dbDSN == "" {
				return fmt.Errorf("a database DSN is required (--db-dsn or DATABASE_DSN)")
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.httpAddr, "http-addr", ":8080", "HTTP server address")
	cmd.Flags().StringVar(&cfg.dbDSN, "db-dsn", "", "Postgres DSN. Can also use DATABASE_DSN env var.")
	cmd.Flags().StringVar(&cfg.googleClientID, "google-client-id", "", "Google OAuth client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.googleClientSecret, "google-client-secret", "", "Google OAuth client secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.googleRedirectURL, "google-redirect-url", "", "Google OAuth redirect URL. Can also use GOOGLE_REDIRECT_URL env var.")
	cmd.Flags().StringVar(&cfg.zoomClientID, "zoom-client-id", "", "Zoom OAuth client ID. Can also use ZOOM_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.zoomClientSecret, "zoom-client-secret", "", "Zoom OAuth client secret. Can also use ZOOM_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.zoomRedirectURL, "zoom-redirect-url", "", "Zoom OAuth redirect URL. Can also use ZOOM_REDIRECT_URL env var.")
	cmd.Flags().StringVar(&cfg.botAPIKey, "bot-api-key", "", "Recording bot API key. Can also use BOT_API_KEY env var.")
	cmd.Flags().StringVar(&cfg.botBaseURL, "bot-base-url", "", "Recording bot API base URL override. Can also use BOT_BASE_URL env var.")
	cmd.Flags().StringVar(&cfg.botName, "bot-name", "Notetaker", "Display name the recording bot joins meetings with")
	cmd.Flags().StringVar(&cfg.jwtSecret, "jwt-secret", "", "HMAC secret for bearer token verification. Can also use JWT_SECRET env var.")
	cmd.Flags().BoolVar(&cfg.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// applyEnvFallbacks fills unset flags from the environment.
func applyEnvFallbacks(cfg *serveConfig) {
	fallback := func(target *string, key string) {
		if *target == "" {
			*target = os.Getenv(key)
		}
	}
	fallback(&cfg.dbDSN, "DATABASE_DSN")
	fallback(&cfg.googleClientID, "GOOGLE_CLIENT_ID")
	fallback(&cfg.googleClientSecret, "GOOGLE_CLIENT_SECRET")
	fallback(&cfg.googleRedirectURL, "GOOGLE_REDIRECT_URL")
	fallback(&cfg.zoomClientID, "ZOOM_CLIENT_ID")
	fallback(&cfg.zoomClientSecret, "ZOOM_CLIENT_SECRET")
	fallback(&cfg.zoomRedirectURL, "ZOOM_REDIRECT_URL")
	fallback(&cfg.botAPIKey, "BOT_API_KEY")
	fallback(&cfg.botBaseURL, "BOT_BASE_URL")
	fallback(&cfg.jwtSecret, "JWT_SECRET")
	if os.Getenv("METRICS_ENABLED") == "false" {
		cfg.metricsEnabled = false
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.metricsAddr = addr
	}
}

func runServe(ctx context.Context, cfg serveConfig) error {
	logger := newLogger(cfg.debugMode)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	metrics := provider.Metrics()

	db, err := store.Open(cfg.dbDSN)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.Migrate(); err != nil {
		return err
	}

	credentialVault := vault.New(db, vault.Config{
		Google: vault.AppConfig{
			ClientID:     cfg.googleClientID,
			ClientSecret: cfg.googleClientSecret,
			RedirectURL:  cfg.googleRedirectURL,
		},
		Zoom: vault.AppConfig{
			ClientID:     cfg.zoomClientID,
			ClientSecret: cfg.zoomClientSecret,
			RedirectURL:  cfg.zoomRedirectURL,
		},
	}, logger, metrics)

	var botOpts []notetaker.Option
	if cfg.botBaseURL != "" {
		botOpts = append(botOpts, notetaker.WithBaseURL(cfg.botBaseURL))
	}

	orch := orchestrator.New(orchestrator.Config{
		Meetings: db,
		Graph:    db,
		Tokens:   credentialVault,
		Google:   googlecal.New(logger, metrics),
		Zoom:     zoom.NewClient(logger, metrics),
		Bot:      notetaker.NewClient(cfg.botAPIKey, logger, metrics, botOpts...),
		Resolver: hierarchy.New(db, logger),
		BotName:  cfg.botName,
		Logger:   logger,
		Metrics:  metrics,
	})

	health := server.NewHealthChecker(db)
	router := server.NewRouter(server.RouterConfig{
		Handler:   server.NewHandler(orch, credentialVault, logger),
		Health:    health,
		JWTSecret: []byte(cfg.jwtSecret),
		Metrics:   metrics,
		Debug:     cfg.debugMode,
	})

	httpServer := &http.Server{
		Addr:              cfg.httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *server.MetricsServer
	if cfg.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.metricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "addr", cfg.httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context canceled")
	}

	health.SetShuttingDown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error("instrumentation shutdown failed", "error", err)
	}
	return nil
}

// newLogger builds the process-wide slog logger.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
