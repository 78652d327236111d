package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	gmailadapter "github.com/efisher/mailhub/internal/adapter/driven/gmail"
	sqliteadapter "github.com/efisher/mailhub/internal/adapter/driven/sqlite"
	httphandler "github.com/efisher/mailhub/internal/adapter/driving/http"
	"github.com/efisher/mailhub/internal/application"
	"github.com/efisher/mailhub/internal/cipher"
	"github.com/efisher/mailhub/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"max_messages", cfg.MaxMessages,
		"fetch_rate", cfg.FetchRate,
	)
	if !cfg.HasGoogleCredentials() {
		slog.Warn("no google oauth credentials configured, mailbox endpoints will fail until they are set")
	}

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters and the credential cipher.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	messageStore := sqliteadapter.NewMessageRepo(db)
	accountStore := sqliteadapter.NewAccountRepo(db)

	credCipher, err := cipher.New(cfg.SecretKey)
	if err != nil {
		return err
	}

	provider := gmailadapter.NewClient(gmailadapter.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		CallTimeout:  cfg.ProviderTimeout,
	})

	// 6. Create application services.
	states := application.NewStateStore(cfg.StateTTL)
	tokenSvc := application.NewTokenService(credentialStore, provider, credCipher, states, cfg.RefreshThreshold, slog.Default())
	ingestSvc := application.NewIngestService(tokenSvc, provider, messageStore, cfg.MaxMessages, cfg.FetchRate, slog.Default())

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(tokenSvc, ingestSvc, messageStore, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, accountStore, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("mailhub started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
