// Package main запускает HTTP-сервер бэк-офиса партнёрской программы.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/mmeshcher/affiliate-backoffice/internal/config"
	"github.com/mmeshcher/affiliate-backoffice/internal/content"
	"github.com/mmeshcher/affiliate-backoffice/internal/handler"
	"github.com/mmeshcher/affiliate-backoffice/internal/middleware"
	"github.com/mmeshcher/affiliate-backoffice/internal/reporting"
	"github.com/mmeshcher/affiliate-backoffice/internal/repository"
	"github.com/mmeshcher/affiliate-backoffice/internal/service"
	"github.com/mmeshcher/affiliate-backoffice/internal/sheets"
	"github.com/mmeshcher/affiliate-backoffice/internal/shopify"
	"github.com/mmeshcher/affiliate-backoffice/internal/sso"
)

// googleOptions принимает как путь к файлу сервисного аккаунта, так и сам JSON.
func googleOptions(credentials string) []option.ClientOption {
	switch {
	case credentials == "":
		return nil
	case strings.HasPrefix(strings.TrimSpace(credentials), "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credentials))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(credentials)}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := service.Deps{
		Logger:            logger,
		Files:             content.NewFileStore(cfg.ContentDir),
		SSO:               sso.NewCodec(cfg.SSOSecret),
		ShopDomain:        cfg.ShopifyShopDomain,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
	}

	if cfg.ShopifyEnabled() {
		deps.Storefront = shopify.NewClient(shopify.Config{
			ShopDomain:  cfg.ShopifyShopDomain,
			AccessToken: cfg.ShopifyAccessToken,
			APIVersion:  cfg.ShopifyAPIVersion,
			Logger:      logger.Named("shopify"),
		})
	} else {
		sugar.Warn("shopify admin api is not configured, storefront sync disabled")
	}

	googleOpts := googleOptions(cfg.GoogleCredentials)

	if cfg.ReportingEnabled() {
		reporter, err := reporting.NewReporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, googleOpts...)
		if err != nil {
			sugar.Fatalw("bigquery initialization error", "error", err.Error())
		}
		defer reporter.Close()
		deps.Reports = reporter
	}

	if cfg.SheetsEnabled() {
		legacy, err := sheets.NewStore(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsRange, googleOpts...)
		if err != nil {
			sugar.Fatalw("sheets initialization error", "error", err.Error())
		}
		deps.Legacy = legacy
	}

	svc := service.NewService(repo, deps)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret, cfg.CookieSecure)
	adminAuth := middleware.NewAdminAuth(cfg.JWTSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, adminAuth, handler.Options{
		WebhookSecret: cfg.ShopifyWebhookSecret,
		CronSecret:    cfg.CronSecret,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.SyncInterval > 0 && deps.Storefront != nil {
		g.Go(func() error {
			svc.RunStorefrontSync(ctx, cfg.SyncInterval)
			return nil
		})
	}

	g.Go(func() error {
		sugar.Infow("starting affiliate back office", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Остановка сервера по сигналу или ошибке в другой горутине.
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
