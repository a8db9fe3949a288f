package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/coalharbourgroup/PM-email-vcs/internal/config"
	"github.com/coalharbourgroup/PM-email-vcs/internal/deliveries"
	"github.com/coalharbourgroup/PM-email-vcs/internal/github"
	"github.com/coalharbourgroup/PM-email-vcs/internal/handlers"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/mandrill"
	"github.com/coalharbourgroup/PM-email-vcs/internal/notify"
	"github.com/coalharbourgroup/PM-email-vcs/internal/reconcile"
	"github.com/coalharbourgroup/PM-email-vcs/internal/server"
	"github.com/coalharbourgroup/PM-email-vcs/internal/whatsapp"
)

var (
	cfg      *config.Config
	log      *logger.Logger
	ledger   *deliveries.Store
	waClient *whatsapp.Client
	errChan  = make(chan error, 2)
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	if err := initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Initialization error: %v\n", err)
		os.Exit(1)
	}
	defer ledger.Close()

	if waClient != nil {
		startWhatsAppClient(ctx, &wg)
	}

	startWebServer(ctx, &wg)

	waitForShutdown(cancel, &wg)
}

func initialize(ctx context.Context) error {
	var err error

	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting EmailVCS sync service")

	ledger, err = deliveries.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open deliveries ledger: %w", err)
	}

	if cfg.WhatsApp.Enabled {
		waClient, err = whatsapp.New(ctx, whatsapp.Config{
			Driver:     cfg.WhatsApp.Driver,
			DSN:        cfg.WhatsApp.DSN,
			LogLevel:   cfg.WhatsApp.LogLevel,
			DeviceName: cfg.WhatsApp.DeviceName,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
	}

	return nil
}

func newHandler() *handlers.Handler {
	repo := github.New(github.Config{
		BaseURL: cfg.GitHub.APIURL,
		Token:   cfg.GitHub.Token,
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repository,
		Branch:  cfg.GitHub.Branch,
		Timeout: cfg.Sync.Timeout,
	}, log)

	store := mandrill.New(cfg.Mandrill.APIURL, cfg.Mandrill.APIKey, cfg.Sync.Timeout, log)

	reconciler := reconcile.New(repo, store, reconcile.Defaults{
		FromEmail: cfg.Mandrill.DefaultFromEmail,
		FromName:  cfg.Mandrill.DefaultFromName,
	}, cfg.Sync.Concurrency, log)

	notifier := notify.New(store, repo, notify.Config{
		Repository: repo.Repository(),
		FromEmail:  cfg.Mandrill.DefaultFromEmail,
		FromName:   cfg.Mandrill.DefaultFromName,
		Recipients: cfg.Sync.NotifyEmails,
	}, log)

	h := handlers.New(handlers.Config{
		WebhookSecret: cfg.GitHub.WebhookSecret,
		Branch:        cfg.GitHub.Branch,
	}, repo, reconciler, notifier, log).WithDeliveries(ledger)

	if waClient != nil {
		notifier.WithChat(waClient, cfg.WhatsApp.Recipient)
		h.WithChat(waClient)
	}

	if cfg.GitHub.WebhookSecret == "" {
		log.Warn("GITHUB_WEBHOOK_SECRET is not set, every webhook delivery will be rejected")
	}

	return h
}

func startWhatsAppClient(ctx context.Context, wg *sync.WaitGroup) {
	wg.Go(func() {
		defer func() {
			waClient.Disconnect()
			log.Info("WhatsApp client shutdown complete")
		}()

		if err := waClient.Connect(ctx); err != nil {
			// The chat summary is optional; sync keeps running without it.
			log.Error("Failed to connect to WhatsApp", err)
		}

		<-ctx.Done()
	})
}

func startWebServer(ctx context.Context, wg *sync.WaitGroup) {
	wg.Go(func() {
		httpServer := server.New(cfg, newHandler(), log)
		httpServer.Start(errChan)

		<-ctx.Done()
		log.Info("HTTP server shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during HTTP server shutdown", err)
		}
	})
}

func waitForShutdown(cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("Service failed", err)
	case <-sigChan:
		log.Info("Received shutdown signal")
	}

	cancel()
	wg.Wait()

	log.Info("Application stopped")
}
