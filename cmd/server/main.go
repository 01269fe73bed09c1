// Command server runs the translating reverse proxy: it loads
// configuration, wires the family codec registry, the channel store, the
// HTTP client pool, the dispatcher, and the ingress router, then serves
// until an interrupt or term signal requests a graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatproxy/internal/channel"
	"chatproxy/internal/config"
	"chatproxy/internal/dispatch"
	"chatproxy/internal/family"
	"chatproxy/internal/httpclient"
	"chatproxy/internal/ingress"
	"chatproxy/internal/logger"
	"chatproxy/internal/thinking"
	"chatproxy/internal/translate/anthropic"
	"chatproxy/internal/translate/gemini"
	"chatproxy/internal/translate/openai"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		MaxDays: cfg.Logging.MaxDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	thinkingMapper := thinking.NewMapper(cfg.ThinkingBudget)

	registry := family.NewRegistry()
	registry.Register(openai.New(thinkingMapper))
	registry.Register(anthropic.New(thinkingMapper))
	registry.Register(gemini.New(thinkingMapper))

	store, err := channel.Open(cfg.Database.Type, cfg.Database.DSN, cfg.Security.EncryptionKey, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("open channel store: %w", err)
	}

	clients := httpclient.NewFactory(cfg.HTTPClient, cfg.Timeouts)
	dispatcher := dispatch.New(clients, log)

	rt := ingress.NewRouter(registry, store, thinkingMapper, dispatcher, log)
	engine := rt.NewEngine()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		log.Infof("shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}
