package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arabic_content_publisher/config"
	"arabic_content_publisher/content"
	"arabic_content_publisher/generator"
	"arabic_content_publisher/logger"
	"arabic_content_publisher/repository"
)

func main() {
	generate := flag.String("generate", "", "run one generation and exit, e.g. listening:A2")
	topic := flag.String("topic", "", "topic hint for --generate")
	migrate := flag.Bool("migrate", false, "apply database migrations and exit")
	setWebhook := flag.Bool("set-webhook", false, "register PUBLIC_BASE_URL/webhooks/telegram with Telegram and exit")
	flag.Bool("serve", true, "start the web server (default mode)")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *migrate:
		err = runMigrate(cfg, log)
	case *setWebhook:
		err = runSetWebhook(ctx, cfg, log)
	case *generate != "":
		err = runGenerate(ctx, cfg, log, *generate, *topic)
	default:
		err = runServe(ctx, cfg, log)
	}
	if err != nil {
		log.Error("exiting", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func runMigrate(cfg config.Config, log *logger.Logger) error {
	db, err := repository.Open(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runSetWebhook(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	m, err := newMessenger(cfg)
	if err != nil {
		return err
	}
	if m == nil {
		return &content.ConfigError{Missing: cfg.TelegramMissing()}
	}
	url := cfg.PublicBaseURL + "/webhooks/telegram"
	if err := m.SetWebhook(ctx, url, cfg.TelegramWebhookSecret); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	log.Info("webhook registered", "url", url, "header_check", cfg.TelegramWebhookSecret != "")
	return nil
}

func runGenerate(ctx context.Context, cfg config.Config, log *logger.Logger, target, topic string) error {
	typ, lvl, ok := strings.Cut(target, ":")
	if !ok {
		return fmt.Errorf("--generate expects type:level, got %q", target)
	}
	ct, err := content.ParseContentType(typ)
	if err != nil {
		return err
	}
	level, err := content.ParseLevel(lvl)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.GenerationTimeout)
	defer cancel()
	out, err := a.pipeline.Run(ctx, generator.Request{ContentType: ct, Level: level, Topic: topic})
	if err != nil {
		return err
	}
	log.Info("generated", "slug", out.Session.Slug, "audio", out.Audio.Success, "preview_message", out.PreviewID)
	fmt.Println(out.Session.Slug)
	return nil
}

func runServe(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr, "public_base_url", cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.pipeline.Wait()
	return nil
}
