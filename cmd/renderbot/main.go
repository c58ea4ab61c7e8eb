// Command renderbot runs the Telegram front end. Renders execute one at a
// time by default (single-operator tool); MAX_CONCURRENT raises the limit.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"renderai/internal/bot"
	"renderai/internal/config"
	"renderai/internal/gemini"
	"renderai/internal/httpclient"
	"renderai/internal/imgproc"
	"renderai/internal/ledger"
	"renderai/internal/render"
	"renderai/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.ValidateBot(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	imgproc.CleanupTemp(cfg.TempDir, 24*time.Hour, logger)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	backend := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	costs := ledger.New(ledger.Options{
		Path:   cfg.LedgerPath,
		Logger: logger,
	})
	costs.Load()

	orch := render.New(render.Options{
		Backend:    backend,
		Ledger:     costs,
		CeilingUSD: cfg.MaxMonthlyCostUSD,
		OutputDir:  cfg.OutputDir,
		Logger:     logger,
	})

	defaults := bot.Settings{
		Style:    cfg.DefaultStyle,
		Lighting: cfg.DefaultLighting,
		UsePro:   cfg.DefaultUseProModel,
	}
	if res, ok := render.ParseResolution(cfg.DefaultResolution); ok {
		defaults.Resolution = res
	}

	handler := bot.New(bot.Options{
		Telegram:     tg,
		Orchestrator: orch,
		Ledger:       costs,
		Settings:     bot.NewSettingsStore(defaults),
		CeilingUSD:   cfg.MaxMonthlyCostUSD,
		TempDir:      cfg.TempDir,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("render bot started",
		"username", tg.Username(),
		"ceiling_usd", cfg.MaxMonthlyCostUSD,
		"monthly_usd", costs.MonthlyCost())

	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	updates := tg.Updates(30 * time.Second)
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down",
				"session_usd", costs.SessionCost(),
				"monthly_usd", costs.MonthlyCost())
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}

			go func(update telegram.Update) {
				defer sem.Release(1)

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
