// Command render is the host bridge: it reads one set of render parameters
// as JSON on stdin and writes the fixed-shape result tuple as JSON on
// stdout. Logs go to stderr so the host only ever parses the tuple.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"renderai/internal/config"
	"renderai/internal/gemini"
	"renderai/internal/host"
	"renderai/internal/httpclient"
	"renderai/internal/imgproc"
	"renderai/internal/ledger"
	"renderai/internal/render"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := newLogger(cfg)

	imgproc.CleanupTemp(cfg.TempDir, 24*time.Hour, logger)

	var backend render.Backend
	if err := cfg.Validate(); err != nil {
		// Missing credential degrades to a failure tuple, not a crash.
		logger.Warn("backend unavailable", "err", err)
	} else {
		backend = gemini.New(gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			HTTPClient: httpclient.New(httpclient.Options{
				PreferIPv4: cfg.PreferIPv4,
				Timeout:    cfg.HTTPTimeout,
			}),
			Logger: logger,
		})
	}

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

	adapter := host.New(host.Options{
		Orchestrator: orch,
		Config:       cfg,
		Logger:       logger,
	})

	var params host.Params
	if err := json.NewDecoder(os.Stdin).Decode(&params); err != nil {
		logger.Error("invalid parameters on stdin", "err", err)
		writeTuple(host.Output{})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	out := adapter.Run(ctx, params)
	writeTuple(out)

	logger.Info("spend",
		"session_usd", costs.SessionCost(),
		"monthly_usd", costs.MonthlyCost(),
		"ceiling_usd", cfg.MaxMonthlyCostUSD)
}

func writeTuple(out host.Output) {
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(out)
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

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
