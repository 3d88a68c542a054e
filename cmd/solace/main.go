// Command solace is the main entry point for the Solace voice companion
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solacevoice/solace/internal/app"
	"github.com/solacevoice/solace/internal/config"
	"github.com/solacevoice/solace/internal/gateway"
	"github.com/solacevoice/solace/internal/health"
	"github.com/solacevoice/solace/internal/observe"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "solace: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "solace: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("solace starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "solace",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	var checkers []health.Checker
	if pg := application.Postgres(); pg != nil {
		checkers = append(checkers, health.Journal(pg))
	}

	server := gateway.NewServer(gateway.Config{
		ListenAddr:  cfg.Server.ListenAddr,
		MetricsAddr: cfg.Server.MetricsAddr,
		Port:        application,
		Health:      health.New(checkers...),
	})

	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	runErr := server.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Solace — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printStage("STT cloud", cfg.Providers.STT.Cloud.Name, cfg.Providers.STT.Cloud.Model)
	printStage("STT local", localSTTName(cfg), "")
	printStage("TTS cloud", cfg.Providers.TTS.Cloud.Name, cfg.Providers.TTS.Voice)
	printStage("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printStage("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Journal.PostgresDSN != "" {
		fmt.Printf("║  Journal      : %-20s  ║\n", "postgres")
	} else {
		fmt.Printf("║  Journal      : %-20s  ║\n", "in-memory")
	}
	if cfg.Insights.Disabled {
		fmt.Printf("║  Insights     : %-20s  ║\n", "(disabled)")
	} else {
		fmt.Printf("║  Insights     : every %-14s  ║\n", cfg.Insights.Interval.Std())
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr  : %-20s  ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func localSTTName(cfg *config.Config) string {
	if cfg.Providers.STT.Local.ModelPath != "" {
		return "whisper"
	}
	return ""
}

func printStage(kind, name, detail string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if detail != "" {
		value = name + " / " + detail
	}
	if len(value) > 20 {
		value = value[:17] + "…"
	}
	fmt.Printf("║  %-11s  : %-20s  ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
