// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"reelgrab/internal/ai"
	"reelgrab/internal/bot"
	"reelgrab/internal/config"
	"reelgrab/internal/coordinator"
	"reelgrab/internal/depmanager"
	"reelgrab/internal/extractor"
	httprouter "reelgrab/internal/infrastructure/delivery/http"
	"reelgrab/internal/normalizer"
	"reelgrab/internal/observability"
	"reelgrab/internal/platform"
	"reelgrab/internal/proxymgr"
	"reelgrab/internal/session"
	"reelgrab/internal/telegram"
	"reelgrab/internal/workdir"
	httpserver "reelgrab/pkg/http/server"
	"reelgrab/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	depMgr := depmanager.New(log, cfg)
	metrics := observability.New()

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are installed. it may take some time...")

	depMgr.Start(ctx)

	// Proxy manager is nil when no proxies are configured
	var proxyMgr *proxymgr.Manager
	if len(cfg.Proxy.Proxies) > 0 {
		proxyMgr = proxymgr.New(log, cfg, metrics)
		go proxyMgr.StartHealthChecker(ctx)

		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", len(cfg.Proxy.Proxies)))
	}

	workDirs, err := workdir.New(log, cfg, metrics)
	if err != nil {
		log.ErrorContext(ctx, "workdir manager new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	go workDirs.StartSweeper(ctx)

	sessions := session.New(log)
	classifier := platform.New(log)
	ext := extractor.NewYTdlp(log, cfg, depMgr, proxyMgr, metrics)
	norm := normalizer.New(log, cfg, depMgr, metrics)

	tgClient, err := telegram.New(log, cfg, metrics)
	if err != nil {
		log.ErrorContext(ctx, "telegram client new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	aiClient := ai.New(log, cfg)

	var transcriber coordinator.Transcriber
	if aiClient.Enabled() {
		transcriber = aiClient
	}

	coord := coordinator.New(log, cfg, sessions, workDirs, ext, norm, tgClient, tgClient, transcriber, metrics)

	var rewriter bot.Rewriter
	if aiClient.Enabled() {
		rewriter = aiClient
	}

	b := bot.New(log, cfg, tgClient, classifier, sessions, coord, rewriter, metrics)

	// Ops HTTP server: readiness, metrics, stats
	router := httprouter.New(log, sessions, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	go b.Run(ctx)

	log.InfoContext(ctx, "reelgrab started", slog.String("port", cfg.HTTP.Port))

	// Waiting for shutdown signal
	<-ctx.Done()

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "reelgrab shut down gracefully")
}
