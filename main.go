// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"youpy/internal/bus"
	"youpy/internal/config"
	"youpy/internal/engine"
	"youpy/internal/history"
	httprouter "youpy/internal/infrastructure/delivery/http"
	"youpy/internal/installer"
	"youpy/internal/links"
	"youpy/internal/observability"
	"youpy/internal/registry"
	"youpy/internal/runner"
	"youpy/internal/service"
	httpserver "youpy/pkg/http/server"
	"youpy/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
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

	metrics := observability.New(prometheus.DefaultRegisterer)
	go metrics.StartSystemCollector(ctx, log)

	ins := installer.New(log, cfg)

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are installed. it may take some time...")

	if err := ins.Start(ctx); err != nil {
		log.ErrorContext(ctx, "installer start", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	eng := engine.NewYTdlp(log, cfg, metrics)

	eventBus := bus.New(log, cfg, metrics)
	eventBus.Start(ctx)

	reg := registry.New(log, metrics)

	hist := history.New(log, cfg.Dir.HistoryFile, metrics)
	defer hist.Close()

	linkStore := links.New(log, cfg.Dir.LinksFile)

	run := runner.New(log, eng, eventBus, reg, hist, metrics)

	svc := service.New(cfg, log, eng, reg, hist, run, metrics)

	router := httprouter.New(log, svc, eventBus, linkStore, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	svc.Start(ctx)

	log.InfoContext(ctx, "youpy started", slog.String("port", cfg.HTTP.Port))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server stopped", slog.Any("error", err))
	}

	if err := httpSrv.Shutdown(); err != nil {
		log.Error(err.Error())
	}

	// Let in-flight downloads finish their current engine call before the
	// history file handle closes.
	svc.Wait()

	log.InfoContext(ctx, "youpy shut down gracefully")
}
