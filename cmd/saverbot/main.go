package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nazarovdf/saverbot/internal/bot"
	"github.com/Nazarovdf/saverbot/internal/cleanup"
	"github.com/Nazarovdf/saverbot/internal/config"
	"github.com/Nazarovdf/saverbot/internal/dispatch"
	"github.com/Nazarovdf/saverbot/internal/extractor"
	"github.com/Nazarovdf/saverbot/internal/handlers"
	"github.com/Nazarovdf/saverbot/internal/jobs"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/metrics"
	"github.com/Nazarovdf/saverbot/internal/registry"
	"github.com/Nazarovdf/saverbot/internal/scratch"
	"github.com/Nazarovdf/saverbot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	resolveTimeout  = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize configuration")
	}

	logutils.InitLogger(cfg.LogLevel)
	logutils.Log.WithFields(map[string]any{
		"version":    Version,
		"build_time": BuildTime,
	}).Info("Starting saverbot")

	if langErr := lang.InitLocalizer(cfg.Lang); langErr != nil {
		logutils.Log.WithError(langErr).Fatal("Failed to initialize localizer")
	}

	reg, err := registry.Open(cfg.DBPath)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to initialize the database")
	}
	defer func() {
		if closeErr := reg.Close(); closeErr != nil {
			logutils.Log.WithError(closeErr).Warn("Failed to close the database")
		}
	}()

	area, err := scratch.NewArea(cfg.ScratchDir)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Failed to prepare scratch directory")
	}

	sessions := session.NewStore()
	cleaner := cleanup.New(area.Root(), sessions, cfg.Cleanup.OrphanAge, cfg.Cleanup.SessionTTL)

	ext := extractor.New(extractor.Options{
		YtDlpBinary:       cfg.Tools.YtDlp,
		InstaloaderBinary: cfg.Tools.Instaloader,
		FFmpegBinary:      cfg.Tools.FFmpeg,
		FFprobeBinary:     cfg.Tools.FFprobe,
		Proxy:             cfg.Proxy,
		AudioBitrate:      cfg.Tools.AudioBitrate,
		MinViableSize:     cfg.Jobs.MinViableSize,
		ResolveTimeout:    resolveTimeout,
	})

	jobMetrics := metrics.NewInMemoryMetrics()
	runner := jobs.NewRunner(ext, sessions, area, cleaner, reg, jobMetrics, jobs.Options{
		Timeout:           cfg.Jobs.ExtractorTimeout,
		DocumentThreshold: cfg.Jobs.DocumentThreshold,
		CaptionLimit:      cfg.Jobs.CaptionLimit,
	})
	facade := dispatch.NewFacade(runner, sessions, cleaner)
	pool := dispatch.NewPool(cfg.Jobs.MaxConcurrent)
	logutils.Log.WithField("max_concurrent", cfg.Jobs.MaxConcurrent).Info("Job pool initialized")

	botInstance, err := bot.InitBot(cfg)
	if err != nil {
		logutils.Log.WithError(err).Fatal("Bot initialization failed")
	}

	router := handlers.NewRouter(handlers.Deps{
		Sender:   botInstance.Api,
		Config:   cfg,
		Facade:   facade,
		Pool:     pool,
		Registry: reg,
		Sweeper:  cleaner,
		Sessions: sessions,
		Stats:    jobMetrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Leftovers from a previous run.
	cleaner.SweepAsync()
	go cleaner.StartPeriodicSweep(ctx, cfg.Cleanup.SweepInterval)
	go extractor.StartPeriodicUpdater(ctx, cfg.Tools.YtDlpUpdateInterval, ext)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go processUpdates(ctx, botInstance, router)

	logutils.Log.Info("saverbot started successfully")

	<-sigChan
	logutils.Log.Info("Received shutdown signal, starting graceful shutdown...")

	botInstance.Api.StopReceivingUpdates()
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
		logutils.Log.Info("All jobs finished")
	case <-time.After(shutdownTimeout):
		logutils.Log.Warn("Timed out waiting for jobs")
	}

	cleaner.Close()
	logutils.Log.Info("saverbot shutdown complete")
}

func processUpdates(ctx context.Context, b *bot.Bot, router *handlers.Router) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.Api.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			router.Handle(ctx, update)
		case <-ctx.Done():
			logutils.Log.Info("Stopping update processing")
			return
		}
	}
}
