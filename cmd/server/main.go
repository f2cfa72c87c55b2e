package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jayliang7/VideoSplice/internal/infra/archive"
	"github.com/Jayliang7/VideoSplice/internal/infra/config"
	"github.com/Jayliang7/VideoSplice/internal/infra/email"
	"github.com/Jayliang7/VideoSplice/internal/infra/ffmpeg"
	"github.com/Jayliang7/VideoSplice/internal/infra/httpapi"
	"github.com/Jayliang7/VideoSplice/internal/infra/janitor"
	"github.com/Jayliang7/VideoSplice/internal/infra/labeling"
	"github.com/Jayliang7/VideoSplice/internal/infra/memory"
	"github.com/Jayliang7/VideoSplice/internal/infra/memstore"
	"github.com/Jayliang7/VideoSplice/internal/infra/metrics"
	"github.com/Jayliang7/VideoSplice/internal/infra/tracing"
	"github.com/Jayliang7/VideoSplice/internal/usecase"
	"github.com/Jayliang7/VideoSplice/internal/worker"
	"github.com/Jayliang7/VideoSplice/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting videosplice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.OTLPEndpoint != "" {
		shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdownTracing(context.Background())
		}
	}

	// Working directories
	for _, dir := range []string{cfg.UploadDir, cfg.RunsDir, cfg.OutputDir} {
		fatalOnErr(os.MkdirAll(dir, 0o755), "create data dir")
	}

	// Infra adapters
	store := memstore.New()
	guard := memory.NewGuard(cfg.MemoryHardLimitBytes(), cfg.MemorySafetyBufferBytes(), log)
	sampler := ffmpeg.NewSampler(cfg.SampleRateHz, cfg.MaxClipSeconds, cfg.MaxUploadSizeBytes(), cfg.FrameFormat, log)
	clipper := ffmpeg.NewClipper(log)
	labeler := labeling.NewClient(labeling.Options{
		Endpoint:     cfg.LabelEndpoint,
		Token:        cfg.LabelToken,
		Model:        cfg.LabelModel,
		Timeout:      cfg.LabelTimeout,
		MaxImageEdge: cfg.LabelMaxImageEdge,
		MaxFailures:  cfg.LabelMaxFailures,
	}, log)
	packager := archive.NewPackager(cfg.OutputDir, log)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPTo, log)

	if !labeler.Configured() {
		log.Warn("labeling capability not configured, frames will be marked unavailable")
	}

	// Use case
	uc := usecase.NewProcessVideoUseCase(
		store, sampler, labeler, clipper, packager, guard, notifier,
		log,
		usecase.ProcessVideoConfig{
			RunsDir:        cfg.RunsDir,
			BatchSize:      cfg.BatchSize,
			SampleRateHz:   cfg.SampleRateHz,
			SegmentSeconds: cfg.SegmentSeconds,
		},
	)

	// Serialized job executor
	queue := worker.NewQueue(cfg.QueueCapacity, cfg.WorkerCount, uc.Execute, log)
	queue.Start(ctx)

	// Retention janitor
	jan := janitor.New(store, cfg.RunsDir, cfg.UploadDir, time.Duration(cfg.RetentionMins)*time.Minute, log)
	fatalOnErr(jan.Start(cfg.JanitorCron), "start janitor")
	defer jan.Stop()

	// Metrics server, drained when ctx is cancelled
	metrics.Serve(ctx, cfg.MetricsPort, log)

	// HTTP API
	handler := httpapi.NewHandler(store, queue, cfg.UploadDir, cfg.MaxUploadSizeBytes(), log)
	app := httpapi.NewApp(handler, cfg.CORSOrigins, cfg.MaxUploadSizeBytes())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		_ = app.Shutdown()
	}()

	log.Info("videosplice listening", zap.String("addr", cfg.ListenAddr))
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Error("http server error", zap.Error(err))
	}

	// Stop the workers; the metrics server drains off the same ctx
	// cancellation.
	cancel()
	queue.Close()
	log.Info("videosplice stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
