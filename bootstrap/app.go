package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"logwarden/api"
	"logwarden/config"
	"logwarden/core"
	"logwarden/detect"
	"logwarden/notify"
	"logwarden/service"
	"logwarden/storage"
)

// App holds every component of the logwarden service and owns their
// lifecycle: construction in NewApp, startup in Start, teardown in Shutdown.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	SQLite   *storage.SQLite
	Sink     *storage.Sink
	Window   *core.EventWindow
	Alerts   *core.AlertStore
	Pool     *core.WorkerPool
	Pipeline *service.Pipeline
	Server   *api.Server

	level     zap.AtomicLevel
	serverErr chan error
}

// NewApp constructs and wires all components
func NewApp(ctx context.Context) (*App, error) {
	app := &App{serverErr: make(chan error, 1)}

	logger, sugar, level, err := initLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar
	app.level = level

	sugar.Info("logwarden starting...")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	applyLogLevel(level, cfg.Logging.Level, sugar)

	// Storage is optional; the window and alert buffer carry the hot path
	var sink *storage.Sink
	if cfg.Storage.Enabled {
		sqlite, err := storage.NewSQLite(cfg.Storage.SQLitePath, sugar)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite: %w", err)
		}
		app.SQLite = sqlite
		sink = storage.NewSink(sqlite)
		app.Sink = sink
	}

	classifier, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := notify.NewDispatcher(cfg.Notifications, sugar)

	app.Window = core.NewEventWindow(cfg.Window.Capacity)
	app.Alerts = core.NewAlertStore(cfg.Alerts.Capacity, dispatcher, alertSink(sink), sugar)
	app.Pool = core.NewWorkerPool(ctx, cfg.Workers.Count, cfg.Workers.QueueSize, "pipeline", sugar)

	engine := detect.NewEngine(app.Window, classifier, detect.EngineConfig{
		SweepSize:           cfg.Correlation.SweepSize,
		BruteForceThreshold: cfg.Correlation.BruteForceThreshold,
		AnomalyThreshold:    cfg.Correlation.AnomalyThreshold,
		DedupCooldown:       cfg.Correlation.DedupCooldown,
	}, sugar)

	app.Pipeline = service.NewPipeline(
		app.Window,
		app.Alerts,
		classifier,
		engine,
		eventSink(sink),
		app.Pool,
		service.Options{
			SweepInterval:   cfg.Correlation.SweepInterval,
			SamplerEnabled:  cfg.Sampler.Enabled,
			SamplerInterval: cfg.Sampler.Interval,
		},
		sugar,
	)

	app.Server = api.NewServer(app.Pipeline, api.Options{
		Host:              cfg.API.Host,
		Port:              cfg.API.Port,
		RequestsPerSecond: cfg.API.RateLimit.RequestsPerSecond,
		Burst:             cfg.API.RateLimit.Burst,
	}, sugar)

	return app, nil
}

// Start launches the pipeline and the API server
func (a *App) Start(ctx context.Context) error {
	a.Pipeline.Start()

	go func() {
		a.serverErr <- a.Server.Start()
	}()

	a.Sugar.Infow("logwarden started",
		"api_port", a.Config.API.Port,
		"window_capacity", a.Config.Window.Capacity,
		"storage_enabled", a.Config.Storage.Enabled)
	return nil
}

// WaitForShutdown blocks until a shutdown signal arrives or the API
// server fails.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		a.Sugar.Info("Shutdown signal received")
	case err := <-a.serverErr:
		if err != nil {
			a.Sugar.Errorw("API server exited", "error", err)
		}
	}
}

// Shutdown stops components in reverse dependency order
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Sugar.Errorw("API server shutdown failed", "error", err)
	}

	a.Pipeline.Stop()

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Sugar.Errorw("Failed to close sqlite", "error", err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}

func buildClassifier(cfg *config.Config) (*detect.Classifier, error) {
	if cfg.Classify.SignatureFile != "" {
		classifier, err := detect.NewClassifierFromFile(cfg.Classify.SignatureFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signature file %s: %w", cfg.Classify.SignatureFile, err)
		}
		return classifier, nil
	}
	classifier, err := detect.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("failed to compile signatures: %w", err)
	}
	return classifier, nil
}

// alertSink converts a possibly-nil *storage.Sink into the interface the
// alert store expects without producing a non-nil interface around nil.
func alertSink(s *storage.Sink) core.AlertSink {
	if s == nil {
		return nil
	}
	return s
}

func eventSink(s *storage.Sink) service.EventSink {
	if s == nil {
		return nil
	}
	return s
}

func initLogger() (*zap.Logger, *zap.SugaredLogger, zap.AtomicLevel, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	zcore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	logger := zap.New(zcore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), level, nil
}

func applyLogLevel(level zap.AtomicLevel, configured string, sugar *zap.SugaredLogger) {
	if configured == "" {
		return
	}
	parsed, err := zapcore.ParseLevel(configured)
	if err != nil {
		sugar.Warnw("Unknown log level, keeping info", "level", configured)
		return
	}
	level.SetLevel(parsed)
}
