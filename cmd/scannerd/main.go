package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/chifascan/scanner/internal/api"
	"github.com/chifascan/scanner/internal/cache"
	"github.com/chifascan/scanner/internal/camera"
	"github.com/chifascan/scanner/internal/config"
	"github.com/chifascan/scanner/internal/detector"
	"github.com/chifascan/scanner/internal/dispatcher"
	"github.com/chifascan/scanner/internal/journal"
	sqlitejournal "github.com/chifascan/scanner/internal/journal/sqlite"
	wsjournal "github.com/chifascan/scanner/internal/journal/websocket"
	"github.com/chifascan/scanner/internal/lock"
	"github.com/chifascan/scanner/internal/logging"
	"github.com/chifascan/scanner/internal/metrics"
	"github.com/chifascan/scanner/internal/monitor"
	intOtel "github.com/chifascan/scanner/internal/otel"
	"github.com/chifascan/scanner/internal/pipeline"
	"github.com/chifascan/scanner/internal/sampler"
	"github.com/chifascan/scanner/internal/session"
	"github.com/chifascan/scanner/internal/status"
)

// ServiceName can be overridden at build time via ldflags.
var (
	ServiceName    string = "scannerd"
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// Log is the zerolog base logger all components derive from
	Log zerolog.Logger

	logFile *os.File

	// Services, referenced by the logging context provider
	sess           *session.Context
	monitorService *monitor.Service
)

// setupLogging opens the session log file and configures both the slog
// manager and the zerolog base logger on top of it.
func setupLogging() error {
	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("creating logs dir: %w", err)
		}
	}

	logFilePath := logging.LogFilePath(logsDir, ServiceName, SessionStartTime)
	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	// OTel provider first so its handler can join the slog multi handler
	otelCfg := intOtel.Config{
		Enabled:      config.GetBool("otel.enabled"),
		ServiceName:  ServiceName,
		BatchTimeout: 5 * time.Second,
		LogWriter:    logFile,
		Endpoint:     config.GetString("otel.endpoint"),
		Insecure:     config.GetBool("otel.insecure"),
	}
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(otelCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.ContextProvider = func() []slog.Attr {
		attrs := make([]slog.Attr, 0, 2)
		if sess != nil {
			attrs = append(attrs, slog.String("sessionId", sess.ID()))
		}
		if monitorService != nil {
			attrs = append(attrs, slog.Bool("statusMonitorActive", monitorService.IsRunning()))
		}
		return attrs
	}
	SlogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider)

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	level, err := zerolog.ParseLevel(config.GetString("logLevel"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	mlw := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
		zerolog.ConsoleWriter{
			Out:        logFile,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	)
	Log = zerolog.New(mlw).Level(level).With().Timestamp().Logger()
	Log.Info().Str("path", logFilePath).Msg("Logging to file")
	return nil
}

// buildJournal assembles the journal backend from config and starts the
// session record.
func buildJournal(sess *session.Context) (journal.Backend, error) {
	jc := config.GetJournalConfig()

	backend, err := journal.NewBackend(journal.Config{
		Type: jc.Type,
		SQLite: sqlitejournal.Config{
			DumpInterval: jc.DumpInterval,
			DumpPath: filepath.Join(jc.OutputDir, fmt.Sprintf(
				"%s_%s.db", ServiceName, SessionStartTime.Format("20060102_150405"),
			)),
		},
		WebSocket: wsjournal.Config{
			URL:    config.GetString("monitor.websocketUrl"),
			Secret: config.GetString("monitor.secret"),
		},
	}, Log)
	if err != nil {
		return nil, err
	}

	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("initializing journal: %w", err)
	}

	s := sess.Session()
	if err := backend.StartSession(&s); err != nil {
		Log.Error().Err(err).Msg("Failed to start journal session")
	}
	return backend, nil
}

// registerJournalHandlers bridges pipeline events onto the journal and
// metrics backends. Lock progress is high-frequency and droppable; capture
// resolutions must not be lost, so that queue blocks when full.
func registerJournalHandlers(d *dispatcher.Dispatcher, backend journal.Backend, influx *metrics.Manager, audit *slog.Logger, sessionID string) {
	d.Register(pipeline.EventLockProgress, func(e dispatcher.Event) (any, error) {
		p, ok := e.Payload.(pipeline.LockProgress)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", e.Payload)
		}
		return nil, backend.RecordLockProgress(p.Metric, p.Progress, p.Phase)
	}, dispatcher.Buffered(256))

	d.Register(pipeline.EventCaptureResolved, func(e dispatcher.Event) (any, error) {
		p, ok := e.Payload.(pipeline.CaptureResolved)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", e.Payload)
		}
		audit.Info("Capture resolved",
			"attemptId", p.Outcome.AttemptID,
			"status", string(p.Outcome.Status),
			"httpStatus", p.Outcome.HTTPStatus,
			"reason", p.Outcome.Reason,
		)
		if influx != nil {
			point := metrics.OutcomePoint(sessionID, &p.Outcome)
			if err := influx.WritePoint(context.Background(), metrics.BucketSessionData, point); err != nil {
				Log.Warn().Err(err).Msg("Failed to write outcome point")
			}
		}
		return nil, backend.RecordCapture(&p.Attempt, &p.Outcome)
	}, dispatcher.Buffered(64), dispatcher.Blocking(), dispatcher.Logged())

	d.Register(pipeline.EventStatusChanged, func(e dispatcher.Event) (any, error) {
		p, ok := e.Payload.(pipeline.StatusChanged)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", e.Payload)
		}
		return nil, backend.RecordStatus(p.Message, p.Severity)
	}, dispatcher.Buffered(64))
}

func checkServerStatus(client *api.Client, audit *slog.Logger) {
	if err := client.Healthcheck(); err != nil {
		audit.Warn("Backend is offline", "error", err)
	} else {
		audit.Info("Backend is online")
	}
}

func run() error {
	configDir := flag.String("config", ".", "directory containing scanner.cfg.json")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}

	if err := setupLogging(); err != nil {
		return err
	}

	// Lifecycle events go through slog so they reach the OTel exporter
	// with the session attributes attached.
	audit := SlogManager.Logger()
	audit.Info("Starting up", "version", CurrentVersion, "buildDate", BuildDate)

	outputDir := config.GetString("journal.outputDir")
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	client := api.New(
		config.GetString("api.serverUrl"),
		config.GetDuration("api.uploadTimeout"),
	)
	checkServerStatus(client, audit)

	var err error
	sess, err = session.NewContext(config.GetString("session.url"), client, Log)
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}
	audit.Info("Session resolved", "sessionId", sess.ID())

	board := status.New()

	influx := metrics.NewManager(Log, filepath.Join(outputDir, fmt.Sprintf(
		"%s_metrics_%s.lp.gz", ServiceName, SessionStartTime.Format("20060102_150405"),
	)))
	if config.GetBool("influx.enabled") {
		if err := influx.Connect(); err != nil {
			Log.Warn().Err(err).Msg("Metrics disabled")
			influx = nil
		}
	} else {
		influx = nil
	}

	backend, err := buildJournal(sess)
	if err != nil {
		return fmt.Errorf("building journal: %w", err)
	}

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(Log))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	registerJournalHandlers(eventDispatcher, backend, influx, audit, sess.ID())

	det, err := detector.New(detector.Config{
		ChannelMargin: config.GetInt("detection.channelMargin"),
		GreenMin:      config.GetInt("detection.greenMin"),
		GreenMax:      config.GetInt("detection.greenMax"),
		RedBlueMax:    config.GetInt("detection.redBlueMax"),
		ROI:           config.GetString("detection.roi"),
	})
	if err != nil {
		return fmt.Errorf("building detector: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := camera.Open(camera.Config{
		Source: config.GetString("camera.source"),
		Width:  config.GetInt("camera.width"),
		Height: config.GetInt("camera.height"),
		MaxFPS: config.GetInt("camera.maxFps"),
	})
	if err != nil {
		board.Fatal(status.MsgNoCamera)
		_ = backend.RecordStatus(status.MsgNoCamera, string(status.SeverityFatal))
		return fmt.Errorf("opening camera: %w", err)
	}

	frames, err := source.Start(ctx)
	if err != nil {
		board.Fatal(status.MsgNoCamera)
		_ = backend.RecordStatus(status.MsgNoCamera, string(status.SeverityFatal))
		if errors.Is(err, camera.ErrUnavailable) {
			Log.Error().Str("source", config.GetString("camera.source")).Msg("Camera unavailable")
		}
		return fmt.Errorf("starting camera: %w", err)
	}

	outcomes := cache.NewOutcomeCache()

	pipe := pipeline.New(pipeline.Dependencies{
		Sampler:    sampler.New(config.GetInt("detection.analysisWidth")),
		Detector:   det,
		Uploader:   client,
		Session:    sess,
		Status:     board,
		Dispatcher: eventDispatcher,
		Outcomes:   outcomes,
		Logger:     Log,
		LockConfig: lock.Config{
			PresenceThreshold:   config.GetFloat("detection.presenceThreshold"),
			StabilizationWindow: config.GetDuration("lock.stabilizationWindow"),
		},
		Cooldown:    config.GetDuration("lock.cooldown"),
		JPEGQuality: config.GetInt("capture.jpegQuality"),
	})
	go pipe.Run(ctx, frames)

	monitorService = monitor.NewService(monitor.Dependencies{
		Pipeline:  pipe,
		Source:    source,
		Session:   sess,
		Status:    board,
		Journal:   backend,
		Metrics:   influx,
		Outcomes:  outcomes,
		OutputDir: outputDir,
		Logger:    Log,
	})
	if !monitorService.IsRunning() {
		if err := monitorService.Start(); err != nil {
			Log.Error().Err(err).Msg("Failed to start status monitor")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	audit.Info("Shutting down", "signal", sig.String())

	cancel()
	source.Stop()
	monitorService.Stop()

	// Best-effort session finish beacon, then drain the journal.
	sess.Finish()

	if err := backend.FinishSession(); err != nil {
		Log.Error().Err(err).Msg("Failed to finish journal session")
	}
	if exp, ok := backend.(journal.Exportable); ok {
		dumpPath := filepath.Join(outputDir, fmt.Sprintf(
			"%s_%s.db", ServiceName, SessionStartTime.Format("20060102_150405"),
		))
		if err := exp.Export(dumpPath); err != nil {
			Log.Error().Err(err).Str("path", dumpPath).Msg("Failed to export journal")
		}
	}
	if err := backend.Close(); err != nil {
		Log.Error().Err(err).Msg("Failed to close journal")
	}
	if influx != nil {
		influx.Close()
	}

	audit.Info("Shutdown complete")

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := SlogManager.Flush(flushCtx); err != nil {
		Log.Warn().Err(err).Msg("Failed to flush logs")
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(flushCtx); err != nil {
			Log.Warn().Err(err).Msg("Failed to shut down OTel provider")
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
