package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"edge-log-analytics/internal/aggregators"
	"edge-log-analytics/internal/decoders"
	internalhttp "edge-log-analytics/internal/http"
	"edge-log-analytics/internal/models"
	"edge-log-analytics/internal/reports"
	"edge-log-analytics/internal/shared/configs"
	"edge-log-analytics/internal/shared/filestorages"
	"edge-log-analytics/internal/shared/loggers"
	"edge-log-analytics/internal/shared/metrics"
	"edge-log-analytics/internal/shared/svcerrors"
	"edge-log-analytics/internal/shared/ulid"
	"edge-log-analytics/internal/stores"
	"edge-log-analytics/internal/streams"
	"edge-log-analytics/internal/walkers"

	"golang.org/x/sync/errgroup"
)

const (
	queueBuffer     = 64
	shutdownTimeout = 5 * time.Second
)

// App holds all run dependencies and manages the run lifecycle.
type App struct {
	config    *configs.Config
	appLogger loggers.Logger
	server    *http.Server
	tracker   *runTracker

	engineConfig aggregators.Config
	walker       walkers.Walker
	decoder      decoders.Decoder
	builder      reports.RankedReportBuilder
	reportStore  stores.ReportStore
}

// New creates an App logging to stdout at the configured level.
func New(config *configs.Config) (*App, error) {
	appLogger, err := loggers.New(config.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return NewWithLogger(config, appLogger)
}

// NewWithLogger creates and initializes a new App instance.
func NewWithLogger(config *configs.Config, logger loggers.Logger) (*App, error) {
	runID := ulid.NewULID()
	appLogger := logger.With().
		Str(loggers.FieldApp, "edge-log-analytics").
		Str(loggers.FieldRunID, runID).
		Logger()

	window, err := models.ParseWindowDuration(config.Aggregation.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize window: %w", err)
	}
	engineConfig := aggregators.Config{
		Levels: config.Aggregation.Levels,
		Window: window,
		Classifier: aggregators.ClassifierConfig{
			IOSMarker:     config.Classifier.IOSMarker,
			AndroidMarker: config.Classifier.AndroidMarker,
			WebMarker:     config.Classifier.WebMarker,
			OSFallback:    config.Classifier.OSFallback,
		},
		LatencyQuantiles: config.Aggregation.LatencyQuantiles,
	}
	// Fail before touching any input when the engine settings are unusable.
	if _, err := aggregators.NewEngine(engineConfig); err != nil {
		return nil, err
	}

	fileStorage, err := filestorages.NewFileStorage(config.Output.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	reportStore, err := stores.NewReportStore(fileStorage, config.Output.Format, window)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize report store: %w", err)
	}

	ignore := config.Input.IgnoreSubstrings
	decoder := decoders.NewAutoDecoder(
		decoders.NewAccessLogDecoder(ignore),
		decoders.NewLoadBalancerDecoder(ignore),
	)

	startedAt, err := ulid.Time(runID)
	if err != nil {
		startedAt = time.Now().UTC()
	}
	tracker := newRunTracker(runID, startedAt)

	var server *http.Server
	if config.Status.Port > 0 {
		httpLogger := appLogger.With().Str(loggers.FieldComponent, "http").Logger()
		server = &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Status.Port),
			Handler:           internalhttp.NewRouter(tracker, httpLogger),
			ReadHeaderTimeout: time.Duration(config.Status.ReadHeaderTimeout) * time.Second,
			WriteTimeout:      time.Duration(config.Status.WriteTimeout) * time.Second,
			IdleTimeout:       time.Duration(config.Status.IdleTimeout) * time.Second,
		}
	}

	return &App{
		config:       config,
		appLogger:    appLogger,
		server:       server,
		tracker:      tracker,
		engineConfig: engineConfig,
		walker:       walkers.NewWalker(),
		decoder:      decoder,
		builder:      reports.NewRankedReportBuilder(),
		reportStore:  reportStore,
	}, nil
}

// Run processes the whole input and writes every report. It returns the final run status
// even when the run fails.
func (app *App) Run(ctx context.Context) (models.RunStatus, error) {
	app.appLogger.Info().
		Msgf("Starting analyzer run (input=%s, output=%s, format=%s, window=%s, levels=%v, shards=%d)",
			app.config.Input.Path,
			app.config.Output.RootDir,
			app.config.Output.Format,
			app.config.Aggregation.Window,
			app.config.Aggregation.Levels,
			app.config.Aggregation.Shards)

	app.startStatusServer()
	defer app.stopStatusServer()

	ctx = loggers.WithContext(ctx, app.appLogger)
	start := time.Now()

	err := app.run(ctx)

	errorCode := metrics.ValueNoError
	if err != nil {
		svcErr, ok := svcerrors.AsServiceError(err)
		if !ok {
			svcErr = svcerrors.NewInternalErrorUndefined(err)
			err = svcErr
		}
		errorCode = svcErr.Code
		app.tracker.fail(err)
	} else {
		app.tracker.setPhase(models.PhaseCompleted)
	}
	metricRunTotal.WithLabelValues(errorCode).Inc()
	metricRunDuration.WithLabelValues(errorCode).Observe(time.Since(start).Seconds())

	if path := app.config.Metrics.TextfilePath; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			app.appLogger.Warn().Err(werr).Str(loggers.FieldFile, path).Msg("failed to write metrics textfile")
		}
	}

	status := app.tracker.snapshot()
	event := app.appLogger.Info()
	if err != nil {
		event = app.appLogger.Error().Err(err).Str(loggers.FieldErrorCode, errorCode)
	}
	event.
		Str("phase", string(status.Phase)).
		Int("files_discovered", status.FilesDiscovered).
		Int("files_walked", status.FilesWalked).
		Int("files_failed", status.FilesFailed).
		Uint64("request_events", status.RequestEvents).
		Uint64("edge_events", status.EdgeEvents).
		Int("decode_failures", status.DecodeFailures).
		Uint64("malformed_sizes", status.MalformedSizes).
		Int("reports_written", status.ReportsWritten).
		Int64(loggers.FieldDuration, time.Since(start).Milliseconds()).
		Msg("analyzer run finished")

	return status, err
}

func (app *App) run(ctx context.Context) error {
	app.tracker.setPhase(models.PhaseDiscovering)
	paths, err := app.walker.Discover(ctx, app.config.Input.Path)
	if err != nil {
		if errors.Is(err, walkers.ErrInputNotFound) {
			return errInputNotFound(err)
		}
		return errDiscover(err)
	}
	app.tracker.filesDiscovered(len(paths))
	app.appLogger.Debug().Int("files", len(paths)).Msg("input discovered")

	app.tracker.setPhase(models.PhaseAggregating)
	engine, err := app.aggregate(ctx, paths)
	if err != nil {
		return err
	}

	tables, err := engine.Flush()
	if err != nil {
		return err
	}
	app.tracker.freeze(tables.Counters)

	app.tracker.setPhase(models.PhaseReporting)
	return app.writeReports(ctx, app.builder.Build(tables))
}

// aggregate runs one engine per shard and merges them into the first.
func (app *App) aggregate(ctx context.Context, paths []string) (aggregators.Engine, error) {
	shards := max(app.config.Aggregation.Shards, 1)
	engines := make([]aggregators.Engine, shards)
	for i := range engines {
		engine, err := aggregators.NewEngine(app.engineConfig)
		if err != nil {
			return nil, err
		}
		engines[i] = engine
	}
	app.tracker.watch(engines)

	queue := streams.NewPartitionedQueue[streams.FileTask](shards, queueBuffer)
	producer := streams.NewFileProducer(queue)
	consumerLogger := app.appLogger.With().Str(loggers.FieldComponent, "consumer").Logger()
	consumer := streams.NewFileConsumer(queue, app.ingestFile(engines), consumerLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return producer.Produce(gctx, paths) })
	g.Go(func() error { return consumer.Run(gctx) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	app.tracker.freeze(sumCounters(engines))

	for _, shard := range engines[1:] {
		if err := engines[0].Merge(shard); err != nil {
			return nil, err
		}
	}
	return engines[0], nil
}

// ingestFile feeds every stream of a file to the engine owned by the partition.
// A file that cannot be read is logged and skipped; engine errors and cancellation stop the run.
func (app *App) ingestFile(engines []aggregators.Engine) streams.FileHandler {
	return func(ctx context.Context, partition int, task streams.FileTask) error {
		engine := engines[partition]
		logger := loggers.Ctx(ctx)

		err := app.walker.Expand(ctx, task.Path, func(ctx context.Context, name string, r io.Reader) error {
			stats, err := app.decoder.Decode(ctx, r, engine.Ingest)
			app.tracker.decodeFailures(stats.Failed)

			if stats.Failed > 0 {
				logger.Warn().
					Str(loggers.FieldContainer, name).
					Int("failed", stats.Failed).
					Msg("skipped undecodable records")
			}
			logger.Debug().
				Str(loggers.FieldContainer, name).
				Int("decoded", stats.Decoded).
				Int("ignored", stats.Ignored).
				Msg("stream decoded")
			return err
		})
		if err == nil {
			app.tracker.fileWalked()
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if _, ok := svcerrors.AsServiceError(err); ok {
			return err
		}
		app.tracker.fileFailed()
		logger.Error().Err(err).Msg("skipped unreadable input file")
		return nil
	}
}

func (app *App) writeReports(ctx context.Context, built *reports.Reports) error {
	for i := range built.Requests {
		key, err := app.reportStore.PutRequestReport(ctx, &built.Requests[i])
		if err != nil {
			return errWriteReport(err)
		}
		app.tracker.reportWritten()
		app.appLogger.Debug().
			Str(loggers.FieldFile, key).
			Int(loggers.FieldLevel, built.Requests[i].Level).
			Str(loggers.FieldWindow, app.engineConfig.Window.FormatStart(built.Requests[i].WindowStart)).
			Msg("request report written")
	}
	for i := range built.Traffic {
		key, err := app.reportStore.PutTrafficReport(ctx, &built.Traffic[i])
		if err != nil {
			return errWriteReport(err)
		}
		app.tracker.reportWritten()
		app.appLogger.Debug().
			Str(loggers.FieldFile, key).
			Int(loggers.FieldLevel, built.Traffic[i].Level).
			Str(loggers.FieldWindow, app.engineConfig.Window.FormatStart(built.Traffic[i].WindowStart)).
			Msg("traffic report written")
	}
	return nil
}

func (app *App) startStatusServer() {
	if app.server == nil {
		return
	}
	app.appLogger.Info().Msgf("Starting status server on %s", app.server.Addr)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.appLogger.Error().Err(err).Msg("status server failed")
		}
	}()
}

func (app *App) stopStatusServer() {
	if app.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(ctx); err != nil {
		app.appLogger.Warn().Err(err).Msg("status server shutdown failed")
		return
	}
	app.appLogger.Info().Msg("Status server stopped")
}
