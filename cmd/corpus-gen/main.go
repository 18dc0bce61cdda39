package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-rca-corpus/internal/config"
	"github.com/miradorstack/mirador-rca-corpus/internal/engine"
	"github.com/miradorstack/mirador-rca-corpus/internal/metrics"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

func main() {
	var (
		configPath      string
		outputDir       string
		seed            int64
		appLogRows      int
		scaleLogs       float64
		enableTier2     bool
		noZip           bool
		sqlitePath      string
		metricsTextfile string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&outputDir, "output_dir", "", "Directory receiving data/, README and ground truth")
	flag.Int64Var(&seed, "seed", 0, "Random seed")
	flag.IntVar(&appLogRows, "app_log_rows", 0, "Target app_logs rows before scaling")
	flag.Float64Var(&scaleLogs, "scale_logs", 0, "Multiplier applied to app_log_rows")
	flag.BoolVar(&enableTier2, "enable_tier2", false, "Also emit service_metrics, network_events and txn_facts")
	flag.BoolVar(&noZip, "no-zip", false, "Skip packaging the output directory")
	flag.StringVar(&sqlitePath, "sqlite", "", "Also load every table into this SQLite database")
	flag.StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this textfile after the run")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output_dir":
			cfg.Output.Dir = outputDir
		case "seed":
			cfg.Generation.Seed = seed
		case "app_log_rows":
			cfg.Generation.AppLogRows = appLogRows
		case "scale_logs":
			cfg.Generation.ScaleLogs = scaleLogs
		case "enable_tier2":
			cfg.Generation.EnableTier2 = enableTier2
		case "no-zip":
			cfg.Output.Zip = !noZip
		case "sqlite":
			cfg.Output.SQLitePath = sqlitePath
		case "metrics-textfile":
			cfg.Output.MetricsTextfile = metricsTextfile
		}
	})
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting corpus generation",
		slog.String("output_dir", cfg.Output.Dir),
		slog.Int64("seed", cfg.Generation.Seed))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Output.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Output.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Output.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	started := time.Now()
	runErr := generate(ctx, cfg, logger)
	outcome := metrics.OutcomeSuccess
	if runErr != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRun(time.Since(started), outcome)

	if cfg.Output.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(prometheus.DefaultGatherer, cfg.Output.MetricsTextfile); err != nil {
			logger.Warn("failed to write metrics textfile", slog.Any("error", err))
		}
	}
	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	if runErr != nil {
		logger.Error("corpus generation failed", slog.String("table", utils.TableOf(runErr)), slog.Any("error", runErr))
		stop()
		os.Exit(1)
	}
	logger.Info("corpus generation finished", slog.Duration("elapsed", time.Since(started)))
}

func generate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	start, end, err := cfg.Generation.Horizon()
	if err != nil {
		return err
	}
	confounders, err := scenario.LoadConfounders(cfg.Scenario.Path, start, end, logger)
	if err != nil {
		return err
	}

	tables := sink.Tables(cfg.Generation.EnableTier2)
	csvSink, err := sink.NewCSV(filepath.Join(cfg.Output.Dir, "data"), tables)
	if err != nil {
		return err
	}
	sinks := sink.Fanout{csvSink}
	if cfg.Output.SQLitePath != "" {
		db, err := sink.OpenSQLite(ctx, cfg.Output.SQLitePath, tables)
		if err != nil {
			_ = sinks.Abort()
			return err
		}
		sinks = append(sinks, db)
	}

	opts := engine.Options{
		Seed:             cfg.Generation.Seed,
		TransactionCount: cfg.Generation.TransactionCount(),
		Start:            start,
		End:              end,
		EnableTier2:      cfg.Generation.EnableTier2,
		Confounders:      confounders,
		Noise:            cfg.Linkage.Noise,
		BufferHorizon:    cfg.Linkage.BufferHorizon,
		BufferCapacity:   cfg.Linkage.BufferCapacity,
	}
	report, err := engine.NewPipeline(logger, opts, sinks).Run(ctx)
	if err := sink.Finish(sinks, err); err != nil {
		return err
	}

	fmt.Println(string(report.Summary))
	zipPath, err := engine.WriteArtifacts(cfg.Output.Dir, report, opts.TransactionCount, opts.EnableTier2, cfg.Output.Zip)
	if err != nil {
		return err
	}
	if zipPath != "" {
		logger.Info("dataset packaged", slog.String("path", zipPath))
	}
	return nil
}
