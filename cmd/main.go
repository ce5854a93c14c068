package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/asreval/adapters/chart"
	"github.com/satriahrh/asreval/adapters/history"
	"github.com/satriahrh/asreval/adapters/mongo"
	"github.com/satriahrh/asreval/adapters/storage"
	"github.com/satriahrh/asreval/adapters/stt"
	"github.com/satriahrh/asreval/adapters/telegram"
	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/api"
	"github.com/satriahrh/asreval/internal/auth"
	"github.com/satriahrh/asreval/internal/config"
	"github.com/satriahrh/asreval/internal/dataset"
	"github.com/satriahrh/asreval/internal/normalize"
	"github.com/satriahrh/asreval/internal/quality"
	"github.com/satriahrh/asreval/internal/runs"
	"github.com/satriahrh/asreval/internal/scheduler"
	"github.com/satriahrh/asreval/internal/websocket"
	"github.com/satriahrh/asreval/usecase"
)

const runTimeout = 2 * time.Hour

type options struct {
	date       string
	dateSet    bool
	daemon     bool
	compare    bool
	datasetURL string
	issueToken string
	role       string
	tokenTTL   time.Duration
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.date, "date", "default", `run date YYYY-MM-DD, or "default" for yesterday`)
	flag.BoolVar(&o.daemon, "daemon", false, "run daily at EVAL_RUN_HOUR:EVAL_RUN_MINUTE and serve the operator API")
	flag.BoolVar(&o.compare, "compare", false, "score EVAL_COMPARE_ENGINES against the reference engine without consuming samples")
	flag.StringVar(&o.datasetURL, "dataset-url", "", "download a zip of samples into EVAL_SAMPLES_DIR before running")
	flag.StringVar(&o.issueToken, "issue-token", "", "print an API token for this subject and exit")
	flag.StringVar(&o.role, "role", auth.RoleViewer, "role of the issued token (viewer or operator)")
	flag.DurationVar(&o.tokenTTL, "token-ttl", 30*24*time.Hour, "lifetime of the issued token")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "date" {
			o.dateSet = true
		}
	})
	return o
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.LogDevelopment {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	if err := run(opts, cfg, logger); err != nil {
		logger.Error("Exiting with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(opts options, cfg *config.Config, logger *zap.Logger) error {
	if opts.issueToken != "" {
		return issueToken(cfg, opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.datasetURL != "" {
		if _, err := dataset.NewDownloader(logger).Fetch(ctx, opts.datasetURL, cfg.SamplesDir); err != nil {
			return err
		}
	}

	// Initialize adapters
	sources, err := stt.NewSources(ctx, cfg.Engines(), cfg, logger)
	if err != nil {
		return err
	}
	defer stt.CloseSources(sources)

	samples := storage.NewLocal(cfg.SamplesDir, cfg.ArchiveDir, logger)
	store := history.NewCSVStore(cfg.HistoryFile, logger)
	notifier := telegram.NewNotifier(cfg.Telegram, logger)
	normalizer := normalize.New(cfg.Language)

	if opts.compare {
		return compare(ctx, opts, cfg, samples, sources, normalizer, notifier, logger)
	}

	var journal repositories.RunJournal
	if cfg.Mongo.URI != "" {
		client, err := mongo.NewClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return err
		}
		defer client.Close(context.Background())

		runJournal := client.Journal()
		if err := runJournal.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure run journal indexes", zap.Error(err))
		}
		journal = runJournal
	}

	// Initialize usecase services
	evaluation, err := usecase.NewEvaluationService(
		samples,
		store,
		sources,
		journal,
		quality.NewGate(cfg.MinChars),
		normalizer,
		usecase.EvaluationConfig{
			Reference:       cfg.ReferenceEngine,
			Hypothesis:      cfg.HypothesisEngine,
			ConcurrentFetch: cfg.ConcurrentFetch,
		},
		logger,
	)
	if err != nil {
		return err
	}
	report := usecase.NewReportService(store, chart.NewRenderer(), notifier, cfg.ReportDays, logger)
	job := usecase.NewDailyJob(evaluation, report, notifier, logger)
	manager := runs.NewManager(job, runTimeout, logger)

	if opts.daemon {
		return serve(ctx, cfg, manager, report, logger)
	}

	date, err := entities.ResolveRunDate(opts.date, time.Now())
	if err != nil {
		return err
	}
	result, err := manager.Run(ctx, date)
	if err != nil {
		return err
	}
	logger.Info("Evaluation finished",
		zap.String("run_id", result.ID),
		zap.String("state", string(result.State)),
		zap.Int("accepted", result.Count(domain.OutcomeAccepted)),
	)
	return nil
}

func compare(
	ctx context.Context,
	opts options,
	cfg *config.Config,
	samples repositories.SampleStorage,
	sources map[entities.EngineID]repositories.TranscriptSource,
	normalizer *normalize.Normalizer,
	notifier repositories.Notifier,
	logger *zap.Logger,
) error {
	service, err := usecase.NewCompareService(samples, sources, cfg.ReferenceEngine, cfg.CompareEngines, normalizer, logger)
	if err != nil {
		return err
	}

	tag := ""
	if opts.dateSet {
		date, err := entities.ResolveRunDate(opts.date, time.Now())
		if err != nil {
			return err
		}
		tag = date.Format(entities.DateLayout)
	}

	summaries, err := service.Compare(ctx, tag)
	if err != nil {
		return err
	}

	text := usecase.FormatComparison(cfg.ReferenceEngine, summaries)
	fmt.Println(text)
	if err := notifier.SendMessage(ctx, text); err != nil {
		logger.Warn("Failed to send comparison", zap.Error(err))
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, manager *runs.Manager, report *usecase.ReportService, logger *zap.Logger) error {
	if err := cfg.ValidateDaemon(); err != nil {
		return err
	}
	signer, err := auth.NewSigner(cfg.JWTSecret)
	if err != nil {
		return err
	}

	// Initialize WebSocket hub for run events
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	manager.Observe(hub)

	daily := scheduler.NewDaily(cfg.RunHour, cfg.RunMinute, func(ctx context.Context, at time.Time) {
		date, _ := entities.ResolveRunDate("default", at)
		if _, err := manager.Run(ctx, date); err != nil {
			logger.Error("Scheduled evaluation failed", zap.Time("date", date), zap.Error(err))
		}
	}, logger)
	daily.Start(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	api.InitRoutes(e, &api.Handlers{
		Runs:        manager,
		History:     report,
		Signer:      signer,
		Events:      hub,
		DefaultDays: cfg.ReportDays,
		Logger:      logger,
	})

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Evaluation daemon started", zap.String("addr", cfg.HTTPAddr))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	daily.Stop()
	manager.Wait()

	logger.Info("Server exited")
	return nil
}

func issueToken(cfg *config.Config, opts options) error {
	if opts.role != auth.RoleViewer && opts.role != auth.RoleOperator {
		return fmt.Errorf("unknown role %q", opts.role)
	}
	signer, err := auth.NewSigner(cfg.JWTSecret)
	if err != nil {
		return err
	}
	token, err := signer.GenerateToken(opts.issueToken, opts.role, opts.tokenTTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
