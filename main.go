package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"vehicle-price-tracker/api"
	"vehicle-price-tracker/config"
	"vehicle-price-tracker/scheduler"
	"vehicle-price-tracker/scraper"
	"vehicle-price-tracker/services"
	"vehicle-price-tracker/storage"
	"vehicle-price-tracker/utils"
)

func main() {
	checkURL := flag.String("url", "", "check the price of one listing and print its history")
	exportPath := flag.String("export", "", "with -url: write the listing's stored history to this CSV file instead of checking")
	serve := flag.Bool("serve", false, "serve the HTTP API")
	watch := flag.Bool("watch", false, "check the watch list on its cron schedule")
	runNow := flag.Bool("now", false, "with -watch: run one pass immediately")
	migrate := flag.Bool("migrate", false, "create the database schema and exit")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerForLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.DBDriver, err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *migrate:
		if err := store.Migrate(ctx); err != nil {
			logger.Error("Migration failed: %v", err)
			os.Exit(1)
		}
		logger.Info("Schema is up to date (%s)", cfg.DBDriver)

	case *checkURL != "" && *exportPath != "":
		if err := exportHistory(ctx, store, *checkURL, *exportPath); err != nil {
			logger.Error("Export failed: %v", err)
			os.Exit(1)
		}
		logger.Info("History for %s written to %s", *checkURL, *exportPath)

	case *checkURL != "":
		if err := store.Migrate(ctx); err != nil {
			logger.Error("Migration failed: %v", err)
			os.Exit(1)
		}
		checker := newChecker(cfg, store, logger)
		res, err := checker.Check(ctx, *checkURL)
		if err != nil {
			logger.Error("Price check failed: %v", err)
			os.Exit(1)
		}
		report := services.NewReportService(logger, cfg.CurrencySymbol)
		report.Print(os.Stdout, res, report.Generate(res.Vehicle, res.History))

	case *serve:
		if err := store.Migrate(ctx); err != nil {
			logger.Error("Migration failed: %v", err)
			os.Exit(1)
		}
		runServer(ctx, cfg, store, logger)

	case *watch:
		if err := store.Migrate(ctx); err != nil {
			logger.Error("Migration failed: %v", err)
			os.Exit(1)
		}
		if err := runWatch(ctx, cfg, store, logger, *runNow); err != nil {
			logger.Error("Watch failed: %v", err)
			os.Exit(1)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var (
		s   *storage.SQLStore
		err error
	)
	if cfg.DBDriver == config.DriverSQLite {
		s, err = storage.OpenSQLite(openCtx, cfg.SQLitePath)
	} else {
		s, err = storage.OpenPostgres(openCtx, cfg.DSN())
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newChecker(cfg *config.Config, store storage.Store, logger *utils.Logger) *services.Checker {
	var loader scraper.Loader
	if cfg.FetchMode == config.FetchModeBrowser {
		loader = scraper.NewBrowserLoader(cfg.ChromeBin, cfg.UserAgent, cfg.FetchTimeout)
	} else {
		loader = scraper.NewHTTPLoader(cfg.UserAgent, cfg.FetchTimeout)
	}
	logger.Info("Price fetcher: %s loader, currency %s", loader.Name(), cfg.CurrencySymbol)

	fetcher := scraper.NewPageFetcher(loader, scraper.NewRegexExtractor(cfg.CurrencySymbol), &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryBaseDelay,
		Logger:      logger,
	}, logger)

	return services.NewChecker(fetcher, services.NewTracker(store, logger), logger)
}

func runServer(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger) {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := api.NewHandler(newChecker(cfg, store, logger), store, logger)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: h.Router(),
	}

	go func() {
		logger.Info("Server started on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server ListenAndServe: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server Shutdown: %v", err)
	}
	logger.Info("graceful shutdown complete")
}

func runWatch(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger, runNow bool) error {
	wl, err := config.LoadWatchList(cfg.WatchFile, cfg.WatchCron)
	if err != nil {
		return err
	}
	if wl.Skipped > 0 {
		logger.Warn("Skipped %d blank or duplicate entries in %s", wl.Skipped, cfg.WatchFile)
	}

	sched := scheduler.New(ctx, newChecker(cfg, store, logger), wl.URLs, cfg.MaxConcurrency, cfg.RateLimit, logger)
	if err := sched.Register(wl.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if runNow {
		go sched.RunOnce()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping watch")
	return nil
}

func exportHistory(ctx context.Context, store storage.Store, rawURL, path string) error {
	pageURL, err := services.ValidateURL(rawURL)
	if err != nil {
		return err
	}
	v, err := store.GetVehicle(ctx, pageURL)
	if err != nil {
		return err
	}
	hist, err := store.History(ctx, v.ID)
	if err != nil {
		return err
	}

	csvWriter, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	var w storage.HistoryWriter = csvWriter
	if err := w.WriteHistory(v, hist); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
