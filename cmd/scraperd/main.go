package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"beanscout-backend/lib/catalog"
	"beanscout-backend/lib/configutil"
	configsqlite "beanscout-backend/lib/configutil/sqlite"
	"beanscout-backend/lib/enrich"
	"beanscout-backend/lib/fetch"
	"beanscout-backend/lib/pagecache"
	"beanscout-backend/lib/serviceutil"
	"beanscout-backend/lib/telemetry"
	"beanscout-backend/services/catalogstore"
	"beanscout-backend/services/catalogstore/db"
	"beanscout-backend/services/pipeline"

	"github.com/lmittmann/tint"
)

type LlmConfig struct {
	BaseUrl string `json:"base_url"`
	ApiKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type Config struct {
	Database    configsqlite.Struct `json:"database"`
	CacheDir    string              `json:"cache_dir"`
	BatchSize   int                 `json:"batch_size"`
	Concurrency int                 `json:"concurrency"`
	// rescrape pause between full passes, e.g. "12h". empty runs once.
	Interval string            `json:"interval"`
	Llm      LlmConfig         `json:"llm"`
	Roasters []catalog.Roaster `json:"roasters"`
}

func scrapeAll(ctx context.Context, svc pipeline.Service, roasters []catalog.Roaster) {
	t1 := time.Now()
	for _, roaster := range roasters {
		if ctx.Err() != nil {
			return
		}
		stats, err := svc.ScrapeRoaster(ctx, roaster)
		if err != nil {
			slog.ErrorContext(ctx, "scrape run failed", "roaster", roaster.Slug, "err", err)
			continue
		}
		slog.InfoContext(
			ctx, "scraped roaster",
			"roaster", roaster.Slug,
			"discovered", stats.Discovered,
			"uploaded", stats.Uploaded,
			"errors", stats.Errors,
		)
	}
	t2 := time.Now()
	slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())
}

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "scraperd")
	telemetry.InstrumentPerfStats(ctx)

	cfg, err := configutil.ReadConfig[Config]("scraperd.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if len(cfg.Roasters) == 0 {
		slog.Warn("no roasters configured, nothing to do")
		return
	}

	database, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	store := catalogstore.NewStore(database)

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = ".cache/beanscout"
	}
	cache, err := pagecache.Open(cacheDir, 0)
	if err != nil {
		serviceutil.Fatal("failed to open page cache", err)
	}
	defer cache.Close()

	client := fetch.NewClient(fetch.Options{
		RetryCount:        2,
		RequestsPerSecond: 2,
		TracerName:        "scraperd",
	})

	var enricher *enrich.Enricher
	if cfg.Llm.BaseUrl != "" {
		enricher = enrich.New(enrich.NewCompletionClient(enrich.CompletionOptions{
			BaseUrl: cfg.Llm.BaseUrl,
			ApiKey:  cfg.Llm.ApiKey,
			Model:   cfg.Llm.Model,
		}))
	}

	svc := pipeline.NewService(client, cache, store, pipeline.Options{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		BatchDelay:  time.Second,
		Enricher:    enricher,
	})

	scrapeAll(ctx, svc, cfg.Roasters)

	if cfg.Interval == "" {
		return
	}
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		serviceutil.Fatal("invalid interval", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scrapeAll(ctx, svc, cfg.Roasters)
		}
	}
}
