package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"analytics_framework/internal/analytics"
	"analytics_framework/internal/cache"
	"analytics_framework/internal/config"
	"analytics_framework/internal/events"
	"analytics_framework/internal/httpapi"
	"analytics_framework/internal/metrics"
	"analytics_framework/internal/notify"
	"analytics_framework/internal/sched"
	"analytics_framework/internal/store"
	"analytics_framework/internal/watch"
)

// App wires the analytics components together.
type App struct {
	cfg       config.Config
	store     *store.Store
	runner    *analytics.Runner
	watcher   *watch.Watcher
	scheduler *sched.Scheduler
	bus       *events.Bus
	cache     *cache.Cache
	metrics   *metrics.Metrics
	webhook   *notify.Webhook
	mux       *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	m := metrics.New()
	viewCache := cache.New(time.Duration(cfg.CacheTTLSec)*time.Second, cfg.CacheMaxEntries)

	summarizer := analytics.NewSummarizer(cfg.LLM.AllowedDomains)
	estimator := analytics.NewEstimationClient(nil, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKey,
		cfg.LLM.PromptVersion, time.Duration(cfg.LLM.TimeoutSec)*time.Second)
	analyzer := analytics.NewAnalyzer(st, estimator, summarizer,
		time.Duration(cfg.IdleThresholdMin)*time.Minute, cfg.ProcessingVersion)
	aggregator := analytics.NewAggregator(st)

	feed := &store.ChatFeed{Store: st, WindowDays: cfg.FetchWindowDays, FetchAll: cfg.FetchAll}
	runner := analytics.NewRunner(feed, analyzer, aggregator, st, bus, m,
		cfg.WorkerCount, cfg.LLM.CostPerRequest)

	watcher := watch.New(cfg, st)
	scheduler := sched.New(cfg.ScheduleHourUTC, runner.Run)
	webhook := notify.NewWebhook(cfg.WebhookURL, nil)

	mux := http.NewServeMux()
	router := httpapi.NewRouter(cfg, st, runner, viewCache, m)
	router.Register(mux)

	return &App{
		cfg:       cfg,
		store:     st,
		runner:    runner,
		watcher:   watcher,
		scheduler: scheduler,
		bus:       bus,
		cache:     viewCache,
		metrics:   m,
		webhook:   webhook,
		mux:       mux,
	}, nil
}

// Run starts the watcher, scheduler, cache invalidator, and HTTP server, and
// blocks until the server stops.
func (a *App) Run(ctx context.Context) error {
	go a.invalidateOnRun(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	if a.cfg.ScheduleEnabled {
		go a.scheduler.Start(ctx)
	}

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	return srv.ListenAndServe()
}

// invalidateOnRun drops cached views whenever a batch run lands new data,
// and forwards the completion to the webhook when one is configured.
func (a *App) invalidateOnRun(ctx context.Context) {
	sub := a.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			done, ok := ev.(analytics.RunCompleted)
			if !ok {
				continue
			}
			a.cache.Clear()
			log.Printf("view cache cleared after run for %s", done.TargetDate)
			if err := a.webhook.SendRunCompleted(ctx, done); err != nil {
				log.Printf("webhook delivery failed: %v", err)
			}
		}
	}
}

// RunOnce executes a single batch run for targetDate without the server.
func (a *App) RunOnce(ctx context.Context, targetDate string) (analytics.RunResult, error) {
	return a.runner.Run(ctx, targetDate)
}

// Backfill loads every export file already present in the watch dir.
func (a *App) Backfill(ctx context.Context) error {
	return a.watcher.Backfill(ctx)
}

func (a *App) Close() error { return a.store.Close() }

func (a *App) Runner() *analytics.Runner { return a.runner }

func (a *App) Store() *store.Store { return a.store }

func (a *App) Mux() *http.ServeMux { return a.mux }
