package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/driver"
	"github.com/paolobietolini/atac-realtime/event_server"
	"github.com/paolobietolini/atac-realtime/journal"
	"github.com/paolobietolini/atac-realtime/metrics"
	"github.com/paolobietolini/atac-realtime/notifiers"
	"github.com/paolobietolini/atac-realtime/sinks"
	"github.com/paolobietolini/atac-realtime/state_stores"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConfigPath = "./config/configs/default.yaml"
	serviceName       = "atac-realtime"
)

func main() {
	once := flag.Bool("once", false, "poll every feed once and exit")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	logUrl := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if logUrl != "" {
		resource := resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("v0.1.0"),
		)
		logExporter, err := otlploghttp.New(ctx,
			otlploghttp.WithEndpoint(logUrl),
			otlploghttp.WithInsecure(),
		)
		if err != nil {
			slog.Error("failed to initialize exporter", "error", err)
			os.Exit(1)
		}
		lp := log.NewLoggerProvider(
			log.WithProcessor(
				log.NewBatchProcessor(logExporter),
			),
			log.WithResource(resource),
		)
		defer func() {
			if err := lp.Shutdown(context.Background()); err != nil {
				fmt.Printf("failed to shutdown logger provider: %v\n", err)
			}
		}()
		slog.SetDefault(otelslog.NewLogger(serviceName, otelslog.WithLoggerProvider(lp)))
	}

	// Config path precedence: ENV > CLI arg > default path
	configPath := defaultConfigPath
	if flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	cfg, err := config.ReadConfig(configPath)
	if err != nil {
		slog.Error("failed to read config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Starting ATAC realtime ingestion",
		"config", configPath,
		"feeds", len(cfg.Feeds),
		"poll_interval", cfg.PollInterval,
		"storage", cfg.Storage.Type,
	)

	if err := run(ctx, cfg, *once); err != nil {
		slog.Error("ingestion stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

func run(ctx context.Context, cfg *config.Config, once bool) error {
	store, err := sinks.NewPartitionStore(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("partition store: %w", err)
	}

	cursors := state_stores.NewStateStore(cfg.StateStore)
	defer cursors.Close()
	if redisStore, ok := cursors.(*state_stores.RedisStateStore); ok {
		if err := retry(ctx, "redis state store", func() error { return redisStore.Ping(ctx) }); err != nil {
			return err
		}
	}

	var notifier notifiers.Notifier
	if err := retry(ctx, "notifier", func() error {
		n, err := notifiers.NewNotifier(cfg.Notifier)
		if err != nil {
			return err
		}
		if redisNotifier, ok := n.(*notifiers.RedisNotifier); ok {
			if err := redisNotifier.Ping(ctx); err != nil {
				_ = redisNotifier.Close()
				return err
			}
		}
		notifier = n
		return nil
	}); err != nil {
		return err
	}
	defer notifier.Close()

	var runJournal journal.Journal = journal.NopJournal{}
	if cfg.Journal != nil && cfg.Journal.PostgresURL != "" {
		if err := retry(ctx, "journal", func() error {
			j, err := journal.Connect(ctx, *cfg.Journal)
			if err != nil {
				return err
			}
			runJournal = j
			return nil
		}); err != nil {
			return err
		}
	}
	defer runJournal.Close()

	collector := metrics.NewCollector()
	opts := []driver.Option{
		driver.WithMetrics(collector),
		driver.WithJournal(runJournal),
		driver.WithNotifier(notifier),
	}

	var eventServer *event_server.EventServer
	if cfg.EventServer != nil && !once {
		eventServer = event_server.NewEventServer(*cfg.EventServer, collector.Handler())
		opts = append(opts, driver.WithEventServer(eventServer))
	}

	d, err := driver.New(cfg, store, cursors, opts...)
	if err != nil {
		return err
	}

	if once {
		failed := 0
		for _, outcome := range d.RunOnce(ctx) {
			if outcome.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d feeds failed", failed, len(cfg.Feeds))
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })
	if eventServer != nil {
		g.Go(func() error { return eventServer.Serve(gctx) })
	}
	return g.Wait()
}

// retry keeps calling connect with exponential backoff until it succeeds,
// ctx ends or a minute has passed.
func retry(ctx context.Context, target string, connect func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	err := backoff.RetryNotify(connect, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		slog.Warn("connection failed, retrying", "target", target, "retry_in", wait, "error", err)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", target, err)
	}
	return nil
}
