package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/config"
	"github.com/dukex/docflow/pkg/log"
	"github.com/dukex/docflow/pkg/services"
	"github.com/dukex/docflow/pkg/triggers/queue"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort           = 9091
	defaultBackendTimeout = 60 * time.Second
	shutdownTimeout       = 30 * time.Second
)

func main() {
	command := &cli.Command{
		Name:                  "docflow-api",
		Usage:                 "Generate documents from workflows and serve approvals",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or file://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "google-credentials",
				Usage:   "Path to Google credentials JSON; empty uses the in-memory editor",
				Sources: cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			},
			&cli.DurationFlag{
				Name:    "backend-timeout",
				Usage:   "Timeout of every document backend request",
				Value:   defaultBackendTimeout,
				Sources: cli.EnvVars("BACKEND_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "public-url",
				Usage:   "Base URL used in approval links",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("PUBLIC_URL"),
			},
			&cli.BoolFlag{
				Name:    "strict-pdf",
				Usage:   "Fail executions when the PDF rendition cannot be produced",
				Sources: cli.EnvVars("STRICT_PDF"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron schedule of the approval expiry sweep",
				Value:   services.DefaultSweepSchedule,
				Sources: cli.EnvVars("APPROVAL_SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL; when set async triggers are queued for docflow-worker",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis list holding queued triggers",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML file with organizations, templates, connections and workflows to upsert at startup",
				Sources: cli.EnvVars("SEED_FILE"),
			},
			&cli.StringFlag{
				Name:    "clicksign-url",
				Usage:   "ClickSign API base URL",
				Sources: cli.EnvVars("CLICKSIGN_URL"),
			},
			&cli.StringFlag{
				Name:    "clicksign-token",
				Usage:   "ClickSign access token; empty disables the provider",
				Sources: cli.EnvVars("CLICKSIGN_ACCESS_TOKEN"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		log.WithModule("api").Error("docflow-api stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing Docflow API")

	engine, err := cmd.NewEngine(ctx, logger, cmd.EngineConfig{
		ServiceName:       "docflow-api",
		DatabaseURL:       command.String("database-url"),
		EventBus:          command.String("event-bus"),
		KafkaBrokers:      command.String("kafka-brokers"),
		GoogleCredentials: command.String("google-credentials"),
		BackendTimeout:    command.Duration("backend-timeout"),
		PublicURL:         command.String("public-url"),
		StrictPDF:         command.Bool("strict-pdf"),
		ClickSignURL:      command.String("clicksign-url"),
		ClickSignToken:    command.String("clicksign-token"),
		OTel:              command.Bool("otel"),
	})
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := engine.Close(closeCtx); err != nil {
			logger.Error("Failed to close engine", "error", err)
		}
	}()

	if path := command.String("seed-file"); path != "" {
		if err := applySeed(ctx, engine, path); err != nil {
			return err
		}
	}

	api := NewAPI(logger, engine)

	if redisURL := command.String("redis-url"); redisURL != "" {
		client, err := queue.NewClient(ctx, redisURL)
		if err != nil {
			return err
		}

		defer func() { _ = client.Close() }()

		api.queue = queue.NewProducer(client, command.String("queue"))
	}

	sweeper := services.NewSweeper(engine.Approvals, command.String("sweep-schedule"), logger)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}

	defer sweeper.Stop()

	return api.Run(ctx, command.Int("port"))
}

func applySeed(ctx context.Context, engine *cmd.Engine, path string) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}

	summary, err := seed.Apply(ctx, engine.Persistence, engine.Workflow)
	if err != nil {
		return err
	}

	log.WithModule("seed").InfoContext(ctx, "seed applied",
		"file", path,
		"organizations", summary.Organizations,
		"templates", summary.Templates,
		"connections", summary.Connections,
		"workflows", summary.Workflows,
		"field_mappings", summary.FieldMappings,
	)

	return nil
}
