// Package main runs the queue worker that turns queued triggers into documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/log"
	"github.com/dukex/docflow/pkg/triggers/queue"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "docflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Consume queued triggers and generate documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or file://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis URL of the trigger queue",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Redis list holding queued triggers",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Triggers processed in parallel",
				Value:   4,
				Sources: cli.EnvVars("WORKER_CONCURRENCY"),
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
				Value:   60 * time.Second,
				Sources: cli.EnvVars("BACKEND_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "public-url",
				Usage:   "Base URL of the API, used in approval links",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("PUBLIC_URL"),
			},
			&cli.BoolFlag{
				Name:    "strict-pdf",
				Usage:   "Fail executions when the PDF rendition cannot be produced",
				Sources: cli.EnvVars("STRICT_PDF"),
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
		log.WithModule("docflow-worker").Error("docflow-worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("docflow-worker").With("worker_id", workerID)
	logger.InfoContext(ctx, "Initializing Docflow Worker")

	engine, err := cmd.NewEngine(ctx, logger, cmd.EngineConfig{
		ServiceName:       "docflow-worker",
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

	client, err := queue.NewClient(ctx, command.String("redis-url"))
	if err != nil {
		return err
	}

	consumer, err := queue.NewConsumer(client, queue.Config{
		Queue:       command.String("queue"),
		Concurrency: int(command.Int("concurrency")),
	}, engine.Dispatcher, logger)
	if err != nil {
		_ = client.Close()

		return err
	}

	// Runs in flight at shutdown finish before Stop returns.
	if err := consumer.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	<-ctx.Done()

	logger.Info("Shutting down Docflow Worker")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return consumer.Stop(stopCtx)
}
