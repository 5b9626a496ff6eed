// Package queue starts workflow runs from JSON messages pushed onto a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/docflow/pkg/services"
	redis "github.com/redis/go-redis/v9"
)

const (
	// DefaultQueue is the list name used when none is configured.
	DefaultQueue = "docflow:triggers"

	// TriggerType is recorded on executions started from the queue.
	TriggerType = "queue"

	defaultConcurrency = 4
	defaultPopTimeout  = time.Second
	pingTimeout        = 5 * time.Second
)

// ErrInvalidMessage marks a payload that cannot be decoded into a trigger input.
var ErrInvalidMessage = errors.New("invalid trigger message")

// Dispatcher starts a run for a decoded message.
type Dispatcher interface {
	Dispatch(ctx context.Context, input services.TriggerInput) (*services.Result, error)
}

// Config configures a Consumer.
type Config struct {
	Queue       string
	Concurrency int           // Runs processed in parallel
	PopTimeout  time.Duration // BLPOP wait before checking for shutdown
}

// Consumer pops trigger messages and hands them to the dispatcher.
type Consumer struct {
	queue      string
	popTimeout time.Duration
	client     redis.UniversalClient
	dispatcher Dispatcher
	logger     *slog.Logger

	slots    chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	loop     sync.WaitGroup
	runs     sync.WaitGroup
}

// NewClient connects to the Redis server addressed by a redis:// URL.
func NewClient(ctx context.Context, url string) (redis.UniversalClient, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func NewConsumer(client redis.UniversalClient, cfg Config, dispatcher Dispatcher, logger *slog.Logger) (*Consumer, error) {
	if client == nil {
		return nil, errors.New("queue consumer requires a redis client")
	}

	if dispatcher == nil {
		return nil, errors.New("queue consumer requires a dispatcher")
	}

	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = defaultPopTimeout
	}

	return &Consumer{
		queue:      cfg.Queue,
		popTimeout: cfg.PopTimeout,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger.With("module", "queue_trigger", "queue", cfg.Queue),
		slots:      make(chan struct{}, cfg.Concurrency),
		stopCh:     make(chan struct{}),
	}, nil
}

// Start launches the consumer loop. It returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "starting queue consumer")

	c.loop.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.loop.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "context cancelled, stopping queue consumer")

			return
		default:
		}

		// Wait for a free slot so at most Concurrency runs are in flight.
		select {
		case c.slots <- struct{}{}:
		case <-c.stopCh:
			continue
		case <-ctx.Done():
			continue
		}

		message, err := c.pop(ctx)
		if err != nil || message == "" {
			<-c.slots

			if err != nil && ctx.Err() == nil {
				c.logger.ErrorContext(ctx, "error reading from queue", "error", err)
				c.pause(ctx)
			}

			continue
		}

		c.runs.Add(1)

		go func() {
			defer c.runs.Done()
			defer func() { <-c.slots }()

			if err := c.handle(ctx, message); err != nil {
				c.logger.ErrorContext(ctx, "queued trigger failed", "error", err)
			}
		}()
	}
}

func (c *Consumer) pop(ctx context.Context) (string, error) {
	result, err := c.client.BLPop(ctx, c.popTimeout, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}

		return "", fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return "", nil
	}

	return result[1], nil
}

func (c *Consumer) pause(ctx context.Context) {
	select {
	case <-time.After(time.Second):
	case <-c.stopCh:
	case <-ctx.Done():
	}
}

// handle decodes one message and runs it. Undecodable messages are dropped.
func (c *Consumer) handle(ctx context.Context, message string) error {
	input, err := Decode([]byte(message))
	if err != nil {
		return err
	}

	result, err := c.dispatcher.Dispatch(ctx, input)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", input.WorkflowID, err)
	}

	c.logger.InfoContext(ctx, "queued trigger processed",
		"workflow_id", input.WorkflowID,
		"execution_id", result.Execution.ID,
		"status", result.Execution.Status)

	return nil
}

// Decode parses a queue payload and stamps the queue trigger type when none is set.
func Decode(payload []byte) (services.TriggerInput, error) {
	var input services.TriggerInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return input, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if input.WorkflowID == "" {
		return input, fmt.Errorf("%w: workflow_id is required", ErrInvalidMessage)
	}

	if input.TriggerType == "" {
		input.TriggerType = TriggerType
	}

	return input, nil
}

// Stop ends the loop and waits for in-flight runs. The client is closed afterwards.
func (c *Consumer) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.logger.InfoContext(ctx, "stopping queue consumer")
		close(c.stopCh)
	})

	c.loop.Wait()
	c.runs.Wait()

	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		c.logger.ErrorContext(ctx, "error closing Redis client", "error", err)

		return err
	}

	return nil
}
