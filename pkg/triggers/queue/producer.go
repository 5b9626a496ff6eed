package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/docflow/pkg/services"
	redis "github.com/redis/go-redis/v9"
)

// Producer pushes trigger inputs for a Consumer to pick up.
type Producer struct {
	client redis.UniversalClient
	queue  string
}

func NewProducer(client redis.UniversalClient, queue string) *Producer {
	if queue == "" {
		queue = DefaultQueue
	}

	return &Producer{client: client, queue: queue}
}

// Enqueue appends input to the tail of the list.
func (p *Producer) Enqueue(ctx context.Context, input services.TriggerInput) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode trigger: %w", err)
	}

	if err := p.client.RPush(ctx, p.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push trigger to %s: %w", p.queue, err)
	}

	return nil
}
