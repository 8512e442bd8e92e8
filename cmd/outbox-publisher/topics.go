package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/registry"
)

const publishTimeout = 15 * time.Second

type topicSender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type publisherSource interface {
	Publisher(name string) *gcppubsub.Publisher
}

// pubsubTopics keeps one publisher per topic for the life of the process.
type pubsubTopics struct {
	source publisherSource

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func newPubSubTopics(source publisherSource) *pubsubTopics {
	return &pubsubTopics{source: source, publishers: map[string]*gcppubsub.Publisher{}}
}

func (t *pubsubTopics) publisher(topic string) *gcppubsub.Publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pub, ok := t.publishers[topic]; ok {
		return pub
	}
	pub := t.source.Publisher(topic)
	if pub != nil {
		t.publishers[topic] = pub
	}
	return pub
}

func (t *pubsubTopics) Send(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := t.publisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err := pub.Publish(ctx, msg).Get(ctx)
	return err
}

// Stop flushes pending messages on every publisher.
func (t *pubsubTopics) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for topic, pub := range t.publishers {
		pub.Stop()
		delete(t.publishers, topic)
	}
}

// messageFor carries the stored envelope verbatim. Attributes let consumers
// filter without decoding the body.
func messageFor(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}
