package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubSinkConfig holds configuration for the Pub/Sub forwarder.
type PubSubSinkConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubSink forwards bus events to a Cloud Pub/Sub topic. Publishing is
// asynchronous; failures are logged.
type PubSubSink struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubSink creates a forwarder for cfg.Topic.
func NewPubSubSink(ctx context.Context, cfg PubSubSinkConfig) (*PubSubSink, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.Topic)
	publisher.PublishSettings.DelayThreshold = 50 * time.Millisecond
	publisher.PublishSettings.CountThreshold = 50

	return &PubSubSink{
		client:    client,
		publisher: publisher,
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Message encodes an event as a Pub/Sub message. The event type is carried
// as the "type" attribute so subscriptions can filter on it.
func Message(e Event) (*pubsub.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", e.Type, err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type": string(e.Type),
			"time": e.Time.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// Handle publishes e. It is meant to be registered with Bus.Subscribe.
func (s *PubSubSink) Handle(ctx context.Context, e Event) {
	msg, err := Message(e)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode event")
		return
	}

	result := s.publisher.Publish(ctx, msg)
	go func() {
		getCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		id, err := result.Get(getCtx)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("topic", s.topic).
				Str("event", string(e.Type)).
				Msg("failed to publish event")
			return
		}
		s.logger.Debug().
			Str("message_id", id).
			Str("event", string(e.Type)).
			Msg("event published")
	}()
}

// Close flushes pending messages and closes the client.
func (s *PubSubSink) Close() error {
	s.publisher.Stop()
	return s.client.Close()
}
