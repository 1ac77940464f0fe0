package control

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// SubscriberConfig holds configuration for a Subscriber.
type SubscriberConfig struct {
	ProjectID    string
	Subscription string
	Handler      *Handler
	Logger       zerolog.Logger
}

// Subscriber receives commands from a Pub/Sub subscription.
type Subscriber struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	handler      *Handler
	logger       zerolog.Logger
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(ctx context.Context, cfg SubscriberConfig) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.Subscription)

	// Commands are applied one at a time.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 2 * time.Minute

	return &Subscriber{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.Subscription,
		handler:      cfg.Handler,
		logger:       cfg.Logger.With().Str("subscription", cfg.Subscription).Logger(),
	}, nil
}

// Start blocks receiving messages until ctx is canceled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().Msg("starting command subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.process(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

// process applies a message and reports whether it should be acked.
func (s *Subscriber) process(ctx context.Context, id string, data []byte) bool {
	start := time.Now()
	log := s.logger.With().Str("message_id", id).Logger()

	err := s.handler.Handle(ctx, data)
	if err == nil {
		log.Info().Dur("duration", time.Since(start)).Msg("command applied")
		return true
	}

	if !Retryable(err) {
		log.Warn().Err(err).Msg("command rejected")
		return true
	}

	log.Error().Err(err).Msg("command failed")
	return false
}
