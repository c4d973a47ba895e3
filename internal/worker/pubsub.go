package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// JobMessage is the body of a worker Pub/Sub message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Source names who requested the job, for logging only.
	Source string `json:"source,omitempty"`
}

// MessageHandler executes job messages. It is independent of Pub/Sub so
// that the dispatch rules can be exercised without a broker.
type MessageHandler struct {
	job    *ReloadJob
	logger zerolog.Logger
}

// NewMessageHandler creates a handler that runs reloads through job.
func NewMessageHandler(job *ReloadJob, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{job: job, logger: logger}
}

// Handle runs the job described by data. ack is false when the message
// should be redelivered.
func (h *MessageHandler) Handle(ctx context.Context, data []byte) (ack bool, err error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Malformed messages never become valid; drop them.
		return true, fmt.Errorf("parse job message: %w", err)
	}

	switch msg.JobType {
	case JobTypeDatasetReload:
		h.logger.Info().Str("requested_by", msg.Source).Msg("dataset reload requested")
		if result := h.job.Run(ctx); result.Err != nil {
			return false, result.Err
		}
		return true, nil
	case JobTypeHealthCheck:
		if err := h.job.Healthy(); err != nil {
			return true, err
		}
		return true, nil
	default:
		h.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true, nil
	}
}

// PubSubHandler receives job messages from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *MessageHandler
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	ReloadJob        *ReloadJob
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// A reload holds the whole workbook in memory; take one at a time.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		handler:          NewMessageHandler(cfg.ReloadJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	ack, err := h.handler.Handle(ctx, msg.Data)
	if err != nil {
		logger.Error().Err(err).Bool("ack", ack).Msg("job failed")
	} else {
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed successfully")
	}

	if ack {
		msg.Ack()
	} else {
		msg.Nack()
	}
}

// Publisher sends job messages to a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	source    string
}

// NewPublisher creates a publisher for topic. source is stamped on every
// message.
func NewPublisher(ctx context.Context, projectID, topic, source string) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &Publisher{
		client:    client,
		publisher: client.Publisher(topic),
		source:    source,
	}, nil
}

// PublishReload asks every subscribed API instance to reload the dataset
// and returns the server-assigned message ID.
func (p *Publisher) PublishReload(ctx context.Context) (string, error) {
	data, err := json.Marshal(JobMessage{JobType: JobTypeDatasetReload, Source: p.source})
	if err != nil {
		return "", err
	}
	id, err := p.publisher.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish reload: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
