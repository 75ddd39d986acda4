package events

import (
	"context"
	"time"

	"github.com/zjoart/go-intouch-transfer/pkg/config"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

const (
	TransferCreated       = "transfer.created"
	TransferStatusChanged = "transfer.status_changed"
)

type TransactionEvent struct {
	Event                 string    `json:"event"`
	TransactionID         string    `json:"transaction_id"`
	ProviderTransactionID string    `json:"provider_transaction_id"`
	UserID                string    `json:"user_id"`
	Status                string    `json:"status"`
	PreviousStatus        string    `json:"previous_status,omitempty"`
	Amount                int64     `json:"amount"`
	ErrorMessage          string    `json:"error_message,omitempty"`
	Source                string    `json:"source,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}

// Publisher delivers transaction events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event TransactionEvent) error {
	logger.Debug("Event publish skipped", logger.Fields{"event": event.Event, logger.TransactionIDKey: event.TransactionID})
	return nil
}

func (NoopPublisher) Close() error { return nil }

// NewPublisher picks the backend named by cfg.EventsBackend. A backend that
// cannot be reached at startup degrades to NoopPublisher.
func NewPublisher(cfg config.Config) Publisher {
	switch cfg.EventsBackend {
	case config.EventsBackendRedis:
		client, err := NewRedisClient(cfg)
		if err != nil {
			logger.Error("Redis publisher unavailable, events disabled", logger.WithError(err))
			return NoopPublisher{}
		}
		return client
	case config.EventsBackendRabbitMQ:
		producer, err := NewRabbitProducer(cfg.AMQPURL)
		if err != nil {
			logger.Error("RabbitMQ publisher unavailable, events disabled", logger.WithError(err))
			return NoopPublisher{}
		}
		return producer
	default:
		return NoopPublisher{}
	}
}
