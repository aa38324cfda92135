// Package publisher relays outbox events written by checkout to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/store"
)

const (
	TopicOrdersPlaced = "orders.placed"
	batchSize         = 100
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      store.OutboxStore
	writer    MessageWriter
	logger    *zap.Logger
}

func NewOutboxPoller(repo store.OutboxStore, logger *zap.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicOrdersPlaced,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		repo:      repo,
		writer:    w,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch. Events that fail stay unprocessed and
// are retried on the next tick.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.Error("failed to fetch events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.logger.Warn("failed to publish event",
				zap.String("event_id", event.ID),
				zap.Error(err))
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark event as processed",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *domain.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id for ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
