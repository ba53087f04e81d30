package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
)

// CatalogConsumer keeps the local events table in sync with the catalog
// service by consuming event create/update messages.
type CatalogConsumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewCatalogConsumer(brokers []string, groupID string, log *logger.Logger) (*CatalogConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &CatalogConsumer{
		consumer: consumer,
		topics:   []string{"event-catalog"},
		log:      log,
	}, nil
}

func (c *CatalogConsumer) ConsumeEvents(ctx context.Context, handler func(*models.EventMessage) error) error {
	consumerHandler := &CatalogConsumerHandler{Handler: handler, Log: c.log}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
				c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
				return err
			}
		}
	}
}

func (c *CatalogConsumer) Close() error {
	return c.consumer.Close()
}

// CatalogConsumerHandler is exported for testing purposes.
type CatalogConsumerHandler struct {
	Handler func(*models.EventMessage) error
	Log     *logger.Logger
}

func (h *CatalogConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *CatalogConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *CatalogConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var msg models.EventMessage
		if err := json.Unmarshal(message.Value, &msg); err != nil {
			h.Log.Error("KAFKA", fmt.Sprintf("Failed to unmarshal catalog message: %v", err))
			continue
		}

		if err := h.Handler(&msg); err != nil {
			h.Log.Error("KAFKA", fmt.Sprintf("Failed to handle catalog message: %v", err))
			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
