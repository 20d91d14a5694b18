package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cineasts/src/domain"
	"cineasts/src/infra/kafka"
)

const sourceService = "cineasts"

type DomainEventPublisher struct {
	logger      *slog.Logger
	kafkaClient *kafka.KafkaClient
	topic       string
}

func NewDomainEventPublisher(
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	topic string,
) *DomainEventPublisher {
	return &DomainEventPublisher{
		logger:      logger,
		kafkaClient: kafkaClient,
		topic:       topic,
	}
}

// PublishDomainEvents publica o lote de eventos confirmados. A chave da
// mensagem é o nó de origem, então os eventos de um nó ficam na mesma partição.
func (p *DomainEventPublisher) PublishDomainEvents(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	kafkaMessages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		eventBytes, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal domain event",
				"error", err,
				"event_id", event.EventID,
				"event_type", event.EventType)
			continue
		}

		kafkaMessages = append(kafkaMessages, kafka.Message{
			Key:     event.PartitionKey(),
			Value:   eventBytes,
			Headers: eventHeaders(event),
		})
	}

	if err := p.kafkaClient.Producer(kafkaMessages, p.topic); err != nil {
		p.logger.Error("Failed to publish domain events to Kafka",
			"error", err,
			"topic", p.topic,
			"events_count", len(kafkaMessages))
		return fmt.Errorf("DomainEventPublisher.PublishDomainEvents - topic %s: %w", p.topic, err)
	}

	p.logger.Debug("Published domain events",
		"topic", p.topic,
		"events_count", len(kafkaMessages))
	return nil
}

// eventHeaders permite filtrar no consumidor sem abrir o payload.
func eventHeaders(event domain.DomainEvent) map[string]string {
	headers := map[string]string{
		"event_type":     event.EventType,
		"source_service": sourceService,
		"schema_version": "v1",
		"event_id":       event.EventID,
	}

	if event.Data.Label != "" {
		headers["label"] = string(event.Data.Label)
	}
	if event.Data.RelationshipType != "" {
		headers["relation_type"] = string(event.Data.RelationshipType)
	}

	return headers
}
