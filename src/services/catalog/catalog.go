package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"cineasts/src/domain"
	"cineasts/src/ogm"
	"cineasts/src/repositories"
)

// EventPublisher recebe os eventos de cada unidade de trabalho confirmada.
type EventPublisher interface {
	PublishDomainEvents(ctx context.Context, events []domain.DomainEvent) error
}

// Catalog é a API do catálogo de filmes. Cada operação abre a sua própria
// ogm.Session e grava numa única transação.
type Catalog struct {
	logger    *slog.Logger
	store     repositories.GraphStore
	publisher EventPublisher
}

// NewCatalog aceita publisher nil: os eventos são apenas descartados.
func NewCatalog(
	logger *slog.Logger,
	store repositories.GraphStore,
	publisher EventPublisher,
) *Catalog {
	return &Catalog{
		logger:    logger,
		store:     store,
		publisher: publisher,
	}
}

// write roda fn numa sessão nova, grava com Flush e publica os eventos.
func (c *Catalog) write(ctx context.Context, operation string, fn func(session *ogm.Session) error) ([]domain.DomainEvent, error) {
	session := ogm.NewSession(c.store)
	defer session.Close(ctx)

	if err := fn(session); err != nil {
		return nil, fmt.Errorf("Catalog.%s - %w", operation, err)
	}

	events, err := session.Flush(ctx)
	if err != nil {
		return nil, fmt.Errorf("Catalog.%s - %w", operation, err)
	}

	c.publish(ctx, operation, events)
	return events, nil
}

// read roda fn numa sessão só de leitura.
func (c *Catalog) read(ctx context.Context, operation string, fn func(session *ogm.Session) error) error {
	session := ogm.NewSession(c.store)
	defer session.Close(ctx)

	if err := fn(session); err != nil {
		return fmt.Errorf("Catalog.%s - %w", operation, err)
	}
	return nil
}

// publish roda depois do commit. Uma falha aqui não desfaz o que já foi
// gravado, só é registrada.
func (c *Catalog) publish(ctx context.Context, operation string, events []domain.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}

	if err := c.publisher.PublishDomainEvents(ctx, events); err != nil {
		c.logger.Error("Failed to publish domain events",
			"operation", operation,
			"events_count", len(events),
			"error", err)
	}
}

func hasEvent(events []domain.DomainEvent, eventType string) bool {
	for _, event := range events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}
