package catalog

import (
	"context"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/ogm"
)

// Delete remove o nó e todas as suas arestas. Retorna false se não existia.
func (c *Catalog) Delete(ctx context.Context, label domain.Label, key string) (bool, error) {
	if !label.Valid() {
		return false, fmt.Errorf("Catalog.Delete - %w: unknown label %q", domain.ErrInvalidQuery, label)
	}

	events, err := c.write(ctx, "Delete", func(session *ogm.Session) error {
		session.Delete(label, key)
		return nil
	})
	if err != nil {
		return false, err
	}
	return hasEvent(events, domain.EventNodeDeleted), nil
}

// Purge apaga o grafo inteiro. Uso restrito a testes e ao seed.
func (c *Catalog) Purge(ctx context.Context) error {
	session := ogm.NewSession(c.store)
	defer session.Close(ctx)

	event, err := session.Purge(ctx)
	if err != nil {
		return fmt.Errorf("Catalog.Purge - %w", err)
	}

	c.publish(ctx, "Purge", []domain.DomainEvent{event})
	c.logger.Info("Graph purged")
	return nil
}
