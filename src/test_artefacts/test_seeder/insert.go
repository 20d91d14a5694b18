package test_seeder

import (
	"context"
	"fmt"

	"cineasts/src/domain"
)

// InsertNode grava o nó direto na tabela, sem passar pelo store.
func (ts TestSeeder) InsertNode(ctx context.Context, node *domain.GraphNode) {
	query := `
		INSERT INTO entities (type, reference, properties)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	err := ts.pool.QueryRow(ctx, query,
		node.Label,
		node.Key,
		node.Properties,
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertNode failed: %v", err))
	}
}

func (ts TestSeeder) InsertEdge(ctx context.Context, edge *domain.GraphEdge) {
	query := `
		INSERT INTO edges (left_entity_id, right_entity_id, relationship_type, identity, metadata)
		VALUES ($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb)) RETURNING id, created_at`

	var metadata interface{}
	if len(edge.Properties) > 0 {
		metadata = string(edge.Properties)
	}

	err := ts.pool.QueryRow(ctx, query,
		edge.StartID,
		edge.EndID,
		edge.Type,
		edge.Identity,
		metadata,
	).Scan(&edge.ID, &edge.CreatedAt)

	if err != nil {
		panic(fmt.Sprintf("Seeder.InsertEdge failed: %v", err))
	}
}
