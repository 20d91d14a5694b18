package test_seeder

import (
	"context"

	"cineasts/src/domain"
)

func (ts TestSeeder) SelectNodesByKeys(ctx context.Context, label domain.Label, keys []string) ([]domain.GraphNode, error) {
	query := `SELECT id, type, reference, properties, created_at, updated_at
			  FROM entities WHERE type = $1 AND reference = ANY($2)
			  ORDER BY id`

	rows, err := ts.pool.Query(ctx, query, label, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.GraphNode
	for rows.Next() {
		var node domain.GraphNode
		if err := rows.Scan(&node.ID, &node.Label, &node.Key, &node.Properties, &node.CreatedAt, &node.UpdatedAt); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, rows.Err()
}

// CountEdges conta as arestas de um tipo, usado para checar que um fato
// não foi duplicado.
func (ts TestSeeder) CountEdges(ctx context.Context, relationshipType domain.RelationshipType) (int, error) {
	var count int
	err := ts.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM edges WHERE relationship_type = $1`,
		relationshipType,
	).Scan(&count)
	return count, err
}
