package repositories

import (
	"context"
	"fmt"
	"strings"

	"cineasts/src/domain"
	"cineasts/src/infra/postgres"
)

type GraphQueryRepository struct {
	db Querier
}

func NewGraphQueryRepository(db Querier) *GraphQueryRepository {
	return &GraphQueryRepository{db: db}
}

// FindNodes varre só as linhas do label pedido. Condições "@>" viram
// properties @> $n, que usa o índice GIN.
func (gqr *GraphQueryRepository) FindNodes(ctx context.Context, label domain.Label, conditions ...FindCondition) ([]domain.GraphNode, error) {
	where := []string{"type = $1"}
	args := []interface{}{label}

	for _, condition := range conditions {
		placeholder := fmt.Sprintf("$%d", len(args)+1)

		switch {
		case condition.Operator == OpEquals && condition.Field == "key":
			where = append(where, "reference = "+placeholder)
			args = append(args, fmt.Sprint(condition.Value))
		case condition.Operator == OpEquals && condition.Field == "id":
			where = append(where, "id = "+placeholder)
			args = append(args, condition.Value)
		case condition.Operator == OpContains:
			valueJSON, err := postgres.BuildSearchJSON(condition.Field, condition.Value)
			if err != nil {
				return nil, fmt.Errorf("GraphQueryRepository.FindNodes - %w: failed to build search JSON: %v", domain.ErrInvalidQuery, err)
			}
			where = append(where, "properties @> "+placeholder+"::jsonb")
			args = append(args, valueJSON)
		default:
			return nil, fmt.Errorf("GraphQueryRepository.FindNodes - %w: unsupported condition %s %s", domain.ErrInvalidQuery, condition.Field, condition.Operator)
		}
	}

	query := fmt.Sprintf(`
		SELECT
			id, type, reference, properties, created_at, updated_at
		FROM
			entities
		WHERE
			%s
		ORDER BY
			id;
	`, strings.Join(where, " AND "))

	return gqr.queryNodes(ctx, "GraphQueryRepository.FindNodes", query, args...)
}

func (gqr *GraphQueryRepository) NodesByIDs(ctx context.Context, ids []int64) ([]domain.GraphNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT
			id, type, reference, properties, created_at, updated_at
		FROM
			entities
		WHERE
			id = ANY($1);
	`
	return gqr.queryNodes(ctx, "GraphQueryRepository.NodesByIDs", query, ids)
}

func (gqr *GraphQueryRepository) queryNodes(ctx context.Context, op string, query string, args ...interface{}) ([]domain.GraphNode, error) {
	rows, err := gqr.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	var nodes []domain.GraphNode
	for rows.Next() {
		var node domain.GraphNode
		if err := rows.Scan(&node.ID, &node.Label, &node.Key, &node.Properties, &node.CreatedAt, &node.UpdatedAt); err != nil {
			return nil, domain.NewStorageError(op, fmt.Errorf("failed to scan entity data: %w", err))
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, fmt.Errorf("error iterating entity rows: %w", err))
	}
	return nodes, nil
}

func (gqr *GraphQueryRepository) EdgesOf(ctx context.Context, nodeID int64, types ...domain.RelationshipType) ([]domain.GraphEdge, error) {
	typeNames := make([]string, len(types))
	for i, relType := range types {
		typeNames[i] = string(relType)
	}

	query := `
		SELECT
			id, relationship_type, left_entity_id, right_entity_id, identity, metadata, created_at
		FROM
			edges
		WHERE
			(left_entity_id = $1 OR right_entity_id = $1)
			AND (cardinality($2::text[]) = 0 OR relationship_type = ANY($2::text[]))
		ORDER BY
			id;
	`

	rows, err := gqr.db.Query(ctx, query, nodeID, typeNames)
	if err != nil {
		return nil, domain.NewStorageError("GraphQueryRepository.EdgesOf", err)
	}
	defer rows.Close()

	var edges []domain.GraphEdge
	for rows.Next() {
		var edge domain.GraphEdge
		if err := rows.Scan(&edge.ID, &edge.Type, &edge.StartID, &edge.EndID, &edge.Identity, &edge.Properties, &edge.CreatedAt); err != nil {
			return nil, domain.NewStorageError("GraphQueryRepository.EdgesOf", fmt.Errorf("failed to scan edge data: %w", err))
		}
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("GraphQueryRepository.EdgesOf", err)
	}
	return edges, nil
}
