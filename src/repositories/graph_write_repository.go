package repositories

import (
	"context"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/infra/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier é o que pgx.Tx e pgxpool.Pool têm em comum.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type GraphWriteRepository struct {
	db Querier
}

func NewGraphWriteRepository(db Querier) *GraphWriteRepository {
	return &GraphWriteRepository{db: db}
}

func (r *GraphWriteRepository) InsertNode(ctx context.Context, node *domain.GraphNode) error {
	query := `
		INSERT INTO
			entities (type, reference, properties)
		VALUES
			($1, $2, COALESCE($3::jsonb, '{}'::jsonb))
		RETURNING
			id, created_at, updated_at;
	`

	err := r.db.QueryRow(ctx, query, node.Label, node.Key, nullableJSON(node.Properties)).
		Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("GraphWriteRepository.InsertNode - %s %q: %w", node.Label, node.Key, domain.ErrDuplicateKey)
		}
		return domain.NewStorageError("GraphWriteRepository.InsertNode", err)
	}

	return nil
}

func (r *GraphWriteRepository) UpsertNode(ctx context.Context, node *domain.GraphNode) (bool, error) {
	// xmax = 0 só é verdade para a linha recém inserida.
	query := `
		INSERT INTO
			entities (type, reference, properties)
		VALUES
			($1, $2, COALESCE($3::jsonb, '{}'::jsonb))
		ON CONFLICT (type, reference) DO UPDATE SET
			properties = excluded.properties,
			updated_at = NOW()
		RETURNING
			id, created_at, updated_at, (xmax = 0) AS inserted;
	`

	var inserted bool
	err := r.db.QueryRow(ctx, query, node.Label, node.Key, nullableJSON(node.Properties)).
		Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt, &inserted)
	if err != nil {
		return false, domain.NewStorageError("GraphWriteRepository.UpsertNode", err)
	}

	return inserted, nil
}

// UpsertNodes grava um lote de nós com COPY numa tabela temporária e um único
// INSERT ... ON CONFLICT, devolvendo os IDs para cada (type, reference).
func (r *GraphWriteRepository) UpsertNodes(ctx context.Context, nodes []*domain.GraphNode) error {
	if len(nodes) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(nodes))
	for _, node := range nodes {
		rows = append(rows, []interface{}{string(node.Label), node.Key, nullableJSON(node.Properties)})
	}

	tempTableQuery := `CREATE TEMP TABLE IF NOT EXISTS temp_sync_nodes (
		entity_type TEXT, entity_reference TEXT, entity_properties JSONB
	) ON COMMIT DROP;`
	if _, err := r.db.Exec(ctx, tempTableQuery); err != nil {
		return domain.NewStorageError("GraphWriteRepository.UpsertNodes", fmt.Errorf("failed to create temp table: %w", err))
	}
	if _, err := r.db.Exec(ctx, `TRUNCATE temp_sync_nodes;`); err != nil {
		return domain.NewStorageError("GraphWriteRepository.UpsertNodes", fmt.Errorf("failed to truncate temp table: %w", err))
	}

	_, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"temp_sync_nodes"},
		[]string{"entity_type", "entity_reference", "entity_properties"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return domain.NewStorageError("GraphWriteRepository.UpsertNodes", fmt.Errorf("failed to copy nodes to temp table: %w", err))
	}

	query := `
		INSERT INTO
			entities (type, reference, properties)
		SELECT DISTINCT ON (entity_type, entity_reference)
			entity_type, entity_reference, COALESCE(entity_properties, '{}'::jsonb)
		FROM
			temp_sync_nodes
		ON CONFLICT (type, reference) DO UPDATE SET
			properties = excluded.properties,
			updated_at = NOW()
		RETURNING
			id, type, reference, created_at, updated_at;
	`

	result, err := r.db.Query(ctx, query)
	if err != nil {
		return domain.NewStorageError("GraphWriteRepository.UpsertNodes", err)
	}
	defer result.Close()

	byKey := make(map[string][]*domain.GraphNode, len(nodes))
	for _, node := range nodes {
		k := string(node.Label) + "\x00" + node.Key
		byKey[k] = append(byKey[k], node)
	}

	for result.Next() {
		var stored domain.GraphNode
		if err := result.Scan(&stored.ID, &stored.Label, &stored.Key, &stored.CreatedAt, &stored.UpdatedAt); err != nil {
			return domain.NewStorageError("GraphWriteRepository.UpsertNodes", fmt.Errorf("failed to scan node: %w", err))
		}
		for _, node := range byKey[string(stored.Label)+"\x00"+stored.Key] {
			node.ID = stored.ID
			node.CreatedAt = stored.CreatedAt
			node.UpdatedAt = stored.UpdatedAt
		}
	}

	if err := result.Err(); err != nil {
		return domain.NewStorageError("GraphWriteRepository.UpsertNodes", err)
	}
	return nil
}

// InsertEdge é idempotente no fato (tipo, pontas, identity). Quando o INSERT
// conflita, o SELECT do UNION devolve a aresta existente.
func (r *GraphWriteRepository) InsertEdge(ctx context.Context, edge *domain.GraphEdge) (bool, error) {
	query := `
		WITH inserted AS (
			INSERT INTO
				edges (left_entity_id, right_entity_id, relationship_type, identity, metadata)
			VALUES
				($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb))
			ON CONFLICT (relationship_type, left_entity_id, right_entity_id, identity) DO NOTHING
			RETURNING
				id, metadata, created_at, true AS created
		)
		SELECT id, metadata, created_at, created FROM inserted
		UNION ALL
		SELECT
			id, metadata, created_at, false
		FROM
			edges
		WHERE
			left_entity_id = $1 AND right_entity_id = $2 AND relationship_type = $3 AND identity = $4
		LIMIT 1;
	`

	var created bool
	err := r.db.QueryRow(ctx, query, edge.StartID, edge.EndID, edge.Type, edge.Identity, nullableJSON(edge.Properties)).
		Scan(&edge.ID, &edge.Properties, &edge.CreatedAt, &created)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return false, fmt.Errorf("GraphWriteRepository.InsertEdge - nodes %d/%d: %w", edge.StartID, edge.EndID, domain.ErrEntityNotFound)
		}
		return false, domain.NewStorageError("GraphWriteRepository.InsertEdge", err)
	}

	return created, nil
}

func (r *GraphWriteRepository) DeleteEdge(ctx context.Context, edge domain.GraphEdge) (bool, error) {
	query := `
		DELETE FROM
			edges
		WHERE
			left_entity_id = $1 AND right_entity_id = $2 AND relationship_type = $3 AND identity = $4;
	`

	tag, err := r.db.Exec(ctx, query, edge.StartID, edge.EndID, edge.Type, edge.Identity)
	if err != nil {
		return false, domain.NewStorageError("GraphWriteRepository.DeleteEdge", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteNode apaga o nó, as arestas saem pelo ON DELETE CASCADE.
func (r *GraphWriteRepository) DeleteNode(ctx context.Context, label domain.Label, key string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM entities WHERE type = $1 AND reference = $2;`, label, key)
	if err != nil {
		return false, domain.NewStorageError("GraphWriteRepository.DeleteNode", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *GraphWriteRepository) Purge(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE TABLE edges, entities;`); err != nil {
		return domain.NewStorageError("GraphWriteRepository.Purge", err)
	}
	return nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
