package repositories

import (
	"context"
	"errors"

	"cineasts/src/domain"
	"cineasts/src/infra/postgres"

	"github.com/jackc/pgx/v5"
)

type PostgresGraphStore struct {
	readWriteClient *postgres.ReadWriteClient
}

func NewPostgresGraphStore(readWriteClient *postgres.ReadWriteClient) *PostgresGraphStore {
	return &PostgresGraphStore{readWriteClient: readWriteClient}
}

func (s *PostgresGraphStore) Begin(ctx context.Context, opts TxOptions) (GraphTx, error) {
	pool := s.readWriteClient.GetWritePool()
	txOptions := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		pool = s.readWriteClient.GetReadPool()
		txOptions.AccessMode = pgx.ReadOnly
	}

	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, domain.NewStorageError("PostgresGraphStore.Begin", err)
	}

	return &postgresGraphTx{
		tx:    tx,
		write: NewGraphWriteRepository(tx),
		query: NewGraphQueryRepository(tx),
	}, nil
}

type postgresGraphTx struct {
	tx    pgx.Tx
	write *GraphWriteRepository
	query *GraphQueryRepository
}

func (t *postgresGraphTx) CreateNode(ctx context.Context, node *domain.GraphNode) error {
	return t.write.InsertNode(ctx, node)
}

func (t *postgresGraphTx) MergeNode(ctx context.Context, node *domain.GraphNode) (bool, error) {
	return t.write.UpsertNode(ctx, node)
}

func (t *postgresGraphTx) MergeNodes(ctx context.Context, nodes []*domain.GraphNode) error {
	return t.write.UpsertNodes(ctx, nodes)
}

func (t *postgresGraphTx) CreateEdge(ctx context.Context, edge *domain.GraphEdge) (bool, error) {
	return t.write.InsertEdge(ctx, edge)
}

func (t *postgresGraphTx) DeleteEdge(ctx context.Context, edge domain.GraphEdge) (bool, error) {
	return t.write.DeleteEdge(ctx, edge)
}

func (t *postgresGraphTx) DeleteNode(ctx context.Context, label domain.Label, key string) (bool, error) {
	return t.write.DeleteNode(ctx, label, key)
}

// FindNodes carrega as linhas antes de devolver o cursor: a conexão da
// transação não pode ter duas queries abertas ao mesmo tempo.
func (t *postgresGraphTx) FindNodes(ctx context.Context, label domain.Label, conditions ...FindCondition) (NodeRows, error) {
	nodes, err := t.query.FindNodes(ctx, label, conditions...)
	if err != nil {
		return nil, err
	}
	return NewSliceRows(nodes), nil
}

func (t *postgresGraphTx) NodesByIDs(ctx context.Context, ids []int64) ([]domain.GraphNode, error) {
	return t.query.NodesByIDs(ctx, ids)
}

func (t *postgresGraphTx) EdgesOf(ctx context.Context, nodeID int64, types ...domain.RelationshipType) ([]domain.GraphEdge, error) {
	return t.query.EdgesOf(ctx, nodeID, types...)
}

func (t *postgresGraphTx) Purge(ctx context.Context) error {
	return t.write.Purge(ctx)
}

func (t *postgresGraphTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return domain.NewStorageError("PostgresGraphStore.Commit", err)
	}
	return nil
}

func (t *postgresGraphTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return domain.NewStorageError("PostgresGraphStore.Rollback", err)
	}
	return nil
}
