package repositories

import (
	"context"

	"cineasts/src/domain"
)

// Operadores aceitos em FindCondition.
const (
	// OpEquals compara a chave natural (Field "key") ou o ID interno (Field "id").
	OpEquals = "="
	// OpContains é a semântica do @> do jsonb: escalares por igualdade, listas
	// por contenção.
	OpContains = "@>"
)

type FindCondition struct {
	Field    string      // "key", "id" ou o nome da propriedade
	Operator string      // OpEquals ou OpContains
	Value    interface{} // valor já convertido para o tipo do campo mapeado
}

type TxOptions struct {
	ReadOnly bool
}

// GraphStore é a fronteira com o armazenamento. Toda leitura e escrita
// acontece dentro de uma GraphTx.
type GraphStore interface {
	Begin(ctx context.Context, opts TxOptions) (GraphTx, error)
}

type GraphTx interface {
	// CreateNode falha com domain.ErrDuplicateKey se (Label, Key) já existe.
	CreateNode(ctx context.Context, node *domain.GraphNode) error
	// MergeNode cria ou atualiza as propriedades pelo (Label, Key).
	MergeNode(ctx context.Context, node *domain.GraphNode) (bool, error)
	MergeNodes(ctx context.Context, nodes []*domain.GraphNode) error
	// CreateEdge é idempotente em (Type, StartID, EndID, Identity). Retorna
	// false quando a aresta já existia; edge.ID recebe o ID persistido.
	CreateEdge(ctx context.Context, edge *domain.GraphEdge) (bool, error)
	DeleteEdge(ctx context.Context, edge domain.GraphEdge) (bool, error)
	// DeleteNode remove o nó junto com as suas arestas.
	DeleteNode(ctx context.Context, label domain.Label, key string) (bool, error)
	FindNodes(ctx context.Context, label domain.Label, conditions ...FindCondition) (NodeRows, error)
	NodesByIDs(ctx context.Context, ids []int64) ([]domain.GraphNode, error)
	// EdgesOf devolve as arestas nas duas direções. Sem types, todas.
	EdgesOf(ctx context.Context, nodeID int64, types ...domain.RelationshipType) ([]domain.GraphEdge, error)
	Purge(ctx context.Context) error
	Commit(ctx context.Context) error
	// Rollback depois de Commit é no-op.
	Rollback(ctx context.Context) error
}

// NodeRows é um cursor de nós, consumido uma única vez.
type NodeRows interface {
	Next() bool
	Node() domain.GraphNode
	Err() error
	Close()
}

// SliceRows adapta um slice já carregado para NodeRows.
type SliceRows struct {
	nodes []domain.GraphNode
	pos   int
}

func NewSliceRows(nodes []domain.GraphNode) *SliceRows {
	return &SliceRows{nodes: nodes, pos: -1}
}

func (r *SliceRows) Next() bool {
	if r.pos+1 >= len(r.nodes) {
		r.pos = len(r.nodes)
		return false
	}
	r.pos++
	return true
}

func (r *SliceRows) Node() domain.GraphNode {
	return r.nodes[r.pos]
}

func (r *SliceRows) Err() error {
	return nil
}

func (r *SliceRows) Close() {
	r.pos = len(r.nodes)
}

// NodeByKey é o atalho de FindNodes para a chave natural.
func NodeByKey(ctx context.Context, tx GraphTx, label domain.Label, key string) (domain.GraphNode, bool, error) {
	rows, err := tx.FindNodes(ctx, label, FindCondition{Field: "key", Operator: OpEquals, Value: key})
	if err != nil {
		return domain.GraphNode{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.GraphNode{}, false, rows.Err()
	}
	return rows.Node(), true, nil
}
