// Package memgraph é o store em memória usado em testes e no modo
// GRAPH_STORE=memory. Um único escritor por vez; leitores enxergam o último
// snapshot confirmado.
package memgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"cineasts/src/domain"
	"cineasts/src/repositories"
)

var errReadOnly = errors.New("write attempted on a read-only transaction")

var errTxDone = errors.New("transaction already committed or rolled back")

type Store struct {
	writer  chan struct{}
	current atomic.Pointer[arena]
}

func NewStore() *Store {
	s := &Store{writer: make(chan struct{}, 1)}
	s.current.Store(newArena())
	return s
}

func (s *Store) Begin(ctx context.Context, opts repositories.TxOptions) (repositories.GraphTx, error) {
	if opts.ReadOnly {
		return &graphTx{store: s, arena: s.current.Load(), readOnly: true}, nil
	}

	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, domain.NewStorageError("memgraph.Begin", ctx.Err())
	}

	return &graphTx{store: s, arena: s.current.Load().clone()}, nil
}

type graphTx struct {
	store    *Store
	arena    *arena
	readOnly bool
	done     bool
}

func (t *graphTx) writable(op string) error {
	if t.done {
		return domain.NewStorageError(op, errTxDone)
	}
	if t.readOnly {
		return domain.NewStorageError(op, errReadOnly)
	}
	return nil
}

func (t *graphTx) CreateNode(ctx context.Context, node *domain.GraphNode) error {
	if err := t.writable("memgraph.CreateNode"); err != nil {
		return err
	}
	if _, exists := t.arena.nodeByKey(node.Label, node.Key); exists {
		return fmt.Errorf("memgraph.CreateNode - %s %q: %w", node.Label, node.Key, domain.ErrDuplicateKey)
	}

	t.arena.nextNodeID++
	now := time.Now().UTC()
	node.ID = t.arena.nextNodeID
	node.CreatedAt = now
	node.UpdatedAt = now
	t.arena.putNode(*node)
	return nil
}

func (t *graphTx) MergeNode(ctx context.Context, node *domain.GraphNode) (bool, error) {
	if err := t.writable("memgraph.MergeNode"); err != nil {
		return false, err
	}

	existing, exists := t.arena.nodeByKey(node.Label, node.Key)
	if !exists {
		return true, t.CreateNode(ctx, node)
	}

	node.ID = existing.ID
	node.CreatedAt = existing.CreatedAt
	node.UpdatedAt = time.Now().UTC()
	t.arena.putNode(*node)
	return false, nil
}

func (t *graphTx) MergeNodes(ctx context.Context, nodes []*domain.GraphNode) error {
	for _, node := range nodes {
		if _, err := t.MergeNode(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

func (t *graphTx) CreateEdge(ctx context.Context, edge *domain.GraphEdge) (bool, error) {
	if err := t.writable("memgraph.CreateEdge"); err != nil {
		return false, err
	}
	if _, ok := t.arena.nodes[edge.StartID]; !ok {
		return false, fmt.Errorf("memgraph.CreateEdge - start node %d: %w", edge.StartID, domain.ErrEntityNotFound)
	}
	if _, ok := t.arena.nodes[edge.EndID]; !ok {
		return false, fmt.Errorf("memgraph.CreateEdge - end node %d: %w", edge.EndID, domain.ErrEntityNotFound)
	}

	if existing, ok := t.arena.findEdge(*edge); ok {
		edge.ID = existing.ID
		edge.CreatedAt = existing.CreatedAt
		return false, nil
	}

	t.arena.nextEdgeID++
	edge.ID = t.arena.nextEdgeID
	edge.CreatedAt = time.Now().UTC()
	t.arena.link(*edge)
	return true, nil
}

func (t *graphTx) DeleteEdge(ctx context.Context, edge domain.GraphEdge) (bool, error) {
	if err := t.writable("memgraph.DeleteEdge"); err != nil {
		return false, err
	}

	existing, ok := t.arena.findEdge(edge)
	if !ok {
		return false, nil
	}
	t.arena.unlink(existing)
	return true, nil
}

func (t *graphTx) DeleteNode(ctx context.Context, label domain.Label, key string) (bool, error) {
	if err := t.writable("memgraph.DeleteNode"); err != nil {
		return false, err
	}

	node, ok := t.arena.nodeByKey(label, key)
	if !ok {
		return false, nil
	}
	t.arena.removeNode(node)
	return true, nil
}

func (t *graphTx) FindNodes(ctx context.Context, label domain.Label, conditions ...repositories.FindCondition) (repositories.NodeRows, error) {
	if t.done {
		return nil, domain.NewStorageError("memgraph.FindNodes", errTxDone)
	}

	var found []domain.GraphNode
	for _, id := range t.arena.keys[label] {
		node := t.arena.nodes[id]
		ok, err := matches(node, conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, node)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return repositories.NewSliceRows(found), nil
}

func (t *graphTx) NodesByIDs(ctx context.Context, ids []int64) ([]domain.GraphNode, error) {
	if t.done {
		return nil, domain.NewStorageError("memgraph.NodesByIDs", errTxDone)
	}

	nodes := make([]domain.GraphNode, 0, len(ids))
	for _, id := range ids {
		if node, ok := t.arena.nodes[id]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func (t *graphTx) EdgesOf(ctx context.Context, nodeID int64, types ...domain.RelationshipType) ([]domain.GraphEdge, error) {
	if t.done {
		return nil, domain.NewStorageError("memgraph.EdgesOf", errTxDone)
	}
	return t.arena.edgesOf(nodeID, types), nil
}

// Purge esvazia a arena mantendo os contadores, IDs nunca são reutilizados.
func (t *graphTx) Purge(ctx context.Context) error {
	if err := t.writable("memgraph.Purge"); err != nil {
		return err
	}

	purged := newArena()
	purged.nextNodeID = t.arena.nextNodeID
	purged.nextEdgeID = t.arena.nextEdgeID
	t.arena = purged
	return nil
}

func (t *graphTx) Commit(ctx context.Context) error {
	if t.done {
		return domain.NewStorageError("memgraph.Commit", errTxDone)
	}
	t.done = true

	if t.readOnly {
		return nil
	}
	t.store.current.Store(t.arena)
	<-t.store.writer
	return nil
}

func (t *graphTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	if !t.readOnly {
		<-t.store.writer
	}
	return nil
}
