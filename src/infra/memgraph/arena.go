package memgraph

import (
	"sort"

	"cineasts/src/domain"
)

// arena guarda nós pelo ID interno, um índice (label, chave) -> ID e as
// listas de adjacência por tipo de relacionamento. As entidades nunca
// apontam umas para as outras, só para IDs e chaves.
type arena struct {
	nextNodeID int64
	nextEdgeID int64
	nodes      map[int64]domain.GraphNode
	keys       map[domain.Label]map[string]int64
	edges      map[int64]domain.GraphEdge
	adjacency  map[int64]map[domain.RelationshipType][]int64
}

func newArena() *arena {
	return &arena{
		nodes:     make(map[int64]domain.GraphNode),
		keys:      make(map[domain.Label]map[string]int64),
		edges:     make(map[int64]domain.GraphEdge),
		adjacency: make(map[int64]map[domain.RelationshipType][]int64),
	}
}

// clone copia a arena inteira para a transação de escrita (copy-on-write).
func (a *arena) clone() *arena {
	c := &arena{
		nextNodeID: a.nextNodeID,
		nextEdgeID: a.nextEdgeID,
		nodes:      make(map[int64]domain.GraphNode, len(a.nodes)),
		keys:       make(map[domain.Label]map[string]int64, len(a.keys)),
		edges:      make(map[int64]domain.GraphEdge, len(a.edges)),
		adjacency:  make(map[int64]map[domain.RelationshipType][]int64, len(a.adjacency)),
	}

	for id, node := range a.nodes {
		c.nodes[id] = node
	}
	for label, byKey := range a.keys {
		copied := make(map[string]int64, len(byKey))
		for key, id := range byKey {
			copied[key] = id
		}
		c.keys[label] = copied
	}
	for id, edge := range a.edges {
		c.edges[id] = edge
	}
	for nodeID, byType := range a.adjacency {
		copied := make(map[domain.RelationshipType][]int64, len(byType))
		for relType, edgeIDs := range byType {
			copied[relType] = append([]int64(nil), edgeIDs...)
		}
		c.adjacency[nodeID] = copied
	}

	return c
}

func (a *arena) nodeByKey(label domain.Label, key string) (domain.GraphNode, bool) {
	id, ok := a.keys[label][key]
	if !ok {
		return domain.GraphNode{}, false
	}
	return a.nodes[id], true
}

func (a *arena) putNode(node domain.GraphNode) {
	a.nodes[node.ID] = node
	if a.keys[node.Label] == nil {
		a.keys[node.Label] = make(map[string]int64)
	}
	a.keys[node.Label][node.Key] = node.ID
}

func (a *arena) findEdge(edge domain.GraphEdge) (domain.GraphEdge, bool) {
	for _, id := range a.adjacency[edge.StartID][edge.Type] {
		existing := a.edges[id]
		if existing.SameFact(edge) {
			return existing, true
		}
	}
	return domain.GraphEdge{}, false
}

func (a *arena) link(edge domain.GraphEdge) {
	a.edges[edge.ID] = edge
	a.appendAdjacency(edge.StartID, edge.Type, edge.ID)
	if edge.EndID != edge.StartID {
		a.appendAdjacency(edge.EndID, edge.Type, edge.ID)
	}
}

func (a *arena) appendAdjacency(nodeID int64, relType domain.RelationshipType, edgeID int64) {
	if a.adjacency[nodeID] == nil {
		a.adjacency[nodeID] = make(map[domain.RelationshipType][]int64)
	}
	a.adjacency[nodeID][relType] = append(a.adjacency[nodeID][relType], edgeID)
}

func (a *arena) unlink(edge domain.GraphEdge) {
	delete(a.edges, edge.ID)
	a.removeAdjacency(edge.StartID, edge.Type, edge.ID)
	a.removeAdjacency(edge.EndID, edge.Type, edge.ID)
}

func (a *arena) removeAdjacency(nodeID int64, relType domain.RelationshipType, edgeID int64) {
	ids := a.adjacency[nodeID][relType]
	for i, id := range ids {
		if id == edgeID {
			a.adjacency[nodeID][relType] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

func (a *arena) edgesOf(nodeID int64, types []domain.RelationshipType) []domain.GraphEdge {
	byType := a.adjacency[nodeID]
	if len(types) == 0 {
		for relType := range byType {
			types = append(types, relType)
		}
	}

	var edges []domain.GraphEdge
	for _, relType := range types {
		for _, id := range byType[relType] {
			edges = append(edges, a.edges[id])
		}
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

func (a *arena) removeNode(node domain.GraphNode) {
	for _, edge := range a.edgesOf(node.ID, nil) {
		a.unlink(edge)
	}
	delete(a.adjacency, node.ID)
	delete(a.nodes, node.ID)
	delete(a.keys[node.Label], node.Key)
}
