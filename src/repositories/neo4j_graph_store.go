package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"cineasts/src/domain"
	neo4jinfra "cineasts/src/infra/neo4j"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

const (
	neo4jIdentityProperty  = "_identity"
	neo4jCreatedAtProperty = "_created_at"
	neo4jUpdatedAtProperty = "_updated_at"

	neo4jConstraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"
)

var propertyNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type Neo4jGraphStore struct {
	client *neo4jinfra.Neo4jClient
}

func NewNeo4jGraphStore(client *neo4jinfra.Neo4jClient) *Neo4jGraphStore {
	return &Neo4jGraphStore{client: client}
}

func (s *Neo4jGraphStore) Begin(ctx context.Context, opts TxOptions) (GraphTx, error) {
	session := s.client.NewSession(ctx, opts.ReadOnly)

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, domain.NewStorageError("Neo4jGraphStore.Begin", err)
	}

	return &neo4jGraphTx{session: session, tx: tx}, nil
}

type neo4jGraphTx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

func (t *neo4jGraphTx) collect(ctx context.Context, op string, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, t.mapError(op, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, t.mapError(op, err)
	}
	return records, nil
}

func (t *neo4jGraphTx) mapError(op string, err error) error {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == neo4jConstraintViolation {
		return fmt.Errorf("%s - %w: %s", op, domain.ErrDuplicateKey, neoErr.Msg)
	}
	return domain.NewStorageError(op, err)
}

func (t *neo4jGraphTx) CreateNode(ctx context.Context, node *domain.GraphNode) error {
	if _, exists, err := NodeByKey(ctx, t, node.Label, node.Key); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("Neo4jGraphStore.CreateNode - %s %q: %w", node.Label, node.Key, domain.ErrDuplicateKey)
	}

	props, err := decodeNeo4jProperties(node.Properties)
	if err != nil {
		return fmt.Errorf("Neo4jGraphStore.CreateNode - %w", err)
	}
	now := time.Now().UTC()
	props[neo4jinfra.KeyProperty] = node.Key
	props[neo4jCreatedAtProperty] = now.UnixMilli()
	props[neo4jUpdatedAtProperty] = now.UnixMilli()

	query, params, err := gocypher.NewQueryBuilder().
		Create(gocypher.N("n", string(node.Label)).WithProperties(props)).
		Return("n").
		Build()
	if err != nil {
		return fmt.Errorf("Neo4jGraphStore.CreateNode - could not build query: %w", err)
	}

	records, err := t.collect(ctx, "Neo4jGraphStore.CreateNode", query, params)
	if err != nil {
		return err
	}
	created, err := recordNode(records, "n")
	if err != nil {
		return domain.NewStorageError("Neo4jGraphStore.CreateNode", err)
	}

	*node = created
	return nil
}

func (t *neo4jGraphTx) MergeNode(ctx context.Context, node *domain.GraphNode) (bool, error) {
	existing, exists, err := NodeByKey(ctx, t, node.Label, node.Key)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, t.CreateNode(ctx, node)
	}

	props, err := decodeNeo4jProperties(node.Properties)
	if err != nil {
		return false, fmt.Errorf("Neo4jGraphStore.MergeNode - %w", err)
	}

	setProps := make(map[string]interface{}, len(props)+1)
	for name, value := range props {
		setProps["n."+name] = value
	}
	setProps["n."+neo4jUpdatedAtProperty] = time.Now().UTC().UnixMilli()

	query, params, err := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", string(node.Label)).WithProperties(map[string]interface{}{neo4jinfra.KeyProperty: node.Key})).
		Set(setProps).
		Return("n").
		Build()
	if err != nil {
		return false, fmt.Errorf("Neo4jGraphStore.MergeNode - could not build query: %w", err)
	}

	records, err := t.collect(ctx, "Neo4jGraphStore.MergeNode", query, params)
	if err != nil {
		return false, err
	}
	merged, err := recordNode(records, "n")
	if err != nil {
		return false, domain.NewStorageError("Neo4jGraphStore.MergeNode", err)
	}

	merged.CreatedAt = existing.CreatedAt
	*node = merged
	return false, nil
}

func (t *neo4jGraphTx) MergeNodes(ctx context.Context, nodes []*domain.GraphNode) error {
	for _, node := range nodes {
		if _, err := t.MergeNode(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

func (t *neo4jGraphTx) CreateEdge(ctx context.Context, edge *domain.GraphEdge) (bool, error) {
	if !edge.Type.Valid() {
		return false, fmt.Errorf("Neo4jGraphStore.CreateEdge - %w: unknown relationship type %q", domain.ErrInvalidQuery, edge.Type)
	}

	props, err := decodeNeo4jProperties(edge.Properties)
	if err != nil {
		return false, fmt.Errorf("Neo4jGraphStore.CreateEdge - %w", err)
	}

	now := time.Now().UTC().UnixMilli()
	query := fmt.Sprintf(`
		MATCH (a) WHERE id(a) = $start
		MATCH (b) WHERE id(b) = $end
		MERGE (a)-[r:%s {%s: $identity}]->(b)
		ON CREATE SET r += $props, r.%s = $now
		RETURN r, r.%s = $now AS created`,
		edge.Type, neo4jIdentityProperty, neo4jCreatedAtProperty, neo4jCreatedAtProperty)

	records, err := t.collect(ctx, "Neo4jGraphStore.CreateEdge", query, map[string]interface{}{
		"start":    edge.StartID,
		"end":      edge.EndID,
		"identity": edge.Identity,
		"props":    props,
		"now":      now,
	})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, fmt.Errorf("Neo4jGraphStore.CreateEdge - nodes %d/%d: %w", edge.StartID, edge.EndID, domain.ErrEntityNotFound)
	}

	value, _ := records[0].Get("r")
	rel, ok := value.(neo4j.Relationship)
	if !ok {
		return false, domain.NewStorageError("Neo4jGraphStore.CreateEdge", fmt.Errorf("return value 'r' is not a relationship"))
	}
	stored, err := relationshipToEdge(rel)
	if err != nil {
		return false, domain.NewStorageError("Neo4jGraphStore.CreateEdge", err)
	}

	created, _ := records[0].Get("created")
	*edge = stored
	return created == true, nil
}

func (t *neo4jGraphTx) DeleteEdge(ctx context.Context, edge domain.GraphEdge) (bool, error) {
	if !edge.Type.Valid() {
		return false, fmt.Errorf("Neo4jGraphStore.DeleteEdge - %w: unknown relationship type %q", domain.ErrInvalidQuery, edge.Type)
	}

	query := fmt.Sprintf(`
		MATCH (a)-[r:%s {%s: $identity}]->(b)
		WHERE id(a) = $start AND id(b) = $end
		DELETE r
		RETURN count(*) AS deleted`,
		edge.Type, neo4jIdentityProperty)

	records, err := t.collect(ctx, "Neo4jGraphStore.DeleteEdge", query, map[string]interface{}{
		"start":    edge.StartID,
		"end":      edge.EndID,
		"identity": edge.Identity,
	})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}

	deleted, _ := records[0].Get("deleted")
	count, _ := deleted.(int64)
	return count > 0, nil
}

func (t *neo4jGraphTx) DeleteNode(ctx context.Context, label domain.Label, key string) (bool, error) {
	if _, exists, err := NodeByKey(ctx, t, label, key); err != nil || !exists {
		return false, err
	}

	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", string(label)).WithProperties(map[string]interface{}{neo4jinfra.KeyProperty: key})).
		DetachDelete("n").
		Build()
	if err != nil {
		return false, fmt.Errorf("Neo4jGraphStore.DeleteNode - could not build query: %w", err)
	}

	if _, err := t.collect(ctx, "Neo4jGraphStore.DeleteNode", query, params); err != nil {
		return false, err
	}
	return true, nil
}

func (t *neo4jGraphTx) FindNodes(ctx context.Context, label domain.Label, conditions ...FindCondition) (NodeRows, error) {
	if !label.Valid() {
		return nil, fmt.Errorf("Neo4jGraphStore.FindNodes - %w: unknown label %q", domain.ErrInvalidQuery, label)
	}

	var (
		query  string
		params map[string]interface{}
		err    error
	)

	if keyOnly(conditions) {
		props := map[string]interface{}{}
		for _, condition := range conditions {
			props[neo4jinfra.KeyProperty] = fmt.Sprint(condition.Value)
		}
		query, params, err = gocypher.NewQueryBuilder().
			Match(gocypher.N("n", string(label)).WithProperties(props)).
			Return("n").
			Build()
		if err != nil {
			return nil, fmt.Errorf("Neo4jGraphStore.FindNodes - could not build query: %w", err)
		}
	} else {
		query, params, err = buildNeo4jFindQuery(label, conditions)
		if err != nil {
			return nil, err
		}
	}

	records, err := t.collect(ctx, "Neo4jGraphStore.FindNodes", query, params)
	if err != nil {
		return nil, err
	}

	nodes := make([]domain.GraphNode, 0, len(records))
	for _, record := range records {
		value, _ := record.Get("n")
		n, ok := value.(neo4j.Node)
		if !ok {
			return nil, domain.NewStorageError("Neo4jGraphStore.FindNodes", fmt.Errorf("return value 'n' is not a node"))
		}
		node, err := nodeToGraphNode(n)
		if err != nil {
			return nil, domain.NewStorageError("Neo4jGraphStore.FindNodes", err)
		}
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return NewSliceRows(nodes), nil
}

func keyOnly(conditions []FindCondition) bool {
	for _, condition := range conditions {
		if condition.Field != "key" || condition.Operator != OpEquals {
			return false
		}
	}
	return true
}

func buildNeo4jFindQuery(label domain.Label, conditions []FindCondition) (string, map[string]interface{}, error) {
	clauses := make([]string, 0, len(conditions))
	params := make(map[string]interface{}, len(conditions))

	for i, condition := range conditions {
		param := fmt.Sprintf("p%d", i)

		switch {
		case condition.Operator == OpEquals && condition.Field == "key":
			clauses = append(clauses, fmt.Sprintf("n.%s = $%s", neo4jinfra.KeyProperty, param))
			params[param] = fmt.Sprint(condition.Value)
		case condition.Operator == OpEquals && condition.Field == "id":
			clauses = append(clauses, fmt.Sprintf("id(n) = $%s", param))
			params[param] = condition.Value
		case condition.Operator == OpContains:
			if !propertyNamePattern.MatchString(condition.Field) {
				return "", nil, fmt.Errorf("Neo4jGraphStore.FindNodes - %w: invalid property name %q", domain.ErrInvalidQuery, condition.Field)
			}
			value, err := normalizeNeo4jValue(condition.Value)
			if err != nil {
				return "", nil, fmt.Errorf("Neo4jGraphStore.FindNodes - %w: %v", domain.ErrInvalidQuery, err)
			}
			if _, isList := value.([]interface{}); isList {
				clauses = append(clauses, fmt.Sprintf("all(x IN $%s WHERE x IN n.%s)", param, condition.Field))
			} else {
				clauses = append(clauses, fmt.Sprintf("n.%s = $%s", condition.Field, param))
			}
			params[param] = value
		default:
			return "", nil, fmt.Errorf("Neo4jGraphStore.FindNodes - %w: unsupported condition %s %s", domain.ErrInvalidQuery, condition.Field, condition.Operator)
		}
	}

	query := fmt.Sprintf("MATCH (n:%s) WHERE %s RETURN n", label, strings.Join(clauses, " AND "))
	return query, params, nil
}

func (t *neo4jGraphTx) NodesByIDs(ctx context.Context, ids []int64) ([]domain.GraphNode, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	records, err := t.collect(ctx, "Neo4jGraphStore.NodesByIDs", "MATCH (n) WHERE id(n) IN $ids RETURN n", map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}

	nodes := make([]domain.GraphNode, 0, len(records))
	for _, record := range records {
		value, _ := record.Get("n")
		n, ok := value.(neo4j.Node)
		if !ok {
			continue
		}
		node, err := nodeToGraphNode(n)
		if err != nil {
			return nil, domain.NewStorageError("Neo4jGraphStore.NodesByIDs", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (t *neo4jGraphTx) EdgesOf(ctx context.Context, nodeID int64, types ...domain.RelationshipType) ([]domain.GraphEdge, error) {
	query := "MATCH (a)-[r]-() WHERE id(a) = $id RETURN r"
	params := map[string]interface{}{"id": nodeID}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, relType := range types {
			names[i] = string(relType)
		}
		query = "MATCH (a)-[r]-() WHERE id(a) = $id AND type(r) IN $types RETURN r"
		params["types"] = names
	}

	records, err := t.collect(ctx, "Neo4jGraphStore.EdgesOf", query, params)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	edges := make([]domain.GraphEdge, 0, len(records))
	for _, record := range records {
		value, _ := record.Get("r")
		rel, ok := value.(neo4j.Relationship)
		if !ok || seen[rel.Id] {
			continue
		}
		seen[rel.Id] = true

		edge, err := relationshipToEdge(rel)
		if err != nil {
			return nil, domain.NewStorageError("Neo4jGraphStore.EdgesOf", err)
		}
		edges = append(edges, edge)
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}

func (t *neo4jGraphTx) Purge(ctx context.Context) error {
	_, err := t.collect(ctx, "Neo4jGraphStore.Purge", "MATCH (n) DETACH DELETE n", nil)
	return err
}

func (t *neo4jGraphTx) Commit(ctx context.Context) error {
	if t.done {
		return domain.NewStorageError("Neo4jGraphStore.Commit", fmt.Errorf("transaction already finished"))
	}
	t.done = true
	defer t.session.Close(ctx)

	if err := t.tx.Commit(ctx); err != nil {
		return t.mapError("Neo4jGraphStore.Commit", err)
	}
	return nil
}

func (t *neo4jGraphTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)

	if err := t.tx.Rollback(ctx); err != nil {
		return domain.NewStorageError("Neo4jGraphStore.Rollback", err)
	}
	return nil
}

func recordNode(records []*neo4j.Record, alias string) (domain.GraphNode, error) {
	if len(records) == 0 {
		return domain.GraphNode{}, fmt.Errorf("query returned no records")
	}
	value, ok := records[0].Get(alias)
	if !ok {
		return domain.GraphNode{}, fmt.Errorf("could not find return value '%s' in query result", alias)
	}
	n, ok := value.(neo4j.Node)
	if !ok {
		return domain.GraphNode{}, fmt.Errorf("return value '%s' is not a node", alias)
	}
	return nodeToGraphNode(n)
}

func nodeToGraphNode(n neo4j.Node) (domain.GraphNode, error) {
	node := domain.GraphNode{ID: n.Id}
	if len(n.Labels) > 0 {
		node.Label = domain.Label(n.Labels[0])
	}
	if key, ok := n.Props[neo4jinfra.KeyProperty].(string); ok {
		node.Key = key
	}
	node.CreatedAt = millisProperty(n.Props, neo4jCreatedAtProperty)
	node.UpdatedAt = millisProperty(n.Props, neo4jUpdatedAtProperty)

	props, err := encodeNeo4jProperties(n.Props)
	if err != nil {
		return domain.GraphNode{}, err
	}
	node.Properties = props
	return node, nil
}

func relationshipToEdge(rel neo4j.Relationship) (domain.GraphEdge, error) {
	edge := domain.GraphEdge{
		ID:        rel.Id,
		Type:      domain.RelationshipType(rel.Type),
		StartID:   rel.StartId,
		EndID:     rel.EndId,
		CreatedAt: millisProperty(rel.Props, neo4jCreatedAtProperty),
	}
	if identity, ok := rel.Props[neo4jIdentityProperty].(string); ok {
		edge.Identity = identity
	}

	props, err := encodeNeo4jProperties(rel.Props)
	if err != nil {
		return domain.GraphEdge{}, err
	}
	edge.Properties = props
	return edge, nil
}

func millisProperty(props map[string]interface{}, name string) time.Time {
	if millis, ok := props[name].(int64); ok {
		return time.UnixMilli(millis).UTC()
	}
	return time.Time{}
}

// encodeNeo4jProperties descarta as propriedades internas (prefixo "_").
func encodeNeo4jProperties(props map[string]interface{}) (json.RawMessage, error) {
	public := make(map[string]interface{}, len(props))
	for name, value := range props {
		if strings.HasPrefix(name, "_") {
			continue
		}
		public[name] = value
	}
	return json.Marshal(public)
}

// decodeNeo4jProperties mantém inteiros como int64, que é o que o driver
// grava como INTEGER.
func decodeNeo4jProperties(raw json.RawMessage) (map[string]interface{}, error) {
	props := map[string]interface{}{}
	if len(raw) == 0 {
		return props, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&props); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	for name, value := range props {
		props[name] = neo4jValue(value)
	}
	return props, nil
}

func normalizeNeo4jValue(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(map[string]interface{}{"v": value})
	if err != nil {
		return nil, err
	}
	props, err := decodeNeo4jProperties(raw)
	if err != nil {
		return nil, err
	}
	return props["v"], nil
}

func neo4jValue(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []interface{}:
		for i := range v {
			v[i] = neo4jValue(v[i])
		}
		return v
	}
	return value
}
