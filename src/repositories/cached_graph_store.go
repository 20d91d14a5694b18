package repositories

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"cineasts/src/domain"
	"cineasts/src/infra/redis"
)

// CachedGraphStore decora um GraphStore com cache no Redis para as leituras
// de transações read-only. Cada entrada é registrada no registry do label e
// dos nós que devolveu; o commit de uma escrita invalida esses registries
// antes de retornar.
type CachedGraphStore struct {
	store       GraphStore
	redisClient *redis.RedisClient
}

func NewCachedGraphStore(store GraphStore, redisClient *redis.RedisClient) *CachedGraphStore {
	return &CachedGraphStore{store: store, redisClient: redisClient}
}

func (s *CachedGraphStore) Begin(ctx context.Context, opts TxOptions) (GraphTx, error) {
	tx, err := s.store.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &cachedGraphTx{
		GraphTx:  tx,
		cache:    s,
		readOnly: opts.ReadOnly,
		labels:   make(map[domain.Label]bool),
		nodeIDs:  make(map[int64]bool),
	}, nil
}

type cachedGraphTx struct {
	GraphTx
	cache    *CachedGraphStore
	readOnly bool
	labels   map[domain.Label]bool
	nodeIDs  map[int64]bool
	purged   bool
}

func (t *cachedGraphTx) touch(label domain.Label, id int64) {
	t.labels[label] = true
	if id != 0 {
		t.nodeIDs[id] = true
	}
}

func (t *cachedGraphTx) CreateNode(ctx context.Context, node *domain.GraphNode) error {
	if err := t.GraphTx.CreateNode(ctx, node); err != nil {
		return err
	}
	t.touch(node.Label, node.ID)
	return nil
}

func (t *cachedGraphTx) MergeNode(ctx context.Context, node *domain.GraphNode) (bool, error) {
	created, err := t.GraphTx.MergeNode(ctx, node)
	if err != nil {
		return false, err
	}
	t.touch(node.Label, node.ID)
	return created, nil
}

func (t *cachedGraphTx) MergeNodes(ctx context.Context, nodes []*domain.GraphNode) error {
	if err := t.GraphTx.MergeNodes(ctx, nodes); err != nil {
		return err
	}
	for _, node := range nodes {
		t.touch(node.Label, node.ID)
	}
	return nil
}

func (t *cachedGraphTx) DeleteNode(ctx context.Context, label domain.Label, key string) (bool, error) {
	node, found, err := NodeByKey(ctx, t.GraphTx, label, key)
	if err != nil {
		return false, err
	}
	if found {
		t.touch(label, node.ID)
	}
	return t.GraphTx.DeleteNode(ctx, label, key)
}

func (t *cachedGraphTx) Purge(ctx context.Context) error {
	if err := t.GraphTx.Purge(ctx); err != nil {
		return err
	}
	t.purged = true
	return nil
}

func (t *cachedGraphTx) FindNodes(ctx context.Context, label domain.Label, conditions ...FindCondition) (NodeRows, error) {
	if !t.readOnly || len(domain.SecretProperties(label)) > 0 {
		return t.GraphTx.FindNodes(ctx, label, conditions...)
	}

	cacheKey := generateFindCacheKey(label, conditions)
	if nodes, found := t.cache.getFromCache(ctx, cacheKey); found {
		log.Printf("Cache HIT for key: %s", cacheKey)
		return NewSliceRows(nodes), nil
	}
	log.Printf("Cache MISS for key: %s", cacheKey)

	rows, err := t.GraphTx.FindNodes(ctx, label, conditions...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []domain.GraphNode
	for rows.Next() {
		nodes = append(nodes, rows.Node())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t.cache.setInCache(ctx, cacheKey, nodes, []string{labelRegistryKey(label)})
	return NewSliceRows(nodes), nil
}

func (t *cachedGraphTx) NodesByIDs(ctx context.Context, ids []int64) ([]domain.GraphNode, error) {
	if !t.readOnly || len(ids) == 0 {
		return t.GraphTx.NodesByIDs(ctx, ids)
	}

	cacheKey := generateIDsCacheKey(ids)
	if nodes, found := t.cache.getFromCache(ctx, cacheKey); found {
		log.Printf("Cache HIT for key: %s", cacheKey)
		return nodes, nil
	}

	nodes, err := t.GraphTx.NodesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Os IDs pedidos entram no registry, mesmo os que não voltaram.
	registryKeys := make([]string, 0, len(ids))
	for _, id := range ids {
		registryKeys = append(registryKeys, entityRegistryKey(id))
	}
	t.cache.setInCache(ctx, cacheKey, nodes, registryKeys)
	return nodes, nil
}

func (t *cachedGraphTx) Commit(ctx context.Context) error {
	if err := t.GraphTx.Commit(ctx); err != nil {
		return err
	}
	if t.readOnly {
		return nil
	}

	if t.purged {
		for _, label := range []domain.Label{domain.LabelActor, domain.LabelDirector, domain.LabelMovie, domain.LabelUser} {
			t.labels[label] = true
		}
	}

	registryKeys := make([]string, 0, len(t.labels)+len(t.nodeIDs))
	for label := range t.labels {
		registryKeys = append(registryKeys, labelRegistryKey(label))
	}
	for id := range t.nodeIDs {
		registryKeys = append(registryKeys, entityRegistryKey(id))
	}

	if err := t.cache.invalidate(ctx, registryKeys); err != nil {
		log.Printf("Failed to invalidate cache: %v", err)
	}
	return nil
}

func labelRegistryKey(label domain.Label) string {
	return fmt.Sprintf("registry:label:%s", label)
}

func entityRegistryKey(id int64) string {
	return fmt.Sprintf("registry:entity:%d", id)
}

func generateFindCacheKey(label domain.Label, conditions []FindCondition) string {
	parts := make([]string, 0, len(conditions))
	for _, condition := range conditions {
		value, _ := json.Marshal(condition.Value)
		parts = append(parts, fmt.Sprintf("%s:%s:%s", condition.Field, condition.Operator, value))
	}
	sort.Strings(parts)

	keyData := fmt.Sprintf("find:%s:%s", label, strings.Join(parts, "|"))
	hash := md5.Sum([]byte(keyData))
	return fmt.Sprintf("graph:find:%x", hash)
}

func generateIDsCacheKey(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	hash := md5.Sum([]byte(fmt.Sprintf("ids:%v", sorted)))
	return fmt.Sprintf("graph:ids:%x", hash)
}

func (s *CachedGraphStore) getFromCache(ctx context.Context, cacheKey string) ([]domain.GraphNode, bool) {
	cachedJSON, found, err := s.redisClient.GetKey(ctx, cacheKey)
	if err != nil {
		log.Printf("Cache error for key %s: %v", cacheKey, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var nodes []domain.GraphNode
	if err := json.Unmarshal([]byte(cachedJSON), &nodes); err != nil {
		log.Printf("Failed to unmarshal cached data for key %s: %v", cacheKey, err)
		return nil, false
	}
	return nodes, true
}

func (s *CachedGraphStore) setInCache(ctx context.Context, cacheKey string, nodes []domain.GraphNode, registryKeys []string) {
	// nós com propriedades sigilosas (hash de senha) não vão para o redis
	for _, node := range nodes {
		if node.HasSecrets() {
			log.Printf("Cache SKIP for key %s: %s nodes carry secret properties", cacheKey, node.Label)
			return
		}
	}

	dataJSON, err := json.Marshal(nodes)
	if err != nil {
		log.Printf("Failed to marshal cache data for key %s: %v", cacheKey, err)
		return
	}

	for _, node := range nodes {
		registryKeys = append(registryKeys, entityRegistryKey(node.ID))
	}

	if err := s.redisClient.SetWithRegistry(ctx, cacheKey, string(dataJSON), registryKeys); err != nil {
		log.Printf("Failed to set cache with registry for key %s: %v", cacheKey, err)
		return
	}

	log.Printf("Cache SET with registry for key: %s (%d entities)", cacheKey, len(nodes))
}

func (s *CachedGraphStore) invalidate(ctx context.Context, registryKeys []string) error {
	if len(registryKeys) == 0 {
		return nil
	}

	registryResults, err := s.redisClient.GetMultipleSetMembers(ctx, registryKeys)
	if err != nil {
		return fmt.Errorf("failed to get registry data: %w", err)
	}

	allKeysToDelete := make(map[string]bool)
	for registryKey, relatedKeys := range registryResults {
		allKeysToDelete[registryKey] = true
		for _, relatedKey := range relatedKeys {
			allKeysToDelete[relatedKey] = true
		}
	}

	keysToDelete := make([]string, 0, len(allKeysToDelete))
	for key := range allKeysToDelete {
		keysToDelete = append(keysToDelete, key)
	}

	log.Printf("Invalidating %d cache keys for %d registries", len(keysToDelete), len(registryKeys))
	return s.redisClient.InvalidateEntity(ctx, keysToDelete)
}
