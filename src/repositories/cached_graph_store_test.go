package repositories_test

import (
	"context"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/domain"
	"cineasts/src/infra/memgraph"
	"cineasts/src/infra/redis"
	"cineasts/src/repositories"
	"cineasts/src/test_artefacts/store_contract"
	"cineasts/src/test_artefacts/stubs"
)

var _ = Describe("CachedGraphStore", func() {
	var (
		redisServer *miniredis.Miniredis
		redisClient *redis.RedisClient
		store       *repositories.CachedGraphStore
	)

	newStore := func(ctx context.Context) repositories.GraphStore {
		redisServer = miniredis.RunT(GinkgoT())
		redisClient = redis.NewRedisClient(redisServer.Addr(), 5, time.Minute).WithPrefix("test:")
		DeferCleanup(redisClient.Close)

		store = repositories.NewCachedGraphStore(memgraph.NewStore(), redisClient)
		return store
	}

	store_contract.DescribeGraphStore(newStore)

	cachedFinds := func() []string {
		var keys []string
		for _, key := range redisServer.Keys() {
			if strings.HasPrefix(key, "test:graph:find:") {
				keys = append(keys, key)
			}
		}
		return keys
	}

	findMovies := func(ctx context.Context) []domain.GraphNode {
		GinkgoHelper()
		tx, err := store.Begin(ctx, repositories.TxOptions{ReadOnly: true})
		Expect(err).NotTo(HaveOccurred())
		defer tx.Rollback(ctx)

		rows, err := tx.FindNodes(ctx, domain.LabelMovie)
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var nodes []domain.GraphNode
		for rows.Next() {
			nodes = append(nodes, rows.Node())
		}
		return nodes
	}

	Context("caching", func() {
		var ctx context.Context

		BeforeEach(func() {
			ctx = context.Background()
			newStore(ctx)

			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("603").Get())).To(Succeed())
			Expect(tx.Commit(ctx)).To(Succeed())
		})

		It("stores read-only finds in redis", func() {
			// ACT
			first := findMovies(ctx)
			second := findMovies(ctx)

			// ASSERT
			Expect(cachedFinds()).To(HaveLen(1))
			Expect(second).To(HaveLen(1))
			Expect(second[0].Key).To(Equal(first[0].Key))
			Expect(redisServer.Keys()).To(ContainElement("test:registry:label:Movie"))
		})

		It("does not cache inside write transactions", func() {
			// ACT
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			_, err = tx.FindNodes(ctx, domain.LabelMovie)
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.Rollback(ctx)).To(Succeed())

			// ASSERT
			Expect(cachedFinds()).To(BeEmpty())
		})

		It("invalidates the label on commit of a write", func() {
			// ARRANGE
			Expect(findMovies(ctx)).To(HaveLen(1))
			Expect(cachedFinds()).To(HaveLen(1))

			// ACT
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("604").Get())).To(Succeed())
			Expect(tx.Commit(ctx)).To(Succeed())

			// ASSERT
			Expect(cachedFinds()).To(BeEmpty())
			Expect(findMovies(ctx)).To(HaveLen(2))
		})

		It("keeps the cache when a write is rolled back", func() {
			// ARRANGE
			findMovies(ctx)

			// ACT
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("604").Get())).To(Succeed())
			Expect(tx.Rollback(ctx)).To(Succeed())

			// ASSERT
			Expect(cachedFinds()).To(HaveLen(1))
		})

		It("keeps nodes with a password hash out of redis", func() {
			// ARRANGE
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			user := stubs.NewGraphNodeStub().WithLabel(domain.LabelUser).WithKey("micha").
				WithProperties(map[string]interface{}{"login": "micha", "password": "$2a$04$hash"}).Get()
			Expect(tx.CreateNode(ctx, user)).To(Succeed())
			Expect(tx.Commit(ctx)).To(Succeed())

			// ACT
			reader, err := store.Begin(ctx, repositories.TxOptions{ReadOnly: true})
			Expect(err).NotTo(HaveOccurred())
			defer reader.Rollback(ctx)
			found, ok, err := repositories.NodeByKey(ctx, reader, domain.LabelUser, "micha")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			byID, err := reader.NodesByIDs(ctx, []int64{found.ID})
			Expect(err).NotTo(HaveOccurred())

			// ASSERT
			Expect(byID).To(HaveLen(1))
			Expect(cachedFinds()).To(BeEmpty())
			for _, key := range redisServer.Keys() {
				if value, err := redisServer.Get(key); err == nil {
					Expect(value).NotTo(ContainSubstring("$2a$04$hash"))
				}
			}
		})

		It("falls back to the store when redis is down", func() {
			// ARRANGE
			redisServer.Close()

			// ACT
			nodes := findMovies(ctx)

			// ASSERT
			Expect(nodes).To(HaveLen(1))
		})
	})
})
