package repositories_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/domain"
	"cineasts/src/helper/env"
	"cineasts/src/infra/postgres"
	"cineasts/src/repositories"
	"cineasts/src/test_artefacts/store_contract"
	"cineasts/src/test_artefacts/stubs"
	"cineasts/src/test_artefacts/test_seeder"
)

var _ = Describe("PostgresGraphStore", func() {
	var (
		readWriteClient *postgres.ReadWriteClient
		testSeeder      test_seeder.TestSeeder
		store           *repositories.PostgresGraphStore
	)

	dbWriteHost := env.GetString("TEST_DB_WRITE_HOST")
	dbReadHost := env.GetString("TEST_DB_READ_HOST", dbWriteHost)
	dbReadPort := env.GetString("TEST_DB_READ_PORT", "5432")
	dbWritePort := env.GetString("TEST_DB_WRITE_PORT", "5432")
	dbname := env.GetString("TEST_DB_NAME", "cineasts_test")
	dbUser := env.GetString("TEST_DB_USER", "postgres")
	dbPassword := env.GetString("TEST_DB_PASSWORD")
	maxConnections := env.GetInt("TEST_DB_MAX_POOL_CONNECTIONS", 10)

	newStore := func(ctx context.Context) repositories.GraphStore {
		if dbWriteHost == "" {
			Skip("TEST_DB_WRITE_HOST not set")
		}

		var err error
		readWriteClient, err = postgres.NewReadWriteClient(dbReadHost, dbWriteHost, dbReadPort, dbWritePort, dbname, dbUser, dbPassword, maxConnections)
		if err != nil {
			panic(err)
		}
		DeferCleanup(readWriteClient.Close)

		testSeeder = test_seeder.New(readWriteClient.GetWritePool())
		testSeeder.EnsureSchema(ctx)
		testSeeder.TruncateTables(ctx)

		store = repositories.NewPostgresGraphStore(readWriteClient)
		return store
	}

	store_contract.DescribeGraphStore(newStore)

	Context("edge uniqueness", func() {
		var ctx context.Context

		BeforeEach(func() {
			ctx = context.Background()
			newStore(ctx)
		})

		It("keeps a single row per fact even when the edge is created twice", func() {
			// ARRANGE
			actor := stubs.NewGraphNodeStub().WithLabel(domain.LabelActor).WithKey("6384").Get()
			movie := stubs.NewGraphNodeStub().WithKey("603").Get()
			testSeeder.InsertNode(ctx, actor)
			testSeeder.InsertNode(ctx, movie)
			edge := stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID).WithIdentity("Neo")

			// ACT
			for i := 0; i < 2; i++ {
				tx, err := store.Begin(ctx, repositories.TxOptions{})
				Expect(err).NotTo(HaveOccurred())
				_, err = tx.CreateEdge(ctx, edge.Get())
				Expect(err).NotTo(HaveOccurred())
				Expect(tx.Commit(ctx)).To(Succeed())
			}

			// ASSERT
			count, err := testSeeder.CountEdges(ctx, domain.RelActsIn)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("finds rows written outside the store", func() {
			// ARRANGE
			testSeeder.InsertNode(ctx, stubs.NewGraphNodeStub().WithLabel(domain.LabelUser).WithKey("micha").
				WithProperties(map[string]interface{}{"login": "micha", "roles": []string{"ROLE_USER"}}).Get())

			// ACT
			tx, err := store.Begin(ctx, repositories.TxOptions{ReadOnly: true})
			Expect(err).NotTo(HaveOccurred())
			defer tx.Rollback(ctx)
			node, found, err := repositories.NodeByKey(ctx, tx, domain.LabelUser, "micha")

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			stored, err := testSeeder.SelectNodesByKeys(ctx, domain.LabelUser, []string{"micha"})
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(1))
			Expect(node.ID).To(Equal(stored[0].ID))
		})
	})
})
