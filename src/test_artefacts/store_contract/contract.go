// Package store_contract descreve, em specs Ginkgo, o comportamento que toda
// implementação de repositories.GraphStore precisa ter. Cada backend chama
// DescribeGraphStore na sua própria suíte.
package store_contract

import (
	"context"

	"cineasts/src/domain"
	"cineasts/src/repositories"
	"cineasts/src/test_artefacts/comparer"
	"cineasts/src/test_artefacts/stubs"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// DescribeGraphStore registra as specs do contrato. newStore é chamado antes
// de cada spec e deve devolver um store vazio.
func DescribeGraphStore(newStore func(ctx context.Context) repositories.GraphStore) {
	var (
		ctx   context.Context
		store repositories.GraphStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newStore(ctx)
	})

	// write roda fn numa transação de escrita e confirma.
	write := func(fn func(tx repositories.GraphTx)) {
		GinkgoHelper()
		tx, err := store.Begin(ctx, repositories.TxOptions{})
		Expect(err).NotTo(HaveOccurred())
		defer tx.Rollback(ctx)

		fn(tx)
		Expect(tx.Commit(ctx)).To(Succeed())
	}

	read := func(fn func(tx repositories.GraphTx)) {
		GinkgoHelper()
		tx, err := store.Begin(ctx, repositories.TxOptions{ReadOnly: true})
		Expect(err).NotTo(HaveOccurred())
		defer tx.Rollback(ctx)

		fn(tx)
	}

	findAll := func(tx repositories.GraphTx, label domain.Label, conditions ...repositories.FindCondition) []domain.GraphNode {
		GinkgoHelper()
		rows, err := tx.FindNodes(ctx, label, conditions...)
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()

		var nodes []domain.GraphNode
		for rows.Next() {
			nodes = append(nodes, rows.Node())
		}
		Expect(rows.Err()).NotTo(HaveOccurred())
		return nodes
	}

	Context("nodes", func() {
		When("creating a node", func() {
			It("assigns an internal id and keeps key and properties", func() {
				// ARRANGE
				node := stubs.NewGraphNodeStub().
					WithKey("600").
					WithProperties(map[string]interface{}{"id": "600", "title": "Die Hard"}).
					Get()

				// ACT
				write(func(tx repositories.GraphTx) {
					Expect(tx.CreateNode(ctx, node)).To(Succeed())
				})

				// ASSERT
				Expect(node.ID).NotTo(BeZero())
				read(func(tx repositories.GraphTx) {
					found, ok, err := repositories.NodeByKey(ctx, tx, domain.LabelMovie, "600")
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(BeTrue())
					Expect(found).To(BeComparableTo(*node, comparer.GraphNodeOptions()))
				})
			})

			It("fails with ErrDuplicateKey when the key already exists under the label", func() {
				// ARRANGE
				write(func(tx repositories.GraphTx) {
					Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("600").Get())).To(Succeed())
				})

				// ACT
				tx, err := store.Begin(ctx, repositories.TxOptions{})
				Expect(err).NotTo(HaveOccurred())
				defer tx.Rollback(ctx)
				err = tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("600").Get())

				// ASSERT
				Expect(err).To(MatchError(domain.ErrDuplicateKey))
			})

			It("accepts the same key under another label", func() {
				// ACT
				write(func(tx repositories.GraphTx) {
					Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithLabel(domain.LabelActor).WithKey("1").Get())).To(Succeed())
					Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithLabel(domain.LabelDirector).WithKey("1").Get())).To(Succeed())
				})

				// ASSERT
				read(func(tx repositories.GraphTx) {
					Expect(findAll(tx, domain.LabelActor)).To(HaveLen(1))
					Expect(findAll(tx, domain.LabelDirector)).To(HaveLen(1))
				})
			})
		})

		When("merging a node", func() {
			It("creates it the first time and updates properties afterwards", func() {
				// ARRANGE
				first := stubs.NewGraphNodeStub().WithKey("603").
					WithProperties(map[string]interface{}{"id": "603", "title": "Matrix"}).Get()
				second := stubs.NewGraphNodeStub().WithKey("603").
					WithProperties(map[string]interface{}{"id": "603", "title": "The Matrix"}).Get()

				// ACT
				var created, createdAgain bool
				write(func(tx repositories.GraphTx) {
					var err error
					created, err = tx.MergeNode(ctx, first)
					Expect(err).NotTo(HaveOccurred())
				})
				write(func(tx repositories.GraphTx) {
					var err error
					createdAgain, err = tx.MergeNode(ctx, second)
					Expect(err).NotTo(HaveOccurred())
				})

				// ASSERT
				Expect(created).To(BeTrue())
				Expect(createdAgain).To(BeFalse())
				Expect(second.ID).To(Equal(first.ID))
				read(func(tx repositories.GraphTx) {
					nodes := findAll(tx, domain.LabelMovie)
					Expect(nodes).To(HaveLen(1))
					Expect(nodes[0].Properties).To(MatchJSON(`{"id": "603", "title": "The Matrix"}`))
				})
			})

			It("merges a batch and fills every id", func() {
				// ARRANGE
				write(func(tx repositories.GraphTx) {
					Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("a").Get())).To(Succeed())
				})
				batch := []*domain.GraphNode{
					stubs.NewGraphNodeStub().WithKey("a").Get(),
					stubs.NewGraphNodeStub().WithKey("b").Get(),
					stubs.NewGraphNodeStub().WithLabel(domain.LabelUser).WithKey("a").Get(),
				}

				// ACT
				write(func(tx repositories.GraphTx) {
					Expect(tx.MergeNodes(ctx, batch)).To(Succeed())
				})

				// ASSERT
				for _, node := range batch {
					Expect(node.ID).NotTo(BeZero())
				}
				Expect(batch[0].ID).NotTo(Equal(batch[2].ID))
				read(func(tx repositories.GraphTx) {
					Expect(findAll(tx, domain.LabelMovie)).To(HaveLen(2))
					Expect(findAll(tx, domain.LabelUser)).To(HaveLen(1))
				})
			})
		})

		When("deleting a node", func() {
			It("removes its relationships too", func() {
				// ARRANGE
				actor := stubs.NewGraphNodeStub().WithLabel(domain.LabelActor).WithKey("6384").Get()
				movie := stubs.NewGraphNodeStub().WithKey("603").Get()
				write(func(tx repositories.GraphTx) {
					Expect(tx.CreateNode(ctx, actor)).To(Succeed())
					Expect(tx.CreateNode(ctx, movie)).To(Succeed())
					_, err := tx.CreateEdge(ctx, stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID).Get())
					Expect(err).NotTo(HaveOccurred())
				})

				// ACT
				var deleted, deletedAgain bool
				write(func(tx repositories.GraphTx) {
					var err error
					deleted, err = tx.DeleteNode(ctx, domain.LabelActor, "6384")
					Expect(err).NotTo(HaveOccurred())
					deletedAgain, err = tx.DeleteNode(ctx, domain.LabelActor, "6384")
					Expect(err).NotTo(HaveOccurred())
				})

				// ASSERT
				Expect(deleted).To(BeTrue())
				Expect(deletedAgain).To(BeFalse())
				read(func(tx repositories.GraphTx) {
					edges, err := tx.EdgesOf(ctx, movie.ID)
					Expect(err).NotTo(HaveOccurred())
					Expect(edges).To(BeEmpty())
				})
			})
		})
	})

	Context("edges", func() {
		var actor, movie *domain.GraphNode

		BeforeEach(func() {
			actor = stubs.NewGraphNodeStub().WithLabel(domain.LabelActor).WithKey("6384").Get()
			movie = stubs.NewGraphNodeStub().WithKey("603").Get()
			write(func(tx repositories.GraphTx) {
				Expect(tx.CreateNode(ctx, actor)).To(Succeed())
				Expect(tx.CreateNode(ctx, movie)).To(Succeed())
			})
		})

		It("creates an edge once per identity", func() {
			// ARRANGE
			neo := stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID).WithIdentity("Neo").
				WithProperties(map[string]interface{}{"name": "Neo"})
			thomas := stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID).WithIdentity("Thomas Anderson").
				WithProperties(map[string]interface{}{"name": "Thomas Anderson"})

			// ACT
			var first, again, other *domain.GraphEdge
			var created []bool
			write(func(tx repositories.GraphTx) {
				first, again, other = neo.Get(), neo.Get(), thomas.Get()
				for _, edge := range []*domain.GraphEdge{first, again, other} {
					ok, err := tx.CreateEdge(ctx, edge)
					Expect(err).NotTo(HaveOccurred())
					created = append(created, ok)
				}
			})

			// ASSERT
			Expect(created).To(Equal([]bool{true, false, true}))
			Expect(again.ID).To(Equal(first.ID))
			read(func(tx repositories.GraphTx) {
				edges, err := tx.EdgesOf(ctx, actor.ID, domain.RelActsIn)
				Expect(err).NotTo(HaveOccurred())
				Expect(edges).To(HaveLen(2))
				Expect(edges).To(ContainElement(BeComparableTo(*neo.Get(), comparer.GraphEdgeOptions())))
			})
		})

		It("returns edges in both directions and filters by type", func() {
			// ARRANGE
			director := stubs.NewGraphNodeStub().WithLabel(domain.LabelDirector).WithKey("9340").Get()
			write(func(tx repositories.GraphTx) {
				Expect(tx.CreateNode(ctx, director)).To(Succeed())
				_, err := tx.CreateEdge(ctx, stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID).Get())
				Expect(err).NotTo(HaveOccurred())
				_, err = tx.CreateEdge(ctx, stubs.NewGraphEdgeStub().Between(director.ID, movie.ID).
					WithType(domain.RelDirected).WithIdentity("").WithProperties(nil).Get())
				Expect(err).NotTo(HaveOccurred())
			})

			// ACT & ASSERT
			read(func(tx repositories.GraphTx) {
				all, err := tx.EdgesOf(ctx, movie.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(2))

				directed, err := tx.EdgesOf(ctx, movie.ID, domain.RelDirected)
				Expect(err).NotTo(HaveOccurred())
				Expect(directed).To(HaveLen(1))
				Expect(directed[0].StartID).To(Equal(director.ID))
				Expect(directed[0].Other(movie.ID)).To(Equal(director.ID))
			})
		})

		It("deletes an edge by its fact", func() {
			// ARRANGE
			edge := stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID).WithIdentity("Neo")
			write(func(tx repositories.GraphTx) {
				_, err := tx.CreateEdge(ctx, edge.Get())
				Expect(err).NotTo(HaveOccurred())
			})

			// ACT
			var removed, removedAgain bool
			write(func(tx repositories.GraphTx) {
				var err error
				removed, err = tx.DeleteEdge(ctx, *edge.Get())
				Expect(err).NotTo(HaveOccurred())
				removedAgain, err = tx.DeleteEdge(ctx, *edge.Get())
				Expect(err).NotTo(HaveOccurred())
			})

			// ASSERT
			Expect(removed).To(BeTrue())
			Expect(removedAgain).To(BeFalse())
		})

		It("fails with ErrEntityNotFound when an endpoint does not exist", func() {
			// ACT
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			defer tx.Rollback(ctx)
			_, err = tx.CreateEdge(ctx, stubs.NewGraphEdgeStub().Between(actor.ID, movie.ID+1000).Get())

			// ASSERT
			Expect(err).To(MatchError(domain.ErrEntityNotFound))
		})
	})

	Context("finding nodes", func() {
		BeforeEach(func() {
			write(func(tx repositories.GraphTx) {
				Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("600").
					WithProperties(map[string]interface{}{"id": "600", "title": "Die Hard", "year": 1988}).Get())).To(Succeed())
				Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("603").
					WithProperties(map[string]interface{}{"id": "603", "title": "The Matrix", "year": 1999}).Get())).To(Succeed())
				Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithLabel(domain.LabelUser).WithKey("micha").
					WithProperties(map[string]interface{}{"login": "micha", "title": "The Matrix", "roles": []string{"ROLE_ADMIN", "ROLE_USER"}}).Get())).To(Succeed())
			})
		})

		It("scans only the requested label", func() {
			read(func(tx repositories.GraphTx) {
				nodes := findAll(tx, domain.LabelMovie, repositories.FindCondition{Field: "title", Operator: repositories.OpContains, Value: "The Matrix"})
				Expect(nodes).To(HaveLen(1))
				Expect(nodes[0].Key).To(Equal("603"))
			})
		})

		It("filters by natural key", func() {
			read(func(tx repositories.GraphTx) {
				nodes := findAll(tx, domain.LabelMovie, repositories.FindCondition{Field: "key", Operator: repositories.OpEquals, Value: "600"})
				Expect(nodes).To(HaveLen(1))
				Expect(nodes[0].Properties).To(MatchJSON(`{"id": "600", "title": "Die Hard", "year": 1988}`))
			})
		})

		It("compares numbers by value", func() {
			read(func(tx repositories.GraphTx) {
				nodes := findAll(tx, domain.LabelMovie, repositories.FindCondition{Field: "year", Operator: repositories.OpContains, Value: int64(1999)})
				Expect(nodes).To(HaveLen(1))
				Expect(nodes[0].Key).To(Equal("603"))
			})
		})

		It("matches list properties by containment", func() {
			read(func(tx repositories.GraphTx) {
				admins := findAll(tx, domain.LabelUser, repositories.FindCondition{Field: "roles", Operator: repositories.OpContains, Value: []interface{}{"ROLE_ADMIN"}})
				Expect(admins).To(HaveLen(1))

				none := findAll(tx, domain.LabelUser, repositories.FindCondition{Field: "roles", Operator: repositories.OpContains, Value: []interface{}{"ROLE_GUEST"}})
				Expect(none).To(BeEmpty())
			})
		})

		It("returns nothing for an unknown value", func() {
			read(func(tx repositories.GraphTx) {
				Expect(findAll(tx, domain.LabelMovie, repositories.FindCondition{Field: "title", Operator: repositories.OpContains, Value: "Alien"})).To(BeEmpty())
			})
		})

		It("loads nodes by internal id", func() {
			read(func(tx repositories.GraphTx) {
				movies := findAll(tx, domain.LabelMovie)
				Expect(movies).To(HaveLen(2))

				nodes, err := tx.NodesByIDs(ctx, []int64{movies[0].ID, movies[1].ID, movies[1].ID + 1000})
				Expect(err).NotTo(HaveOccurred())
				Expect(nodes).To(HaveLen(2))
			})
		})
	})

	Context("transactions", func() {
		It("discards writes on rollback", func() {
			// ARRANGE
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("600").Get())).To(Succeed())

			// ACT
			Expect(tx.Rollback(ctx)).To(Succeed())

			// ASSERT
			read(func(tx repositories.GraphTx) {
				Expect(findAll(tx, domain.LabelMovie)).To(BeEmpty())
			})
		})

		It("treats rollback after commit as a no-op", func() {
			tx, err := store.Begin(ctx, repositories.TxOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tx.CreateNode(ctx, stubs.NewGraphNodeStub().WithKey("600").Get())).To(Succeed())
			Expect(tx.Commit(ctx)).To(Succeed())

			Expect(tx.Rollback(ctx)).To(Succeed())
			read(func(tx repositories.GraphTx) {
				Expect(findAll(tx, domain.LabelMovie)).To(HaveLen(1))
			})
		})

		It("purges the whole graph", func() {
			// ARRANGE
			write(func(tx repositories.GraphTx) {
				a := stubs.NewGraphNodeStub().WithLabel(domain.LabelUser).WithKey("a").Get()
				b := stubs.NewGraphNodeStub().WithLabel(domain.LabelUser).WithKey("b").Get()
				Expect(tx.CreateNode(ctx, a)).To(Succeed())
				Expect(tx.CreateNode(ctx, b)).To(Succeed())
				_, err := tx.CreateEdge(ctx, stubs.NewGraphEdgeStub().Between(a.ID, b.ID).
					WithType(domain.RelFriendOf).WithIdentity("").WithProperties(nil).Get())
				Expect(err).NotTo(HaveOccurred())
			})

			// ACT
			write(func(tx repositories.GraphTx) {
				Expect(tx.Purge(ctx)).To(Succeed())
			})

			// ASSERT
			read(func(tx repositories.GraphTx) {
				Expect(findAll(tx, domain.LabelUser)).To(BeEmpty())
			})
		})
	})
}
