package ogm_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/infra/memgraph"
	"cineasts/src/ogm"
	"cineasts/src/test_artefacts/comparer"
	"cineasts/src/test_artefacts/stubs"
)

var _ = Describe("Session", func() {
	var (
		ctx   context.Context
		store *memgraph.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memgraph.NewStore()
	})

	// seed grava os nós numa session própria.
	seed := func(nodes ...entities.Node) {
		GinkgoHelper()
		session := ogm.NewSession(store)
		defer session.Close(ctx)
		for _, node := range nodes {
			Expect(session.Create(node)).To(Succeed())
		}
		_, err := session.Flush(ctx)
		Expect(err).NotTo(HaveOccurred())
	}

	Context("Flush", func() {
		It("creates new nodes and reports node_created", func() {
			// ARRANGE
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			movie, _ := entities.NewMovie("603", "The Matrix")
			Expect(session.Create(movie)).To(Succeed())

			// ACT
			events, err := session.Flush(ctx)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(movie.NodeID).NotTo(BeZero())
			expected := []domain.DomainEvent{{
				EventType:  domain.EventNodeCreated,
				OccurredAt: time.Now().UTC(),
				Data: domain.DomainEventData{
					Label:      domain.LabelMovie,
					Key:        "603",
					Properties: []byte(`{"id": "603", "title": "The Matrix"}`),
				},
			}}
			Expect(events).To(BeComparableTo(expected, comparer.DomainEventOptions(1000)))
			Expect(events[0].EventID).NotTo(BeEmpty())
		})

		It("returns nothing when there is no work", func() {
			session := ogm.NewSession(store)
			defer session.Close(ctx)

			events, err := session.Flush(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeNil())
			Expect(session.Pending()).To(BeFalse())
		})

		It("fails with ErrDuplicateKey and applies nothing when a created key exists", func() {
			// ARRANGE
			existing, _ := entities.NewMovie("603", "The Matrix")
			seed(existing)

			session := ogm.NewSession(store)
			defer session.Close(ctx)
			duplicate, _ := entities.NewMovie("603", "Matrix")
			other, _ := entities.NewMovie("604", "The Matrix Reloaded")
			Expect(session.Create(other)).To(Succeed())
			Expect(session.Create(duplicate)).To(Succeed())

			// ACT
			_, err := session.Flush(ctx)

			// ASSERT
			Expect(err).To(MatchError(domain.ErrDuplicateKey))
			Expect(session.Pending()).To(BeTrue())

			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			_, err = ogm.Get[entities.Movie](ctx, reader, "604")
			Expect(err).To(MatchError(domain.ErrEntityNotFound))
		})

		It("does not write a password in node events", func() {
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			user, _ := entities.NewUser("micha", "Michael", "secret", domain.RoleUser)
			Expect(session.Create(user)).To(Succeed())

			events, err := session.Flush(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(string(events[0].Data.Properties)).NotTo(ContainSubstring("password"))
			Expect(events[0].Data.Properties).To(MatchJSON(`{"login": "micha", "name": "Michael", "roles": ["ROLE_USER"]}`))
		})

		It("updates properties of saved nodes", func() {
			// ARRANGE
			movie, _ := entities.NewMovie("603", "Matrix")
			seed(movie)

			// ACT
			session := ogm.NewSession(store)
			loaded, err := ogm.Get[entities.Movie](ctx, session, "603")
			Expect(err).NotTo(HaveOccurred())
			loaded.Title = "The Matrix"
			Expect(session.Save(loaded)).To(Succeed())
			_, err = session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Close(ctx)).To(Succeed())

			// ASSERT
			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloaded, err := ogm.Get[entities.Movie](ctx, reader, "603")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Title).To(Equal("The Matrix"))
		})
	})

	Context("identity map", func() {
		It("returns the same instance for the same key", func() {
			// ARRANGE
			movie, _ := entities.NewMovie("603", "The Matrix")
			seed(movie)
			session := ogm.NewSession(store)
			defer session.Close(ctx)

			// ACT
			first, err := ogm.Get[entities.Movie](ctx, session, "603")
			Expect(err).NotTo(HaveOccurred())
			second, err := ogm.Get[entities.Movie](ctx, session, "603")
			Expect(err).NotTo(HaveOccurred())

			// ASSERT
			Expect(second).To(BeIdenticalTo(first))
		})

		It("keeps actor and director with the same key apart", func() {
			// ARRANGE
			actor, _ := entities.NewActor("1", "Clint Eastwood")
			director, _ := entities.NewDirector("1", "Clint Eastwood")
			seed(actor, director)
			session := ogm.NewSession(store)
			defer session.Close(ctx)

			// ACT
			loadedActor, err := ogm.Get[entities.Actor](ctx, session, "1")
			Expect(err).NotTo(HaveOccurred())
			loadedDirector, err := ogm.Get[entities.Director](ctx, session, "1")
			Expect(err).NotTo(HaveOccurred())

			// ASSERT
			Expect(loadedActor.Label()).To(Equal(domain.LabelActor))
			Expect(loadedDirector.Label()).To(Equal(domain.LabelDirector))
			Expect(loadedActor.NodeID).NotTo(Equal(loadedDirector.NodeID))
		})

		It("rejects a second instance with different attributes", func() {
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			first, _ := entities.NewMovie("603", "The Matrix")
			second, _ := entities.NewMovie("603", "Matrix")
			Expect(session.Save(first)).To(Succeed())

			err := session.Save(second)

			Expect(err).To(MatchError(domain.ErrDuplicateKey))
		})

		It("accepts an equal instance", func() {
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			first, _ := entities.NewMovie("603", "The Matrix")
			second, _ := entities.NewMovie("603", "The Matrix")
			Expect(session.Save(first)).To(Succeed())

			Expect(session.Save(second)).To(Succeed())
		})

		It("fails with ErrEntityNotFound for an unknown key", func() {
			session := ogm.NewSession(store)
			defer session.Close(ctx)

			_, err := ogm.Get[entities.User](ctx, session, "nobody")

			Expect(err).To(MatchError(domain.ErrEntityNotFound))
		})
	})

	Context("relationships", func() {
		var (
			actor *entities.Actor
			movie *entities.Movie
		)

		BeforeEach(func() {
			actor, _ = entities.NewActor("6384", "Keanu Reeves")
			movie, _ = entities.NewMovie("603", "The Matrix")
			seed(actor, movie)
		})

		It("persists a role and hydrates it from both sides", func() {
			// ARRANGE
			session := ogm.NewSession(store)
			loadedActor, err := ogm.Get[entities.Actor](ctx, session, "6384")
			Expect(err).NotTo(HaveOccurred())
			loadedMovie, err := ogm.Get[entities.Movie](ctx, session, "603")
			Expect(err).NotTo(HaveOccurred())

			// ACT
			_, err = session.PlayedIn(loadedActor, loadedMovie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			events, err := session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Close(ctx)).To(Succeed())

			// ASSERT
			expected := []domain.DomainEvent{{
				EventType:  domain.EventRelationshipCreated,
				OccurredAt: time.Now().UTC(),
				Data: domain.DomainEventData{
					RelationshipType: domain.RelActsIn,
					StartKey:         "6384",
					EndKey:           "603",
					Properties:       []byte(`{"name": "Neo"}`),
				},
			}}
			Expect(events).To(BeComparableTo(expected, comparer.DomainEventOptions(1000)))
			Expect(loadedActor.Roles[0].EdgeID).NotTo(BeZero())
			Expect(loadedMovie.Roles[0].EdgeID).To(Equal(loadedActor.Roles[0].EdgeID))

			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloaded, err := ogm.Get[entities.Movie](ctx, reader, "603")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Roles).To(BeComparableTo([]entities.Role{{ActorID: "6384", MovieID: "603", Name: "Neo"}}, comparer.EntityOptions()))
		})

		It("emits no event for a role that already exists", func() {
			// ARRANGE
			first := ogm.NewSession(store)
			a, _ := ogm.Get[entities.Actor](ctx, first, "6384")
			m, _ := ogm.Get[entities.Movie](ctx, first, "603")
			_, err := first.PlayedIn(a, m, "Neo")
			Expect(err).NotTo(HaveOccurred())
			_, err = first.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Close(ctx)).To(Succeed())

			// ACT
			second := ogm.NewSession(store)
			defer second.Close(ctx)
			a, _ = ogm.Get[entities.Actor](ctx, second, "6384")
			m, _ = ogm.Get[entities.Movie](ctx, second, "603")
			role, err := second.PlayedIn(a, m, "Neo")
			Expect(err).NotTo(HaveOccurred())
			events, err := second.Flush(ctx)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
			Expect(role.EdgeID).NotTo(BeZero())
			Expect(m.Roles).To(HaveLen(1))
		})

		It("removes a role and reports relationship_removed", func() {
			// ARRANGE
			session := ogm.NewSession(store)
			_, err := session.PlayedIn(actor, movie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())

			// ACT
			removed, err := session.RemoveRole(actor, movie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			events, err := session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Close(ctx)).To(Succeed())

			// ASSERT
			Expect(removed).To(BeTrue())
			Expect(events).To(HaveLen(1))
			Expect(events[0].EventType).To(Equal(domain.EventRelationshipRemoved))

			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloaded, err := ogm.Get[entities.Actor](ctx, reader, "6384")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Roles).To(BeEmpty())
		})

		It("stores a friendship once and hydrates it on both users", func() {
			// ARRANGE
			micha, _ := entities.NewUser("micha", "Michael", "secret", domain.RoleUser)
			luanne, _ := entities.NewUser("luanne", "Luanne", "secret", domain.RoleUser)
			seed(micha, luanne)

			session := ogm.NewSession(store)
			m, _ := ogm.Get[entities.User](ctx, session, "micha")
			l, _ := ogm.Get[entities.User](ctx, session, "luanne")

			// ACT
			added, err := session.Befriend(m, l)
			Expect(err).NotTo(HaveOccurred())
			events, err := session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Close(ctx)).To(Succeed())

			// ASSERT
			Expect(added).To(BeTrue())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data.StartKey).To(Equal("luanne"))
			Expect(events[0].Data.EndKey).To(Equal("micha"))

			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloadedMicha, _ := ogm.Get[entities.User](ctx, reader, "micha")
			reloadedLuanne, _ := ogm.Get[entities.User](ctx, reader, "luanne")
			Expect(reloadedMicha.Friends).To(Equal([]string{"luanne"}))
			Expect(reloadedLuanne.Friends).To(Equal([]string{"micha"}))
		})

		It("rejects a relationship whose endpoint was deleted in the same session", func() {
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			_, err := session.PlayedIn(actor, movie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			session.Delete(domain.LabelMovie, "603")

			_, err = session.Flush(ctx)

			Expect(err).To(MatchError(domain.ErrEntityNotFound))
		})
	})

	Context("Delete and Purge", func() {
		It("deletes the node with its relationships", func() {
			// ARRANGE
			actor, _ := entities.NewActor("6384", "Keanu Reeves")
			movie, _ := entities.NewMovie("603", "The Matrix")
			session := ogm.NewSession(store)
			_, err := session.PlayedIn(actor, movie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())

			// ACT
			session.Delete(domain.LabelActor, "6384")
			events, err := session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Close(ctx)).To(Succeed())

			// ASSERT
			Expect(events).To(HaveLen(1))
			Expect(events[0].EventType).To(Equal(domain.EventNodeDeleted))
			Expect(events[0].Data.Key).To(Equal("6384"))

			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloaded, err := ogm.Get[entities.Movie](ctx, reader, "603")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Roles).To(BeEmpty())
		})

		It("purges the graph and forgets tracked nodes", func() {
			// ARRANGE
			movie, _ := entities.NewMovie("603", "The Matrix")
			seed(movie)
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			_, err := ogm.Get[entities.Movie](ctx, session, "603")
			Expect(err).NotTo(HaveOccurred())

			// ACT
			event, err := session.Purge(ctx)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(event.EventType).To(Equal(domain.EventGraphPurged))
			_, err = ogm.Get[entities.Movie](ctx, session, "603")
			Expect(err).To(MatchError(domain.ErrEntityNotFound))
		})
	})

	Context("concurrent units of work", func() {
		It("fails instead of recreating an endpoint deleted by another session", func() {
			// ARRANGE
			actor, _ := entities.NewActor("1", "Bruce Willis")
			movie, _ := entities.NewMovie("600", "Die Hard")
			seed(actor, movie)

			session := ogm.NewSession(store)
			defer session.Close(ctx)
			loadedActor, err := ogm.Get[entities.Actor](ctx, session, "1")
			Expect(err).NotTo(HaveOccurred())
			loadedMovie, err := ogm.Get[entities.Movie](ctx, session, "600")
			Expect(err).NotTo(HaveOccurred())

			other := ogm.NewSession(store)
			other.Delete(domain.LabelMovie, "600")
			_, err = other.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(other.Close(ctx)).To(Succeed())

			// ACT
			_, err = session.PlayedIn(loadedActor, loadedMovie, "John McClane")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.Flush(ctx)

			// ASSERT
			Expect(err).To(MatchError(domain.ErrEntityNotFound))
			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			_, err = ogm.Get[entities.Movie](ctx, reader, "600")
			Expect(err).To(MatchError(domain.ErrEntityNotFound))
		})

		It("keeps attribute changes committed by another session", func() {
			// ARRANGE
			user, _ := entities.NewUser("micha", "Michael", "secret", domain.RoleUser)
			movie, _ := entities.NewMovie("600", "Die Hard")
			seed(user, movie)

			session := ogm.NewSession(store)
			defer session.Close(ctx)
			loadedUser, err := ogm.Get[entities.User](ctx, session, "micha")
			Expect(err).NotTo(HaveOccurred())
			loadedMovie, err := ogm.Get[entities.Movie](ctx, session, "600")
			Expect(err).NotTo(HaveOccurred())

			other := ogm.NewSession(store)
			renamed, _ := entities.NewMovie("600", "Die Hard 2")
			Expect(other.Save(renamed)).To(Succeed())
			_, err = other.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(other.Close(ctx)).To(Succeed())

			// ACT
			_, err = session.Rate(loadedUser, loadedMovie, 5, "yippee")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.Flush(ctx)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloaded, err := ogm.Get[entities.Movie](ctx, reader, "600")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.Title).To(Equal("Die Hard 2"))
			Expect(reloaded.Ratings).To(HaveLen(1))
		})

		It("does not open a write transaction for read-only work", func() {
			movie, _ := entities.NewMovie("600", "Die Hard")
			seed(movie)
			session := ogm.NewSession(store)
			defer session.Close(ctx)
			_, err := ogm.Get[entities.Movie](ctx, session, "600")
			Expect(err).NotTo(HaveOccurred())

			events, err := session.Flush(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeNil())
			Expect(session.Pending()).To(BeFalse())
		})
	})

	Context("round trip", func() {
		It("reloads a movie with every kind of relationship", func() {
			// ARRANGE
			actor := stubs.NewActor()
			director := stubs.NewDirector()
			movie := stubs.NewMovie()
			user := stubs.NewUser(domain.RoleUser)
			session := ogm.NewSession(store)
			_, err := session.PlayedIn(actor, movie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			_, err = session.Directed(director, movie)
			Expect(err).NotTo(HaveOccurred())
			_, err = session.Rate(user, movie, 4, "good")
			Expect(err).NotTo(HaveOccurred())

			// ACT
			_, err = session.Flush(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Close(ctx)).To(Succeed())

			// ASSERT
			reader := ogm.NewSession(store)
			defer reader.Close(ctx)
			reloaded, err := ogm.Get[entities.Movie](ctx, reader, movie.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*reloaded).To(BeComparableTo(*movie, comparer.EntityOptions()))
		})
	})
})
