package entities_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
)

var _ = Describe("Actor", func() {
	var (
		actor *entities.Actor
		movie *entities.Movie
	)

	BeforeEach(func() {
		var err error
		actor, err = entities.NewActor("6384", "Keanu Reeves")
		Expect(err).NotTo(HaveOccurred())
		movie, err = entities.NewMovie("603", "The Matrix")
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires id and name", func() {
		_, err := entities.NewActor("", "Keanu Reeves")
		Expect(err).To(MatchError(domain.ErrValidation))

		_, err = entities.NewActor("6384", "")
		Expect(err).To(MatchError(domain.ErrValidation))
	})

	When("playing a role", func() {
		It("registers the role on both sides", func() {
			// ACT
			role, added, err := actor.PlayedIn(movie, "Neo")

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeTrue())
			Expect(role).To(Equal(entities.Role{ActorID: "6384", MovieID: "603", Name: "Neo"}))
			Expect(actor.Roles).To(ConsistOf(role))
			Expect(movie.Roles).To(ConsistOf(role))
			Expect(movie.Actors()).To(ConsistOf("6384"))
		})

		It("does not duplicate the same role", func() {
			// ARRANGE
			_, _, err := actor.PlayedIn(movie, "Neo")
			Expect(err).NotTo(HaveOccurred())

			// ACT
			_, added, err := movie.AddRole(actor, "Neo")

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(added).To(BeFalse())
			Expect(actor.Roles).To(HaveLen(1))
			Expect(movie.Roles).To(HaveLen(1))
		})

		It("keeps two different roles in the same movie", func() {
			_, _, err := actor.PlayedIn(movie, "Neo")
			Expect(err).NotTo(HaveOccurred())
			_, _, err = actor.PlayedIn(movie, "Thomas Anderson")
			Expect(err).NotTo(HaveOccurred())

			Expect(actor.Roles).To(HaveLen(2))
			Expect(movie.Actors()).To(Equal([]string{"6384"}))
		})

		It("rejects an empty role name", func() {
			_, _, err := actor.PlayedIn(movie, "")

			Expect(err).To(MatchError(domain.ErrValidation))
			Expect(actor.Roles).To(BeEmpty())
		})
	})

	When("removing a role", func() {
		It("removes it from both sides", func() {
			// ARRANGE
			_, _, err := actor.PlayedIn(movie, "Neo")
			Expect(err).NotTo(HaveOccurred())

			// ACT
			removed, ok := actor.RemoveRole(movie, "Neo")

			// ASSERT
			Expect(ok).To(BeTrue())
			Expect(removed.Name).To(Equal("Neo"))
			Expect(actor.Roles).To(BeEmpty())
			Expect(movie.Roles).To(BeEmpty())
		})

		It("reports false for an unknown role", func() {
			_, ok := actor.RemoveRole(movie, "Trinity")

			Expect(ok).To(BeFalse())
		})
	})

	It("finds its role in a movie", func() {
		_, _, err := actor.PlayedIn(movie, "Neo")
		Expect(err).NotTo(HaveOccurred())

		role, ok := actor.RoleIn("603")
		Expect(ok).To(BeTrue())
		Expect(role.Name).To(Equal("Neo"))

		_, ok = actor.RoleIn("604")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Director", func() {
	It("links director and movie on both sides once", func() {
		// ARRANGE
		director, err := entities.NewDirector("9340", "Lana Wachowski")
		Expect(err).NotTo(HaveOccurred())
		movie, err := entities.NewMovie("603", "The Matrix")
		Expect(err).NotTo(HaveOccurred())

		// ACT
		first := director.Directed(movie)
		second := movie.AddDirector(director)

		// ASSERT
		Expect(first).To(BeTrue())
		Expect(second).To(BeFalse())
		Expect(director.Movies).To(Equal([]string{"603"}))
		Expect(movie.Directors).To(Equal([]string{"9340"}))
		Expect(director.HasDirected("603")).To(BeTrue())
	})

	It("undoes the link", func() {
		director, _ := entities.NewDirector("9340", "Lana Wachowski")
		movie, _ := entities.NewMovie("603", "The Matrix")
		director.Directed(movie)

		Expect(director.Undirect(movie)).To(BeTrue())
		Expect(director.Undirect(movie)).To(BeFalse())
		Expect(movie.Directors).To(BeEmpty())
	})
})
