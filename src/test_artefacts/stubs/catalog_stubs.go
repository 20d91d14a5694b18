package stubs

import (
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

// MovieImportStub monta um filme com elenco e diretores para ImportMovies.
type MovieImportStub struct {
	movie domain.MovieImport
}

func NewMovieImportStub() MovieImportStub {
	return MovieImportStub{movie: domain.MovieImport{
		ID:    fmt.Sprintf("%d", gofakeit.Number(1, 99999999)),
		Title: gofakeit.MovieName(),
	}}
}

func (ms MovieImportStub) WithID(id string) MovieImportStub {
	ms.movie.ID = id
	return ms
}

func (ms MovieImportStub) WithTitle(title string) MovieImportStub {
	ms.movie.Title = title
	return ms
}

func (ms MovieImportStub) WithCast(actorID, name, role string) MovieImportStub {
	ms.movie.Cast = append(ms.movie.Cast, domain.CastMember{ActorID: actorID, Name: name, Role: role})
	return ms
}

func (ms MovieImportStub) WithDirector(id, name string) MovieImportStub {
	ms.movie.Directors = append(ms.movie.Directors, domain.PersonImport{ID: id, Name: name})
	return ms
}

func (ms MovieImportStub) Get() domain.MovieImport {
	movie := ms.movie
	movie.Cast = append([]domain.CastMember(nil), ms.movie.Cast...)
	movie.Directors = append([]domain.PersonImport(nil), ms.movie.Directors...)
	return movie
}

func NewActor() *entities.Actor {
	actor, err := entities.NewActor(gofakeit.UUID(), gofakeit.Name())
	if err != nil {
		panic(err)
	}
	return actor
}

func NewDirector() *entities.Director {
	director, err := entities.NewDirector(gofakeit.UUID(), gofakeit.Name())
	if err != nil {
		panic(err)
	}
	return director
}

func NewMovie() *entities.Movie {
	movie, err := entities.NewMovie(gofakeit.UUID(), gofakeit.MovieName())
	if err != nil {
		panic(err)
	}
	return movie
}

// NewUser usa um login único; a senha é "secret".
func NewUser(roles ...domain.SecurityRole) *entities.User {
	user, err := entities.NewUser(gofakeit.Username()+gofakeit.DigitN(6), gofakeit.Name(), "secret", roles...)
	if err != nil {
		panic(err)
	}
	return user
}
