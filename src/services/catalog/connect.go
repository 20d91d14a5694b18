package catalog

import (
	"context"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/helper/validation"
	"cineasts/src/ogm"
)

// ConnectActorToMovie grava o role (ACTS_IN). Chamar de novo com os mesmos
// argumentos devolve o role existente sem criar outra aresta.
func (c *Catalog) ConnectActorToMovie(ctx context.Context, actorID, movieID, roleName string) (entities.Role, error) {
	if err := validation.ValidateVar("role", roleName, "required"); err != nil {
		return entities.Role{}, fmt.Errorf("Catalog.ConnectActorToMovie - %w", err)
	}

	var actor *entities.Actor
	var role entities.Role
	_, err := c.write(ctx, "ConnectActorToMovie", func(session *ogm.Session) error {
		var err error
		if actor, err = ogm.Get[entities.Actor](ctx, session, actorID); err != nil {
			return err
		}
		movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
		if err != nil {
			return err
		}
		role, err = session.PlayedIn(actor, movie, roleName)
		return err
	})
	if err != nil {
		return entities.Role{}, err
	}

	// depois do Flush o role do ator já tem o EdgeID
	for _, stored := range actor.Roles {
		if entities.SameRole(stored, role) {
			return stored, nil
		}
	}
	return role, nil
}

// ConnectDirectorToMovie é idempotente; retorna false se já estava ligado.
func (c *Catalog) ConnectDirectorToMovie(ctx context.Context, directorID, movieID string) (bool, error) {
	var added bool
	_, err := c.write(ctx, "ConnectDirectorToMovie", func(session *ogm.Session) error {
		director, err := ogm.Get[entities.Director](ctx, session, directorID)
		if err != nil {
			return err
		}
		movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
		if err != nil {
			return err
		}
		added, err = session.Directed(director, movie)
		return err
	})
	return added, err
}

func (c *Catalog) Rate(ctx context.Context, login, movieID string, stars int, comment string) (entities.Rating, error) {
	if err := validation.ValidateVar("stars", stars, fmt.Sprintf("min=%d,max=%d", domain.MinStars, domain.MaxStars)); err != nil {
		return entities.Rating{}, fmt.Errorf("Catalog.Rate - %w", err)
	}

	var user *entities.User
	var rating entities.Rating
	_, err := c.write(ctx, "Rate", func(session *ogm.Session) error {
		var err error
		if user, err = ogm.Get[entities.User](ctx, session, login); err != nil {
			return err
		}
		movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
		if err != nil {
			return err
		}
		rating, err = session.Rate(user, movie, stars, comment)
		return err
	})
	if err != nil {
		return entities.Rating{}, err
	}

	for _, stored := range user.Ratings {
		if entities.SameRating(stored, rating) {
			return stored, nil
		}
	}
	return rating, nil
}

// AddFriend liga os dois usuários; a amizade é simétrica.
func (c *Catalog) AddFriend(ctx context.Context, login, friendLogin string) (bool, error) {
	if login == friendLogin {
		return false, fmt.Errorf("Catalog.AddFriend - %w: a user cannot befriend itself", domain.ErrValidation)
	}

	var added bool
	_, err := c.write(ctx, "AddFriend", func(session *ogm.Session) error {
		user, err := ogm.Get[entities.User](ctx, session, login)
		if err != nil {
			return err
		}
		friend, err := ogm.Get[entities.User](ctx, session, friendLogin)
		if err != nil {
			return err
		}
		added, err = session.Befriend(user, friend)
		return err
	})
	return added, err
}

// AddFriendAsRequester adiciona friendLogin aos amigos do usuário corrente.
func (c *Catalog) AddFriendAsRequester(ctx context.Context, requester domain.Requester, friendLogin string) (bool, error) {
	if err := validation.ValidateVar("requester", requester.Login, "required"); err != nil {
		return false, fmt.Errorf("Catalog.AddFriendAsRequester - %w", err)
	}
	return c.AddFriend(ctx, requester.Login, friendLogin)
}
