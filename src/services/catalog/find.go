package catalog

import (
	"context"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/ogm"
)

// find abre uma sessão que vive até o cursor ser fechado ou consumido.
func find[T any](ctx context.Context, c *Catalog, operation string, query func(session *ogm.Session) (*ogm.Results[T], error)) (*ogm.Results[T], error) {
	session := ogm.NewSession(c.store)

	results, err := query(session)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("Catalog.%s - %w", operation, err)
	}

	return results.OnClose(func() {
		if err := session.Close(ctx); err != nil {
			c.logger.Warn("Failed to release read transaction", "operation", operation, "error", err)
		}
	}), nil
}

func (c *Catalog) FindActorsByProperty(ctx context.Context, property string, value interface{}) (*ogm.Results[*entities.Actor], error) {
	return find(ctx, c, "FindActorsByProperty", func(session *ogm.Session) (*ogm.Results[*entities.Actor], error) {
		return ogm.FindByProperty[entities.Actor](ctx, session, property, value)
	})
}

func (c *Catalog) FindDirectorsByProperty(ctx context.Context, property string, value interface{}) (*ogm.Results[*entities.Director], error) {
	return find(ctx, c, "FindDirectorsByProperty", func(session *ogm.Session) (*ogm.Results[*entities.Director], error) {
		return ogm.FindByProperty[entities.Director](ctx, session, property, value)
	})
}

func (c *Catalog) FindMoviesByProperty(ctx context.Context, property string, value interface{}) (*ogm.Results[*entities.Movie], error) {
	return find(ctx, c, "FindMoviesByProperty", func(session *ogm.Session) (*ogm.Results[*entities.Movie], error) {
		return ogm.FindByProperty[entities.Movie](ctx, session, property, value)
	})
}

func (c *Catalog) FindUsersByProperty(ctx context.Context, property string, value interface{}) (*ogm.Results[*entities.User], error) {
	return find(ctx, c, "FindUsersByProperty", func(session *ogm.Session) (*ogm.Results[*entities.User], error) {
		return ogm.FindByProperty[entities.User](ctx, session, property, value)
	})
}

// FindByTitleLike casa o título inteiro contra pattern (regexp, "(?i)" para
// ignorar caixa). Ex: "(?i).*matrix.*".
func (c *Catalog) FindByTitleLike(ctx context.Context, pattern string) (*ogm.Results[*entities.Movie], error) {
	return find(ctx, c, "FindByTitleLike", func(session *ogm.Session) (*ogm.Results[*entities.Movie], error) {
		return ogm.FindMatching[entities.Movie](ctx, session, "title", pattern)
	})
}

func (c *Catalog) GetMovie(ctx context.Context, id string) (*entities.Movie, error) {
	return get[entities.Movie](ctx, c, "GetMovie", id)
}

func (c *Catalog) GetActor(ctx context.Context, id string) (*entities.Actor, error) {
	return get[entities.Actor](ctx, c, "GetActor", id)
}

func (c *Catalog) GetDirector(ctx context.Context, id string) (*entities.Director, error) {
	return get[entities.Director](ctx, c, "GetDirector", id)
}

func (c *Catalog) GetUser(ctx context.Context, login string) (*entities.User, error) {
	return get[entities.User](ctx, c, "GetUser", login)
}

func get[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, c *Catalog, operation string, key string) (PT, error) {
	var node PT
	err := c.read(ctx, operation, func(session *ogm.Session) error {
		var err error
		node, err = ogm.Get[T, PT](ctx, session, key)
		return err
	})
	return node, err
}

// FindUsersRatingForMovie devolve a avaliação do usuário para o filme.
func (c *Catalog) FindUsersRatingForMovie(ctx context.Context, movieID, login string) (entities.Rating, error) {
	user, err := c.GetUser(ctx, login)
	if err != nil {
		return entities.Rating{}, err
	}

	rating, ok := user.RatingFor(movieID)
	if !ok {
		return entities.Rating{}, fmt.Errorf("Catalog.FindUsersRatingForMovie - %s has not rated %s: %w", login, movieID, domain.ErrEntityNotFound)
	}
	return rating, nil
}
