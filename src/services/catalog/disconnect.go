package catalog

import (
	"context"

	"cineasts/src/domain/entities"
	"cineasts/src/ogm"
)

// RemoveRole apaga o role dos dois lados. Retorna false se não existia.
func (c *Catalog) RemoveRole(ctx context.Context, actorID, movieID, roleName string) (bool, error) {
	var removed bool
	_, err := c.write(ctx, "RemoveRole", func(session *ogm.Session) error {
		actor, err := ogm.Get[entities.Actor](ctx, session, actorID)
		if err != nil {
			return err
		}
		movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
		if err != nil {
			return err
		}
		removed, err = session.RemoveRole(actor, movie, roleName)
		return err
	})
	return removed, err
}

func (c *Catalog) RemoveDirected(ctx context.Context, directorID, movieID string) (bool, error) {
	var removed bool
	_, err := c.write(ctx, "RemoveDirected", func(session *ogm.Session) error {
		director, err := ogm.Get[entities.Director](ctx, session, directorID)
		if err != nil {
			return err
		}
		movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
		if err != nil {
			return err
		}
		removed, err = session.Undirect(director, movie)
		return err
	})
	return removed, err
}

func (c *Catalog) RemoveRating(ctx context.Context, login, movieID string, stars int, comment string) (bool, error) {
	var removed bool
	_, err := c.write(ctx, "RemoveRating", func(session *ogm.Session) error {
		user, err := ogm.Get[entities.User](ctx, session, login)
		if err != nil {
			return err
		}
		movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
		if err != nil {
			return err
		}
		removed, err = session.RemoveRating(user, movie, stars, comment)
		return err
	})
	return removed, err
}

func (c *Catalog) RemoveFriend(ctx context.Context, login, friendLogin string) (bool, error) {
	var removed bool
	_, err := c.write(ctx, "RemoveFriend", func(session *ogm.Session) error {
		user, err := ogm.Get[entities.User](ctx, session, login)
		if err != nil {
			return err
		}
		friend, err := ogm.Get[entities.User](ctx, session, friendLogin)
		if err != nil {
			return err
		}
		removed, err = session.Unfriend(user, friend)
		return err
	})
	return removed, err
}
