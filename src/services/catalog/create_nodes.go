package catalog

import (
	"context"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/ogm"
)

// CreateActor falha com domain.ErrDuplicateKey se o id já existe.
func (c *Catalog) CreateActor(ctx context.Context, id, name string) (*entities.Actor, error) {
	actor, err := entities.NewActor(id, name)
	if err != nil {
		return nil, err
	}

	_, err = c.write(ctx, "CreateActor", func(session *ogm.Session) error {
		return session.Create(actor)
	})
	if err != nil {
		return nil, err
	}
	return actor, nil
}

func (c *Catalog) CreateDirector(ctx context.Context, id, name string) (*entities.Director, error) {
	director, err := entities.NewDirector(id, name)
	if err != nil {
		return nil, err
	}

	_, err = c.write(ctx, "CreateDirector", func(session *ogm.Session) error {
		return session.Create(director)
	})
	if err != nil {
		return nil, err
	}
	return director, nil
}

func (c *Catalog) CreateMovie(ctx context.Context, id, title string) (*entities.Movie, error) {
	movie, err := entities.NewMovie(id, title)
	if err != nil {
		return nil, err
	}

	_, err = c.write(ctx, "CreateMovie", func(session *ogm.Session) error {
		return session.Create(movie)
	})
	if err != nil {
		return nil, err
	}
	return movie, nil
}

func (c *Catalog) CreateUser(ctx context.Context, login, name, password string, roles ...domain.SecurityRole) (*entities.User, error) {
	user, err := entities.NewUser(login, name, password, roles...)
	if err != nil {
		return nil, err
	}

	_, err = c.write(ctx, "CreateUser", func(session *ogm.Session) error {
		return session.Create(user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Register cria um usuário comum (ROLE_USER).
func (c *Catalog) Register(ctx context.Context, login, name, password string) (*entities.User, error) {
	return c.CreateUser(ctx, login, name, password, domain.RoleUser)
}
