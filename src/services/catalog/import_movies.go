package catalog

import (
	"context"
	"errors"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/ogm"
)

// ImportMovies grava um lote de filmes com elenco e diretores numa única
// transação. Nós existentes têm os atributos atualizados; roles e direções
// já presentes não são duplicados, então reimportar o mesmo lote não muda
// nada.
func (c *Catalog) ImportMovies(ctx context.Context, movies []domain.MovieImport) (domain.ImportSummary, error) {
	var summary domain.ImportSummary
	if len(movies) == 0 {
		return summary, nil
	}

	events, err := c.write(ctx, "ImportMovies", func(session *ogm.Session) error {
		for _, imported := range movies {
			if err := importMovie(ctx, session, imported); err != nil {
				return fmt.Errorf("movie %q: %w", imported.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	summary.Movies = len(movies)
	summary.Events = len(events)
	for _, event := range events {
		if event.EventType == domain.EventRelationshipCreated {
			summary.Relationships++
		}
	}
	return summary, nil
}

func importMovie(ctx context.Context, session *ogm.Session, imported domain.MovieImport) error {
	movie, err := loadOrSave(ctx, session, imported.ID, func() (*entities.Movie, error) {
		return entities.NewMovie(imported.ID, imported.Title)
	})
	if err != nil {
		return err
	}
	if imported.Title != "" && imported.Title != movie.Title {
		movie.Title = imported.Title
		if err := session.Save(movie); err != nil {
			return err
		}
	}

	for _, member := range imported.Cast {
		actor, err := loadOrSave(ctx, session, member.ActorID, func() (*entities.Actor, error) {
			return entities.NewActor(member.ActorID, member.Name)
		})
		if err != nil {
			return err
		}
		if _, err := session.PlayedIn(actor, movie, member.Role); err != nil {
			return err
		}
	}

	for _, person := range imported.Directors {
		director, err := loadOrSave(ctx, session, person.ID, func() (*entities.Director, error) {
			return entities.NewDirector(person.ID, person.Name)
		})
		if err != nil {
			return err
		}
		if _, err := session.Directed(director, movie); err != nil {
			return err
		}
	}
	return nil
}

// loadOrSave devolve o nó da sessão/store ou passa a acompanhar um novo.
func loadOrSave[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, session *ogm.Session, key string, build func() (PT, error)) (PT, error) {
	node, err := ogm.Get[T, PT](ctx, session, key)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, domain.ErrEntityNotFound) {
		return nil, err
	}

	node, err = build()
	if err != nil {
		return nil, err
	}
	if err := session.Save(node); err != nil {
		return nil, err
	}
	return node, nil
}
