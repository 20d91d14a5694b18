package catalog

import (
	"context"
	"sort"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/ogm"
)

// AverageStars devolve a média das estrelas do filme. ok é false quando o
// filme ainda não foi avaliado.
func (c *Catalog) AverageStars(ctx context.Context, movieID string) (float64, bool, error) {
	movie, err := c.GetMovie(ctx, movieID)
	if err != nil {
		return 0, false, err
	}

	average, ok := movie.AverageStars()
	return average, ok, nil
}

type recommendationScore struct {
	total  int
	count  int
	raters map[string]bool
}

// Recommendations sugere filmes que os amigos avaliaram acima de
// domain.LikedThreshold e que o usuário ainda não avaliou. O score é a média
// das estrelas dadas pelos amigos; empates vão para o filme com mais amigos
// e depois para o menor id.
func (c *Catalog) Recommendations(ctx context.Context, login string) ([]entities.MovieRecommendation, error) {
	var recommendations []entities.MovieRecommendation

	err := c.read(ctx, "Recommendations", func(session *ogm.Session) error {
		user, err := ogm.Get[entities.User](ctx, session, login)
		if err != nil {
			return err
		}

		scores := make(map[string]*recommendationScore)
		for _, friendLogin := range user.Friends {
			friend, err := ogm.Get[entities.User](ctx, session, friendLogin)
			if err != nil {
				return err
			}

			for _, rating := range friend.Ratings {
				if rating.Stars <= domain.LikedThreshold {
					continue
				}
				if _, rated := user.RatingFor(rating.MovieID); rated {
					continue
				}

				score, ok := scores[rating.MovieID]
				if !ok {
					score = &recommendationScore{raters: make(map[string]bool)}
					scores[rating.MovieID] = score
				}
				score.total += rating.Stars
				score.count++
				score.raters[friend.Login] = true
			}
		}

		recommendations = make([]entities.MovieRecommendation, 0, len(scores))
		for movieID, score := range scores {
			movie, err := ogm.Get[entities.Movie](ctx, session, movieID)
			if err != nil {
				return err
			}
			recommendations = append(recommendations, entities.MovieRecommendation{
				Movie:  movie,
				Score:  float64(score.total) / float64(score.count),
				Raters: len(score.raters),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Raters != b.Raters {
			return a.Raters > b.Raters
		}
		return a.Movie.ID < b.Movie.ID
	})
	return recommendations, nil
}
