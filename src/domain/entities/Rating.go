package entities

import (
	"fmt"

	"cineasts/src/helper/validation"
)

// Rating é a aresta RATED (User -> Movie). Uma avaliação por par
// (usuário, filme) é convenção da aplicação, não restrição do store.
type Rating struct {
	EdgeID  int64  `json:"edge_id,omitempty"`
	Login   string `json:"login" validate:"required"`
	MovieID string `json:"movie_id" validate:"required"`
	Stars   int    `json:"stars" validate:"min=1,max=5"`
	Comment string `json:"comment"`
}

func NewRating(login, movieID string, stars int, comment string) (Rating, error) {
	rating := Rating{Login: login, MovieID: movieID, Stars: stars, Comment: comment}
	if err := validation.ValidateStruct(rating); err != nil {
		return Rating{}, fmt.Errorf("NewRating - %w", err)
	}
	return rating, nil
}

func SameRating(a, b Rating) bool {
	return a.Login == b.Login && a.MovieID == b.MovieID && a.Stars == b.Stars && a.Comment == b.Comment
}

func (r Rating) String() string {
	return fmt.Sprintf("%s rated %s with %d stars", r.Login, r.MovieID, r.Stars)
}
