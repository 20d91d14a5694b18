package entities

import (
	"fmt"

	"cineasts/src/helper/validation"
)

// Role é a aresta ACTS_IN (Actor -> Movie) com o nome do personagem.
type Role struct {
	EdgeID  int64  `json:"edge_id,omitempty"`
	ActorID string `json:"actor_id" validate:"required"`
	MovieID string `json:"movie_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

func NewRole(actorID, movieID, name string) (Role, error) {
	role := Role{ActorID: actorID, MovieID: movieID, Name: name}
	if err := validation.ValidateStruct(role); err != nil {
		return Role{}, fmt.Errorf("NewRole - %w", err)
	}
	return role, nil
}

// SameRole: dois roles são o mesmo fato quando filme, ator e personagem
// coincidem, independente do EdgeID.
func SameRole(a, b Role) bool {
	return a.MovieID == b.MovieID && a.ActorID == b.ActorID && a.Name == b.Name
}

func (r Role) String() string {
	return fmt.Sprintf("%s acts as %s in %s", r.ActorID, r.Name, r.MovieID)
}
