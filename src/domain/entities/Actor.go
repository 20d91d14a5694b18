package entities

import (
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/helper/validation"
)

type Actor struct {
	Person
	Roles []Role `json:"roles,omitempty"`
}

func NewActor(id, name string) (*Actor, error) {
	actor := &Actor{Person: Person{ID: id, Name: name}}
	if err := validation.ValidateStruct(actor); err != nil {
		return nil, fmt.Errorf("NewActor - %w", err)
	}
	return actor, nil
}

func (a *Actor) Label() domain.Label {
	return domain.LabelActor
}

// PlayedIn registra o role nos dois lados (ator e filme). Retorna false
// quando o mesmo role já existia.
func (a *Actor) PlayedIn(movie *Movie, roleName string) (Role, bool, error) {
	role, err := NewRole(a.ID, movie.ID, roleName)
	if err != nil {
		return Role{}, false, fmt.Errorf("Actor.PlayedIn - %w", err)
	}

	var added bool
	a.Roles, added = addUnique(a.Roles, role, SameRole)
	movie.Roles, _ = addUnique(movie.Roles, role, SameRole)
	return role, added, nil
}

// RemoveRole desfaz PlayedIn nos dois lados.
func (a *Actor) RemoveRole(movie *Movie, roleName string) (Role, bool) {
	target := Role{ActorID: a.ID, MovieID: movie.ID, Name: roleName}
	match := func(r Role) bool { return SameRole(r, target) }

	var removed []Role
	a.Roles, removed = removeMatching(a.Roles, match)
	movie.Roles, _ = removeMatching(movie.Roles, match)
	if len(removed) == 0 {
		return Role{}, false
	}
	return removed[0], true
}

func (a *Actor) RoleIn(movieID string) (Role, bool) {
	for _, r := range a.Roles {
		if r.MovieID == movieID {
			return r, true
		}
	}
	return Role{}, false
}
