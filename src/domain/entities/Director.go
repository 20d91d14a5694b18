package entities

import (
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/helper/validation"
)

type Director struct {
	Person
	Movies []string `json:"movies,omitempty"`
}

func NewDirector(id, name string) (*Director, error) {
	director := &Director{Person: Person{ID: id, Name: name}}
	if err := validation.ValidateStruct(director); err != nil {
		return nil, fmt.Errorf("NewDirector - %w", err)
	}
	return director, nil
}

func (d *Director) Label() domain.Label {
	return domain.LabelDirector
}

// Directed liga diretor e filme nos dois lados. Retorna false quando a
// ligação já existia.
func (d *Director) Directed(movie *Movie) bool {
	var added bool
	d.Movies, added = addKey(d.Movies, movie.ID)
	movie.Directors, _ = addKey(movie.Directors, d.ID)
	return added
}

func (d *Director) Undirect(movie *Movie) bool {
	var removed bool
	d.Movies, removed = removeKey(d.Movies, movie.ID)
	movie.Directors, _ = removeKey(movie.Directors, d.ID)
	return removed
}

func (d *Director) HasDirected(movieID string) bool {
	return containsKey(d.Movies, movieID)
}
