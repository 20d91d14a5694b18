package entities

import (
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/helper/validation"
)

type Movie struct {
	NodeID    int64    `json:"node_id,omitempty"`
	ID        string   `json:"id" graph:"pk,property:id" validate:"required"`
	Title     string   `json:"title" graph:"property:title" validate:"required"`
	Roles     []Role   `json:"roles,omitempty"`
	Directors []string `json:"directors,omitempty"`
	Ratings   []Rating `json:"ratings,omitempty"`
}

func NewMovie(id, title string) (*Movie, error) {
	movie := &Movie{ID: id, Title: title}
	if err := validation.ValidateStruct(movie); err != nil {
		return nil, fmt.Errorf("NewMovie - %w", err)
	}
	return movie, nil
}

func (m *Movie) Label() domain.Label {
	return domain.LabelMovie
}

func (m *Movie) Key() string {
	return m.ID
}

func (m *Movie) GraphID() int64 {
	return m.NodeID
}

func (m *Movie) SetGraphID(id int64) {
	m.NodeID = id
}

// AddRole é o lado do filme de Actor.PlayedIn.
func (m *Movie) AddRole(actor *Actor, roleName string) (Role, bool, error) {
	return actor.PlayedIn(m, roleName)
}

func (m *Movie) AddDirector(director *Director) bool {
	return director.Directed(m)
}

// RatedBy é o lado do filme de User.Rate.
func (m *Movie) RatedBy(user *User, stars int, comment string) (Rating, bool, error) {
	return user.Rate(m, stars, comment)
}

// AverageStars devolve a média das estrelas. O bool é false quando o filme
// não tem avaliações.
func (m *Movie) AverageStars() (float64, bool) {
	if len(m.Ratings) == 0 {
		return 0, false
	}

	total := 0
	for _, r := range m.Ratings {
		total += r.Stars
	}
	return float64(total) / float64(len(m.Ratings)), true
}

func (m *Movie) Actors() []string {
	actors := make([]string, 0, len(m.Roles))
	for _, r := range m.Roles {
		actors, _ = addKey(actors, r.ActorID)
	}
	return actors
}

func (m Movie) String() string {
	return fmt.Sprintf("%s (%s)", m.Title, m.ID)
}
