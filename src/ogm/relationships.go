package ogm

import (
	"encoding/json"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
)

// relationship é um fato ainda sem IDs: tipo, pontas e a identity que, junto
// com as pontas, o distingue de outros fatos do mesmo tipo.
type relationship struct {
	Type       domain.RelationshipType
	Start      entities.Node
	End        entities.Node
	Identity   string
	Properties map[string]interface{}
}

func roleRelationship(actor *entities.Actor, movie *entities.Movie, role entities.Role) relationship {
	return relationship{
		Type:       domain.RelActsIn,
		Start:      actor,
		End:        movie,
		Identity:   role.Name,
		Properties: map[string]interface{}{"name": role.Name},
	}
}

func directedRelationship(director *entities.Director, movie *entities.Movie) relationship {
	return relationship{Type: domain.RelDirected, Start: director, End: movie}
}

func ratingRelationship(user *entities.User, movie *entities.Movie, rating entities.Rating) relationship {
	return relationship{
		Type:       domain.RelRated,
		Start:      user,
		End:        movie,
		Identity:   ratingIdentity(rating.Stars, rating.Comment),
		Properties: map[string]interface{}{"stars": rating.Stars, "comment": rating.Comment},
	}
}

// friendRelationship grava a amizade uma única vez, com o menor login como
// ponta inicial.
func friendRelationship(a, b *entities.User) relationship {
	if b.Login < a.Login {
		a, b = b, a
	}
	return relationship{Type: domain.RelFriendOf, Start: a, End: b}
}

func ratingIdentity(stars int, comment string) string {
	return fmt.Sprintf("%d|%s", stars, comment)
}

func (r relationship) edge(startID, endID int64) (domain.GraphEdge, error) {
	edge := domain.GraphEdge{
		Type:     r.Type,
		StartID:  startID,
		EndID:    endID,
		Identity: r.Identity,
	}
	if len(r.Properties) > 0 {
		raw, err := json.Marshal(r.Properties)
		if err != nil {
			return domain.GraphEdge{}, fmt.Errorf("ogm: failed to encode %s properties: %w", r.Type, err)
		}
		edge.Properties = raw
	}
	return edge, nil
}

func (r relationship) event(eventType string) domain.DomainEvent {
	data := domain.DomainEventData{
		RelationshipType: r.Type,
		StartKey:         r.Start.Key(),
		EndKey:           r.End.Key(),
	}
	if len(r.Properties) > 0 {
		data.Properties, _ = json.Marshal(r.Properties)
	}
	return newEvent(eventType, data)
}

type roleProperties struct {
	Name string `json:"name"`
}

type ratingProperties struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment"`
}

func decodeRole(edge domain.GraphEdge, actorID, movieID string) (entities.Role, error) {
	var props roleProperties
	if len(edge.Properties) > 0 {
		if err := json.Unmarshal(edge.Properties, &props); err != nil {
			return entities.Role{}, fmt.Errorf("ogm: failed to decode role %d: %w", edge.ID, err)
		}
	}
	if props.Name == "" {
		props.Name = edge.Identity
	}
	return entities.Role{EdgeID: edge.ID, ActorID: actorID, MovieID: movieID, Name: props.Name}, nil
}

func decodeRating(edge domain.GraphEdge, login, movieID string) (entities.Rating, error) {
	var props ratingProperties
	if len(edge.Properties) > 0 {
		if err := json.Unmarshal(edge.Properties, &props); err != nil {
			return entities.Rating{}, fmt.Errorf("ogm: failed to decode rating %d: %w", edge.ID, err)
		}
	}
	return entities.Rating{EdgeID: edge.ID, Login: login, MovieID: movieID, Stars: props.Stars, Comment: props.Comment}, nil
}
