package ogm

import (
	"context"
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/repositories"
)

// hydrate carrega os atributos e as coleções de relacionamento (um salto) do
// nó em target. Do outro lado só as chaves naturais são lidas.
func hydrate(ctx context.Context, tx repositories.GraphTx, gn domain.GraphNode, target entities.Node) error {
	if err := fromGraphNode(gn, target); err != nil {
		return err
	}

	var types []domain.RelationshipType
	switch target.(type) {
	case *entities.Actor:
		types = []domain.RelationshipType{domain.RelActsIn}
	case *entities.Director:
		types = []domain.RelationshipType{domain.RelDirected}
	case *entities.Movie:
		types = []domain.RelationshipType{domain.RelActsIn, domain.RelDirected, domain.RelRated}
	case *entities.User:
		types = []domain.RelationshipType{domain.RelRated, domain.RelFriendOf}
	default:
		return nil
	}

	edges, err := tx.EdgesOf(ctx, gn.ID, types...)
	if err != nil {
		return fmt.Errorf("ogm.hydrate - %s %q: %w", gn.Label, gn.Key, err)
	}

	keys, err := otherKeys(ctx, tx, gn.ID, edges)
	if err != nil {
		return fmt.Errorf("ogm.hydrate - %s %q: %w", gn.Label, gn.Key, err)
	}

	switch n := target.(type) {
	case *entities.Actor:
		n.Roles = nil
		for _, edge := range edges {
			if edge.StartID != gn.ID {
				continue
			}
			role, err := decodeRole(edge, n.ID, keys[edge.EndID])
			if err != nil {
				return err
			}
			n.Roles = append(n.Roles, role)
		}

	case *entities.Director:
		n.Movies = nil
		for _, edge := range edges {
			if edge.StartID == gn.ID {
				n.Movies = append(n.Movies, keys[edge.EndID])
			}
		}

	case *entities.Movie:
		n.Roles, n.Directors, n.Ratings = nil, nil, nil
		for _, edge := range edges {
			if edge.EndID != gn.ID {
				continue
			}
			switch edge.Type {
			case domain.RelActsIn:
				role, err := decodeRole(edge, keys[edge.StartID], n.ID)
				if err != nil {
					return err
				}
				n.Roles = append(n.Roles, role)
			case domain.RelDirected:
				n.Directors = append(n.Directors, keys[edge.StartID])
			case domain.RelRated:
				rating, err := decodeRating(edge, keys[edge.StartID], n.ID)
				if err != nil {
					return err
				}
				n.Ratings = append(n.Ratings, rating)
			}
		}

	case *entities.User:
		n.Ratings, n.Friends = nil, nil
		for _, edge := range edges {
			switch edge.Type {
			case domain.RelRated:
				if edge.StartID != gn.ID {
					continue
				}
				rating, err := decodeRating(edge, n.Login, keys[edge.EndID])
				if err != nil {
					return err
				}
				n.Ratings = append(n.Ratings, rating)
			case domain.RelFriendOf:
				// amizade é simétrica, vale nas duas direções
				friend := keys[edge.Other(gn.ID)]
				if friend != "" && !n.IsFriendOf(friend) {
					n.Friends = append(n.Friends, friend)
				}
			}
		}
	}

	return nil
}

func otherKeys(ctx context.Context, tx repositories.GraphTx, nodeID int64, edges []domain.GraphEdge) (map[int64]string, error) {
	seen := make(map[int64]bool)
	ids := make([]int64, 0, len(edges))
	for _, edge := range edges {
		other := edge.Other(nodeID)
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}

	keys := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return keys, nil
	}

	nodes, err := tx.NodesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		keys[node.ID] = node.Key
	}
	return keys, nil
}
