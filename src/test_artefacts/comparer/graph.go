package comparer

import (
	"cineasts/src/domain"
	"cineasts/src/domain/entities"

	"github.com/google/go-cmp/cmp"
)

// GraphNodeOptions compara nós pelo conteúdo: ignora os timestamps e
// compara as propriedades como JSON.
func GraphNodeOptions() cmp.Options {
	return cmp.Options{
		IgnoreFieldsFor[domain.GraphNode]("CreatedAt", "UpdatedAt"),
		JSONRawMessage(),
	}
}

func GraphEdgeOptions() cmp.Options {
	return cmp.Options{
		IgnoreFieldsFor[domain.GraphEdge]("ID", "CreatedAt"),
		JSONRawMessage(),
	}
}

// EntityOptions ignora os IDs atribuídos pelo store, que variam entre
// backends, e a ordem das coleções.
func EntityOptions() cmp.Options {
	return cmp.Options{
		IgnoreFieldsFor[entities.Person]("NodeID"),
		IgnoreFieldsFor[entities.Movie]("NodeID"),
		IgnoreFieldsFor[entities.User]("NodeID"),
		IgnoreFieldsFor[entities.Role]("EdgeID"),
		IgnoreFieldsFor[entities.Rating]("EdgeID"),
		SortedSlices(func(a, b entities.Role) bool { return a.String() < b.String() }),
		SortedSlices(func(a, b entities.Rating) bool { return a.String()+a.Comment < b.String()+b.Comment }),
		SortedSlices(func(a, b string) bool { return a < b }),
	}
}
