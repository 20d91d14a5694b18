package comparer

import (
	"time"

	"cineasts/src/domain"

	"github.com/google/go-cmp/cmp"
)

func TimeWithinTolerance(toleranceMs int) cmp.Option {
	tolerance := time.Duration(toleranceMs) * time.Millisecond

	return cmp.Comparer(func(x, y time.Time) bool {
		diff := x.Sub(y)
		if diff < 0 {
			diff = -diff
		}
		return diff <= tolerance
	})
}

// DomainEventOptions compara eventos ignorando o EventID (uuid) e aceitando
// OccurredAt dentro da tolerância.
func DomainEventOptions(toleranceMs int) cmp.Options {
	return cmp.Options{
		IgnoreFieldsFor[domain.DomainEvent]("EventID"),
		TimeWithinTolerance(toleranceMs),
		JSONRawMessage(),
	}
}
