package entities

import "cineasts/src/domain"

// Node é implementado por todo tipo persistido como nó do grafo.
type Node interface {
	Label() domain.Label
	Key() string
	GraphID() int64
	SetGraphID(id int64)
}

// PasswordCost é o custo do bcrypt usado em NewUser. Os testes reduzem para
// bcrypt.MinCost.
var PasswordCost = 10

func addUnique[T any](items []T, item T, same func(a, b T) bool) ([]T, bool) {
	for _, existing := range items {
		if same(existing, item) {
			return items, false
		}
	}
	return append(items, item), true
}

func removeMatching[T any](items []T, match func(T) bool) ([]T, []T) {
	kept := items[:0:0]
	var removed []T
	for _, item := range items {
		if match(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}

func addKey(keys []string, key string) ([]string, bool) {
	return addUnique(keys, key, func(a, b string) bool { return a == b })
}

func removeKey(keys []string, key string) ([]string, bool) {
	kept, removed := removeMatching(keys, func(k string) bool { return k == key })
	return kept, len(removed) > 0
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
