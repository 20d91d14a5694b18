package comparer

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var t T
	return cmpopts.IgnoreFields(t, fields...)
}

// SortedSlices deixa a comparação de slices independente da ordem, já que
// nenhuma consulta do grafo garante ordenação.
func SortedSlices[T any](less func(a, b T) bool) cmp.Option {
	return cmpopts.SortSlices(less)
}
