package ogm

import (
	"context"
	"fmt"
	"reflect"
	"regexp"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/repositories"
)

// Results é um cursor finito, consumido uma única vez. Cada nó é hidratado
// só quando Next chega nele. O cursor se fecha sozinho ao terminar ou em
// erro; Close libera antes disso.
type Results[T any] struct {
	rows    repositories.NodeRows
	next    func(domain.GraphNode) (T, bool, error)
	onClose []func()
	current T
	err     error
	done    bool
}

func (r *Results[T]) Next() bool {
	if r.done {
		return false
	}

	for r.rows.Next() {
		value, ok, err := r.next(r.rows.Node())
		if err != nil {
			r.err = err
			r.Close()
			return false
		}
		if ok {
			r.current = value
			return true
		}
	}

	if err := r.rows.Err(); err != nil {
		r.err = err
	}
	r.Close()
	return false
}

func (r *Results[T]) Value() T {
	return r.current
}

func (r *Results[T]) Err() error {
	return r.err
}

func (r *Results[T]) Close() {
	if r.done {
		return
	}
	r.done = true
	r.rows.Close()
	for _, f := range r.onClose {
		f()
	}
}

// OnClose registra f para rodar quando o cursor fechar.
func (r *Results[T]) OnClose(f func()) *Results[T] {
	if r.done {
		f()
		return r
	}
	r.onClose = append(r.onClose, f)
	return r
}

// Collect consome o que sobrou do cursor.
func (r *Results[T]) Collect() ([]T, error) {
	defer r.Close()

	var values []T
	for r.Next() {
		values = append(values, r.Value())
	}
	return values, r.Err()
}

// FindByProperty devolve os nós do tipo T cuja propriedade é igual ao valor.
// O valor é convertido para o tipo do campo; propriedades de lista casam por
// contenção. Propriedade desconhecida ou valor inconversível resultam em
// domain.ErrInvalidQuery.
func FindByProperty[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, s *Session, property string, value interface{}) (*Results[PT], error) {
	mapping, err := mappingOf(reflect.TypeOf((*T)(nil)))
	if err != nil {
		return nil, err
	}

	condition, err := conditionFor(mapping, property, value)
	if err != nil {
		return nil, fmt.Errorf("ogm.FindByProperty - %w", err)
	}

	return find[T, PT](ctx, s, mapping, nil, condition)
}

// FindMatching casa a propriedade string inteira contra a expressão regular
// (sintaxe do pacote regexp, "(?i)" para ignorar caixa).
func FindMatching[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, s *Session, property string, pattern string) (*Results[PT], error) {
	mapping, err := mappingOf(reflect.TypeOf((*T)(nil)))
	if err != nil {
		return nil, err
	}

	prop, ok := mapping.Properties[property]
	if !ok || prop.Type.Kind() != reflect.String || domain.IsSecretProperty(mapping.Label, property) {
		return nil, fmt.Errorf("ogm.FindMatching - %w: %s has no string property %q", domain.ErrInvalidQuery, mapping.Label, property)
	}

	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("ogm.FindMatching - %w: %v", domain.ErrInvalidQuery, err)
	}

	filter := func(gn domain.GraphNode) bool {
		value, ok := stringProperty(gn, property)
		return ok && re.MatchString(value)
	}
	return find[T, PT](ctx, s, mapping, filter)
}

// All devolve todos os nós do tipo T.
func All[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, s *Session) (*Results[PT], error) {
	mapping, err := mappingOf(reflect.TypeOf((*T)(nil)))
	if err != nil {
		return nil, err
	}
	return find[T, PT](ctx, s, mapping, nil)
}

func find[T any, PT interface {
	*T
	entities.Node
}](ctx context.Context, s *Session, mapping *nodeMapping, filter func(domain.GraphNode) bool, conditions ...repositories.FindCondition) (*Results[PT], error) {
	tx, err := s.readTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ogm.find - %w", err)
	}

	rows, err := tx.FindNodes(ctx, mapping.Label, conditions...)
	if err != nil {
		return nil, fmt.Errorf("ogm.find - %w", err)
	}

	return &Results[PT]{
		rows: rows,
		next: func(gn domain.GraphNode) (PT, bool, error) {
			if filter != nil && !filter(gn) {
				return nil, false, nil
			}
			value, err := load[T, PT](ctx, s, tx, gn)
			if err != nil {
				return nil, false, err
			}
			return value, true, nil
		},
	}, nil
}
