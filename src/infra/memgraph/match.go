package memgraph

import (
	"encoding/json"
	"fmt"
	"reflect"

	"cineasts/src/domain"
	"cineasts/src/repositories"
)

// matches aplica as FindCondition sobre um nó com a mesma semântica que o
// Postgres dá para "=" e "@>".
func matches(node domain.GraphNode, conditions []repositories.FindCondition) (bool, error) {
	if len(conditions) == 0 {
		return true, nil
	}

	var props map[string]interface{}
	if len(node.Properties) > 0 {
		if err := json.Unmarshal(node.Properties, &props); err != nil {
			return false, fmt.Errorf("memgraph.matches - failed to decode properties of node %d: %w", node.ID, err)
		}
	}

	for _, condition := range conditions {
		ok, err := matchCondition(node, props, condition)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchCondition(node domain.GraphNode, props map[string]interface{}, condition repositories.FindCondition) (bool, error) {
	switch condition.Operator {
	case repositories.OpEquals:
		switch condition.Field {
		case "key":
			return node.Key == fmt.Sprint(condition.Value), nil
		case "id":
			return fmt.Sprint(node.ID) == fmt.Sprint(condition.Value), nil
		}
		return false, fmt.Errorf("%w: operator %q is not supported for field %q", domain.ErrInvalidQuery, condition.Operator, condition.Field)

	case repositories.OpContains:
		expected, err := normalize(condition.Value)
		if err != nil {
			return false, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
		}
		actual, ok := props[condition.Field]
		if !ok {
			return false, nil
		}
		return contains(actual, expected), nil
	}

	return false, fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidQuery, condition.Operator)
}

// normalize passa o valor por JSON para comparar com as propriedades
// decodificadas (números viram float64, listas viram []interface{}).
func normalize(value interface{}) (interface{}, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func contains(actual, expected interface{}) bool {
	switch want := expected.(type) {
	case []interface{}:
		have, ok := actual.([]interface{})
		if !ok {
			return false
		}
		for _, w := range want {
			found := false
			for _, h := range have {
				if contains(h, w) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true

	case map[string]interface{}:
		have, ok := actual.(map[string]interface{})
		if !ok {
			return false
		}
		for key, w := range want {
			h, ok := have[key]
			if !ok || !contains(h, w) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(actual, expected)
}
