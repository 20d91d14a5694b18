package ogm

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
	"cineasts/src/repositories"
)

// toGraphNode serializa os campos mapeados. A chave natural vai no
// GraphNode.Key e também como propriedade, para que filtros por ela funcionem
// como qualquer outra propriedade.
func toGraphNode(node entities.Node) (domain.GraphNode, error) {
	mapping, err := mappingOf(reflect.TypeOf(node))
	if err != nil {
		return domain.GraphNode{}, err
	}

	value := reflect.ValueOf(node).Elem()
	props := make(map[string]interface{}, len(mapping.Ordered))
	for _, prop := range mapping.Ordered {
		props[prop.Property] = value.FieldByIndex(prop.Index).Interface()
	}

	raw, err := json.Marshal(props)
	if err != nil {
		return domain.GraphNode{}, fmt.Errorf("ogm: failed to encode %s %q: %w", mapping.Label, node.Key(), err)
	}

	return domain.GraphNode{
		ID:         node.GraphID(),
		Label:      mapping.Label,
		Key:        node.Key(),
		Properties: raw,
	}, nil
}

// fromGraphNode preenche os campos mapeados de target a partir do nó.
func fromGraphNode(gn domain.GraphNode, target entities.Node) error {
	mapping, err := mappingOf(reflect.TypeOf(target))
	if err != nil {
		return err
	}

	var props map[string]json.RawMessage
	if len(gn.Properties) > 0 {
		if err := json.Unmarshal(gn.Properties, &props); err != nil {
			return fmt.Errorf("ogm: failed to decode node %d: %w", gn.ID, err)
		}
	}

	value := reflect.ValueOf(target).Elem()
	for _, prop := range mapping.Ordered {
		raw, ok := props[prop.Property]
		if !ok || string(raw) == "null" {
			continue
		}
		field := value.FieldByIndex(prop.Index)
		if err := json.Unmarshal(raw, field.Addr().Interface()); err != nil {
			return fmt.Errorf("ogm: failed to decode property %s of node %d: %w", prop.Property, gn.ID, err)
		}
	}

	// A chave do store prevalece sobre a propriedade.
	value.FieldByIndex(mapping.PK.Index).SetString(gn.Key)
	target.SetGraphID(gn.ID)
	return nil
}

// sameAttributes compara só as propriedades mapeadas de dois nós.
func sameAttributes(a, b entities.Node) (bool, error) {
	ga, err := toGraphNode(a)
	if err != nil {
		return false, err
	}
	gb, err := toGraphNode(b)
	if err != nil {
		return false, err
	}

	var pa, pb interface{}
	if err := json.Unmarshal(ga.Properties, &pa); err != nil {
		return false, err
	}
	if err := json.Unmarshal(gb.Properties, &pb); err != nil {
		return false, err
	}
	return reflect.DeepEqual(pa, pb), nil
}

// conditionFor monta a FindCondition para "propriedade == valor", com o valor
// convertido para o tipo Go do campo. Listas casam por contenção.
func conditionFor(mapping *nodeMapping, property string, value interface{}) (repositories.FindCondition, error) {
	prop, ok := mapping.Properties[property]
	if !ok || domain.IsSecretProperty(mapping.Label, property) {
		return repositories.FindCondition{}, fmt.Errorf("%w: %s has no property %q", domain.ErrInvalidQuery, mapping.Label, property)
	}

	if prop.PK {
		key, err := convertValue(prop.Type, value)
		if err != nil {
			return repositories.FindCondition{}, fmt.Errorf("%w: property %q: %v", domain.ErrInvalidQuery, property, err)
		}
		return repositories.FindCondition{Field: "key", Operator: repositories.OpEquals, Value: key}, nil
	}

	if prop.Type.Kind() == reflect.Slice {
		elements, err := convertList(prop.Type.Elem(), value)
		if err != nil {
			return repositories.FindCondition{}, fmt.Errorf("%w: property %q: %v", domain.ErrInvalidQuery, property, err)
		}
		return repositories.FindCondition{Field: property, Operator: repositories.OpContains, Value: elements}, nil
	}

	converted, err := convertValue(prop.Type, value)
	if err != nil {
		return repositories.FindCondition{}, fmt.Errorf("%w: property %q: %v", domain.ErrInvalidQuery, property, err)
	}
	return repositories.FindCondition{Field: property, Operator: repositories.OpContains, Value: converted}, nil
}

func convertList(elem reflect.Type, value interface{}) ([]interface{}, error) {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		converted, err := convertValue(elem, value)
		if err != nil {
			return nil, err
		}
		return []interface{}{converted}, nil
	}

	elements := make([]interface{}, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		converted, err := convertValue(elem, v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		elements = append(elements, converted)
	}
	return elements, nil
}

// convertValue devolve o valor como o tipo básico (string, int64, float64,
// bool) correspondente ao kind do campo.
func convertValue(target reflect.Type, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, fmt.Errorf("nil value")
	}
	v := reflect.ValueOf(value)

	switch target.Kind() {
	case reflect.String:
		switch v.Kind() {
		case reflect.String:
			return v.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(v.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(v.Uint(), 10), nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return v.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return int64(v.Uint()), nil
		case reflect.Float32, reflect.Float64:
			if f := v.Float(); f == math.Trunc(f) {
				return int64(f), nil
			}
		case reflect.String:
			if i, err := strconv.ParseInt(v.String(), 10, 64); err == nil {
				return i, nil
			}
		}

	case reflect.Float32, reflect.Float64:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(v.Int()), nil
		case reflect.Float32, reflect.Float64:
			return v.Float(), nil
		case reflect.String:
			if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
				return f, nil
			}
		}

	case reflect.Bool:
		switch v.Kind() {
		case reflect.Bool:
			return v.Bool(), nil
		case reflect.String:
			if b, err := strconv.ParseBool(v.String()); err == nil {
				return b, nil
			}
		}
	}

	return nil, fmt.Errorf("cannot convert %T to %s", value, target)
}

// stringProperty lê uma propriedade string de um nó sem hidratar a entidade.
func stringProperty(gn domain.GraphNode, property string) (string, bool) {
	var props map[string]interface{}
	if err := json.Unmarshal(gn.Properties, &props); err != nil {
		return "", false
	}
	s, ok := props[property].(string)
	return s, ok
}

func stripProperty(raw json.RawMessage, property string) json.RawMessage {
	var props map[string]json.RawMessage
	if err := json.Unmarshal(raw, &props); err != nil {
		return raw
	}
	delete(props, property)
	stripped, err := json.Marshal(props)
	if err != nil {
		return raw
	}
	return stripped
}
