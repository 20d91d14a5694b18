package ogm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"cineasts/src/domain"
	"cineasts/src/domain/entities"
)

// propertyMapping liga um campo da struct a uma propriedade do nó.
type propertyMapping struct {
	Property string
	Index    []int
	Type     reflect.Type
	PK       bool
}

// nodeMapping é o resultado do parse das tags `graph` de um tipo de nó.
type nodeMapping struct {
	Label      domain.Label
	Type       reflect.Type
	PK         *propertyMapping
	Properties map[string]*propertyMapping
	Ordered    []*propertyMapping
}

var mappingCache sync.Map // reflect.Type -> *nodeMapping

// mappingOf lê as tags `graph:"pk,property:id"` do tipo (structs embutidas
// incluídas) e guarda o resultado em cache.
func mappingOf(typ reflect.Type) (*nodeMapping, error) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if cached, ok := mappingCache.Load(typ); ok {
		return cached.(*nodeMapping), nil
	}

	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("ogm: type %s is not a struct", typ.Name())
	}
	node, ok := reflect.New(typ).Interface().(entities.Node)
	if !ok {
		return nil, fmt.Errorf("ogm: type %s does not implement entities.Node", typ.Name())
	}

	mapping := &nodeMapping{
		Label:      node.Label(),
		Type:       typ,
		Properties: make(map[string]*propertyMapping),
	}
	if err := collectProperties(typ, nil, mapping); err != nil {
		return nil, err
	}
	if mapping.PK == nil {
		return nil, fmt.Errorf("ogm: no primary key ('pk') tag defined for struct %s", typ.Name())
	}

	mappingCache.Store(typ, mapping)
	return mapping, nil
}

func collectProperties(typ reflect.Type, prefix []int, mapping *nodeMapping) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag := field.Tag.Get("graph")

		if tag == "" {
			if field.Anonymous && field.Type.Kind() == reflect.Struct {
				if err := collectProperties(field.Type, index, mapping); err != nil {
					return err
				}
			}
			continue
		}

		prop := &propertyMapping{Index: index, Type: field.Type}
		for _, part := range strings.Split(tag, ",") {
			switch {
			case part == "pk":
				prop.PK = true
			case strings.HasPrefix(part, "property:"):
				prop.Property = strings.TrimPrefix(part, "property:")
			}
		}

		if prop.Property == "" {
			return fmt.Errorf("ogm: field %s is missing 'property' tag component", field.Name)
		}
		if _, dup := mapping.Properties[prop.Property]; dup {
			return fmt.Errorf("ogm: property %s is mapped twice on %s", prop.Property, mapping.Type.Name())
		}
		if prop.PK {
			mapping.PK = prop
		}

		mapping.Properties[prop.Property] = prop
		mapping.Ordered = append(mapping.Ordered, prop)
	}
	return nil
}
