package stubs

import (
	"encoding/json"

	"cineasts/src/domain"

	"github.com/brianvoe/gofakeit/v6"
)

type GraphEdgeStub struct {
	edge domain.GraphEdge
}

func NewGraphEdgeStub() GraphEdgeStub {
	name := gofakeit.FirstName()
	propsJSON, _ := json.Marshal(map[string]interface{}{"name": name})

	edge := domain.GraphEdge{
		Type:       domain.RelActsIn,
		Identity:   name,
		Properties: propsJSON,
	}

	return GraphEdgeStub{edge: edge}
}

func (es GraphEdgeStub) Between(startID, endID int64) GraphEdgeStub {
	es.edge.StartID = startID
	es.edge.EndID = endID
	return es
}

func (es GraphEdgeStub) WithType(relationshipType domain.RelationshipType) GraphEdgeStub {
	es.edge.Type = relationshipType
	return es
}

func (es GraphEdgeStub) WithIdentity(identity string) GraphEdgeStub {
	es.edge.Identity = identity
	return es
}

func (es GraphEdgeStub) WithProperties(properties map[string]interface{}) GraphEdgeStub {
	if properties == nil {
		es.edge.Properties = nil
		return es
	}
	propsJSON, _ := json.Marshal(properties)
	es.edge.Properties = propsJSON
	return es
}

func (es GraphEdgeStub) Get() *domain.GraphEdge {
	edge := es.edge
	return &edge
}
