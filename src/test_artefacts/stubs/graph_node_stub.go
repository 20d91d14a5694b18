package stubs

import (
	"encoding/json"
	"time"

	"cineasts/src/domain"

	"github.com/brianvoe/gofakeit/v6"
)

type GraphNodeStub struct {
	node domain.GraphNode
}

func NewGraphNodeStub() GraphNodeStub {
	now := time.Now().UTC()
	key := gofakeit.UUID()

	properties := map[string]interface{}{
		"id":    key,
		"title": gofakeit.MovieName(),
	}
	propsJSON, _ := json.Marshal(properties)

	node := domain.GraphNode{
		Label:      domain.LabelMovie,
		Key:        key,
		Properties: propsJSON,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return GraphNodeStub{node: node}
}

func (ns GraphNodeStub) WithLabel(label domain.Label) GraphNodeStub {
	ns.node.Label = label
	return ns
}

func (ns GraphNodeStub) WithKey(key string) GraphNodeStub {
	ns.node.Key = key
	return ns
}

func (ns GraphNodeStub) WithProperties(properties map[string]interface{}) GraphNodeStub {
	propsJSON, _ := json.Marshal(properties)
	ns.node.Properties = propsJSON
	return ns
}

// Get devolve um ponteiro novo, pronto para CreateNode/MergeNode.
func (ns GraphNodeStub) Get() *domain.GraphNode {
	node := ns.node
	return &node
}
