package domain

import (
	"encoding/json"
	"time"
)

// ############################################################
// ############## REGISTROS DA CAMADA DE GRAFO ################
// ############################################################

// GraphNode é o "nó" persistido: ID interno atribuído pelo store e a chave
// natural (Key) única por Label.
type GraphNode struct {
	ID         int64           `json:"id"`
	Label      Label           `json:"label"`
	Key        string          `json:"key"`
	Properties json.RawMessage `json:"properties,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// secretProperties nunca saem do store: não são filtráveis, não vão para o
// cache nem para os eventos.
var secretProperties = map[Label][]string{
	LabelUser: {"password"},
}

func IsSecretProperty(label Label, property string) bool {
	for _, secret := range secretProperties[label] {
		if secret == property {
			return true
		}
	}
	return false
}

// SecretProperties lista as propriedades sigilosas do label.
func SecretProperties(label Label) []string {
	return secretProperties[label]
}

// HasSecrets indica que o nó carrega propriedades sigilosas.
func (n GraphNode) HasSecrets() bool {
	return len(secretProperties[n.Label]) > 0
}

// GraphEdge é a aresta entre dois nós. Identity carrega as propriedades que
// definem o fato (ex: nome do personagem), e o store garante unicidade em
// (Type, StartID, EndID, Identity).
type GraphEdge struct {
	ID         int64            `json:"id"`
	Type       RelationshipType `json:"type"`
	StartID    int64            `json:"start_id"`
	EndID      int64            `json:"end_id"`
	Identity   string           `json:"identity"`
	Properties json.RawMessage  `json:"properties,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Other retorna o ID da outra ponta da aresta.
func (e GraphEdge) Other(nodeID int64) int64 {
	if e.StartID == nodeID {
		return e.EndID
	}
	return e.StartID
}

// SameFact compara arestas pelo fato que representam, ignorando o ID.
func (e GraphEdge) SameFact(o GraphEdge) bool {
	return e.Type == o.Type && e.StartID == o.StartID && e.EndID == o.EndID && e.Identity == o.Identity
}
