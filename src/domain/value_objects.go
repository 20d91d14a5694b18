package domain

import (
	"encoding/json"
	"time"
)

// Label identifica o tipo de um nó no grafo.
type Label string

const (
	LabelActor    Label = "Actor"
	LabelDirector Label = "Director"
	LabelMovie    Label = "Movie"
	LabelUser     Label = "User"
)

func (l Label) Valid() bool {
	switch l {
	case LabelActor, LabelDirector, LabelMovie, LabelUser:
		return true
	}
	return false
}

// RelationshipType identifica o tipo de uma aresta.
type RelationshipType string

const (
	RelActsIn   RelationshipType = "ACTS_IN"
	RelDirected RelationshipType = "DIRECTED"
	RelRated    RelationshipType = "RATED"
	RelFriendOf RelationshipType = "FRIEND_OF"
)

func (t RelationshipType) Valid() bool {
	switch t {
	case RelActsIn, RelDirected, RelRated, RelFriendOf:
		return true
	}
	return false
}

type SecurityRole string

const (
	RoleAdmin SecurityRole = "ROLE_ADMIN"
	RoleUser  SecurityRole = "ROLE_USER"
)

const (
	MinStars = 1
	MaxStars = 5

	// LikedThreshold: uma avaliação conta como "gostei" quando stars > LikedThreshold.
	LikedThreshold = 3
)

// Requester é o usuário corrente de uma operação, passado explicitamente.
type Requester struct {
	Login string
}

// ############################################################
// ################## EVENTOS DE DOMINIO ######################
// ############################################################

const (
	EventNodeCreated         = "node_created"
	EventNodeDeleted         = "node_deleted"
	EventRelationshipCreated = "relationship_created"
	EventRelationshipRemoved = "relationship_removed"
	EventGraphPurged         = "graph_purged"
)

// DomainEvent descreve uma mudança confirmada no grafo.
type DomainEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       DomainEventData `json:"data"`
}

type DomainEventData struct {
	Label            Label            `json:"label,omitempty"`
	Key              string           `json:"key,omitempty"`
	RelationshipType RelationshipType `json:"relationship_type,omitempty"`
	StartKey         string           `json:"start_key,omitempty"`
	EndKey           string           `json:"end_key,omitempty"`
	Properties       json.RawMessage  `json:"properties,omitempty"`
}

// PartitionKey agrupa os eventos do mesmo nó (ou do nó de origem da aresta).
func (e DomainEvent) PartitionKey() string {
	if e.Data.Key != "" {
		return string(e.Data.Label) + ":" + e.Data.Key
	}
	return e.Data.StartKey
}
