package entities

import "fmt"

// Person é o registro compartilhado por Actor e Director. Cada papel é
// persistido sob o seu próprio label, ligados apenas pela chave natural.
type Person struct {
	NodeID int64  `json:"node_id,omitempty"`
	ID     string `json:"id" graph:"pk,property:id" validate:"required"`
	Name   string `json:"name" graph:"property:name" validate:"required"`
}

func (p *Person) Key() string {
	return p.ID
}

func (p *Person) GraphID() int64 {
	return p.NodeID
}

func (p *Person) SetGraphID(id int64) {
	p.NodeID = id
}

func (p Person) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.ID)
}
