package domain

// MovieImport descreve um filme com elenco e diretores, como chega da
// ingestão em lote (Kafka ou seed).
type MovieImport struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Cast      []CastMember   `json:"cast"`
	Directors []PersonImport `json:"directors"`
}

type CastMember struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

type PersonImport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImportSummary conta o que um lote de fato mudou no grafo.
type ImportSummary struct {
	Movies        int `json:"movies"`
	Relationships int `json:"relationships"`
	Events        int `json:"events"`
}
