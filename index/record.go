package index

import "time"

// Record is one stored question/answer pair. Records are written once
// and never mutated in place.
type Record struct {
	Id        string            `json:"id"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Source    string            `json:"source,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Candidate is a search result. Score is cosine similarity in [-1, 1],
// and the embedding on the inner record may be empty depending on the
// backing store.
type Candidate struct {
	Id     string
	Score  float64
	Record Record
}
