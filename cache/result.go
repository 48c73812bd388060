package cache

import "time"

const (
	OperationFoundSimilar = "found_similar"
	OperationSavedNew     = "saved_new"
)

type Match struct {
	Id         string            `json:"id"`
	Similarity float64           `json:"similarity"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Source     string            `json:"source,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type Result struct {
	Success      bool    `json:"success"`
	Operation    string  `json:"operation"`
	Message      string  `json:"message"`
	Answer       string  `json:"answer"`
	SimilarItems []Match `json:"similar_items"`
	// Warning is set when the answer was generated but the cache write
	// failed. The answer is still good; the cluster will be re-written
	// on the next miss.
	Warning string `json:"warning,omitempty"`
}
