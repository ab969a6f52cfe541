package models

// Chunk is one bounded slice of a source document, the unit stored in the
// vector index. ID is derived from the chunk content so re-ingesting the same
// material upserts instead of duplicating.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Passage is a chunk returned by similarity search, ranked best first.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}
