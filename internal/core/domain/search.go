package domain

// SearchHit is one chunk returned by a similarity search.
type SearchHit struct {
	// Position is the chunk's insertion position in the index.
	Position int

	// Content is the chunk text.
	Content string

	// Similarity is the cosine similarity to the query, in [-1, 1].
	Similarity float64
}

// Answer is a grounded completion for a question.
type Answer struct {
	// Question is the query as asked.
	Question string

	// Text is the completion service response, verbatim.
	Text string

	// Sources are the retrieved chunks in descending similarity.
	Sources []SearchHit

	// DocumentID identifies the index the answer was retrieved from.
	DocumentID string
}
