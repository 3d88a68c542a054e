// Package embeddings defines the Provider interface for vector embedding
// backends. The journal uses embeddings for semantic recall: each stored turn
// is indexed as a dense vector, and prompt building retrieves the turns
// closest in meaning to the current utterance.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by one Provider instance share the dimensionality
// reported by Dimensions. Vectors from different instances must not be mixed
// in the same similarity computation.
type Provider interface {
	// Embed computes the embedding vector for a single text string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for a slice of texts in one provider
	// call. The i-th result corresponds to texts[i]. On error the entire
	// result is nil; partial results are never returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces.
	Dimensions() int

	// ModelID returns the backend model identifier, for logging and for
	// detecting index/model mismatches across restarts.
	ModelID() string
}
