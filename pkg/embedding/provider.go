package embedding

// Dimension is the fixed embedding width expected by the vector store schema.
const Dimension = 768

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}

// ZeroVector returns an all-zero embedding of the store dimension. Used as the
// degradation value when the embedding backend is unavailable.
func ZeroVector() []float32 {
	return make([]float32, Dimension)
}
