package hallpass

// DefaultQueryChunkSize is the largest candidate-ID list handed to the store
// in one call. It tracks the smallest IN-list limit among supported query
// engines.
const DefaultQueryChunkSize = 1_000

// Config holds configuration for the hallpass engine.
type Config struct {
	// QueryChunkSize caps the candidate-ID list size per store call. Large
	// batches are partitioned into chunks of this size and the per-chunk
	// results merged; the chunk size never changes results. Defaults to
	// DefaultQueryChunkSize.
	QueryChunkSize int `json:"query_chunk_size,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueryChunkSize: DefaultQueryChunkSize,
	}
}

func (c Config) chunkSize() int {
	if c.QueryChunkSize > 0 {
		return c.QueryChunkSize
	}
	return DefaultQueryChunkSize
}
