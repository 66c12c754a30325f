package vector

import "context"

// NamespaceEmoji is the only namespace this bot writes or queries.
const NamespaceEmoji = "emoji"

// MetadataName is the canonical metadata key carrying the emoji short-code.
// Writers and readers must agree on it.
const MetadataName = "name"

// Entry is one index record: the embedding of an emoji label.
type Entry struct {
	ID        string
	Values    []float32
	Namespace string
	Metadata  map[string]string
}

// Match is one ranked query result; higher score is more similar.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

type QueryOptions struct {
	TopK           int
	Namespace      string
	ReturnMetadata bool
}

// Index is the similarity-search contract. Insert is an idempotent upsert
// per id; Query returns up to TopK nearest entries in the namespace.
type Index interface {
	Insert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, values []float32, opts QueryOptions) ([]Match, error)
}
