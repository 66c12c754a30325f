package ai

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
)

// ErrTransientUnavailable means the embedding service kept answering 503 (or
// the connection kept failing) for the whole retry budget. Callers degrade
// instead of surfacing this to the user.
var ErrTransientUnavailable = errors.New("embedding service unavailable")

// Embedder turns text into a fixed-length semantic vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var urlPattern = regexp.MustCompile(`https?://[\w/:%#$&?()~.=+\-]+`)

// RedactURLs replaces every URL-shaped substring with a placeholder token so
// links neither leak to the embedding service nor dominate the vector.
func RedactURLs(text string) string {
	return urlPattern.ReplaceAllString(text, "<URL>")
}
