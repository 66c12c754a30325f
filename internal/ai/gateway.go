package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// GatewayEmbedder calls an AI-gateway style embedding endpoint: a single
// POST with body {"inputs": <text>} answered by a JSON array of floats.
// 503 means the model is still loading, so those responses (and transport
// errors) are retried on a fixed delay before giving up.
type GatewayEmbedder struct {
	client *resty.Client
	url    string
	dim    int
}

func NewGatewayEmbedder(url, token string, dim, retryCount int, retryWait time.Duration) *GatewayEmbedder {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetAuthToken(token).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusServiceUnavailable
		})

	return &GatewayEmbedder{client: client, url: url, dim: dim}
}

func (e *GatewayEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]string{"inputs": RedactURLs(text)}

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(e.url)
	if err != nil {
		return nil, errors.Wrap(ErrTransientUnavailable, err.Error())
	}
	if resp.StatusCode() == http.StatusServiceUnavailable {
		return nil, ErrTransientUnavailable
	}
	if resp.IsError() {
		return nil, errors.Errorf("embedding request failed: %s", resp.Status())
	}

	var vector []float32
	if err := json.Unmarshal(resp.Body(), &vector); err != nil {
		return nil, errors.Wrap(err, "decode embedding response")
	}
	if e.dim > 0 && len(vector) != e.dim {
		return nil, errors.Errorf("unexpected embedding dimension: got %d, want %d", len(vector), e.dim)
	}
	return vector, nil
}
