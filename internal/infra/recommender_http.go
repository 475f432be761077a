package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"repricer/internal/service"
)

// HTTPRecommender delegates pricing to a model sidecar. Isolating the model in
// its own process keeps its dependencies and failures out of the Go backend.
type HTTPRecommender struct {
	sidecarURL string
	httpClient *http.Client
}

// NewHTTPRecommender builds a client for sidecarURL. timeout is a backstop;
// the orchestrator's context deadline normally fires first.
func NewHTTPRecommender(sidecarURL string, timeout time.Duration) *HTTPRecommender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRecommender{
		sidecarURL: strings.TrimRight(sidecarURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Recommend POSTs the request to the sidecar's /recommend endpoint.
func (c *HTTPRecommender) Recommend(ctx context.Context, payload service.OptimizationRequest) (*service.Recommendation, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", service.ErrRecommendationUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sidecarURL+"/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", service.ErrRecommendationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sidecar unreachable: %w", service.ErrRecommendationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: sidecar returned %d", service.ErrRecommendationUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", service.ErrRecommendationUnavailable, err)
	}
	return decodeRecommendation(raw)
}
