package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPMetricsProvider implements port.MetricsProvider against an external
// metrics API returning {"views": n, "likes": n} per tracked post. The
// provider is untrusted; regressive or duplicate values are filtered by
// the monotonic check downstream.
type HTTPMetricsProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPMetricsProvider returns a provider rooted at baseURL.
func NewHTTPMetricsProvider(baseURL string, timeout time.Duration) *HTTPMetricsProvider {
	return &HTTPMetricsProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchMetrics returns the current engagement numbers for a tracked post.
func (p *HTTPMetricsProvider) FetchMetrics(ctx context.Context, tweetID string) (int64, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/metrics/%s", p.baseURL, tweetID), nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("metrics fetch: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Views int64 `json:"views"`
		Likes int64 `json:"likes"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, err
	}
	return body.Views, body.Likes, nil
}
