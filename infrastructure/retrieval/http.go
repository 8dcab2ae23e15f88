package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/groundwork/domain/evidence"
)

// HTTPRetriever queries a remote search service over JSON. The service
// owns indexing, embedding, and ranking; this adapter only carries the
// query and maps the ranked passages back.
type HTTPRetriever struct {
	endpoint string
	apiKey   string
	corpus   string
	client   *http.Client
}

// HTTPConfig configures the HTTP retriever.
type HTTPConfig struct {
	Endpoint string // Required: full URL of the search endpoint
	APIKey   string // Optional bearer token
	Corpus   string // Optional corpus/collection reference passed through
	Timeout  int    // Timeout in seconds (default: 30)
}

// NewHTTPRetriever creates a new HTTP retriever.
func NewHTTPRetriever(config HTTPConfig) *HTTPRetriever {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30
	}

	return &HTTPRetriever{
		endpoint: config.Endpoint,
		apiKey:   config.APIKey,
		corpus:   config.Corpus,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

type searchRequest struct {
	Query  string `json:"query"`
	Corpus string `json:"corpus,omitempty"`
	K      int    `json:"k"`
}

type searchResponse struct {
	Passages []evidence.Passage `json:"passages"`
}

// Retrieve implements evidence.Retriever. A transport or protocol failure
// wraps evidence.ErrUnavailable; an empty passage list is a normal result.
func (r *HTTPRetriever) Retrieve(ctx context.Context, query string, k int) ([]evidence.Passage, error) {
	body, err := json.Marshal(searchRequest{Query: query, Corpus: r.corpus, K: k})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", evidence.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", evidence.ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", evidence.ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", evidence.ErrUnavailable, err)
	}

	if searchResp.Passages == nil {
		return []evidence.Passage{}, nil
	}
	return searchResp.Passages, nil
}
