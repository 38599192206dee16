package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Provider returns the raw, unnormalized social-graph payload for a fid.
// The payload shape has drifted across provider versions, which is why
// callers feed it through FromRaw rather than decoding into a struct.
type Provider interface {
	Lookup(ctx context.Context, fid uint64) (map[string]interface{}, error)
}

// NeynarClient talks to the hosted social-graph API.
type NeynarClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewNeynarClient(baseURL, apiKey string, timeout time.Duration) *NeynarClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NeynarClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (n *NeynarClient) Lookup(ctx context.Context, fid uint64) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/v2/farcaster/user/bulk?fids=%d", n.baseURL, fid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if n.apiKey != "" {
		req.Header.Set("x-api-key", n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Users []map[string]interface{} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("profile lookup: decoding response: %w", err)
	}

	if len(body.Users) == 0 {
		return nil, nil
	}
	return body.Users[0], nil
}
