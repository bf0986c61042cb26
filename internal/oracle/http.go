package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"vrflottery/internal/models"

	"github.com/google/logger"
)

const tokenHeader = "X-Api-Token"

type requestResponse struct {
	RequestID uint64 `json:"requestId"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HTTPCoordinator submits randomness requests to a remote oracle service.
// The service answers asynchronously through the fulfill endpoint of the API.
type HTTPCoordinator struct {
	baseURL *url.URL
	token   string
	client  *http.Client
}

// NewHTTPCoordinator returns a client for the randomness service at baseURL.
func NewHTTPCoordinator(baseURL, token string) (*HTTPCoordinator, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse oracle URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid oracle URL %q", baseURL)
	}
	return &HTTPCoordinator{
		baseURL: u,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// RequestRandomWords submits req and returns the id the service assigned to it.
func (c *HTTPCoordinator) RequestRandomWords(
	ctx context.Context, req models.RandomnessRequest,
) (uint64, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "requests")

	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize randomness request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create randomness request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set(tokenHeader, c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to send randomness request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read oracle response: %w", err)
	}

	var apiError errorResponse
	if err := json.Unmarshal(raw, &apiError); err == nil && apiError.Status == "error" {
		return 0, fmt.Errorf("oracle error: %s", apiError.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("oracle returned %s", resp.Status)
	}

	var out requestResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("failed to parse oracle response: %w", err)
	}
	if out.RequestID == 0 {
		return 0, fmt.Errorf("oracle response carries no request id")
	}

	logger.Infof("oracle accepted randomness request %d", out.RequestID)
	return out.RequestID, nil
}
