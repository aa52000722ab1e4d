package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/infra/buildinfo"
)

// HTTPClient reads the recorder's metrics listener. It cannot control
// capture; that is only possible over the control socket.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for addr, e.g. "127.0.0.1:9464".
func NewHTTPClient(addr string) *HTTPClient {
	baseURL := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "arsnap-cli/"+buildinfo.Get().Version)
	req.Header.Set("Accept", "application/json")
	return c.client.Do(req)
}

// Status implements StatusReader using GET /status.
func (c *HTTPClient) Status(ctx context.Context) (service.Status, error) {
	var st service.Status
	resp, err := c.Get(ctx, "/status")
	if err != nil {
		return st, err
	}
	err = ParseResponse(resp, &st)
	return st, err
}

// Ready reports whether the recorder can write captures (GET /readyz).
func (c *HTTPClient) Ready(ctx context.Context) error {
	resp, err := c.Get(ctx, "/readyz")
	if err != nil {
		return err
	}
	return ParseResponse(resp, nil)
}

// ParseResponse parses a JSON response body into the target struct.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return fmt.Errorf("[%s] %s", errResp.Code, errResp.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
