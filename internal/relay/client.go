package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const chatStreamPath = "/chat/stream"

// Client opens streaming chat calls against the supervised backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			// No timeout, streaming responses can be long-lived.
			Timeout: 0,
			// Don't follow redirects
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// OpenStream posts a chat request and returns the raw event stream body.
// The caller owns the body and must release it on every exit path.
func (c *Client) OpenStream(ctx context.Context, body io.Reader) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatStreamPath, body)
	if err != nil {
		return nil, fmt.Errorf("relay: build backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: backend request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("relay: backend returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}
