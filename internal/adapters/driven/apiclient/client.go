package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// Client sends JSON requests to one provider. Header is added to every
// request and usually carries credentials.
type Client struct {
	provider string
	baseURL  string
	header   http.Header
	http     *http.Client
}

// New returns a Client rooted at baseURL.
func New(provider, baseURL string, timeout time.Duration, header http.Header) *Client {
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		provider: provider,
		baseURL:  baseURL,
		header:   header,
		http:     &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the root every path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Post encodes in as the request body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.provider, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

// Get issues a GET and decodes the response into out unless out is nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, http.NoBody, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", c.provider, ctx.Err())
		}
		return fmt.Errorf("%s: %w: %w", c.provider, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.provider, err)
	}
	if err := FromStatus(c.provider, resp.StatusCode, raw); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}
