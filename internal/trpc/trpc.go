// Package trpc speaks the batched JSON convention of cohost's tRPC API:
// every call wraps its input as {"0": input} and every response is an
// array of {"result": {"data": ...}} entries.
package trpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoResult is returned by Decode when the batch carries no result data.
var ErrNoResult = errors.New("trpc: response has no result data")

// Client issues batched calls against a tRPC base URL.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

// Response is a fully read tRPC response. Body is kept verbatim for diagnostics.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope wraps input in the single-entry batch object.
func Envelope(input any) map[string]any {
	return map[string]any{"0": input}
}

// Query performs a GET call with the batch passed in the input query parameter.
func (c *Client) Query(ctx context.Context, procedure string, input any, cookie string) (*Response, error) {
	payload, err := json.Marshal(Envelope(input))
	if err != nil {
		return nil, fmt.Errorf("encode %s input: %w", procedure, err)
	}

	endpoint := c.endpoint(procedure) + "&input=" + url.QueryEscape(string(payload))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", procedure, err)
	}
	return c.do(req, procedure, cookie)
}

// Mutate performs a POST call with the batch as the JSON body.
func (c *Client) Mutate(ctx context.Context, procedure string, input any, cookie string) (*Response, error) {
	payload, err := json.Marshal(Envelope(input))
	if err != nil {
		return nil, fmt.Errorf("encode %s input: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(procedure), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", procedure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, procedure, cookie)
}

func (c *Client) endpoint(procedure string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + procedure + "?batch=1"
}

func (c *Client) do(req *http.Request, procedure, cookie string) (*Response, error) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", procedure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", procedure, err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the data of the first batch entry into out.
func (r *Response) Decode(out any) error {
	var batch []struct {
		Result *struct {
			Data json.RawMessage `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(r.Body, &batch); err != nil {
		return fmt.Errorf("trpc: decode batch: %w", err)
	}
	if len(batch) == 0 || batch[0].Result == nil || len(batch[0].Result.Data) == 0 {
		return ErrNoResult
	}
	if err := json.Unmarshal(batch[0].Result.Data, out); err != nil {
		return fmt.Errorf("trpc: decode data: %w", err)
	}
	return nil
}

// String returns the raw body, used as the diagnostic payload on failures.
func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}
