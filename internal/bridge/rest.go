package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Doer issues HTTP requests. *http.Client satisfies it; tests substitute
// their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Hard failure classes of the codec. Logical errors reported by the device
// live in the decoded payload and are not errors at this layer.
var (
	ErrEncode    = errors.New("encode request payload")
	ErrTransport = errors.New("bridge transport")
	ErrDecode    = errors.New("decode response body")
)

// buildURL joins host, optional credential and path segments into a bridge
// API URL. Identifiers are plain tokens handed out by the device; nothing
// is escaped.
func buildURL(host, credential string, segments ...string) string {
	url := fmt.Sprintf("http://%s/api", host)
	if credential != "" {
		url += "/" + credential
	}
	for _, seg := range segments {
		url += "/" + seg
	}
	return url
}

// restClient is the JSON-over-HTTP codec under a Session. It knows how to
// encode payloads and decode responses, nothing about what they mean.
type restClient struct {
	http Doer
}

func (c *restClient) get(ctx context.Context, url string) (any, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *restClient) put(ctx context.Context, url string, payload any) (any, error) {
	return c.do(ctx, http.MethodPut, url, payload)
}

func (c *restClient) post(ctx context.Context, url string, payload any) (any, error) {
	return c.do(ctx, http.MethodPost, url, payload)
}

func (c *restClient) do(ctx context.Context, method, url string, payload any) (any, error) {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		body = bytes.NewReader(data)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(method).Inc()

	// The device reports logical failures inside the body, and its error
	// statuses still carry a JSON payload. Decode whatever arrived; the
	// status code alone never fails a call.
	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return decoded, nil
}
