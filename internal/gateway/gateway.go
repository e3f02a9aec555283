package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
)

// TokenSource supplies the bearer token attached to outgoing requests.
// Implemented by auth.Credentials.
type TokenSource interface {
	Token() (string, bool)
	Clear() error
}

// Gateway is the single HTTP path to the backend. All three clients go
// through it; none of them talks to the network directly or to each other.
type Gateway struct {
	baseURL string
	creds   TokenSource
	client  *http.Client
}

func New(baseURL string, creds TokenSource) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{},
	}
}

// Do sends a JSON request and returns the raw response body on 2xx. A
// non-nil body is marshaled as JSON. Non-2xx responses come back as
// *APIError; transport failures come back wrapped. No retries.
func (g *Gateway) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.send(req)
}

// DoMultipart uploads r as a single file field. The whole body is buffered
// before sending; documents are bounded by the backend's size ceiling, so
// streaming is not worth the extra moving parts here.
func (g *Gateway) DoMultipart(ctx context.Context, path, fieldName, filename string, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart field: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return g.send(req)
}

func (g *Gateway) send(req *http.Request) ([]byte, error) {
	authenticated := false
	if token, ok := g.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
		authenticated = true
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, data)
		// A rejected token means the stored credential is dead; drop it so
		// the whole console falls back to Anonymous in one place.
		if authenticated && resp.StatusCode == http.StatusUnauthorized {
			if clearErr := g.creds.Clear(); clearErr != nil {
				log.Printf("Failed to clear rejected credentials: %v", clearErr)
			}
		}
		return nil, apiErr
	}
	return data, nil
}
