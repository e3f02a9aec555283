package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"bizchat.dev/console/internal/gateway"
)

var (
	// ErrNotConfirmed means the caller skipped the destructive-action
	// confirmation; no network call was made.
	ErrNotConfirmed = errors.New("destructive action not confirmed")
	// ErrUploadPending rejects an upload while another is still in flight.
	ErrUploadPending = errors.New("an upload is already in flight")
)

// DocumentClient manages the document corpus. The cached list is a
// point-in-time snapshot: mutations never patch it locally, callers
// re-issue List afterwards, and a failed operation leaves the previous
// snapshot untouched.
type DocumentClient struct {
	gw *gateway.Gateway

	mu        sync.Mutex
	uploading bool
	documents []Document
}

func NewDocumentClient(gw *gateway.Gateway) *DocumentClient {
	return &DocumentClient{gw: gw}
}

// Upload sends one file as a multipart body under the "file" field. Type
// and size constraints are enforced by the backend only. The corpus
// snapshot is not updated; re-issue List to resync.
func (c *DocumentClient) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, ErrUploadPending
	}
	c.uploading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.mu.Unlock()
	}()

	data, err := c.gw.DoMultipart(ctx, "/api/documents/upload", "file", filename, r)
	if err != nil {
		return nil, err
	}
	var result UploadResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("malformed upload response: %w", err)
	}
	return &result, nil
}

// List fetches a full corpus snapshot and replaces the cached one
// wholesale. On failure the cached snapshot is left as it was.
func (c *DocumentClient) List(ctx context.Context) ([]Document, error) {
	data, err := c.gw.Do(ctx, http.MethodGet, "/api/documents/list", nil)
	if err != nil {
		return nil, err
	}
	var res documentListResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("malformed document list: %w", err)
	}

	c.mu.Lock()
	c.documents = res.Documents
	c.mu.Unlock()
	return res.Documents, nil
}

// Documents returns a copy of the last successful snapshot.
func (c *DocumentClient) Documents() []Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Document, len(c.documents))
	copy(out, c.documents)
	return out
}

// Delete removes one document. Without confirmed it refuses locally, before
// any network call, so the destructive-action guard holds regardless of the
// front end driving this client.
func (c *DocumentClient) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	_, err := c.gw.Do(ctx, http.MethodDelete, "/api/documents/delete/"+id, nil)
	return err
}

// ClearAll removes the entire corpus, with the same confirmation guard.
func (c *DocumentClient) ClearAll(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	_, err := c.gw.Do(ctx, http.MethodPost, "/api/documents/clear-all", nil)
	return err
}
