package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// sessionHeader is the header a stateful HTTP tool server may set on its
// first response; the client echoes it back on every subsequent request
// until shutdown (spec §4.4, §6.3).
const sessionHeader = "Mcp-Session-Id"

// httpTransport implements the stateless-POST flavor of the tool-protocol
// client: each request/response pair is a single HTTP round trip, with no
// persistent connection. Correlation is trivial in principle (one POST, one
// reply) but still routed through the shared correlator so Client's
// request-building/timeout/cleanup logic is identical across transports.
type httpTransport struct {
	httpClient *http.Client
	url        string
	owner      *Client

	mu        sync.Mutex
	sessionID string
}

// NewHTTPClient returns a Client that POSTs each JSON-RPC message to url.
func NewHTTPClient(url string) *Client {
	t := &httpTransport{httpClient: &http.Client{}, url: url}
	c := newClient(t)
	t.owner = c
	return c
}

func (t *httpTransport) send(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	t.mu.Lock()
	sessionID := t.sessionID
	t.mu.Unlock()
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if sid := resp.Header.Get(sessionHeader); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mcp: http status %d: %s", resp.StatusCode, string(raw))
	}

	// Notifications (no "id" expected in the reply) get an empty body or a
	// 202; anything else is decoded as a response and delivered directly,
	// since this transport has no separate reader loop.
	raw, err := io.ReadAll(resp.Body)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	t.owner.deliver(decoded)
	return nil
}

func (t *httpTransport) shutdown() error {
	t.mu.Lock()
	t.sessionID = ""
	t.mu.Unlock()
	return nil
}
