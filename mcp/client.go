package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/loopstack/loopstack/toolerrors"
)

// wireTransport is the minimal contract a concrete transport (stdio, SSE,
// HTTP) must satisfy: send a single framed JSON-RPC message, and shut down
// cleanly. Response delivery happens out of band, via each transport's own
// reader calling back into the shared correlator.
type wireTransport interface {
	send(ctx context.Context, data []byte) error
	shutdown() error
}

// Client is a JSON-RPC 2.0 tool-protocol client (spec §4.4). Construct one
// via NewStdioClient, NewSSEClient, or NewHTTPClient.
type Client struct {
	*correlator
	transport wireTransport

	mu          sync.Mutex
	initialized bool
}

func newClient(t wireTransport) *Client {
	return &Client{correlator: newCorrelator(), transport: t}
}

// Initialize performs the initialize/initialized handshake (spec §4.4,
// once per session). Calling it more than once is a no-op after the first
// success.
func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	params, err := json.Marshal(initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: clientName, Version: clientVersion},
	})
	if err != nil {
		return fmt.Errorf("mcp: marshal initialize params: %w", err)
	}
	if _, err := c.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	if err := c.notify(ctx, "notifications/initialized", nil); err != nil {
		return fmt.Errorf("mcp: notifications/initialized: %w", err)
	}

	c.mu.Lock()
	c.initialized = true
	c.mu.Unlock()
	return nil
}

// ListTools implements tools/list. Legal only after a successful
// Initialize.
func (c *Client) ListTools(ctx context.Context) ([]RemoteToolInfo, error) {
	if !c.isInitialized() {
		return nil, fmt.Errorf("mcp: list_tools before initialize")
	}
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var out toolsListResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindProtocol, "mcp: decode tools/list result", err)
	}
	return out.Tools, nil
}

// CallTool implements tools/call. Legal only after a successful
// Initialize. The returned string is the flattened content (text blocks
// concatenated; image blocks rendered as "[Image: N bytes, type: MIME]"
// per spec §4.4); isError reports the server's isError flag.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (string, bool, error) {
	if !c.isInitialized() {
		return "", false, fmt.Errorf("mcp: call_tool before initialize")
	}
	params, err := json.Marshal(callToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return "", false, fmt.Errorf("mcp: marshal call_tool params: %w", err)
	}
	result, err := c.call(ctx, "tools/call", params)
	if err != nil {
		return "", false, err
	}
	var out callToolResult
	if err := json.Unmarshal(result, &out); err != nil {
		return "", false, toolerrors.NewWithCause(toolerrors.KindProtocol, "mcp: decode tools/call result", err)
	}
	return flattenContent(out.Content), out.IsError, nil
}

// Close shuts the client down. Idempotent (spec §4.4 "Shutdown is
// idempotent").
func (c *Client) Close() error {
	c.markClosed()
	c.drain()
	return c.transport.shutdown()
}

func (c *Client) isInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// call sends a request and blocks for its response, cleaning up the
// pending entry on every exit path (send failure, timeout, success).
func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := c.nextRequestID()
	ch, cleanup := c.register(id)

	data, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("mcp: marshal request: %w", err)
	}
	if err := c.transport.send(ctx, data); err != nil {
		cleanup()
		return nil, toolerrors.NewWithCause(toolerrors.KindProtocol, fmt.Sprintf("mcp: send %s", method), err)
	}

	resp, err := c.waitFor(ctx, ch, cleanup)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, toolerrors.NewWithCause(toolerrors.KindProtocol, fmt.Sprintf("mcp: %s", method), resp.Error)
	}
	return resp.Result, nil
}

// notify sends a fire-and-forget notification with no id and no expected
// reply.
func (c *Client) notify(ctx context.Context, method string, params json.RawMessage) error {
	data, err := json.Marshal(notification{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: marshal notification: %w", err)
	}
	return c.transport.send(ctx, data)
}

// deliver is invoked by a transport's reader goroutine for every decoded
// response line/event/body.
func (c *Client) deliver(resp response) {
	c.resolve(resp)
}

func flattenContent(blocks []toolContentBlock) string {
	var out string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out += b.Text
		case "image":
			out += fmt.Sprintf("[Image: %d bytes, type: %s]", decodedImageSize(b.Data), b.MimeType)
		}
	}
	return out
}

// decodedImageSize returns the decoded byte length of a base64-encoded
// image payload, falling back to the raw string length if it doesn't
// decode as base64 (a malformed or differently-encoded payload should
// still render something rather than fail rendering entirely).
func decodedImageSize(data string) int {
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return len(decoded)
	}
	return len(data)
}
