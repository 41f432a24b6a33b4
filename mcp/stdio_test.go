package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer reads newline-delimited JSON-RPC requests from r and replies
// on w using handle, simulating a minimal tool server for stdio transport
// tests.
func fakeServer(t *testing.T, r io.Reader, w io.Writer, handle func(req request) response) {
	t.Helper()
	scanner := bufio.NewScanner(r)
	go func() {
		for scanner.Scan() {
			var req request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			if req.ID == 0 {
				continue // notification, no reply expected
			}
			resp := handle(req)
			data, _ := json.Marshal(resp)
			_, _ = w.Write(append(data, '\n'))
		}
	}()
}

func newPipedTestClient(t *testing.T, handle func(req request) response) (*Client, func()) {
	t.Helper()
	clientStdinR, clientStdinW := io.Pipe()
	serverStdoutR, serverStdoutW := io.Pipe()

	fakeServer(t, clientStdinR, serverStdoutW, handle)
	client := newStdioClientFromPipes(clientStdinW, serverStdoutR)
	return client, func() {
		_ = client.Close()
	}
}

func TestStdioInitializeListAndCallTool(t *testing.T) {
	client, cleanup := newPipedTestClient(t, func(req request) response {
		switch req.Method {
		case "initialize":
			return response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
		case "tools/list":
			result, _ := json.Marshal(toolsListResult{Tools: []RemoteToolInfo{
				{Name: "read_file", Description: "reads a file", InputSchema: json.RawMessage(`{"type":"object"}`)},
			}})
			return response{JSONRPC: "2.0", ID: req.ID, Result: result}
		case "tools/call":
			result, _ := json.Marshal(callToolResult{
				Content: []toolContentBlock{{Type: "text", Text: "ok"}},
				IsError: false,
			})
			return response{JSONRPC: "2.0", ID: req.ID, Result: result}
		}
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}}
	})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, client.Initialize(ctx, "test-client", "1.0"))

	remoteTools, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, remoteTools, 1)
	require.Equal(t, "read_file", remoteTools[0].Name)

	text, isError, err := client.CallTool(ctx, "read_file", map[string]any{"path": "/x"})
	require.NoError(t, err)
	require.False(t, isError)
	require.Equal(t, "ok", text)
}

func TestStdioListToolsBeforeInitializeIsError(t *testing.T) {
	client, cleanup := newPipedTestClient(t, func(req request) response {
		return response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
	})
	defer cleanup()

	_, err := client.ListTools(context.Background())
	require.Error(t, err)
}

func TestStdioServerErrorSurfaces(t *testing.T) {
	client, cleanup := newPipedTestClient(t, func(req request) response {
		if req.Method == "initialize" {
			return response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
		}
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: 1, Message: "tool not found"}}
	})
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx, "c", "1"))
	_, _, err := client.CallTool(ctx, "missing", nil)
	require.Error(t, err)
}

func TestStdioCloseIsIdempotent(t *testing.T) {
	client, cleanup := newPipedTestClient(t, func(req request) response {
		return response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
	})
	defer cleanup()

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestStdioDrainsPendingOnClose(t *testing.T) {
	clientStdinR, clientStdinW := io.Pipe()
	serverStdoutR, serverStdoutW := io.Pipe()
	_ = clientStdinR
	_ = serverStdoutW

	client := newStdioClientFromPipes(clientStdinW, serverStdoutR)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.call(context.Background(), "tools/list", nil)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, client.Close())

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("call did not unblock after Close")
	}
}
