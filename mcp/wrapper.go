package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loopstack/loopstack/tools"
)

// ToolWrapper adapts a single remote tool, reached through a Client, into a
// local tools.Tool. Execute forwards to call_tool and flattens the
// server's content blocks into a single string (spec §4.4).
type ToolWrapper struct {
	client   *Client
	remote   RemoteToolInfo
	wrapName string
}

// WrapServerTool names the wrapper "serverName:toolName", for use when the
// orchestrator invokes the remote server directly (spec §4.4).
func WrapServerTool(client *Client, serverName string, remote RemoteToolInfo) *ToolWrapper {
	return &ToolWrapper{client: client, remote: remote, wrapName: serverName + ":" + remote.Name}
}

// WrapProxyTool names the wrapper "prefix_name", for use when a proxy tool
// merges remote tools into its own namespace (spec §4.4).
func WrapProxyTool(client *Client, prefix string, remote RemoteToolInfo) *ToolWrapper {
	return &ToolWrapper{client: client, remote: remote, wrapName: prefix + "_" + remote.Name}
}

func (w *ToolWrapper) Name() string        { return w.wrapName }
func (w *ToolWrapper) Description() string { return w.remote.Description }
func (w *ToolWrapper) Schema() json.RawMessage {
	if len(w.remote.InputSchema) == 0 {
		return json.RawMessage(`{"type":"object"}`)
	}
	return w.remote.InputSchema
}
func (w *ToolWrapper) RequiresApproval(any) bool { return false }

func (w *ToolWrapper) Execute(ctx context.Context, params any) (tools.Result, error) {
	text, isError, err := w.client.CallTool(ctx, w.remote.Name, params)
	if err != nil {
		return tools.Result{}, fmt.Errorf("mcp: call_tool %s: %w", w.remote.Name, err)
	}
	return tools.Result{Content: text, IsError: isError}, nil
}

// MergeInto lists the remote tools available on client and registers each
// one, wrapped per makeWrapper, into registry.
func MergeInto(ctx context.Context, registry *tools.Registry, client *Client, makeWrapper func(RemoteToolInfo) *ToolWrapper) error {
	remoteTools, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("mcp: list_tools: %w", err)
	}
	for _, rt := range remoteTools {
		if err := registry.Register(makeWrapper(rt)); err != nil {
			return fmt.Errorf("mcp: register wrapped tool %q: %w", rt.Name, err)
		}
	}
	return nil
}
