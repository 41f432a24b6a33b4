package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loopstack/loopstack/contextmgr"
)

const sampleConfig = `
defaultModel: claude-test
provider: anthropic
maxIterations: 10
chatMaxIterations: 50
models:
  claude-test:
    contextLimit: 100000
    compactionMode: truncate
  claude-unbounded:
    contextLimit: 0
    warningThreshold: 0.9
toolServers:
  - name: fs
    transport: stdio
    command: fs-server
    args: ["--root", "/tmp"]
  - name: remote
    transport: sse
    url: https://example.test/mcp
`

func TestParse_DecodesTopLevelFields(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.Equal(t, "claude-test", cfg.DefaultModel)
	require.Equal(t, "anthropic", cfg.Provider)
	require.Equal(t, 10, cfg.MaxIterations)
	require.Equal(t, 50, cfg.ChatMaxIterations)
	require.Len(t, cfg.Models, 2)
	require.Len(t, cfg.ToolServers, 2)
	require.Equal(t, "fs-server", cfg.ToolServers[0].Command)
	require.Equal(t, []string{"--root", "/tmp"}, cfg.ToolServers[0].Args)
	require.Equal(t, "https://example.test/mcp", cfg.ToolServers[1].URL)
}

func TestParse_AppliesDefaultWarningThreshold(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.Equal(t, defaultWarningThreshold, cfg.Models["claude-test"].WarningThreshold)
	require.Equal(t, 0.9, cfg.Models["claude-unbounded"].WarningThreshold)
}

func TestModelConfig_ContextManagerConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	mc := cfg.Models["claude-test"].ContextManagerConfig()
	require.Equal(t, contextmgr.ModelConfig{
		ContextLimit:     100000,
		CompactionMode:   contextmgr.ModeTruncate,
		WarningThreshold: defaultWarningThreshold,
	}, mc)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/agentdemo.yaml")
	require.Error(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("not: valid: yaml: ["))
	require.Error(t, err)
}
