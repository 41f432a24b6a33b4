// Package config loads orchestrator configuration — model defaults,
// per-model context limits, provider selection, and tool server
// endpoints — from YAML, the same library the teacher uses for its own
// config-shaped values (spec §2, Ambient stack: Configuration).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loopstack/loopstack/contextmgr"
)

// Config is the top-level orchestrator configuration document.
type Config struct {
	// DefaultModel is the model cmd/agentdemo uses for every chat turn and
	// as its provider adapter's default model.
	DefaultModel string `yaml:"defaultModel"`

	// Provider selects which providers/* adapter backs content.Client:
	// "anthropic", "openai", or "bedrock".
	Provider string `yaml:"provider"`

	// Models maps a model identifier to its context-manager configuration
	// (spec §4.5, "Per-model configuration").
	Models map[string]ModelConfig `yaml:"models"`

	// ToolServers lists tool-protocol server descriptors (spec §4.4). This
	// package only parses them; cmd/agentdemo does not connect to them.
	ToolServers []ToolServerConfig `yaml:"toolServers"`

	// MaxIterations is a per-agent iteration limit. It is parsed but not
	// applied anywhere in this module; agent.Config.MaxIterations keeps
	// its own default of 10.
	MaxIterations int `yaml:"maxIterations"`

	// ChatMaxIterations is the orchestrator chat loop's iteration ceiling,
	// distinct from (and typically higher than) subagent MaxIterations
	// (spec §5, "up to 50 for chat sessions").
	ChatMaxIterations int `yaml:"chatMaxIterations"`
}

// ModelConfig mirrors contextmgr.ModelConfig's YAML-loadable shape.
type ModelConfig struct {
	ContextLimit     int     `yaml:"contextLimit"`
	CompactionMode   string  `yaml:"compactionMode"`
	WarningThreshold float64 `yaml:"warningThreshold"`
	CompactionModel  string  `yaml:"compactionModel"`
}

// ContextManagerConfig converts a YAML-loaded ModelConfig into the
// contextmgr.ModelConfig the engine actually consumes.
func (m ModelConfig) ContextManagerConfig() contextmgr.ModelConfig {
	return contextmgr.ModelConfig{
		ContextLimit:     m.ContextLimit,
		CompactionMode:   contextmgr.CompactionMode(m.CompactionMode),
		WarningThreshold: m.WarningThreshold,
		CompactionModel:  m.CompactionModel,
	}
}

// ToolServerConfig describes one mcp.Client connection to establish.
type ToolServerConfig struct {
	Name string `yaml:"name"`
	// Transport is one of "stdio", "sse", "http".
	Transport string `yaml:"transport"`
	// Command and Args are used for Transport == "stdio".
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// URL is used for Transport == "sse" or "http".
	URL string `yaml:"url"`
}

const defaultWarningThreshold = 0.8

// Load reads and parses a Config document from path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a Config document from raw YAML bytes.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	for name, mc := range cfg.Models {
		if mc.WarningThreshold == 0 {
			mc.WarningThreshold = defaultWarningThreshold
			cfg.Models[name] = mc
		}
	}
	return cfg, nil
}
