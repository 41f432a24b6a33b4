// Command agentdemo is a minimal CLI that wires an orchestrator.Orchestrator
// end to end: it loads a YAML config, constructs the configured provider
// adapter, and drives one or more chat turns against it (spec §2, §6.1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopstack/loopstack/config"
	"github.com/loopstack/loopstack/content"
	"github.com/loopstack/loopstack/contextmgr"
	"github.com/loopstack/loopstack/orchestrator"
	"github.com/loopstack/loopstack/providers/anthropic"
	"github.com/loopstack/loopstack/providers/openai"
	"github.com/loopstack/loopstack/telemetry"
)

var (
	version = "dev"

	configPath   string
	conversation string
	systemPrompt string
	debug        bool
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agentdemo:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agentdemo",
		Short:        "Drive an agent orchestration engine from the command line",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "agentdemo.yaml", "Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&conversation, "conversation", "cli", "Conversation id for this invocation (history is held in memory only and is not kept between invocations)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug telemetry logging")

	rootCmd.AddCommand(buildChatCmd())
	rootCmd.AddCommand(buildCompactCmd())
	rootCmd.AddCommand(buildClearCmd())
	return rootCmd
}

func buildChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message to the configured model and print its reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, cfg, err := buildOrchestrator()
			if err != nil {
				return err
			}
			result, err := o.SendMessage(cmd.Context(), orchestrator.TurnOptions{
				AgentID:       conversation,
				Model:         cfg.DefaultModel,
				SystemPrompt:  systemPrompt,
				MaxIterations: cfg.ChatMaxIterations,
			}, args[0])
			if err != nil {
				return fmt.Errorf("agentdemo: chat: %w", err)
			}
			fmt.Println(result.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&systemPrompt, "system", "", "System prompt for the agent's first turn")
	return cmd
}

func buildCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the named conversation's context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			usage, err := o.CompactContext(cmd.Context(), conversation)
			if err != nil {
				return fmt.Errorf("agentdemo: compact: %w", err)
			}
			fmt.Printf("messages=%d estimated_tokens=%d\n", usage.MessageCount, usage.EstimatedTokens)
			return nil
		},
	}
}

func buildClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the named conversation's context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			o.ClearContext(cmd.Context(), conversation)
			return nil
		},
	}
}

// buildOrchestrator loads config, wires the configured provider adapter, and
// constructs an Orchestrator ready to accept turns.
func buildOrchestrator() (*orchestrator.Orchestrator, config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return nil, config.Config{}, err
	}

	models := make(map[string]contextmgr.ModelConfig, len(cfg.Models))
	for name, mc := range cfg.Models {
		models[name] = mc.ContextManagerConfig()
	}

	var tel *telemetry.Provider
	if debug {
		tel = telemetry.NewClueProvider()
	} else {
		tel = telemetry.NewNoopProvider()
	}

	o, err := orchestrator.New(orchestrator.Config{
		Client:    client,
		Models:    models,
		Telemetry: tel,
		OnContextWarning: func(conversationID string, usage contextmgr.Usage) {
			fmt.Fprintf(os.Stderr, "agentdemo: conversation %s approaching its context limit (%d tokens)\n", conversationID, usage.EstimatedTokens)
		},
		OnError: func(conversationID string, err error) {
			fmt.Fprintf(os.Stderr, "agentdemo: conversation %s error: %v\n", conversationID, err)
		},
	})
	if err != nil {
		return nil, config.Config{}, err
	}
	return o, cfg, nil
}

func buildClient(cfg config.Config) (content.Client, error) {
	switch cfg.Provider {
	case "", "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", "anthropic")
		}
		return anthropic.NewFromAPIKey(apiKey, cfg.DefaultModel)
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", "openai")
		}
		return openai.NewFromAPIKey(apiKey, cfg.DefaultModel)
	case "bedrock":
		return nil, fmt.Errorf("agentdemo: provider %q requires a pre-built bedrockruntime.Client; wire one via the library API instead of the CLI", "bedrock")
	default:
		return nil, fmt.Errorf("agentdemo: unknown provider %q", cfg.Provider)
	}
}
