// Package main provides the archipilot binary entry point.
// Archipilot is a chat-command assistant for a markdown architecture
// vault: decisions, risks, questions, requirements, work packages,
// stakeholders, and components.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	// Register chat commands via init()
	_ "github.com/enzomar/archipilot/commands"

	// Register LLM providers via init()
	_ "github.com/enzomar/archipilot/llm/providers"

	"github.com/spf13/cobra"

	"github.com/enzomar/archipilot/config"
	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/ingest"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/model"
	"github.com/enzomar/archipilot/service"
	"github.com/enzomar/archipilot/vault"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "archipilot"
)

// configFileName is the vault-local config location.
const configFileName = vault.StateDir + "/config.yaml"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		vaultPath  string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Chat assistant for a markdown architecture vault",
		Long: `Archipilot keeps architecture knowledge in a markdown vault and
answers slash commands against it: /status, /todo, /adr, /decide,
/analyze, /update, /drawio, /archimate.

In serve mode it consumes chat messages from NATS and publishes
responses, so Slack or Teams bridges only have to relay JSON.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault root directory (default: config, then cwd)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(serveCmd(&configPath, &vaultPath, &logLevel))
	cmd.AddCommand(chatCmd(&configPath, &vaultPath, &logLevel))
	cmd.AddCommand(initCmd(&vaultPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func serveCmd(configPath, vaultPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as a NATS chat worker with metrics and health endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger(*logLevel)

			cfg, cmdCtx, err := buildContext(*configPath, *vaultPath, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return service.New(cfg, cmdCtx, logger).Run(ctx)
		},
	}
}

func chatCmd(configPath, vaultPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Local session: type slash commands, or pass one as an argument",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger(*logLevel)

			_, cmdCtx, err := buildContext(*configPath, *vaultPath, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if len(args) > 0 {
				return runChatOnce(ctx, cmdCtx, strings.Join(args, " "))
			}
			return runChatLoop(ctx, cmdCtx)
		},
	}
}

func initCmd(vaultPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the vault directory layout and a default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := *vaultPath
			if root == "" {
				root = "."
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolve vault path: %w", err)
			}

			m := vault.NewManager(abs)
			if err := m.EnsureDirectories(); err != nil {
				return fmt.Errorf("create vault layout: %w", err)
			}

			cfgPath := filepath.Join(abs, configFileName)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := config.DefaultConfig().SaveToFile(cfgPath); err != nil {
					return fmt.Errorf("write default config: %w", err)
				}
				fmt.Printf("Wrote default config to %s\n", cfgPath)
			}

			fmt.Printf("Vault initialized at %s\n", abs)
			return nil
		},
	}
}

// runChatOnce dispatches a single message and prints the response.
func runChatOnce(ctx context.Context, cmdCtx *dispatch.CommandContext, content string) error {
	msg := dispatch.UserMessage{
		MessageID:   fmt.Sprintf("local-%d", time.Now().UnixNano()),
		ChannelType: "local",
		ChannelID:   "terminal",
		UserID:      os.Getenv("USER"),
		Content:     content,
		Timestamp:   time.Now(),
	}

	resp, err := dispatch.Dispatch(ctx, cmdCtx, msg)
	if err != nil {
		return err
	}
	fmt.Println(resp.Content)
	if resp.Type == dispatch.ResponseTypeError {
		return fmt.Errorf("command failed")
	}
	return nil
}

// runChatLoop reads slash commands from stdin and prints responses.
func runChatLoop(ctx context.Context, cmdCtx *dispatch.CommandContext) error {
	fmt.Printf("%s %s — vault at %s\n", appName, Version, cmdCtx.Vault.Root())
	fmt.Println("Type a slash command (/help for the list), or Ctrl-D to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		msg := dispatch.UserMessage{
			MessageID:   fmt.Sprintf("local-%d", time.Now().UnixNano()),
			ChannelType: "local",
			ChannelID:   "terminal",
			UserID:      os.Getenv("USER"),
			Content:     line,
			Timestamp:   time.Now(),
		}

		resp, err := dispatch.Dispatch(ctx, cmdCtx, msg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(resp.Content)
	}
}

func buildLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// buildContext loads config, opens the vault, and wires the model
// client and reference archiver into a command context.
func buildContext(configPath, vaultPath string, logger *slog.Logger) (*config.Config, *dispatch.CommandContext, error) {
	cfg, err := loadConfig(configPath, vaultPath, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	root, err := resolveVaultPath(vaultPath, cfg)
	if err != nil {
		return nil, nil, err
	}

	m := vault.NewManager(root)
	if err := m.EnsureDirectories(); err != nil {
		return nil, nil, fmt.Errorf("prepare vault at %s: %w", root, err)
	}

	cmdCtx, err := dispatch.NewCommandContext(m, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("index vault at %s: %w", root, err)
	}

	cmdCtx.LLM = buildLLMClient(cfg, logger)
	if cfg.Ingest.Enabled {
		fetcher := ingest.NewFetcher(cfg.Ingest.Timeout, cfg.Ingest.UserAgent, cfg.Ingest.MaxBytes)
		cmdCtx.Archiver = ingest.NewSnapshotter(m, fetcher, logger)
	}

	return cfg, cmdCtx, nil
}

// buildLLMClient constructs the model client from the registry defaults
// plus config overrides.
func buildLLMClient(cfg *config.Config, logger *slog.Logger) llm.Completer {
	registry := model.NewDefaultRegistry()

	if cfg.Model.OllamaEndpoint != "" {
		for _, name := range registry.ListEndpoints() {
			ep := registry.GetEndpoint(name)
			if ep != nil && ep.Provider == "ollama" {
				ep.URL = cfg.Model.OllamaEndpoint
				registry.SetEndpoint(name, ep)
			}
		}
	}
	if cfg.Model.Default != "" && registry.GetEndpoint(cfg.Model.Default) != nil {
		registry.SetDefault(cfg.Model.Default)
	}

	opts := []llm.ClientOption{llm.WithLogger(logger)}
	if cfg.Model.Timeout > 0 {
		opts = append(opts, llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}))
	}

	return llm.NewClient(registry, opts...)
}

// loadConfig reads the config: an explicit path wins, then a
// vault-local config, then the layered loader (defaults → user config →
// project config, with git-root vault detection).
func loadConfig(configPath, vaultPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		return cfg, nil
	}

	root := vaultPath
	if root == "" {
		root = "."
	}
	local := filepath.Join(root, configFileName)
	if _, err := os.Stat(local); err == nil {
		cfg, err := config.LoadFromFile(local)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", local, err)
		}
		return cfg, nil
	}

	return config.NewLoader(logger).Load()
}

// resolveVaultPath picks the vault root: flag, then config (the loader
// fills it from the enclosing git repository), then cwd.
func resolveVaultPath(vaultPath string, cfg *config.Config) (string, error) {
	root := vaultPath
	if root == "" {
		root = cfg.Vault.Path
	}
	if root == "" {
		root = "."
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat vault path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
