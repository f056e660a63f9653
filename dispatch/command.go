package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/enzomar/archipilot/config"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/vault"
)

// Command is a chat command handler.
type Command interface {
	// Config describes the command: its pattern and help text.
	Config() CommandConfig

	// Execute runs the command. args are the capture groups from the
	// pattern match, args[0] being the full match.
	Execute(ctx context.Context, cmdCtx *CommandContext, msg UserMessage, args []string) (UserResponse, error)
}

// CommandConfig describes a registered command.
type CommandConfig struct {
	// Name is the command name without the leading slash.
	Name string

	// Pattern is the regex matched against the text after the slash
	// command. Capture groups become Execute args.
	Pattern string

	// Help is a one-line usage summary for /help and error hints.
	Help string

	// NeedsModel indicates the command calls an LLM when available.
	NeedsModel bool
}

// Archiver stores a snapshot of a cited URL and returns the
// vault-relative path of the archived copy.
type Archiver interface {
	Archive(ctx context.Context, rawURL string) (string, error)
}

// CommandContext carries the shared dependencies commands run against.
type CommandContext struct {
	// Vault is the vault manager.
	Vault *vault.Manager

	// Config is the loaded configuration.
	Config *config.Config

	// LLM is the model client, nil when no model is configured.
	// Commands must degrade cleanly without it.
	LLM llm.Completer

	// Archiver stores snapshots of cited URLs, nil when ingest is disabled.
	Archiver Archiver

	// Logger is the structured logger.
	Logger *slog.Logger

	mu  sync.RWMutex
	idx *vault.Index
}

// NewCommandContext builds a context and its initial vault index.
func NewCommandContext(m *vault.Manager, cfg *config.Config, logger *slog.Logger) (*CommandContext, error) {
	idx, err := m.BuildIndex()
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Vault:  m,
		Config: cfg,
		Logger: logger,
		idx:    idx,
	}, nil
}

// Index returns the current vault index.
func (c *CommandContext) Index() *vault.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx
}

// RefreshIndex rescans the vault and swaps in a fresh index.
func (c *CommandContext) RefreshIndex() error {
	idx, err := c.Vault.BuildIndex()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.idx = idx
	c.mu.Unlock()
	return nil
}
