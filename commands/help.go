package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/enzomar/archipilot/dispatch"
)

// HelpCommand lists every registered command with its usage line.
type HelpCommand struct{}

func init() {
	dispatch.RegisterCommand(&HelpCommand{})
}

// Config describes the command.
func (c *HelpCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name: "help",
		Help: "/help — list available commands",
	}
}

// Execute lists commands sorted by name.
func (c *HelpCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	var sb strings.Builder
	sb.WriteString("## Commands\n\n")
	for _, cmd := range dispatch.ListCommands() {
		cfg := cmd.Config()
		fmt.Fprintf(&sb, "- %s\n", cfg.Help)
	}
	sb.WriteString("\nAddress me directly (`@architect /status`) or use a bare slash command.")
	return dispatch.NewResponse(msg, "help", sb.String()), nil
}
