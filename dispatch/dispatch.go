package dispatch

import (
	"context"
	"fmt"
	"strings"
)

// Mention is the assistant handle that may prefix commands in shared channels.
const Mention = "@architect"

// ParsedCommand is the result of parsing a chat message.
type ParsedCommand struct {
	// Name is the command name without the slash.
	Name string

	// Rest is the text after the command name, trimmed.
	Rest string
}

// ParseMessage extracts a slash command from message text.
// Accepts "/status", "@architect /status", and surrounding whitespace.
// Returns ok=false for plain chatter that isn't addressed to us.
func ParseMessage(content string) (ParsedCommand, bool) {
	text := strings.TrimSpace(content)

	if strings.HasPrefix(text, Mention) {
		text = strings.TrimSpace(strings.TrimPrefix(text, Mention))
	}

	if !strings.HasPrefix(text, "/") {
		return ParsedCommand{}, false
	}

	text = strings.TrimPrefix(text, "/")
	name, rest, _ := strings.Cut(text, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ParsedCommand{}, false
	}

	return ParsedCommand{Name: name, Rest: strings.TrimSpace(rest)}, true
}

// Dispatch parses a message, finds the command, and runs it.
// Unknown commands and argument mismatches produce error responses
// rather than Go errors; a non-nil error means the command itself failed.
func Dispatch(ctx context.Context, cmdCtx *CommandContext, msg UserMessage) (UserResponse, error) {
	parsed, ok := ParseMessage(msg.Content)
	if !ok {
		return NewErrorResponse(msg, "",
			"I only respond to slash commands. Try `/help` for the list."), nil
	}

	registryMu.RLock()
	rc, found := registry[parsed.Name]
	registryMu.RUnlock()

	if !found {
		return NewErrorResponse(msg, parsed.Name,
			fmt.Sprintf("Unknown command `/%s`. Try `/help` for the list.", parsed.Name)), nil
	}

	args := rc.pattern.FindStringSubmatch(parsed.Rest)
	if args == nil {
		cfg := rc.command.Config()
		return NewErrorResponse(msg, parsed.Name,
			fmt.Sprintf("Usage: %s", cfg.Help)), nil
	}

	resp, err := rc.command.Execute(ctx, cmdCtx, msg, args)
	if err != nil {
		cmdCtx.Logger.Error("command failed",
			"command", parsed.Name,
			"user", msg.UserID,
			"error", err)
		return NewErrorResponse(msg, parsed.Name,
			fmt.Sprintf("`/%s` failed: %v", parsed.Name, err)), err
	}

	return resp, nil
}
