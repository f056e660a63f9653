package dispatch

import (
	"context"
	"log/slog"
	"testing"

	"github.com/enzomar/archipilot/config"
	"github.com/enzomar/archipilot/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantOK   bool
		wantName string
		wantRest string
	}{
		{"bare command", "/status", true, "status", ""},
		{"command with args", "/decide AD-03 adopt option two", true, "decide", "AD-03 adopt option two"},
		{"mention prefix", "@architect /todo", true, "todo", ""},
		{"mention with args", "@architect /analyze C-01", true, "analyze", "C-01"},
		{"surrounding whitespace", "  /help  ", true, "help", ""},
		{"uppercase command", "/STATUS", true, "status", ""},
		{"plain chatter", "what do you think?", false, "", ""},
		{"mention without command", "@architect hello", false, "", ""},
		{"lone slash", "/", false, "", ""},
		{"empty", "", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseMessage(tt.content)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantName, parsed.Name)
				assert.Equal(t, tt.wantRest, parsed.Rest)
			}
		})
	}
}

// echoCommand is a trivial command for dispatcher tests.
type echoCommand struct{}

func (echoCommand) Config() CommandConfig {
	return CommandConfig{
		Name:    "echo",
		Pattern: `^(\S+)$`,
		Help:    "/echo <word>",
	}
}

func (echoCommand) Execute(_ context.Context, _ *CommandContext, msg UserMessage, args []string) (UserResponse, error) {
	return NewResponse(msg, "echo", "you said "+args[1]), nil
}

func init() {
	RegisterCommand(echoCommand{})
}

func testCommandContext(t *testing.T) *CommandContext {
	t.Helper()
	m := vault.NewManager(t.TempDir())
	require.NoError(t, m.EnsureDirectories())

	cfg := config.DefaultConfig()
	cmdCtx, err := NewCommandContext(m, cfg, slog.Default())
	require.NoError(t, err)
	return cmdCtx
}

func TestDispatch(t *testing.T) {
	cmdCtx := testCommandContext(t)

	msg := UserMessage{MessageID: "m1", ChannelType: "cli", ChannelID: "c1", Content: "/echo hello"}
	resp, err := Dispatch(context.Background(), cmdCtx, msg)
	require.NoError(t, err)
	assert.Equal(t, ResponseTypeResult, resp.Type)
	assert.Equal(t, "you said hello", resp.Content)
	assert.Equal(t, "m1", resp.InReplyTo)
	assert.Equal(t, "c1", resp.ChannelID)
}

func TestDispatchUnknownCommand(t *testing.T) {
	cmdCtx := testCommandContext(t)

	resp, err := Dispatch(context.Background(), cmdCtx, UserMessage{Content: "/bogus"})
	require.NoError(t, err)
	assert.Equal(t, ResponseTypeError, resp.Type)
	assert.Contains(t, resp.Content, "/bogus")
	assert.Contains(t, resp.Content, "/help")
}

func TestDispatchNotACommand(t *testing.T) {
	cmdCtx := testCommandContext(t)

	resp, err := Dispatch(context.Background(), cmdCtx, UserMessage{Content: "just chatting"})
	require.NoError(t, err)
	assert.Equal(t, ResponseTypeError, resp.Type)
}

func TestDispatchArgumentMismatch(t *testing.T) {
	cmdCtx := testCommandContext(t)

	// echo requires exactly one word
	resp, err := Dispatch(context.Background(), cmdCtx, UserMessage{Content: "/echo two words"})
	require.NoError(t, err)
	assert.Equal(t, ResponseTypeError, resp.Type)
	assert.Contains(t, resp.Content, "Usage:")
}

func TestCommandContextIndexRefresh(t *testing.T) {
	cmdCtx := testCommandContext(t)

	assert.Empty(t, cmdCtx.Index().Records())

	_, err := cmdCtx.Vault.Create(vault.KindDecision, "Adopt NATS", "")
	require.NoError(t, err)

	// Stale until refreshed
	assert.Empty(t, cmdCtx.Index().Records())
	require.NoError(t, cmdCtx.RefreshIndex())
	assert.Len(t, cmdCtx.Index().Records(), 1)
}

func TestListCommandsSorted(t *testing.T) {
	cmds := ListCommands()
	require.NotEmpty(t, cmds)
	for i := 1; i < len(cmds); i++ {
		assert.Less(t, cmds[i-1].Config().Name, cmds[i].Config().Name)
	}
}
