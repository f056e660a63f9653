package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/enzomar/archipilot/dispatch"
)

// defaultTodoLimit caps the listing when no count is given.
const defaultTodoLimit = 10

// TodoCommand lists open items ranked by urgency: priority weight,
// due-date pressure, and age.
type TodoCommand struct{}

func init() {
	dispatch.RegisterCommand(&TodoCommand{})
}

// Config describes the command.
func (c *TodoCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:    "todo",
		Pattern: `^(\d+)?$`,
		Help:    "/todo [count] — open items ranked by urgency",
	}
}

// Execute returns the ranked open-item listing.
func (c *TodoCommand) Execute(_ context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	limit := defaultTodoLimit
	if len(args) > 1 && args[1] != "" {
		n, err := strconv.Atoi(args[1])
		if err == nil && n > 0 {
			limit = n
		}
	}

	now := time.Now()
	ranked := cmdCtx.Index().RankOpenItems(now)

	if len(ranked) == 0 {
		return dispatch.NewResponse(msg, "todo", "Nothing open. The vault is at rest."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Top open items (%d of %d)\n\n", min(limit, len(ranked)), len(ranked))

	for i, item := range ranked {
		if i >= limit {
			break
		}
		rec := item.Record
		line := fmt.Sprintf("%d. **%s** %s — %s %s", i+1, rec.ID, rec.Title, rec.Priority, rec.Kind)
		if rec.Due != nil {
			if rec.Due.Before(now) {
				line += fmt.Sprintf(", **overdue since %s**", rec.Due.Format("2006-01-02"))
			} else {
				line += ", due " + rec.Due.Format("2006-01-02")
			}
		}
		if rec.Owner != "" {
			line += ", owner " + rec.Owner
		}
		sb.WriteString(line + "\n")
	}

	return dispatch.NewResponse(msg, "todo", sb.String()), nil
}
