package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/vault"
)

// StatusCommand summarizes the vault: document counts, lifecycle
// breakdown, open items, and integrity problems.
type StatusCommand struct{}

func init() {
	dispatch.RegisterCommand(&StatusCommand{})
}

// Config describes the command.
func (c *StatusCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:    "status",
		Pattern: `^$`,
		Help:    "/status — vault overview: counts, open items, integrity problems",
	}
}

// Execute builds the vault status report.
func (c *StatusCommand) Execute(_ context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, _ []string) (dispatch.UserResponse, error) {
	idx := cmdCtx.Index()

	var sb strings.Builder
	sb.WriteString("## Vault Status\n\n")

	counts := idx.CountsByKind()
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(&sb, "%d documents.\n\n", total)

	for _, kind := range vault.AllKinds {
		n := counts[kind]
		if n == 0 {
			continue
		}
		statuses := idx.CountsByStatus(kind)
		var parts []string
		for _, st := range []vault.Status{vault.StatusDraft, vault.StatusReview, vault.StatusApproved, vault.StatusDeprecated} {
			if statuses[st] > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", statuses[st], formatStatus(st)))
			}
		}
		fmt.Fprintf(&sb, "- **%s**: %d (%s)\n", kindHeading(kind), n, strings.Join(parts, ", "))
	}

	open := idx.OpenItems()
	fmt.Fprintf(&sb, "\n**Open items**: %d (see `/todo`)\n", len(open))

	if dangling := idx.Dangling(); len(dangling) > 0 {
		sb.WriteString("\n### Dangling references\n\n")
		for _, d := range dangling {
			fmt.Fprintf(&sb, "- %s relates to missing %s\n", d.From, d.To)
		}
	}

	if problems := idx.Problems(); len(problems) > 0 {
		sb.WriteString("\n### Documents with problems\n\n")
		for _, p := range problems {
			fmt.Fprintf(&sb, "- `%s`: %v\n", p.Path, p.Err)
		}
	}

	sb.WriteString("\n### Next steps\n\n")
	switch {
	case total == 0:
		sb.WriteString("- Draft your first decision with `/adr <title>`.\n")
	case len(open) > 0:
		sb.WriteString("- Work the open queue: `/todo`.\n")
	default:
		sb.WriteString("- Nothing open. Export the current state with `/drawio` or `/archimate`.\n")
	}
	if len(idx.Dangling()) > 0 {
		sb.WriteString("- Repair the dangling references listed above with `/update <ID> unrelate <missing-ID>`.\n")
	}

	return dispatch.NewResponse(msg, "status", sb.String()), nil
}

// formatStatus formats a lifecycle status with an emoji indicator.
func formatStatus(status vault.Status) string {
	switch status {
	case vault.StatusDraft:
		return "📝 draft"
	case vault.StatusReview:
		return "🔍 review"
	case vault.StatusApproved:
		return "✅ approved"
	case vault.StatusDeprecated:
		return "🗑️ deprecated"
	default:
		return status.String()
	}
}
