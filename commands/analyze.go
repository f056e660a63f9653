package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/enzomar/archipilot/analysis"
	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/vault"
)

// AnalyzeCommand traces impact from a record across the relation graph
// and summarizes what a change would touch.
type AnalyzeCommand struct{}

func init() {
	dispatch.RegisterCommand(&AnalyzeCommand{})
}

// Config describes the command.
func (c *AnalyzeCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:       "analyze",
		Pattern:    `^([A-Za-z]+-\d+)(?:\s+(\d+))?$`,
		Help:       "/analyze <ID> [depth] — trace what a change to this record touches",
		NeedsModel: true,
	}
}

// Execute builds the impact report.
func (c *AnalyzeCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	id := strings.ToUpper(strings.TrimSpace(args[1]))

	maxDepth := 0
	if len(args) > 2 && args[2] != "" {
		if n, err := strconv.Atoi(args[2]); err == nil && n > 0 {
			maxDepth = n
		}
	}

	report, ok := analysis.TraceImpact(cmdCtx.Index(), id, maxDepth)
	if !ok {
		return dispatch.NewErrorResponse(msg, "analyze",
			fmt.Sprintf("No record %s in the vault.", id)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Impact of %s — %s\n\n", report.Root.ID, report.Root.Title)

	if len(report.Hits) == 0 {
		sb.WriteString("Nothing relates to this record. Changing it is structurally isolated.\n")
	} else {
		fmt.Fprintf(&sb, "%d records reachable through relations.\n", len(report.Hits))

		groups := report.ByKind()
		for _, kind := range vault.AllKinds {
			hits := groups[kind]
			if len(hits) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "\n### %s\n\n", kindHeading(kind))
			for _, hit := range hits {
				fmt.Fprintf(&sb, "%s — %d hop", recordLine(hit.Record), hit.Distance)
				if hit.Distance != 1 {
					sb.WriteString("s")
				}
				sb.WriteString("\n")
			}
		}
	}

	if len(report.Dangling) > 0 {
		sb.WriteString("\n### Dangling references encountered\n\n")
		for _, id := range report.Dangling {
			fmt.Fprintf(&sb, "- %s\n", id)
		}
	}

	if narrative := c.narrate(ctx, cmdCtx, report); narrative != "" {
		sb.WriteString("\n### Assessment\n\n")
		sb.WriteString(narrative)
		sb.WriteString("\n")
	}

	return dispatch.NewResponse(msg, "analyze", sb.String()), nil
}

// narrate asks the model for a qualitative read. Empty without a model.
func (c *AnalyzeCommand) narrate(ctx context.Context, cmdCtx *dispatch.CommandContext, report *analysis.ImpactReport) string {
	if cmdCtx.LLM == nil || len(report.Hits) == 0 {
		return ""
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Record under change: %s (%s)\n\nReachable records:\n",
		report.Root.Title, report.Root.Kind)
	for _, hit := range report.Hits {
		fmt.Fprintf(&prompt, "- %s %s (%s, %d hops)\n",
			hit.Record.ID, hit.Record.Title, hit.Record.Kind, hit.Distance)
	}

	resp, err := cmdCtx.LLM.Complete(ctx, llm.Request{
		Capability: "analysis",
		Messages: []llm.Message{
			{Role: "system", Content: "You assess change impact in architecture models. Given a record and what it reaches, state the blast radius and what to verify before changing it. At most four sentences."},
			{Role: "user", Content: prompt.String()},
		},
		Temperature: &cmdCtx.Config.Model.Temperature,
	})
	if err != nil {
		cmdCtx.Logger.Warn("impact narration failed", "record", report.Root.ID, "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Content)
}
