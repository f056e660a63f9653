package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/enzomar/archipilot/analysis"
	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/vault"
)

// DecideCommand supports and records decisions. Without an option it
// lays out the candidate options with related context (and a model
// recommendation when one is configured). With an option name it
// approves the decision, stamps the outcome, and appends to the
// decision log.
type DecideCommand struct{}

func init() {
	dispatch.RegisterCommand(&DecideCommand{})
}

// Config describes the command.
func (c *DecideCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:       "decide",
		Pattern:    `^([A-Za-z]+-\d+)(?:\s+(.+))?$`,
		Help:       "/decide <ID> [chosen option] — analyze a decision, or record the choice",
		NeedsModel: true,
	}
}

// Execute analyzes or records the decision.
func (c *DecideCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	rec, err := lookupRecord(cmdCtx, args[1])
	if err != nil {
		return dispatch.NewErrorResponse(msg, "decide", err.Error()), nil
	}
	if rec.Kind != vault.KindDecision {
		return dispatch.NewErrorResponse(msg, "decide",
			fmt.Sprintf("%s is a %s, not a decision.", rec.ID, rec.Kind)), nil
	}

	choice := ""
	if len(args) > 2 {
		choice = strings.TrimSpace(args[2])
	}

	if choice == "" {
		return c.analyze(ctx, cmdCtx, msg, rec)
	}
	return c.record(cmdCtx, msg, rec, choice)
}

// analyze presents the options and related context for a decision.
func (c *DecideCommand) analyze(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, rec *vault.Record) (dispatch.UserResponse, error) {
	da := analysis.BuildDecisionAnalysis(cmdCtx.Index(), rec)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s — %s\n\nStatus: %s\n\n### Options\n\n", rec.ID, rec.Title, rec.Status)
	for _, opt := range da.Options {
		fmt.Fprintf(&sb, "- **%s**", opt.Name)
		if opt.Body != "" {
			fmt.Fprintf(&sb, ": %s", firstLine(opt.Body))
		}
		sb.WriteString("\n")
	}

	if len(da.RelatedRisks) > 0 {
		sb.WriteString("\n### Related risks\n\n")
		for _, r := range da.RelatedRisks {
			sb.WriteString(recordLine(r) + "\n")
		}
	}
	if len(da.RelatedRequirements) > 0 {
		sb.WriteString("\n### Related requirements\n\n")
		for _, r := range da.RelatedRequirements {
			sb.WriteString(recordLine(r) + "\n")
		}
	}
	if len(da.RelatedDecisions) > 0 {
		sb.WriteString("\n### Related decisions\n\n")
		for _, r := range da.RelatedDecisions {
			sb.WriteString(recordLine(r) + "\n")
		}
	}

	if recommendation := c.recommend(ctx, cmdCtx, da); recommendation != "" {
		sb.WriteString("\n### Recommendation\n\n")
		sb.WriteString(recommendation)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nRecord the outcome with `/decide %s <option>`.", rec.ID)

	return dispatch.NewResponse(msg, "decide", sb.String()), nil
}

// recommend asks the model to weigh the options. Empty without a model.
func (c *DecideCommand) recommend(ctx context.Context, cmdCtx *dispatch.CommandContext, da *analysis.DecisionAnalysis) string {
	if cmdCtx.LLM == nil {
		return ""
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Decision: %s\n\nOptions:\n", da.Decision.Title)
	for _, opt := range da.Options {
		fmt.Fprintf(&prompt, "- %s: %s\n", opt.Name, opt.Body)
	}
	for _, r := range da.RelatedRisks {
		fmt.Fprintf(&prompt, "\nRelated risk %s: %s", r.ID, r.Title)
	}
	for _, r := range da.RelatedRequirements {
		fmt.Fprintf(&prompt, "\nRelated requirement %s: %s", r.ID, r.Title)
	}

	resp, err := cmdCtx.LLM.Complete(ctx, llm.Request{
		Capability: "analysis",
		Messages: []llm.Message{
			{Role: "system", Content: "You advise on architecture decisions. Weigh the options against the risks and requirements given. Recommend one option in at most three sentences."},
			{Role: "user", Content: prompt.String()},
		},
		Temperature: &cmdCtx.Config.Model.Temperature,
	})
	if err != nil {
		cmdCtx.Logger.Warn("decision recommendation failed", "decision", da.Decision.ID, "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

// record approves the decision with the chosen option.
func (c *DecideCommand) record(cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, rec *vault.Record, choice string) (dispatch.UserResponse, error) {
	if rec.Status == vault.StatusApproved || rec.Status == vault.StatusDeprecated {
		return dispatch.NewErrorResponse(msg, "decide",
			fmt.Sprintf("%s is already %s.", rec.ID, rec.Status)), nil
	}

	// Work on a copy: the indexed record must not change until the
	// save lands on disk
	approved := *rec
	approved.Tags = append([]string(nil), rec.Tags...)
	approved.Relates = append([]string(nil), rec.Relates...)

	// Drafts pass through review on their way to approved
	for approved.Status != vault.StatusApproved {
		next := vault.StatusReview
		if approved.Status == vault.StatusReview {
			next = vault.StatusApproved
		}
		if !approved.Status.CanTransitionTo(next) {
			return dispatch.NewErrorResponse(msg, "decide",
				fmt.Sprintf("%s cannot move from %s to %s.", approved.ID, approved.Status, next)), nil
		}
		approved.Status = next
	}

	now := time.Now().UTC().Truncate(time.Second)
	approved.Decision = &vault.DecisionMeta{Decided: &now, Outcome: "accepted"}
	approved.Body = strings.TrimRight(approved.Body, "\n") +
		fmt.Sprintf("\n\n## Outcome\n\nChosen option: **%s** (%s).\n", choice, now.Format("2006-01-02"))

	if _, err := cmdCtx.Vault.Backup(approved.Path, cmdCtx.Config.Vault.BackupKeep); err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("backup before decide: %w", err)
	}
	if err := cmdCtx.Vault.Save(&approved); err != nil {
		return dispatch.UserResponse{}, err
	}

	summary := fmt.Sprintf("**Status**: %s\n\n**Decision**: %s\n\nSee `%s` for context and consequences.",
		approved.Status, choice, approved.Path)
	if err := cmdCtx.Vault.AppendDecisionLog(approved.ID, approved.Title, summary); err != nil {
		return dispatch.UserResponse{}, err
	}
	if err := cmdCtx.RefreshIndex(); err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("refresh index: %w", err)
	}

	return dispatch.NewResponse(msg, "decide",
		fmt.Sprintf("**%s** approved with option **%s**. Logged to `%s`.",
			approved.ID, choice, vault.DecisionLogFile)), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
