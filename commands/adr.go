package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/vault"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// AdrCommand creates a new architecture decision record. Cited URLs are
// archived into references/ and linked from the document. With a model
// configured, the context section is drafted from the prompt.
type AdrCommand struct{}

func init() {
	dispatch.RegisterCommand(&AdrCommand{})
}

// Config describes the command.
func (c *AdrCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:       "adr",
		Pattern:    `^(.+)$`,
		Help:       "/adr <title, optionally with cited URLs> — draft a new decision record",
		NeedsModel: true,
	}
}

// Execute creates the decision document.
func (c *AdrCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	prompt := strings.TrimSpace(args[1])

	urls := urlPattern.FindAllString(prompt, -1)
	title := strings.TrimSpace(urlPattern.ReplaceAllString(prompt, ""))
	if title == "" {
		return dispatch.NewErrorResponse(msg, "adr",
			"A decision needs a title, not just links."), nil
	}

	// Archive citations first so failures surface before the document exists
	var archived []string
	var failures []string
	for _, rawURL := range urls {
		rawURL = strings.TrimRight(rawURL, ".,;)")
		if cmdCtx.Archiver == nil {
			failures = append(failures, fmt.Sprintf("%s (reference archiving is disabled)", rawURL))
			continue
		}
		path, err := cmdCtx.Archiver.Archive(ctx, rawURL)
		if err != nil {
			cmdCtx.Logger.Warn("citation archive failed", "url", rawURL, "error", err)
			failures = append(failures, fmt.Sprintf("%s (%v)", rawURL, err))
			continue
		}
		archived = append(archived, path)
	}

	body := c.draftBody(ctx, cmdCtx, title, archived)

	rec, err := cmdCtx.Vault.Create(vault.KindDecision, title, body)
	if err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("create decision: %w", err)
	}

	logEntry := fmt.Sprintf("**Status**: %s\n\nProposed. See `%s`.", rec.Status, rec.Path)
	if err := cmdCtx.Vault.AppendDecisionLog(rec.ID, rec.Title, logEntry); err != nil {
		return dispatch.UserResponse{}, err
	}

	if err := cmdCtx.RefreshIndex(); err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("refresh index: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Drafted **%s** — %s (`%s`).\n", rec.ID, rec.Title, rec.Path)
	if len(archived) > 0 {
		sb.WriteString("\nArchived citations:\n")
		for _, path := range archived {
			fmt.Fprintf(&sb, "- `%s`\n", path)
		}
	}
	if len(failures) > 0 {
		sb.WriteString("\nCould not archive:\n")
		for _, f := range failures {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}
	sb.WriteString(fmt.Sprintf("\nReview the draft, then `/decide %s` when it is ready.", rec.ID))

	return dispatch.NewResponse(msg, "adr", sb.String()), nil
}

// draftBody produces the initial document body. The model fills the
// context section when available; otherwise the skeleton stands alone.
func (c *AdrCommand) draftBody(ctx context.Context, cmdCtx *dispatch.CommandContext, title string, archived []string) string {
	contextSection := "_Describe the forces at play._"

	if cmdCtx.LLM != nil {
		resp, err := cmdCtx.LLM.Complete(ctx, llm.Request{
			Capability: "writing",
			Messages: []llm.Message{
				{Role: "system", Content: "You draft the Context section of architecture decision records. Two short paragraphs, markdown, no headings."},
				{Role: "user", Content: "Decision under consideration: " + title},
			},
			Temperature: &cmdCtx.Config.Model.Temperature,
		})
		if err != nil {
			cmdCtx.Logger.Warn("context drafting failed, using skeleton", "error", err)
		} else if strings.TrimSpace(resp.Content) != "" {
			contextSection = strings.TrimSpace(resp.Content)
		}
	}

	var sb strings.Builder
	sb.WriteString("## Context\n\n")
	sb.WriteString(contextSection)
	sb.WriteString("\n\n## Option: Adopt\n\n_Why we would do this._\n")
	sb.WriteString("\n## Option: Defer\n\n_Why we would wait._\n")
	sb.WriteString("\n## Consequences\n\n_What changes once this is decided._\n")

	if len(archived) > 0 {
		sb.WriteString("\n## References\n\n")
		for _, path := range archived {
			fmt.Fprintf(&sb, "- [%s](../%s)\n", path, path)
		}
	}

	return sb.String()
}
