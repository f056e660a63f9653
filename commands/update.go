package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/llm"
	"github.com/enzomar/archipilot/vault"
	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
)

// UpdateCommand modifies vault documents in two phases: staging shows a
// unified diff and a confirmation token, confirming applies the edit
// after a backup. Nothing touches disk until the diff is accepted.
type UpdateCommand struct{}

func init() {
	dispatch.RegisterCommand(&UpdateCommand{})
}

// Config describes the command.
func (c *UpdateCommand) Config() dispatch.CommandConfig {
	return dispatch.CommandConfig{
		Name:       "update",
		Pattern:    `^(\S+)(?:\s+(.+))?$`,
		Help:       "/update <ID> <instructions> — stage an edit; /update confirm|cancel <token>",
		NeedsModel: true,
	}
}

// Execute stages, confirms, or cancels an edit.
func (c *UpdateCommand) Execute(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, args []string) (dispatch.UserResponse, error) {
	first := strings.TrimSpace(args[1])
	rest := ""
	if len(args) > 2 {
		rest = strings.TrimSpace(args[2])
	}

	switch strings.ToLower(first) {
	case "confirm", "apply":
		return c.confirm(cmdCtx, msg, rest)
	case "cancel", "discard":
		return c.cancel(cmdCtx, msg, rest)
	}

	if rest == "" {
		return dispatch.NewErrorResponse(msg, "update",
			"Tell me what to change: `/update AD-03 set status review`."), nil
	}
	return c.stage(ctx, cmdCtx, msg, first, rest)
}

// stage computes the new document, stores it as a pending edit, and
// returns the diff preview.
func (c *UpdateCommand) stage(ctx context.Context, cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, id, instructions string) (dispatch.UserResponse, error) {
	rec, err := lookupRecord(cmdCtx, id)
	if err != nil {
		return dispatch.NewErrorResponse(msg, "update", err.Error()), nil
	}

	oldData, err := vault.RenderDocument(rec.Metadata, rec.Body)
	if err != nil {
		return dispatch.UserResponse{}, err
	}

	proposed := *rec
	proposed.Tags = append([]string(nil), rec.Tags...)
	proposed.Relates = append([]string(nil), rec.Relates...)

	if applyErr := c.applyInstructions(ctx, cmdCtx, &proposed, instructions); applyErr != nil {
		return dispatch.NewErrorResponse(msg, "update", applyErr.Error()), nil
	}

	newData, err := vault.RenderDocument(proposed.Metadata, proposed.Body)
	if err != nil {
		return dispatch.NewErrorResponse(msg, "update",
			fmt.Sprintf("The edit would produce an invalid document: %v", err)), nil
	}

	if string(oldData) == string(newData) {
		return dispatch.NewResponse(msg, "update",
			fmt.Sprintf("No changes for %s — the document already looks like that.", rec.ID)), nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: rec.Path,
		ToFile:   rec.Path + " (proposed)",
		Context:  3,
	})
	if err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("compute diff: %w", err)
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	edit := &vault.PendingEdit{
		Token:      token,
		RecordID:   rec.ID,
		Path:       rec.Path,
		NewContent: string(newData),
		Diff:       diff,
		CreatedAt:  time.Now(),
	}
	if err := cmdCtx.Vault.StagePending(edit); err != nil {
		return dispatch.UserResponse{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Proposed edit to **%s**:\n\n```diff\n%s```\n\n", rec.ID, diff)
	fmt.Fprintf(&sb, "Apply with `/update confirm %s` or discard with `/update cancel %s` (expires in 1h).",
		token, token)

	return dispatch.NewResponse(msg, "update", sb.String()), nil
}

// confirm applies a staged edit after backing up the current document.
func (c *UpdateCommand) confirm(cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, token string) (dispatch.UserResponse, error) {
	if token == "" {
		return dispatch.NewErrorResponse(msg, "update", "Usage: /update confirm <token>"), nil
	}

	edit, err := cmdCtx.Vault.TakePending(token)
	if err != nil {
		return dispatch.NewErrorResponse(msg, "update", err.Error()), nil
	}

	backup, err := cmdCtx.Vault.Backup(edit.Path, cmdCtx.Config.Vault.BackupKeep)
	if err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("backup before update: %w", err)
	}

	meta, body, err := vault.ParseDocument([]byte(edit.NewContent))
	if err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("staged content is invalid: %w", err)
	}

	rec := &vault.Record{Metadata: meta, Body: body, Path: edit.Path}
	if err := cmdCtx.Vault.Save(rec); err != nil {
		return dispatch.UserResponse{}, err
	}
	if err := cmdCtx.RefreshIndex(); err != nil {
		return dispatch.UserResponse{}, fmt.Errorf("refresh index: %w", err)
	}

	return dispatch.NewResponse(msg, "update",
		fmt.Sprintf("Applied edit to **%s**. Previous version backed up at `%s`.",
			edit.RecordID, backup)), nil
}

// cancel discards a staged edit.
func (c *UpdateCommand) cancel(cmdCtx *dispatch.CommandContext, msg dispatch.UserMessage, token string) (dispatch.UserResponse, error) {
	if token == "" {
		return dispatch.NewErrorResponse(msg, "update", "Usage: /update cancel <token>"), nil
	}

	edit, err := cmdCtx.Vault.TakePending(token)
	if err != nil {
		return dispatch.NewErrorResponse(msg, "update", err.Error()), nil
	}

	return dispatch.NewResponse(msg, "update",
		fmt.Sprintf("Discarded staged edit to **%s**.", edit.RecordID)), nil
}

// applyInstructions mutates the proposed record. Structured instructions
// (set/add/remove/relate) are applied directly; anything else is a
// free-form body rewrite and needs the model.
func (c *UpdateCommand) applyInstructions(ctx context.Context, cmdCtx *dispatch.CommandContext, rec *vault.Record, instructions string) error {
	snapshot := *rec
	snapshot.Tags = append([]string(nil), rec.Tags...)
	snapshot.Relates = append([]string(nil), rec.Relates...)

	structured := true
	for _, part := range splitInstructions(instructions) {
		handled, err := c.applyStructured(rec, part)
		if !handled {
			structured = false
			break
		}
		if err != nil {
			return err
		}
	}
	if structured {
		return nil
	}
	*rec = snapshot

	// Free-form edit: rewrite the body with the model
	if cmdCtx.LLM == nil {
		return fmt.Errorf("free-form edits need a model; use structured instructions like " +
			"`set status review`, `set priority high`, `set owner <name>`, `set due 2026-01-31`, " +
			"`add tag <tag>`, `remove tag <tag>`, `relate <ID>`, `unrelate <ID>`")
	}

	resp, err := cmdCtx.LLM.Complete(ctx, llm.Request{
		Capability: "writing",
		Messages: []llm.Message{
			{Role: "system", Content: "You revise markdown architecture documents. Apply the requested change to the document body and return the complete revised body, markdown only, no commentary."},
			{Role: "user", Content: fmt.Sprintf("Requested change: %s\n\nCurrent document body:\n\n%s", instructions, rec.Body)},
		},
		Temperature: &cmdCtx.Config.Model.Temperature,
	})
	if err != nil {
		return fmt.Errorf("model edit failed: %w", err)
	}

	body := strings.TrimSpace(resp.Content)
	if body == "" {
		return fmt.Errorf("model returned an empty document")
	}
	rec.Body = body + "\n"
	return nil
}

func splitInstructions(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyStructured handles one structured instruction. The first return
// reports whether the text parsed as one; anything unrecognized is left
// for the free-form path.
func (c *UpdateCommand) applyStructured(rec *vault.Record, instruction string) (bool, error) {
	fields := strings.Fields(instruction)
	if len(fields) < 2 {
		return false, nil
	}

	verb := strings.ToLower(fields[0])
	switch verb {
	case "set":
		if len(fields) < 3 {
			return true, fmt.Errorf("set needs a field and a value")
		}
		return true, c.setField(rec, strings.ToLower(fields[1]), strings.Join(fields[2:], " "))

	case "add", "remove":
		if len(fields) != 3 || strings.ToLower(fields[1]) != "tag" {
			return false, nil
		}
		tag := fields[2]
		if verb == "add" {
			if !rec.HasTag(tag) {
				rec.Tags = append(rec.Tags, tag)
			}
			return true, nil
		}
		out := rec.Tags[:0]
		for _, t := range rec.Tags {
			if t != tag {
				out = append(out, t)
			}
		}
		rec.Tags = out
		return true, nil

	case "relate":
		target := strings.ToUpper(fields[1])
		if vault.KindFromID(target) == "" {
			return true, fmt.Errorf("%q is not a record ID", fields[1])
		}
		for _, r := range rec.Relates {
			if r == target {
				return true, nil
			}
		}
		rec.Relates = append(rec.Relates, target)
		return true, nil

	case "unrelate":
		target := strings.ToUpper(fields[1])
		out := rec.Relates[:0]
		for _, r := range rec.Relates {
			if r != target {
				out = append(out, r)
			}
		}
		rec.Relates = out
		return true, nil

	default:
		return false, nil
	}
}

func (c *UpdateCommand) setField(rec *vault.Record, field, value string) error {
	switch field {
	case "status":
		next := vault.Status(strings.ToLower(value))
		if !next.IsValid() {
			return fmt.Errorf("unknown status %q", value)
		}
		if !rec.Status.CanTransitionTo(next) {
			return fmt.Errorf("%s cannot move from %s to %s", rec.ID, rec.Status, next)
		}
		rec.Status = next
		return nil

	case "priority":
		p := vault.Priority(strings.ToLower(value))
		if !p.IsValid() {
			return fmt.Errorf("unknown priority %q", value)
		}
		rec.Priority = p
		return nil

	case "owner":
		rec.Owner = value
		return nil

	case "title":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("title cannot be empty")
		}
		rec.Title = value
		return nil

	case "due":
		if strings.EqualFold(value, "none") {
			rec.Due = nil
			return nil
		}
		due, err := time.Parse("2006-01-02", value)
		if err != nil {
			return fmt.Errorf("due date must look like 2026-01-31")
		}
		rec.Due = &due
		return nil

	default:
		return fmt.Errorf("cannot set %q", field)
	}
}
