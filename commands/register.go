// Package commands implements the chat commands: /status, /todo, /adr,
// /decide, /analyze, /update, /drawio, /archimate, and /help. Each
// command registers itself with the dispatch registry at init time.
package commands

import (
	"fmt"
	"strings"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/vault"
)

// recordLine formats a one-line record summary for listings.
func recordLine(rec *vault.Record) string {
	line := fmt.Sprintf("- **%s** %s (%s", rec.ID, rec.Title, rec.Status)
	if rec.Priority != "" && rec.Priority != vault.PriorityMedium {
		line += ", " + rec.Priority.String()
	}
	if rec.Due != nil {
		line += ", due " + rec.Due.Format("2006-01-02")
	}
	return line + ")"
}

// lookupRecord resolves an ID against the index with a friendly error.
func lookupRecord(cmdCtx *dispatch.CommandContext, id string) (*vault.Record, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	rec, ok := cmdCtx.Index().Get(id)
	if !ok {
		return nil, fmt.Errorf("no record %s in the vault", id)
	}
	return rec, nil
}

// kindHeading returns a plural display name for listings.
func kindHeading(kind vault.Kind) string {
	switch kind {
	case vault.KindDecision:
		return "Decisions"
	case vault.KindRisk:
		return "Risks"
	case vault.KindQuestion:
		return "Questions"
	case vault.KindRequirement:
		return "Requirements"
	case vault.KindWorkPackage:
		return "Work Packages"
	case vault.KindStakeholder:
		return "Stakeholders"
	case vault.KindComponent:
		return "Components"
	default:
		return string(kind)
	}
}
