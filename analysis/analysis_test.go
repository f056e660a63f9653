package analysis

import (
	"testing"

	"github.com/enzomar/archipilot/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphIndex() *vault.Index {
	// AD-01 -> C-01 -> C-02, AD-01 -> R-01, Q-01 -> AD-01, R-01 -> GHOST-9
	records := []*vault.Record{
		{Metadata: vault.Metadata{
			ID: "AD-01", Kind: vault.KindDecision, Title: "Adopt NATS",
			Status: vault.StatusApproved, Relates: []string{"C-01", "R-01"},
		}},
		{Metadata: vault.Metadata{
			ID: "C-01", Kind: vault.KindComponent, Title: "API Gateway",
			Status: vault.StatusApproved, Relates: []string{"C-02"},
		}},
		{Metadata: vault.Metadata{
			ID: "C-02", Kind: vault.KindComponent, Title: "Billing",
			Status: vault.StatusApproved,
		}},
		{Metadata: vault.Metadata{
			ID: "R-01", Kind: vault.KindRisk, Title: "Broker outage",
			Status: vault.StatusApproved, Relates: []string{"GHOST-9"},
		}},
		{Metadata: vault.Metadata{
			ID: "Q-01", Kind: vault.KindQuestion, Title: "Which region?",
			Status: vault.StatusDraft, Relates: []string{"AD-01"},
		}},
	}
	return vault.NewIndex(records, nil)
}

func TestTraceImpact(t *testing.T) {
	idx := graphIndex()

	report, ok := TraceImpact(idx, "AD-01", 0)
	require.True(t, ok)
	assert.Equal(t, "AD-01", report.Root.ID)

	ids := make([]string, 0, len(report.Hits))
	for _, hit := range report.Hits {
		ids = append(ids, hit.Record.ID)
	}
	// Depth 1: C-01, Q-01, R-01. Depth 2: C-02.
	assert.Equal(t, []string{"C-01", "Q-01", "R-01", "C-02"}, ids)
	assert.Equal(t, 1, report.Hits[0].Distance)
	assert.Equal(t, 2, report.Hits[3].Distance)

	assert.Equal(t, []string{"GHOST-9"}, report.Dangling)
}

func TestTraceImpactDepthLimit(t *testing.T) {
	idx := graphIndex()

	report, ok := TraceImpact(idx, "AD-01", 1)
	require.True(t, ok)
	for _, hit := range report.Hits {
		assert.Equal(t, 1, hit.Distance)
	}
	assert.Len(t, report.Hits, 3)
}

func TestTraceImpactUnknownRoot(t *testing.T) {
	idx := graphIndex()

	_, ok := TraceImpact(idx, "ZZ-01", 0)
	assert.False(t, ok)
}

func TestImpactByKind(t *testing.T) {
	idx := graphIndex()

	report, ok := TraceImpact(idx, "AD-01", 0)
	require.True(t, ok)

	groups := report.ByKind()
	assert.Len(t, groups[vault.KindComponent], 2)
	assert.Len(t, groups[vault.KindRisk], 1)
	assert.Len(t, groups[vault.KindQuestion], 1)
}

func TestBuildDecisionAnalysisWithOptions(t *testing.T) {
	idx := graphIndex()
	rec, _ := idx.Get("AD-01")
	rec.Body = `## Context

Messaging is needed.

## Option: NATS

Lightweight, queue groups.

## Option: Kafka

Heavier, better retention.

## Consequences

TBD.
`

	da := BuildDecisionAnalysis(idx, rec)
	require.Len(t, da.Options, 2)
	assert.Equal(t, "NATS", da.Options[0].Name)
	assert.Contains(t, da.Options[0].Body, "queue groups")
	assert.Equal(t, "Kafka", da.Options[1].Name)
	assert.Contains(t, da.Options[1].Body, "retention")

	// Related records grouped by kind
	require.Len(t, da.RelatedRisks, 1)
	assert.Equal(t, "R-01", da.RelatedRisks[0].ID)
	assert.Empty(t, da.RelatedRequirements)
	assert.Empty(t, da.RelatedDecisions)
}

func TestBuildDecisionAnalysisDefaults(t *testing.T) {
	idx := graphIndex()
	rec, _ := idx.Get("AD-01")
	rec.Body = "## Context\n\nNo explicit options here.\n"

	da := BuildDecisionAnalysis(idx, rec)
	require.Len(t, da.Options, 2)
	assert.Equal(t, "Adopt", da.Options[0].Name)
	assert.Equal(t, "Defer", da.Options[1].Name)
}
