package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureIndex() *Index {
	due := time.Now().Add(3 * 24 * time.Hour)
	overdue := time.Now().Add(-24 * time.Hour)
	old := time.Now().Add(-90 * 24 * time.Hour)

	records := []*Record{
		{Metadata: Metadata{
			ID: "AD-01", Kind: KindDecision, Title: "Adopt NATS",
			Status: StatusApproved, Priority: PriorityHigh,
			Relates: []string{"C-01", "R-01"},
		}},
		{Metadata: Metadata{
			ID: "AD-02", Kind: KindDecision, Title: "Drop REST",
			Status: StatusDraft, Priority: PriorityLow, Created: old,
		}},
		{Metadata: Metadata{
			ID: "R-01", Kind: KindRisk, Title: "Broker outage",
			Status: StatusApproved, Priority: PriorityCritical, Due: &overdue,
		}},
		{Metadata: Metadata{
			ID: "Q-01", Kind: KindQuestion, Title: "Which database?",
			Status: StatusDraft, Priority: PriorityHigh, Due: &due,
			Relates: []string{"AD-01", "GHOST-1"},
		}},
		{Metadata: Metadata{
			ID: "C-01", Kind: KindComponent, Title: "API Gateway",
			Status: StatusApproved, Priority: PriorityMedium,
		}},
	}

	return NewIndex(records, nil)
}

func TestIndexLookups(t *testing.T) {
	idx := fixtureIndex()

	// The fixture is deliberately unsorted; the index sorts on build
	ids := make([]string, 0, len(idx.Records()))
	for _, rec := range idx.Records() {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"AD-01", "AD-02", "C-01", "Q-01", "R-01"}, ids)

	rec, ok := idx.Get("AD-01")
	require.True(t, ok)
	assert.Equal(t, "Adopt NATS", rec.Title)

	_, ok = idx.Get("ZZ-99")
	assert.False(t, ok)

	decisions := idx.ByKind(KindDecision)
	assert.Len(t, decisions, 2)

	counts := idx.CountsByKind()
	assert.Equal(t, 2, counts[KindDecision])
	assert.Equal(t, 1, counts[KindRisk])

	statuses := idx.CountsByStatus("")
	assert.Equal(t, 3, statuses[StatusApproved])
	assert.Equal(t, 2, statuses[StatusDraft])

	decisionStatuses := idx.CountsByStatus(KindDecision)
	assert.Equal(t, 1, decisionStatuses[StatusApproved])
	assert.Equal(t, 1, decisionStatuses[StatusDraft])
}

func TestIndexRelations(t *testing.T) {
	idx := fixtureIndex()

	assert.Equal(t, []string{"C-01", "R-01"}, idx.RelatedTo("AD-01"))
	assert.Equal(t, []string{"Q-01"}, idx.RelatedFrom("AD-01"))

	neighbors := idx.Neighbors("AD-01")
	assert.Equal(t, []string{"C-01", "Q-01", "R-01"}, neighbors)
}

func TestIndexDangling(t *testing.T) {
	idx := fixtureIndex()

	dangling := idx.Dangling()
	require.Len(t, dangling, 1)
	assert.Equal(t, "Q-01", dangling[0].From)
	assert.Equal(t, "GHOST-1", dangling[0].To)
}

func TestIndexOpenItems(t *testing.T) {
	idx := fixtureIndex()

	open := idx.OpenItems()
	ids := make([]string, 0, len(open))
	for _, rec := range open {
		ids = append(ids, rec.ID)
	}
	// AD-01 approved (closed), C-01 component (never open)
	assert.Equal(t, []string{"AD-02", "Q-01", "R-01"}, ids)
}

func TestRankOpenItems(t *testing.T) {
	idx := fixtureIndex()

	ranked := idx.RankOpenItems(time.Now())
	require.Len(t, ranked, 3)

	// Critical + overdue risk outranks everything
	assert.Equal(t, "R-01", ranked[0].Record.ID)
	assert.GreaterOrEqual(t, ranked[0].Score, 600)

	// High + due-soon question above old low-priority draft
	assert.Equal(t, "Q-01", ranked[1].Record.ID)
	assert.Equal(t, "AD-02", ranked[2].Record.ID)

	// Age drift nudged the old draft above its bare priority weight
	assert.Greater(t, ranked[2].Score, PriorityLow.Weight())
}
