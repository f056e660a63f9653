package vault

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `---
archipilot:
  id: AD-01
  kind: decision
  title: Adopt NATS for messaging
  status: review
  owner: ava
  priority: high
  due: "2026-09-15"
  tags:
    - messaging
  relates:
    - R-02
    - C-01
  created: 2026-08-01T10:00:00Z
  updated: 2026-08-10T09:30:00Z
---

## Context

We need async messaging between services.
`

func TestParseDocument(t *testing.T) {
	meta, body, err := ParseDocument([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "AD-01", meta.ID)
	assert.Equal(t, KindDecision, meta.Kind)
	assert.Equal(t, "Adopt NATS for messaging", meta.Title)
	assert.Equal(t, StatusReview, meta.Status)
	assert.Equal(t, "ava", meta.Owner)
	assert.Equal(t, PriorityHigh, meta.Priority)
	require.NotNil(t, meta.Due)
	assert.Equal(t, "2026-09-15", meta.Due.Format("2006-01-02"))
	assert.Equal(t, []string{"messaging"}, meta.Tags)
	assert.Equal(t, []string{"R-02", "C-01"}, meta.Relates)
	assert.True(t, strings.HasPrefix(body, "## Context"))
}

func TestParseDocumentDefaultsPriority(t *testing.T) {
	doc := `---
archipilot:
  id: Q-01
  kind: question
  title: Which database?
  status: draft
  created: 2026-08-01T10:00:00Z
  updated: 2026-08-01T10:00:00Z
---

Body.
`
	meta, _, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, meta.Priority)
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "no frontmatter",
			content: "# Just markdown\n",
			wantErr: ErrMissingFrontmatter,
		},
		{
			name:    "unterminated block",
			content: "---\narchipilot:\n  id: AD-01\n",
			wantErr: ErrMalformedFrontmatter,
		},
		{
			name:    "invalid yaml",
			content: "---\narchipilot: [\n---\n",
			wantErr: ErrMalformedFrontmatter,
		},
		{
			name:    "no archipilot section",
			content: "---\ntitle: something else\n---\n",
			wantErr: ErrMalformedFrontmatter,
		},
		{
			name: "bad due date",
			content: `---
archipilot:
  id: AD-01
  kind: decision
  title: T
  status: draft
  due: "next week"
---
`,
			wantErr: ErrMalformedFrontmatter,
		},
		{
			name: "id does not match kind",
			content: `---
archipilot:
  id: R-01
  kind: decision
  title: T
  status: draft
---
`,
			wantErr: ErrMalformedFrontmatter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseDocument([]byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestRenderDocumentRoundTrip(t *testing.T) {
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	answered := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	meta := Metadata{
		ID:       "Q-03",
		Kind:     KindQuestion,
		Title:    "How do we shard the cache?",
		Status:   StatusApproved,
		Owner:    "kim",
		Priority: PriorityLow,
		Due:      &due,
		Tags:     []string{"caching", "deploy:edge"},
		Relates:  []string{"C-02"},
		Created:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Updated:  time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Answered: &answered,
	}
	body := "Consistent hashing over three nodes.\n"

	data, err := RenderDocument(meta, body)
	require.NoError(t, err)

	got, gotBody, err := ParseDocument(data)
	require.NoError(t, err)

	assert.Equal(t, meta.ID, got.ID)
	assert.Equal(t, meta.Kind, got.Kind)
	assert.Equal(t, meta.Title, got.Title)
	assert.Equal(t, meta.Status, got.Status)
	assert.Equal(t, meta.Priority, got.Priority)
	require.NotNil(t, got.Due)
	assert.True(t, got.Due.Equal(due))
	assert.Equal(t, meta.Tags, got.Tags)
	assert.Equal(t, meta.Relates, got.Relates)
	require.NotNil(t, got.Answered)
	assert.True(t, got.Answered.Equal(answered))
	assert.Equal(t, body, gotBody)
}

func TestRenderParseCycleKeepsBodyStable(t *testing.T) {
	meta := Metadata{
		ID:      "AD-05",
		Kind:    KindDecision,
		Title:   "Use Postgres",
		Status:  StatusDraft,
		Created: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Updated: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
	body := "Postgres.\n"

	// Repeated save/load cycles must not grow the body
	for i := 0; i < 3; i++ {
		data, err := RenderDocument(meta, body)
		require.NoError(t, err)

		var gotBody string
		meta, gotBody, err = ParseDocument(data)
		require.NoError(t, err)
		assert.Equal(t, "Postgres.\n", gotBody, "cycle %d", i)
		body = gotBody
	}
}

func TestParseDocumentWithoutSeparatorLine(t *testing.T) {
	doc := "---\narchipilot:\n  id: R-01\n  kind: risk\n  title: T\n  status: draft\n---\nBody right after the delimiter.\n"
	_, body, err := ParseDocument([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Body right after the delimiter.\n", body)
}

func TestRenderDocumentRejectsInvalid(t *testing.T) {
	_, err := RenderDocument(Metadata{ID: "AD-01", Kind: KindDecision}, "")
	require.Error(t, err)
}
