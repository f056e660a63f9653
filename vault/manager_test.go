package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(t.TempDir())
	require.NoError(t, m.EnsureDirectories())
	return m
}

func TestEnsureDirectories(t *testing.T) {
	m := newTestVault(t)

	for _, kind := range AllKinds {
		info, err := os.Stat(m.Abs(kind.Dir()))
		require.NoError(t, err, "missing %s", kind.Dir())
		assert.True(t, info.IsDir())
	}
	for _, dir := range []string{StateDir, PendingDir, BackupDir, ReferencesDir,
		ExportsDir + "/drawio", ExportsDir + "/archimate"} {
		info, err := os.Stat(m.Abs(dir))
		require.NoError(t, err, "missing %s", dir)
		assert.True(t, info.IsDir())
	}

	data, err := os.ReadFile(m.Abs(DecisionLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Decision Log")
}

func TestCreateAndLoadByID(t *testing.T) {
	m := newTestVault(t)

	rec, err := m.Create(KindDecision, "Adopt NATS for messaging", "## Context\n\nAsync messaging.\n")
	require.NoError(t, err)
	assert.Equal(t, "AD-01", rec.ID)
	assert.Equal(t, StatusDraft, rec.Status)
	assert.Equal(t, filepath.Join("decisions", "ad-01-adopt-nats-for-messaging.md"), rec.Path)

	loaded, err := m.LoadByID("AD-01")
	require.NoError(t, err)
	assert.Equal(t, "Adopt NATS for messaging", loaded.Title)
	assert.Contains(t, loaded.Body, "Async messaging")

	_, err = m.LoadByID("AD-99")
	require.Error(t, err)

	_, err = m.LoadByID("banana")
	require.Error(t, err)
}

func TestNextIDSkipsGaps(t *testing.T) {
	m := newTestVault(t)

	for _, title := range []string{"First", "Second", "Third"} {
		_, err := m.Create(KindRisk, title, "")
		require.NoError(t, err)
	}

	// Removing R-02 must not cause its ID to be reissued
	require.NoError(t, os.Remove(m.Abs(filepath.Join("risks", "r-02-second.md"))))

	id, err := m.NextID(KindRisk)
	require.NoError(t, err)
	assert.Equal(t, "R-04", id)
}

func TestSaveUpdatesTimestamp(t *testing.T) {
	m := newTestVault(t)

	rec, err := m.Create(KindQuestion, "Which database?", "Postgres or SQLite?\n")
	require.NoError(t, err)
	created := rec.Updated

	time.Sleep(1100 * time.Millisecond)
	rec.Body = "Postgres.\n"
	require.NoError(t, m.Save(rec))

	loaded, err := m.LoadByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Postgres.\n", loaded.Body)
	assert.True(t, loaded.Updated.After(created), "Updated %v not after %v", loaded.Updated, created)
}

func TestScanCollectsProblems(t *testing.T) {
	m := newTestVault(t)

	_, err := m.Create(KindComponent, "API Gateway", "")
	require.NoError(t, err)
	_, err = m.Create(KindComponent, "Billing Service", "")
	require.NoError(t, err)

	bad := m.Abs(filepath.Join("components", "broken.md"))
	require.NoError(t, os.WriteFile(bad, []byte("no frontmatter here\n"), 0644))

	records, problems, err := m.Scan()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	require.Len(t, problems, 1)
	assert.Equal(t, filepath.Join("components", "broken.md"), problems[0].Path)
}

func TestAppendDecisionLog(t *testing.T) {
	m := newTestVault(t)

	require.NoError(t, m.AppendDecisionLog("AD-01", "Adopt NATS", "Queue groups give us load balancing."))
	require.NoError(t, m.AppendDecisionLog("AD-02", "Drop REST", "gRPC internally."))

	data, err := os.ReadFile(m.Abs(DecisionLogFile))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "AD-01 — Adopt NATS")
	assert.Contains(t, content, "AD-02 — Drop REST")
	assert.Contains(t, content, "Queue groups give us load balancing.")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Adopt NATS for messaging", "adopt-nats-for-messaging"},
		{"  Weird -- punctuation!? ", "weird-punctuation"},
		{"", "untitled"},
		{"???", "untitled"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := Slugify("a very long title that keeps going and going and going and going and going")
	assert.LessOrEqual(t, len(long), 60)
}

func TestBackupAndPrune(t *testing.T) {
	m := newTestVault(t)

	rec, err := m.Create(KindRequirement, "Latency budget", "p99 under 200ms.\n")
	require.NoError(t, err)

	var last string
	for i := 0; i < 4; i++ {
		last, err = m.Backup(rec.Path, 2)
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond)
	}

	names, err := m.Backups(rec.Path)
	require.NoError(t, err)
	assert.Len(t, names, 2, "prune should keep only 2 backups")

	data, err := os.ReadFile(m.Abs(last))
	require.NoError(t, err)
	assert.Contains(t, string(data), "p99 under 200ms.")

	// No backups for an untouched document
	names, err = m.Backups("requirements/nothing.md")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPendingLifecycle(t *testing.T) {
	m := newTestVault(t)

	edit := &PendingEdit{
		Token:      "abc123",
		RecordID:   "AD-01",
		Path:       "decisions/ad-01-x.md",
		NewContent: "new content",
		Diff:       "--- a\n+++ b\n",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, m.StagePending(edit))

	got, err := m.TakePending("abc123")
	require.NoError(t, err)
	assert.Equal(t, "AD-01", got.RecordID)
	assert.Equal(t, "new content", got.NewContent)

	// Take removes the edit
	_, err = m.TakePending("abc123")
	require.Error(t, err)
}

func TestPendingExpiry(t *testing.T) {
	m := newTestVault(t)

	stale := &PendingEdit{
		Token:     "old",
		RecordID:  "AD-01",
		Path:      "decisions/ad-01-x.md",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, m.StagePending(stale))

	_, err := m.TakePending("old")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	fresh := &PendingEdit{Token: "new", RecordID: "AD-02", CreatedAt: time.Now()}
	require.NoError(t, m.StagePending(fresh))
	require.NoError(t, m.StagePending(&PendingEdit{
		Token: "old2", RecordID: "AD-03", CreatedAt: time.Now().Add(-3 * time.Hour),
	}))

	removed, err := m.PrunePending(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = m.TakePending("new")
	require.NoError(t, err)
}
