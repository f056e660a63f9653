package commands

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile("confirm ([0-9a-f]+)")

func stageEdit(t *testing.T, cmdCtx *dispatch.CommandContext, content string) (dispatch.UserResponse, string) {
	t.Helper()

	resp := run(t, cmdCtx, content)
	require.Equal(t, dispatch.ResponseTypeResult, resp.Type, resp.Content)

	match := tokenPattern.FindStringSubmatch(resp.Content)
	require.NotNil(t, match, "no confirmation token in %q", resp.Content)
	return resp, match[1]
}

func TestUpdateCommandStructured(t *testing.T) {
	cmdCtx := newTestContext(t)
	addRecord(t, cmdCtx, vault.KindDecision, "Use managed Kafka", nil)

	resp, token := stageEdit(t, cmdCtx, "/update AD-01 set status review; add tag messaging")

	assert.Contains(t, resp.Content, "```diff")
	assert.Contains(t, resp.Content, "+  status: review")
	assert.Contains(t, resp.Content, "messaging")

	// Nothing applied yet
	rec, err := cmdCtx.Vault.LoadByID("AD-01")
	require.NoError(t, err)
	assert.Equal(t, vault.StatusDraft, rec.Status)

	resp = run(t, cmdCtx, fmt.Sprintf("/update confirm %s", token))
	assert.Contains(t, resp.Content, "Applied edit to **AD-01**")

	rec, err = cmdCtx.Vault.LoadByID("AD-01")
	require.NoError(t, err)
	assert.Equal(t, vault.StatusReview, rec.Status)
	assert.True(t, rec.HasTag("messaging"))

	backups, err := cmdCtx.Vault.Backups(rec.Path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestUpdateCommandCancel(t *testing.T) {
	cmdCtx := newTestContext(t)
	addRecord(t, cmdCtx, vault.KindDecision, "Use managed Kafka", nil)

	_, token := stageEdit(t, cmdCtx, "/update AD-01 set owner kim")

	resp := run(t, cmdCtx, fmt.Sprintf("/update cancel %s", token))
	assert.Contains(t, resp.Content, "Discarded staged edit")

	// The token is single-use
	resp = run(t, cmdCtx, fmt.Sprintf("/update confirm %s", token))
	assert.Equal(t, dispatch.ResponseTypeError, resp.Type)

	rec, err := cmdCtx.Vault.LoadByID("AD-01")
	require.NoError(t, err)
	assert.Empty(t, rec.Owner)
}

func TestUpdateCommandInvalidTransition(t *testing.T) {
	cmdCtx := newTestContext(t)
	addRecord(t, cmdCtx, vault.KindDecision, "Use managed Kafka", nil)

	resp := run(t, cmdCtx, "/update AD-01 set status deprecated")

	assert.Equal(t, dispatch.ResponseTypeError, resp.Type)
	assert.Contains(t, resp.Content, "cannot move from draft to deprecated")
}

func TestUpdateCommandRelates(t *testing.T) {
	cmdCtx := newTestContext(t)
	addRecord(t, cmdCtx, vault.KindComponent, "API gateway", nil)
	addRecord(t, cmdCtx, vault.KindDecision, "Route via gateway", nil)

	_, token := stageEdit(t, cmdCtx, "/update AD-01 relate C-01; set priority high; set due 2026-12-01")
	run(t, cmdCtx, fmt.Sprintf("/update apply %s", token))

	rec, err := cmdCtx.Vault.LoadByID("AD-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"C-01"}, rec.Relates)
	assert.Equal(t, vault.PriorityHigh, rec.Priority)
	require.NotNil(t, rec.Due)
	assert.Equal(t, "2026-12-01", rec.Due.Format("2006-01-02"))
}

func TestUpdateCommandNoChange(t *testing.T) {
	cmdCtx := newTestContext(t)
	addRecord(t, cmdCtx, vault.KindDecision, "Use managed Kafka", func(r *vault.Record) {
		r.Owner = "kim"
	})

	resp := run(t, cmdCtx, "/update AD-01 set owner kim")

	assert.Equal(t, dispatch.ResponseTypeResult, resp.Type)
	assert.Contains(t, resp.Content, "No changes")
}

func TestUpdateCommandFreeForm(t *testing.T) {
	cmdCtx := newTestContext(t)
	cmdCtx.LLM = &stubCompleter{content: "Revised body mentioning p99 latency targets."}
	addRecord(t, cmdCtx, vault.KindDecision, "Use managed Kafka", nil)

	resp, token := stageEdit(t, cmdCtx, "/update AD-01 rewrite the body to cover latency")
	assert.Contains(t, resp.Content, "p99 latency targets")

	run(t, cmdCtx, fmt.Sprintf("/update confirm %s", token))

	rec, err := cmdCtx.Vault.LoadByID("AD-01")
	require.NoError(t, err)
	assert.Contains(t, rec.Body, "p99 latency targets")
}

func TestUpdateCommandFreeFormWithoutModel(t *testing.T) {
	cmdCtx := newTestContext(t)
	addRecord(t, cmdCtx, vault.KindDecision, "Use managed Kafka", nil)

	resp := run(t, cmdCtx, "/update AD-01 rewrite the body to cover latency")

	assert.Equal(t, dispatch.ResponseTypeError, resp.Type)
	assert.Contains(t, resp.Content, "structured instructions")
}

func TestUpdateCommandUnknownRecord(t *testing.T) {
	cmdCtx := newTestContext(t)
	resp := run(t, cmdCtx, "/update AD-99 set owner kim")
	assert.Equal(t, dispatch.ResponseTypeError, resp.Type)
}

func TestUpdateCommandUnknownToken(t *testing.T) {
	cmdCtx := newTestContext(t)
	resp := run(t, cmdCtx, "/update confirm deadbeef0000")
	assert.Equal(t, dispatch.ResponseTypeError, resp.Type)
}
