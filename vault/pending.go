package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PendingTTL is how long a staged edit stays valid before confirmation.
const PendingTTL = time.Hour

// PendingEdit is a staged document modification awaiting confirmation.
type PendingEdit struct {
	// Token identifies the edit in the confirm step.
	Token string `json:"token"`

	// RecordID is the document being modified.
	RecordID string `json:"record_id"`

	// Path is the vault-relative document path.
	Path string `json:"path"`

	// NewContent is the full replacement document bytes.
	NewContent string `json:"new_content"`

	// Diff is the unified diff shown in the preview.
	Diff string `json:"diff"`

	// CreatedAt is when the edit was staged.
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the edit is past its confirmation window.
func (p *PendingEdit) Expired(now time.Time) bool {
	return now.Sub(p.CreatedAt) > PendingTTL
}

// StagePending stores a pending edit under .archipilot/pending/.
func (m *Manager) StagePending(edit *PendingEdit) error {
	if edit.Token == "" {
		return fmt.Errorf("pending edit has no token")
	}

	dir := filepath.Join(m.root, PendingDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create pending directory: %w", err)
	}

	data, err := json.MarshalIndent(edit, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending edit: %w", err)
	}

	path := filepath.Join(dir, edit.Token+".json")
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("stage pending edit: %w", err)
	}

	return nil
}

// TakePending loads and removes the pending edit with the given token.
// Expired edits are removed and reported as an error.
func (m *Manager) TakePending(token string) (*PendingEdit, error) {
	path := filepath.Join(m.root, PendingDir, token+".json")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("no pending edit %s", token)
	}
	if err != nil {
		return nil, fmt.Errorf("read pending edit: %w", err)
	}

	var edit PendingEdit
	if err := json.Unmarshal(data, &edit); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("decode pending edit %s: %w", token, err)
	}

	os.Remove(path)

	if edit.Expired(time.Now()) {
		return nil, fmt.Errorf("pending edit %s expired, stage it again", token)
	}

	return &edit, nil
}

// PrunePending removes expired pending edits and returns how many it deleted.
func (m *Manager) PrunePending(now time.Time) (int, error) {
	dir := filepath.Join(m.root, PendingDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list pending edits: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var edit PendingEdit
		if err := json.Unmarshal(data, &edit); err != nil || edit.Expired(now) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	return removed, nil
}
