package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const backupStampLayout = "20060102-150405"

// Backup copies the current content of a vault-relative document into
// the backup tree before it is modified. Backups land under
// .archipilot/backups/<relpath>/<stamp>.md; the oldest are pruned so at
// most keep copies remain per document. keep <= 0 disables pruning.
func (m *Manager) Backup(rel string, keep int) (string, error) {
	src := filepath.Join(m.root, rel)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read document for backup: %w", err)
	}

	dir := filepath.Join(m.root, BackupDir, rel)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	name := time.Now().UTC().Format(backupStampLayout) + ".md"
	dst := filepath.Join(dir, name)
	if err := writeFileAtomic(dst, data, 0644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	if keep > 0 {
		if err := pruneBackups(dir, keep); err != nil {
			return "", err
		}
	}

	relDst, err := filepath.Rel(m.root, dst)
	if err != nil {
		relDst = dst
	}
	return relDst, nil
}

// Backups lists backup files for a document, newest first.
func (m *Manager) Backups(rel string) ([]string, error) {
	dir := filepath.Join(m.root, BackupDir, rel)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			names = append(names, e.Name())
		}
	}
	// Stamp names sort chronologically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func pruneBackups(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("prune backups: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("prune backup %s: %w", name, err)
		}
	}
	return nil
}
