package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// StateDir holds archipilot bookkeeping inside the vault.
	StateDir = ".archipilot"

	// PendingDir holds staged edits awaiting confirmation.
	PendingDir = StateDir + "/pending"

	// BackupDir holds timestamped copies of modified documents.
	BackupDir = StateDir + "/backups"

	// ReferencesDir holds archived snapshots of cited web pages.
	ReferencesDir = "references"

	// ExportsDir holds generated diagram and model files.
	ExportsDir = "exports"

	// DecisionLogFile is the append-only decision log at the vault root.
	DecisionLogFile = "decision-log.md"
)

// Manager provides access to a vault directory tree.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at the given vault directory.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the vault root directory.
func (m *Manager) Root() string {
	return m.root
}

// Abs resolves a vault-relative path to an absolute one.
func (m *Manager) Abs(rel string) string {
	return filepath.Join(m.root, rel)
}

// EnsureDirectories creates the vault directory layout if missing.
func (m *Manager) EnsureDirectories() error {
	dirs := []string{StateDir, PendingDir, BackupDir, ReferencesDir,
		ExportsDir + "/drawio", ExportsDir + "/archimate"}
	for _, kind := range AllKinds {
		dirs = append(dirs, kind.Dir())
	}

	for _, dir := range dirs {
		path := filepath.Join(m.root, dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	logPath := filepath.Join(m.root, DecisionLogFile)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		header := "# Decision Log\n\nAppend-only log of architecture decisions.\n"
		if err := writeFileAtomic(logPath, []byte(header), 0644); err != nil {
			return fmt.Errorf("create decision log: %w", err)
		}
	}

	return nil
}

// Scan loads every vault document. Documents that fail to parse are
// collected as ScanProblems rather than aborting the scan.
func (m *Manager) Scan() ([]*Record, []ScanProblem, error) {
	var records []*Record
	var problems []ScanProblem

	for _, kind := range AllKinds {
		pattern := filepath.Join(m.root, kind.Dir(), "**", "*.md")
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", kind.Dir(), err)
		}

		for _, path := range matches {
			rec, err := m.loadPath(path)
			if err != nil {
				rel, relErr := filepath.Rel(m.root, path)
				if relErr != nil {
					rel = path
				}
				problems = append(problems, ScanProblem{Path: rel, Err: err})
				continue
			}
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	return records, problems, nil
}

// ScanProblem reports a document that could not be loaded during a scan.
type ScanProblem struct {
	Path string
	Err  error
}

// Load reads and parses a document at a vault-relative path.
func (m *Manager) Load(rel string) (*Record, error) {
	return m.loadPath(filepath.Join(m.root, rel))
}

func (m *Manager) loadPath(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	meta, body, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = path
	}

	return &Record{Metadata: meta, Body: body, Path: rel}, nil
}

// LoadByID finds and loads the document with the given record ID.
func (m *Manager) LoadByID(id string) (*Record, error) {
	kind := KindFromID(id)
	if kind == "" {
		return nil, fmt.Errorf("unrecognized record ID %q", id)
	}

	pattern := filepath.Join(m.root, kind.Dir(), "**", "*.md")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", id, err)
	}

	for _, path := range matches {
		rec, err := m.loadPath(path)
		if err != nil {
			continue
		}
		if rec.ID == id {
			return rec, nil
		}
	}

	return nil, fmt.Errorf("record %s not found", id)
}

// Save writes a record back to its path atomically, refreshing Updated.
func (m *Manager) Save(rec *Record) error {
	if rec.Path == "" {
		return fmt.Errorf("record %s has no path", rec.ID)
	}

	rec.Updated = time.Now().UTC().Truncate(time.Second)

	data, err := RenderDocument(rec.Metadata, rec.Body)
	if err != nil {
		return err
	}

	path := filepath.Join(m.root, rec.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("save %s: %w", rec.ID, err)
	}

	return nil
}

// Create allocates the next ID for the kind and writes a new document.
func (m *Manager) Create(kind Kind, title, body string) (*Record, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}

	id, err := m.NextID(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := &Record{
		Metadata: Metadata{
			ID:       id,
			Kind:     kind,
			Title:    title,
			Status:   StatusDraft,
			Priority: PriorityMedium,
			Created:  now,
			Updated:  now,
		},
		Body: body,
		Path: filepath.Join(kind.Dir(), fmt.Sprintf("%s-%s.md", strings.ToLower(id), Slugify(title))),
	}

	data, err := RenderDocument(rec.Metadata, rec.Body)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(m.root, rec.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}

	return rec, nil
}

// NextID returns the next unused record ID for the kind: the highest
// existing ordinal plus one, zero-padded to two digits.
func (m *Manager) NextID(kind Kind) (string, error) {
	pattern := filepath.Join(m.root, kind.Dir(), "**", "*.md")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("allocate ID for %s: %w", kind, err)
	}

	max := 0
	for _, path := range matches {
		rec, err := m.loadPath(path)
		if err != nil {
			continue
		}
		if n := ordinal(rec.ID, kind.Prefix()); n > max {
			max = n
		}
	}

	return fmt.Sprintf("%s-%02d", kind.Prefix(), max+1), nil
}

func ordinal(id, prefix string) int {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return n
}

// WriteExport writes a generated file at a vault-relative path atomically,
// creating parent directories as needed. Used for exports and reference
// snapshots, which carry no frontmatter and bypass Save.
func (m *Manager) WriteExport(rel string, data []byte) error {
	path := filepath.Join(m.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write export %s: %w", rel, err)
	}
	return nil
}

// AppendDecisionLog appends an entry to the vault's decision log.
func (m *Manager) AppendDecisionLog(id, title, summary string) error {
	path := filepath.Join(m.root, DecisionLogFile)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open decision log: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("\n## %s — %s (%s)\n\n%s\n",
		id, title, time.Now().UTC().Format("2006-01-02"), summary)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append decision log: %w", err)
	}

	return f.Sync()
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a filesystem-safe filename fragment.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// writeFileAtomic writes data to a temp file in the target directory,
// fsyncs it, then renames it over the destination. A crash mid-write
// leaves the old file intact.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
