package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/enzomar/archipilot/vault"
)

// Snapshotter archives cited URLs into the vault's references directory.
// It implements the dispatch.Archiver interface.
type Snapshotter struct {
	manager   *vault.Manager
	fetcher   *Fetcher
	converter *Converter
	logger    *slog.Logger
}

// NewSnapshotter creates a snapshotter writing into the given vault.
func NewSnapshotter(m *vault.Manager, fetcher *Fetcher, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{
		manager:   m,
		fetcher:   fetcher,
		converter: NewConverter(),
		logger:    logger,
	}
}

// Archive fetches a URL, extracts the readable article, and writes it
// under references/. Returns the vault-relative snapshot path.
func (s *Snapshotter) Archive(ctx context.Context, rawURL string) (string, error) {
	result, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	converted, err := s.converter.Convert(result.Body, result.FinalURL)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", rawURL, err)
	}

	title := converted.Title
	if title == "" {
		title = rawURL
	}

	rel := fmt.Sprintf("%s/%s.md", vault.ReferencesDir, ReferenceSlug(rawURL))
	content := renderSnapshot(title, rawURL, converted, time.Now().UTC())

	if err := s.manager.WriteExport(rel, []byte(content)); err != nil {
		return "", err
	}

	s.logger.Info("archived reference",
		"url", rawURL,
		"path", rel,
		"title", title)

	return rel, nil
}

// snapshotMeta is the frontmatter written on every archived reference.
type snapshotMeta struct {
	Source   string `yaml:"source"`
	Title    string `yaml:"title"`
	Byline   string `yaml:"byline,omitempty"`
	Archived string `yaml:"archived"`
}

func renderSnapshot(title, sourceURL string, converted *ConvertResult, at time.Time) string {
	meta := snapshotMeta{
		Source:   sourceURL,
		Title:    title,
		Byline:   converted.Byline,
		Archived: at.Format(time.RFC3339),
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		// yaml encoding of a flat string struct cannot fail; keep the
		// snapshot usable regardless
		sb.Reset()
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "source: %q\n", sourceURL)
	}
	_ = enc.Close()
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n> Archived from <%s> on %s.\n",
		title, sourceURL, at.Format("2006-01-02"))
	if converted.Byline != "" {
		fmt.Fprintf(&sb, "> By %s.\n", converted.Byline)
	}
	sb.WriteString("\n" + converted.Markdown + "\n")
	return sb.String()
}
