package vault

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	dueDateLayout        = "2006-01-02"
)

var (
	// ErrMissingFrontmatter indicates the document has no frontmatter block.
	ErrMissingFrontmatter = errors.New("missing frontmatter")

	// ErrMalformedFrontmatter indicates the frontmatter block could not be parsed.
	ErrMalformedFrontmatter = errors.New("malformed frontmatter")
)

// envelope is the on-disk frontmatter shape. All archipilot fields live
// under a single "archipilot" key so vault documents stay compatible with
// other markdown tooling that reserves top-level frontmatter keys.
type envelope struct {
	Archipilot frontmatter `yaml:"archipilot"`
}

type frontmatter struct {
	ID       string        `yaml:"id"`
	Kind     string        `yaml:"kind"`
	Title    string        `yaml:"title"`
	Status   string        `yaml:"status"`
	Owner    string        `yaml:"owner,omitempty"`
	Priority string        `yaml:"priority,omitempty"`
	Due      string        `yaml:"due,omitempty"`
	Tags     []string      `yaml:"tags,omitempty"`
	Relates  []string      `yaml:"relates,omitempty"`
	Created  time.Time     `yaml:"created"`
	Updated  time.Time     `yaml:"updated"`
	Answered *time.Time    `yaml:"answered,omitempty"`
	Decision *DecisionMeta `yaml:"decision,omitempty"`
	Risk     *RiskMeta     `yaml:"risk,omitempty"`
}

// ParseDocument splits raw document bytes into metadata and markdown body.
func ParseDocument(data []byte) (Metadata, string, error) {
	content := string(data)

	if !strings.HasPrefix(content, frontmatterDelimiter+"\n") &&
		content != frontmatterDelimiter {
		return Metadata{}, "", ErrMissingFrontmatter
	}

	rest := strings.TrimPrefix(content, frontmatterDelimiter+"\n")
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx < 0 {
		return Metadata{}, "", fmt.Errorf("%w: unterminated block", ErrMalformedFrontmatter)
	}

	block := rest[:idx]
	body := rest[idx+len("\n"+frontmatterDelimiter):]
	// Strip the closing delimiter's line ending, then the blank
	// separator RenderDocument emits, so render→parse round-trips
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")

	var env envelope
	if err := yaml.Unmarshal([]byte(block), &env); err != nil {
		return Metadata{}, "", fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}
	fm := env.Archipilot
	if fm.ID == "" && fm.Kind == "" {
		return Metadata{}, "", fmt.Errorf("%w: no archipilot section", ErrMalformedFrontmatter)
	}

	meta := Metadata{
		ID:       fm.ID,
		Kind:     Kind(fm.Kind),
		Title:    fm.Title,
		Status:   Status(fm.Status),
		Owner:    fm.Owner,
		Tags:     fm.Tags,
		Relates:  fm.Relates,
		Created:  fm.Created,
		Updated:  fm.Updated,
		Answered: fm.Answered,
		Decision: fm.Decision,
		Risk:     fm.Risk,
	}
	if fm.Priority != "" {
		meta.Priority = Priority(fm.Priority)
	} else {
		meta.Priority = PriorityMedium
	}
	if fm.Due != "" {
		due, err := time.Parse(dueDateLayout, fm.Due)
		if err != nil {
			return Metadata{}, "", fmt.Errorf("%w: invalid due date %q", ErrMalformedFrontmatter, fm.Due)
		}
		meta.Due = &due
	}

	if err := meta.Validate(); err != nil {
		return Metadata{}, "", fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}

	return meta, body, nil
}

// RenderDocument serializes metadata and body back to document bytes.
// The frontmatter round-trips: parsing the output yields equal metadata.
func RenderDocument(meta Metadata, body string) ([]byte, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	fm := frontmatter{
		ID:       meta.ID,
		Kind:     meta.Kind.String(),
		Title:    meta.Title,
		Status:   meta.Status.String(),
		Owner:    meta.Owner,
		Priority: meta.Priority.String(),
		Tags:     meta.Tags,
		Relates:  meta.Relates,
		Created:  meta.Created,
		Updated:  meta.Updated,
		Answered: meta.Answered,
		Decision: meta.Decision,
		Risk:     meta.Risk,
	}
	if meta.Due != nil {
		fm.Due = meta.Due.Format(dueDateLayout)
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(envelope{Archipilot: fm}); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	buf.WriteString(frontmatterDelimiter + "\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}
