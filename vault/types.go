// Package vault provides the file-backed architecture vault: markdown
// documents with YAML frontmatter describing decisions, risks, questions,
// requirements, work packages, stakeholders and components.
package vault

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a vault document.
type Kind string

const (
	// KindDecision is an architecture decision record.
	KindDecision Kind = "decision"
	// KindRisk is a tracked architecture risk.
	KindRisk Kind = "risk"
	// KindQuestion is an open architecture question.
	KindQuestion Kind = "question"
	// KindRequirement is a functional or quality requirement.
	KindRequirement Kind = "requirement"
	// KindWorkPackage is a planned unit of delivery work.
	KindWorkPackage Kind = "workpackage"
	// KindStakeholder is a person or group with a stake in the architecture.
	KindStakeholder Kind = "stakeholder"
	// KindComponent is a building block of the component model.
	KindComponent Kind = "component"
)

// AllKinds lists every document kind in stable order.
var AllKinds = []Kind{
	KindDecision,
	KindRisk,
	KindQuestion,
	KindRequirement,
	KindWorkPackage,
	KindStakeholder,
	KindComponent,
}

// kindPrefixes maps kinds to their record ID prefix (AD-01, R-03, ...).
var kindPrefixes = map[Kind]string{
	KindDecision:    "AD",
	KindRisk:        "R",
	KindQuestion:    "Q",
	KindRequirement: "REQ",
	KindWorkPackage: "WP",
	KindStakeholder: "ST",
	KindComponent:   "C",
}

// kindDirs maps kinds to their vault subdirectory.
var kindDirs = map[Kind]string{
	KindDecision:    "decisions",
	KindRisk:        "risks",
	KindQuestion:    "questions",
	KindRequirement: "requirements",
	KindWorkPackage: "work-packages",
	KindStakeholder: "stakeholders",
	KindComponent:   "components",
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if the kind is a known document kind.
func (k Kind) IsValid() bool {
	_, ok := kindPrefixes[k]
	return ok
}

// Prefix returns the record ID prefix for this kind (e.g., "AD" for decisions).
func (k Kind) Prefix() string {
	return kindPrefixes[k]
}

// Dir returns the vault subdirectory that holds documents of this kind.
func (k Kind) Dir() string {
	return kindDirs[k]
}

// ParseKind converts a string to a Kind, returning empty for unknown values.
func ParseKind(s string) Kind {
	k := Kind(s)
	if k.IsValid() {
		return k
	}
	return ""
}

// KindFromID resolves the document kind from the text before the first
// dash, so "REQ-01" resolves to requirement and "R-01" to risk.
func KindFromID(id string) Kind {
	idx := strings.Index(id, "-")
	if idx <= 0 {
		return ""
	}
	prefix := strings.ToUpper(id[:idx])

	var match Kind
	for kind, p := range kindPrefixes {
		if p == prefix {
			match = kind
			break
		}
	}
	return match
}

// Status represents the lifecycle state of a vault document.
type Status string

const (
	// StatusDraft indicates the document is being drafted.
	StatusDraft Status = "draft"
	// StatusReview indicates the document is under review.
	StatusReview Status = "review"
	// StatusApproved indicates the document has been approved.
	StatusApproved Status = "approved"
	// StatusDeprecated indicates the document is no longer current.
	StatusDeprecated Status = "deprecated"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusApproved, StatusDeprecated:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusReview
	case StatusReview:
		// Reviews can bounce a document back to draft
		return target == StatusApproved || target == StatusDraft
	case StatusApproved:
		return target == StatusDeprecated
	case StatusDeprecated:
		return false // Terminal state
	default:
		return false
	}
}

// Priority ranks the importance of a vault document.
type Priority string

const (
	// PriorityCritical is for items that block the architecture.
	PriorityCritical Priority = "critical"
	// PriorityHigh is for items needing attention this iteration.
	PriorityHigh Priority = "high"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityLow is for items that can wait.
	PriorityLow Priority = "low"
)

// priorityWeights drive /todo ranking. Higher is more urgent.
var priorityWeights = map[Priority]int{
	PriorityCritical: 400,
	PriorityHigh:     300,
	PriorityMedium:   200,
	PriorityLow:      100,
}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// IsValid returns true if the priority is a known level.
func (p Priority) IsValid() bool {
	_, ok := priorityWeights[p]
	return ok
}

// Weight returns the ranking weight for this priority.
// Unknown priorities weigh the same as medium.
func (p Priority) Weight() int {
	if w, ok := priorityWeights[p]; ok {
		return w
	}
	return priorityWeights[PriorityMedium]
}

// ParsePriority converts a string to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(s))
	if p.IsValid() {
		return p
	}
	return PriorityMedium
}

// DecisionMeta carries decision-specific metadata.
type DecisionMeta struct {
	// Decided is when the decision was taken.
	Decided *time.Time `yaml:"decided,omitempty"`

	// Outcome is "accepted", "superseded" or "rejected".
	Outcome string `yaml:"outcome,omitempty"`

	// SupersededBy is the ID of the decision replacing this one.
	SupersededBy string `yaml:"superseded_by,omitempty"`
}

// RiskMeta carries risk-specific metadata.
type RiskMeta struct {
	// Mitigated indicates the risk has an accepted mitigation in place.
	Mitigated bool `yaml:"mitigated,omitempty"`

	// Mitigation summarizes the mitigation.
	Mitigation string `yaml:"mitigation,omitempty"`
}

// Metadata is the frontmatter of a vault document.
type Metadata struct {
	// ID is the unique record identifier (AD-01, R-03, ...).
	ID string

	// Kind classifies the document.
	Kind Kind

	// Title is the human-readable title.
	Title string

	// Status is the lifecycle state.
	Status Status

	// Owner is the responsible person.
	Owner string

	// Priority ranks the document for /todo.
	Priority Priority

	// Due is an optional due date.
	Due *time.Time

	// Tags are free-form labels. A "deploy:<zone>" tag places a component
	// in a deployment zone for exports.
	Tags []string

	// Relates lists IDs of related records.
	Relates []string

	// Created is when the document was created.
	Created time.Time

	// Updated is when the document was last modified.
	Updated time.Time

	// Answered is when a question was answered, if it was.
	Answered *time.Time

	// Decision holds decision-specific fields (decisions only).
	Decision *DecisionMeta

	// Risk holds risk-specific fields (risks only).
	Risk *RiskMeta
}

// Record is a vault document: metadata plus markdown body.
type Record struct {
	Metadata

	// Body is the markdown content after the frontmatter.
	Body string

	// Path is the document path relative to the vault root.
	Path string
}

// IsOpen reports whether the record counts as an open item for /todo.
func (r *Record) IsOpen() bool {
	switch r.Kind {
	case KindDecision:
		return r.Status == StatusDraft || r.Status == StatusReview
	case KindRisk:
		if r.Status == StatusDeprecated {
			return false
		}
		return r.Risk == nil || !r.Risk.Mitigated
	case KindQuestion:
		return r.Answered == nil && r.Status != StatusDeprecated
	case KindRequirement:
		return r.Status == StatusDraft || r.Status == StatusReview
	default:
		return false
	}
}

// HasTag reports whether the record carries the given tag exactly.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// TagValue returns the value of a "key:value" tag, e.g. TagValue("deploy")
// returns "edge" for a "deploy:edge" tag. Empty if absent.
func (r *Record) TagValue(key string) string {
	prefix := key + ":"
	for _, t := range r.Tags {
		if strings.HasPrefix(t, prefix) {
			return strings.TrimPrefix(t, prefix)
		}
	}
	return ""
}

// Validate checks structural invariants on the metadata.
func (m *Metadata) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("unknown kind %q", m.Kind)
	}
	if got := KindFromID(m.ID); got != m.Kind {
		return fmt.Errorf("id %q does not match kind %q", m.ID, m.Kind)
	}
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("unknown status %q", m.Status)
	}
	return nil
}
