package analysis

import (
	"bufio"
	"strings"

	"github.com/enzomar/archipilot/vault"
)

// Option is one candidate outcome for a decision.
type Option struct {
	// Name is the option heading.
	Name string

	// Body is the markdown under the option heading.
	Body string
}

// DecisionAnalysis is the structural input for decision support: the
// options found in the document plus related context from the vault.
type DecisionAnalysis struct {
	// Decision is the record under consideration.
	Decision *vault.Record

	// Options are the candidate outcomes. When the document declares
	// no "## Option:" sections, the defaults are adopt and defer.
	Options []Option

	// RelatedRisks are risks linked to the decision.
	RelatedRisks []*vault.Record

	// RelatedRequirements are requirements linked to the decision.
	RelatedRequirements []*vault.Record

	// RelatedDecisions are other decisions linked to this one.
	RelatedDecisions []*vault.Record
}

const optionHeading = "## Option:"

// BuildDecisionAnalysis extracts options and related context for a decision.
func BuildDecisionAnalysis(idx *vault.Index, rec *vault.Record) *DecisionAnalysis {
	da := &DecisionAnalysis{
		Decision: rec,
		Options:  parseOptions(rec.Body),
	}

	if len(da.Options) == 0 {
		da.Options = []Option{
			{Name: "Adopt", Body: "Accept the decision as drafted."},
			{Name: "Defer", Body: "Postpone until open questions are resolved."},
		}
	}

	for _, id := range idx.Neighbors(rec.ID) {
		related, ok := idx.Get(id)
		if !ok {
			continue
		}
		switch related.Kind {
		case vault.KindRisk:
			da.RelatedRisks = append(da.RelatedRisks, related)
		case vault.KindRequirement:
			da.RelatedRequirements = append(da.RelatedRequirements, related)
		case vault.KindDecision:
			da.RelatedDecisions = append(da.RelatedDecisions, related)
		}
	}

	return da
}

// parseOptions splits the body into "## Option: <name>" sections.
func parseOptions(body string) []Option {
	var options []Option
	var current *Option
	var buf strings.Builder

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(buf.String())
			options = append(options, *current)
			buf.Reset()
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, optionHeading) {
			flush()
			name := strings.TrimSpace(strings.TrimPrefix(line, optionHeading))
			if name == "" {
				name = "Unnamed"
			}
			current = &Option{Name: name}
			continue
		}

		// A non-option heading at the same level ends the option list
		if current != nil && strings.HasPrefix(line, "## ") {
			flush()
			current = nil
			continue
		}

		if current != nil {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()

	return options
}
