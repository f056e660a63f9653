// Package analysis computes structural insight over the vault: impact
// traces across the relation graph and decision option summaries.
package analysis

import (
	"sort"

	"github.com/enzomar/archipilot/vault"
)

// ImpactHit is a record reached while tracing impact from a root.
type ImpactHit struct {
	// Record is the affected document.
	Record *vault.Record

	// Distance is the number of relation hops from the root.
	Distance int
}

// ImpactReport is the result of tracing impact from one record.
type ImpactReport struct {
	// Root is the record the trace started from.
	Root *vault.Record

	// Hits are the reachable records, nearest first, root excluded.
	Hits []ImpactHit

	// Dangling lists relates targets with no backing document that
	// were encountered during the trace.
	Dangling []string
}

// TraceImpact walks the relation graph breadth-first from the given
// record, following relates edges in both directions. maxDepth <= 0
// means unlimited.
func TraceImpact(idx *vault.Index, rootID string, maxDepth int) (*ImpactReport, bool) {
	root, ok := idx.Get(rootID)
	if !ok {
		return nil, false
	}

	report := &ImpactReport{Root: root}
	visited := map[string]bool{rootID: true}
	danglingSeen := map[string]bool{}

	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{id: rootID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if maxDepth > 0 && current.depth >= maxDepth {
			continue
		}

		for _, next := range idx.Neighbors(current.id) {
			if visited[next] {
				continue
			}
			visited[next] = true

			rec, ok := idx.Get(next)
			if !ok {
				if !danglingSeen[next] {
					danglingSeen[next] = true
					report.Dangling = append(report.Dangling, next)
				}
				continue
			}

			report.Hits = append(report.Hits, ImpactHit{
				Record:   rec,
				Distance: current.depth + 1,
			})
			queue = append(queue, queued{id: next, depth: current.depth + 1})
		}
	}

	sort.Slice(report.Hits, func(i, j int) bool {
		if report.Hits[i].Distance != report.Hits[j].Distance {
			return report.Hits[i].Distance < report.Hits[j].Distance
		}
		return report.Hits[i].Record.ID < report.Hits[j].Record.ID
	})
	sort.Strings(report.Dangling)

	return report, true
}

// ByKind groups impact hits by document kind, preserving hit order.
func (r *ImpactReport) ByKind() map[vault.Kind][]ImpactHit {
	groups := make(map[vault.Kind][]ImpactHit)
	for _, hit := range r.Hits {
		groups[hit.Record.Kind] = append(groups[hit.Record.Kind], hit)
	}
	return groups
}
