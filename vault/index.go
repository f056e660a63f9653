package vault

import (
	"sort"
	"time"
)

// Index is an in-memory view over a scanned vault. It is immutable once
// built; rebuild after the vault changes on disk.
type Index struct {
	records  []*Record
	byID     map[string]*Record
	forward  map[string][]string
	reverse  map[string][]string
	problems []ScanProblem
	builtAt  time.Time
}

// BuildIndex scans the vault and constructs the index.
func (m *Manager) BuildIndex() (*Index, error) {
	records, problems, err := m.Scan()
	if err != nil {
		return nil, err
	}
	return NewIndex(records, problems), nil
}

// NewIndex builds an index from already-loaded records.
func NewIndex(records []*Record, problems []ScanProblem) *Index {
	records = append([]*Record(nil), records...)
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})

	idx := &Index{
		records:  records,
		byID:     make(map[string]*Record, len(records)),
		forward:  make(map[string][]string),
		reverse:  make(map[string][]string),
		problems: problems,
		builtAt:  time.Now(),
	}

	for _, rec := range records {
		idx.byID[rec.ID] = rec
	}
	for _, rec := range records {
		for _, target := range rec.Relates {
			idx.forward[rec.ID] = append(idx.forward[rec.ID], target)
			idx.reverse[target] = append(idx.reverse[target], rec.ID)
		}
	}

	return idx
}

// Records returns all indexed records, sorted by ID.
func (idx *Index) Records() []*Record {
	return idx.records
}

// Get looks up a record by ID.
func (idx *Index) Get(id string) (*Record, bool) {
	rec, ok := idx.byID[id]
	return rec, ok
}

// ByKind returns records of the given kind, sorted by ID.
func (idx *Index) ByKind(kind Kind) []*Record {
	var out []*Record
	for _, rec := range idx.records {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// Problems returns documents that failed to parse during the scan.
func (idx *Index) Problems() []ScanProblem {
	return idx.problems
}

// BuiltAt returns when the index was constructed.
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// CountsByKind tallies records per kind.
func (idx *Index) CountsByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, rec := range idx.records {
		counts[rec.Kind]++
	}
	return counts
}

// CountsByStatus tallies records per status for the given kind.
// An empty kind tallies across all kinds.
func (idx *Index) CountsByStatus(kind Kind) map[Status]int {
	counts := make(map[Status]int)
	for _, rec := range idx.records {
		if kind != "" && rec.Kind != kind {
			continue
		}
		counts[rec.Status]++
	}
	return counts
}

// OpenItems returns records that count as open work, sorted by ID.
func (idx *Index) OpenItems() []*Record {
	var out []*Record
	for _, rec := range idx.records {
		if rec.IsOpen() {
			out = append(out, rec)
		}
	}
	return out
}

// Dangling returns relates references that point to no known record,
// as (source ID, missing target) pairs sorted by source then target.
func (idx *Index) Dangling() []DanglingRef {
	var out []DanglingRef
	for _, rec := range idx.records {
		for _, target := range rec.Relates {
			if _, ok := idx.byID[target]; !ok {
				out = append(out, DanglingRef{From: rec.ID, To: target})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// DanglingRef is a relates entry whose target record does not exist.
type DanglingRef struct {
	From string
	To   string
}

// RelatedTo returns IDs the record points at via relates.
func (idx *Index) RelatedTo(id string) []string {
	return idx.forward[id]
}

// RelatedFrom returns IDs of records pointing at this one.
func (idx *Index) RelatedFrom(id string) []string {
	return idx.reverse[id]
}

// Neighbors returns the union of forward and reverse relations,
// deduplicated and sorted.
func (idx *Index) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range idx.forward[id] {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range idx.reverse[id] {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// RankedItem pairs an open record with its computed urgency score.
type RankedItem struct {
	Record *Record
	Score  int
}

// RankOpenItems scores open items for /todo. Priority sets the base
// weight; an overdue item gains 200, one due within a week gains 100,
// and items drift upward slowly with age so stale drafts surface.
func (idx *Index) RankOpenItems(now time.Time) []RankedItem {
	open := idx.OpenItems()
	items := make([]RankedItem, 0, len(open))

	for _, rec := range open {
		score := rec.Priority.Weight()

		if rec.Due != nil {
			until := rec.Due.Sub(now)
			if until < 0 {
				score += 200
			} else if until <= 7*24*time.Hour {
				score += 100
			}
		}

		if !rec.Created.IsZero() {
			ageDays := int(now.Sub(rec.Created).Hours() / 24)
			if ageDays > 0 {
				bonus := ageDays / 7
				if bonus > 50 {
					bonus = 50
				}
				score += bonus
			}
		}

		items = append(items, RankedItem{Record: rec, Score: score})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Record.ID < items[j].Record.ID
	})

	return items
}
