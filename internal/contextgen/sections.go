package contextgen

import (
	"sort"
	"time"

	"github.com/selfmap/selfmap/pkg/types"
)

// Section is one entity category's worth of scored entries, ready to be
// rendered into the document.
type Section struct {
	EntityType types.EntityType
	Label      string
	Weight     float64
	Entries    []ScoredEntry
	// TotalCount is the number of matching rows before the per-type limit,
	// so readers can tell when a section was cut off.
	TotalCount int
}

// scoreSum is the tie-break key for sections with equal weight.
func (s *Section) scoreSum() float64 {
	var sum float64
	for _, e := range s.Entries {
		sum += e.Score
	}
	return sum
}

// OrganizeSections scores each fetched entity group and arranges the
// non-empty results by persona weight descending, breaking ties by the
// sum of entry scores. Iteration over the fetch results follows the
// canonical entity order so the sort input is deterministic.
func OrganizeSections(results map[types.EntityType]FetchResult, persona types.Persona, focus string, now time.Time) []Section {
	var sections []Section
	for _, t := range types.AllEntityTypes {
		res, ok := results[t]
		if !ok {
			continue
		}
		scored := ScoreEntries(res.Entries, &persona, focus, now)
		if len(scored) == 0 {
			continue
		}
		sections = append(sections, Section{
			EntityType: t,
			Label:      t.Label(),
			Weight:     persona.Weight(t),
			Entries:    scored,
			TotalCount: res.Total,
		})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Weight != sections[j].Weight {
			return sections[i].Weight > sections[j].Weight
		}
		return sections[i].scoreSum() > sections[j].scoreSum()
	})
	return sections
}
