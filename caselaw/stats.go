package caselaw

import (
	"sort"
	"time"
)

// RecentCount is how many of the most recent cases Stats keeps.
const RecentCount = 5

// Stats aggregates a whole record set.
type Stats struct {
	TotalCases int            `json:"totalCases"`
	ByType     map[string]int `json:"casesByType"`
	ByDivision map[string]int `json:"casesByDivision"`
	ByLanguage map[string]int `json:"casesByLanguage"`
	ByMonth    map[string]int `json:"casesByMonth"`
	Recent     []Case         `json:"recentCases"`
}

// NewStats returns empty statistics.
func NewStats() Stats {
	return Stats{
		ByType:     map[string]int{},
		ByDivision: map[string]int{},
		ByLanguage: map[string]int{},
		ByMonth:    map[string]int{},
		Recent:     []Case{},
	}
}

// Clone returns a deep copy.
func (s Stats) Clone() Stats {
	out := NewStats()
	out.TotalCases = s.TotalCases
	for k, v := range s.ByType {
		out.ByType[k] = v
	}
	for k, v := range s.ByDivision {
		out.ByDivision[k] = v
	}
	for k, v := range s.ByLanguage {
		out.ByLanguage[k] = v
	}
	for k, v := range s.ByMonth {
		out.ByMonth[k] = v
	}
	out.Recent = CloneAll(s.Recent)
	return out
}

// ComputeStats counts cases by type, division, language and month, and
// picks the RecentCount most recent ones. A case whose date does not parse
// is left out of the month buckets and ranked after every dated case.
func ComputeStats(cases []Case) Stats {
	stats := NewStats()
	stats.TotalCases = len(cases)

	type dated struct {
		at    time.Time
		ok    bool
		index int
	}
	order := make([]dated, len(cases))

	for i, c := range cases {
		stats.ByType[c.Type]++
		stats.ByDivision[c.CourtDivision]++
		stats.ByLanguage[c.LanguageOfProceedings]++

		at, ok := ParseDate(c.Date)
		if ok {
			stats.ByMonth[at.Format("2006-01")]++
		}
		order[i] = dated{at: at, ok: ok, index: i}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.at.After(b.at)
	})
	for i := 0; i < len(order) && i < RecentCount; i++ {
		stats.Recent = append(stats.Recent, cases[order[i].index].Clone())
	}
	return stats
}
