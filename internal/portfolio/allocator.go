// Package portfolio groups sized candidates into entry cohorts, applies the
// gross exposure cap and charges round-trip costs.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"contrarian-lab/internal/domain"
)

// Cohort is the set of candidates sharing one entry timestamp.
// Only used during allocation.
type Cohort struct {
	EntryTime time.Time
	Members   []domain.TradeCandidate
	Gross     float64 // sum of |raw_weight|
	Scale     float64 // 1, or gross_cap/gross when the cap binds
}

// GrossLeverage is the cohort's exposure after de-levering.
func (c Cohort) GrossLeverage() float64 {
	return c.Gross * c.Scale
}

// Delevered reports whether the cap was binding.
func (c Cohort) Delevered() bool {
	return c.Scale < 1
}

// Allocator applies a global gross exposure cap per entry cohort.
type Allocator struct {
	grossCap float64
}

// NewAllocator creates an allocator with the given gross cap.
func NewAllocator(grossCap float64) *Allocator {
	return &Allocator{grossCap: grossCap}
}

// Cohorts groups every candidate by entry time and computes each cohort's
// scale. The full candidate set must be passed at once: a cohort's scale
// depends on all of its members across symbols and frequencies.
// Cohorts are returned in entry-time order; members are ordered by
// symbol, frequency and formation time.
func (a *Allocator) Cohorts(candidates []domain.TradeCandidate) []Cohort {
	groups := lo.GroupBy(candidates, func(c domain.TradeCandidate) int64 {
		return c.EntryTime.UnixNano()
	})

	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	cohorts := make([]Cohort, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		sortMembers(members)

		gross := lo.SumBy(members, func(c domain.TradeCandidate) float64 {
			return math.Abs(c.RawWeight)
		})
		scale := 1.0
		if gross > a.grossCap && gross > 0 {
			scale = a.grossCap / gross
		}

		cohorts = append(cohorts, Cohort{
			EntryTime: members[0].EntryTime,
			Members:   members,
			Gross:     gross,
			Scale:     scale,
		})
	}
	return cohorts
}

func sortMembers(members []domain.TradeCandidate) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Frequency != b.Frequency {
			return a.Frequency < b.Frequency
		}
		return a.FormationTime.Before(b.FormationTime)
	})
}
