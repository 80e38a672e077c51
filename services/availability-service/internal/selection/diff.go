package selection

import (
	"github.com/urbanease/urbanease/services/availability-service/internal/rules"
)

// Mutation is the collection rewrite needed to realize one toggle. Only the
// flagged collection changed; the save payload must replace nothing else.
type Mutation struct {
	SpecialDates    []rules.SpecialDate
	DateRanges      []rules.DateRange
	SpecialsChanged bool
	RangesChanged   bool
	MakeAvailable   bool
}

// Patch converts the mutation into the partial-replace payload for the
// persistence round-trip.
func (m Mutation) Patch() rules.Patch {
	var p rules.Patch
	if m.SpecialsChanged {
		p.SpecialDates = &m.SpecialDates
	}
	if m.RangesChanged {
		p.DateRanges = &m.DateRanges
	}
	return p
}

// Intent determines the direction of a finalized toggle: a selection that is
// entirely available flips to unavailable, any other (mixed or blocked)
// selection flips to available.
func Intent(rs rules.RuleSet, days []rules.Date) bool {
	return !rs.AllAvailable(days)
}

// Toggle computes the rule mutation for a finalized selection against the
// current rule set.
//
// A single day becomes a SpecialDate upsert, replacing any stored entry for
// the same day. Two or more days become one DateRange over [min, max]; every
// stored range overlapping that span is dropped before the new range is
// inserted, so stored ranges never overlap after a toggle.
func Toggle(rs rules.RuleSet, days []rules.Date) Mutation {
	if len(days) == 0 {
		return Mutation{}
	}
	makeAvailable := Intent(rs, days)

	if len(days) == 1 {
		day := days[0]
		specials := make([]rules.SpecialDate, 0, len(rs.SpecialDates)+1)
		for _, sd := range rs.SpecialDates {
			if !sd.Date.Equal(day) {
				specials = append(specials, sd)
			}
		}
		specials = append(specials, rules.SpecialDate{Date: day, IsAvailable: makeAvailable})
		return Mutation{SpecialDates: specials, SpecialsChanged: true, MakeAvailable: makeAvailable}
	}

	start, end := bounds(days)
	ranges := make([]rules.DateRange, 0, len(rs.DateRanges)+1)
	for _, dr := range rs.DateRanges {
		if !dr.Overlaps(start, end) {
			ranges = append(ranges, dr)
		}
	}
	ranges = append(ranges, rules.DateRange{StartDate: start, EndDate: end, IsAvailable: makeAvailable})
	return Mutation{DateRanges: ranges, RangesChanged: true, MakeAvailable: makeAvailable}
}

func bounds(days []rules.Date) (rules.Date, rules.Date) {
	min, max := days[0], days[0]
	for _, d := range days[1:] {
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
	}
	return min, max
}
