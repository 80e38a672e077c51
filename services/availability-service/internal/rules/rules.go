// Package rules holds a provider's availability rule collections and resolves
// them into per-day availability. The same resolution runs behind the
// read-only customer calendar and the provider's editable settings view, so
// both surfaces agree on what a day means.
package rules

// TimeSlot is a bookable window within a day, "HH:MM" wall-clock strings.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyRule is the recurring per-weekday template, lowest-priority tier.
// DayOfWeek follows time.Weekday numbering: 0 is Sunday.
type WeeklyRule struct {
	DayOfWeek   int    `json:"dayOfWeek"`
	IsAvailable bool   `json:"isAvailable"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
}

// SpecialDate is a single-day exception, highest-priority tier.
type SpecialDate struct {
	Date        Date   `json:"date"`
	IsAvailable bool   `json:"isAvailable"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
}

// DateRange is a contiguous multi-day override, middle-priority tier.
// EndDate is inclusive.
type DateRange struct {
	StartDate   Date   `json:"startDate"`
	EndDate     Date   `json:"endDate"`
	IsAvailable bool   `json:"isAvailable"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
}

func (r DateRange) Contains(day Date) bool {
	return !day.Before(r.StartDate) && !day.After(r.EndDate)
}

// Overlaps reports whether the stored range intersects the inclusive span
// [start, end].
func (r DateRange) Overlaps(start, end Date) bool {
	return !r.EndDate.Before(start) && !r.StartDate.After(end)
}

// DaysSpanned counts the calendar days covered, end inclusive.
func (r DateRange) DaysSpanned() int {
	return r.StartDate.DaysUntil(r.EndDate) + 1
}

// RuleSet is the full availability document owned by one provider. Wire keys
// match the persisted provider shape consumed by the web calendar.
type RuleSet struct {
	Weekly       []WeeklyRule  `json:"availability"`
	SpecialDates []SpecialDate `json:"specialDates"`
	DateRanges   []DateRange   `json:"dateRanges"`
}

// Normalized returns a copy with nil collections replaced by empty ones, so
// the document always serializes with all three keys as arrays.
func (rs RuleSet) Normalized() RuleSet {
	if rs.Weekly == nil {
		rs.Weekly = []WeeklyRule{}
	}
	if rs.SpecialDates == nil {
		rs.SpecialDates = []SpecialDate{}
	}
	if rs.DateRanges == nil {
		rs.DateRanges = []DateRange{}
	}
	return rs
}

// Patch carries whole replacement collections for a partial save. A nil field
// leaves the stored collection untouched; callers therefore send the complete
// desired collection, never a delta.
type Patch struct {
	Weekly       *[]WeeklyRule  `json:"availability,omitempty"`
	SpecialDates *[]SpecialDate `json:"specialDates,omitempty"`
	DateRanges   *[]DateRange   `json:"dateRanges,omitempty"`
}

// Empty reports whether the patch names none of the recognized collections.
func (p Patch) Empty() bool {
	return p.Weekly == nil && p.SpecialDates == nil && p.DateRanges == nil
}

// Keys lists the collections the patch replaces, in wire-key form.
func (p Patch) Keys() []string {
	var keys []string
	if p.Weekly != nil {
		keys = append(keys, "availability")
	}
	if p.SpecialDates != nil {
		keys = append(keys, "specialDates")
	}
	if p.DateRanges != nil {
		keys = append(keys, "dateRanges")
	}
	return keys
}

// Apply overlays the patch on a rule set.
func (p Patch) Apply(rs RuleSet) RuleSet {
	if p.Weekly != nil {
		rs.Weekly = *p.Weekly
	}
	if p.SpecialDates != nil {
		rs.SpecialDates = *p.SpecialDates
	}
	if p.DateRanges != nil {
		rs.DateRanges = *p.DateRanges
	}
	return rs
}
