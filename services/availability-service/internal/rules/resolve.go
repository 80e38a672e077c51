package rules

// Result is the derived availability for one calendar day. Empty TimeSlots
// with IsAvailable true means available all day with no configured hours.
type Result struct {
	IsAvailable bool       `json:"isAvailable"`
	TimeSlots   []TimeSlot `json:"timeSlots"`
}

// Resolve overlays the three rule collections for one calendar day.
//
// Priority, highest to lowest: special date for the exact day, date range
// containing the day, weekly rule for the weekday, then the unavailable
// default. Within each collection the first match in stored order wins;
// duplicate weekday rules and overlapping ranges are honored as stored rather
// than de-duplicated here (the write side keeps ranges non-overlapping going
// forward, but pre-existing data may not be).
//
// Resolve is total: any well-formed input yields a Result, never an error.
func (rs RuleSet) Resolve(day Date) Result {
	for _, sd := range rs.SpecialDates {
		if sd.Date.Equal(day) {
			return Result{IsAvailable: sd.IsAvailable, TimeSlots: Slots(sd.StartTime, sd.EndTime)}
		}
	}

	for _, dr := range rs.DateRanges {
		if dr.Contains(day) {
			return Result{IsAvailable: dr.IsAvailable, TimeSlots: Slots(dr.StartTime, dr.EndTime)}
		}
	}

	weekday := int(day.Weekday())
	for _, wr := range rs.Weekly {
		if wr.DayOfWeek == weekday {
			return Result{IsAvailable: wr.IsAvailable, TimeSlots: Slots(wr.StartTime, wr.EndTime)}
		}
	}

	return Result{IsAvailable: false, TimeSlots: []TimeSlot{}}
}

// AllAvailable reports whether every given day currently resolves available.
// Vacuously true for an empty day list.
func (rs RuleSet) AllAvailable(days []Date) bool {
	for _, d := range days {
		if !rs.Resolve(d).IsAvailable {
			return false
		}
	}
	return true
}

// Slots derives the concrete booking window from a winning rule: one window
// when both times are configured, otherwise unconstrained hours. Kept separate
// from Resolve so the booking flow can reuse it for time options on a date.
func Slots(start, end string) []TimeSlot {
	if start == "" || end == "" {
		return []TimeSlot{}
	}
	return []TimeSlot{{Start: start, End: end}}
}
