// Package selection turns calendar-day gestures into availability rule
// mutations: the two-click range selector, the toggle-intent rule, and the
// diff that rewrites the provider's rule collections.
package selection

import (
	"github.com/urbanease/urbanease/services/availability-service/internal/rules"
)

// Selector is the two-click range gesture state machine. It is either idle or
// anchored on a first-clicked day; a second click finalizes the inclusive
// span between anchor and click, in either direction. Clicking the anchored
// day again collapses the gesture to that single day.
//
// A Selector belongs to one editing session and is not safe for concurrent
// use; it never needs to be.
type Selector struct {
	today    rules.Date
	anchor   rules.Date
	anchored bool
}

func NewSelector(today rules.Date) *Selector {
	return &Selector{today: today}
}

func (s *Selector) Anchored() bool { return s.anchored }

// Click feeds one day click into the gesture. The returned slice is non-nil
// only when the gesture finalized; it then holds the selected days in
// ascending order. Days before today are never selectable: they neither start
// an anchor nor finalize a range.
func (s *Selector) Click(day rules.Date) []rules.Date {
	if day.Before(s.today) {
		return nil
	}
	if !s.anchored {
		s.anchor = day
		s.anchored = true
		return nil
	}

	s.anchored = false
	start, end := s.anchor, day
	if end.Before(start) {
		start, end = end, start
	}
	return span(start, end)
}

// Preview returns the days the finalizing click would select while hovering,
// or nil when no anchor is set.
func (s *Selector) Preview(hover rules.Date) []rules.Date {
	if !s.anchored || hover.Before(s.today) {
		return nil
	}
	start, end := s.anchor, hover
	if end.Before(start) {
		start, end = end, start
	}
	return span(start, end)
}

// Reset discards any anchor, returning the selector to idle.
func (s *Selector) Reset() {
	s.anchored = false
}

func span(start, end rules.Date) []rules.Date {
	days := make([]rules.Date, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
