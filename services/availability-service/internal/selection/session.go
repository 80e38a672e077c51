package selection

import (
	"context"

	"github.com/urbanease/urbanease/services/availability-service/internal/rules"
)

// Saver persists a partial rule-collection replacement for one provider.
type Saver interface {
	Replace(ctx context.Context, providerID string, patch rules.Patch) error
}

// Session owns one provider's in-progress calendar edit: the loaded rule set,
// the click state machine, and the staged, not-yet-persisted toggle. Sessions
// are per editing surface and never shared; two concurrent sessions for the
// same provider race at the persistence layer, last write wins.
type Session struct {
	providerID string
	store      Saver
	ruleSet    rules.RuleSet
	selector   *Selector
	pending    *Mutation
}

func NewSession(providerID string, rs rules.RuleSet, today rules.Date, store Saver) *Session {
	return &Session{
		providerID: providerID,
		store:      store,
		ruleSet:    rs.Normalized(),
		selector:   NewSelector(today),
	}
}

// Click feeds a day click into the gesture. When the gesture finalizes, the
// resulting toggle is staged (replacing any previously staged toggle) and
// Click reports true.
func (s *Session) Click(day rules.Date) bool {
	days := s.selector.Click(day)
	if days == nil {
		return false
	}
	m := Toggle(s.ruleSet, days)
	s.pending = &m
	return true
}

// Preview exposes the selector's hover preview.
func (s *Session) Preview(hover rules.Date) []rules.Date {
	return s.selector.Preview(hover)
}

func (s *Session) Pending() bool { return s.pending != nil }

// Resolve reads availability from the last committed state; a staged toggle
// is a preview until Commit succeeds.
func (s *Session) Resolve(day rules.Date) rules.Result {
	return s.ruleSet.Resolve(day)
}

func (s *Session) RuleSet() rules.RuleSet { return s.ruleSet }

// Commit sends the staged toggle through the persistence round-trip. On
// success the local rule set absorbs the change and the staged state clears;
// on failure the staged toggle is kept so the user can retry.
func (s *Session) Commit(ctx context.Context) error {
	if s.pending == nil {
		return nil
	}
	patch := s.pending.Patch()
	if err := s.store.Replace(ctx, s.providerID, patch); err != nil {
		return err
	}
	s.ruleSet = patch.Apply(s.ruleSet)
	s.pending = nil
	s.selector.Reset()
	return nil
}

// Discard drops the staged toggle and any anchor without persisting.
func (s *Session) Discard() {
	s.pending = nil
	s.selector.Reset()
}
