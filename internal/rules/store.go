// internal/rules/store.go
package rules

import (
	"sync/atomic"
)

// Source supplies the rule set to use for one classification pass.
// Implementations must return a value that is not mutated afterwards.
type Source interface {
	Rules() *RuleSet
}

// static is a Source that always returns the same rule set.
type static struct {
	rs *RuleSet
}

// Static wraps a fixed rule set as a Source. A nil rule set means Default().
func Static(rs *RuleSet) Source {
	if rs == nil {
		rs = Default()
	}
	return static{rs: rs.Clone()}
}

func (s static) Rules() *RuleSet { return s.rs }

// Store is a Source whose rule set can be replaced while analyses run.
// Readers always see a complete rule set, either the old or the new one.
type Store struct {
	current atomic.Pointer[RuleSet]
}

// NewStore creates a Store holding a copy of initial (Default() when nil).
func NewStore(initial *RuleSet) *Store {
	if initial == nil {
		initial = Default()
	}
	s := &Store{}
	s.current.Store(initial.Clone())
	return s
}

// Rules returns the current rule set. Callers must treat it as read-only.
func (s *Store) Rules() *RuleSet {
	return s.current.Load()
}

// Swap installs a copy of rs and returns the previous rule set.
func (s *Store) Swap(rs *RuleSet) *RuleSet {
	if rs == nil {
		rs = Default()
	}
	return s.current.Swap(rs.Clone())
}
