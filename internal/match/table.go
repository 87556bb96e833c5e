package match

import (
	"firestige.xyz/framesmith/internal/frame"
)

// Transform derives a reply from a matched frame. It must not have side
// effects; the responder builds and sends what it returns.
type Transform func(*frame.Frame) (*frame.Frame, error)

// Rule pairs a predicate with the transform applied on match.
type Rule struct {
	Name      string
	Predicate Predicate
	Transform Transform
}

// RuleTable is an ordered rule list scanned first match wins. A predicate
// key appears at most once.
type RuleTable struct {
	rules []Rule
}

func NewRuleTable() *RuleTable { return &RuleTable{} }

// AddRule registers t for p under the predicate key.
func (t *RuleTable) AddRule(p Predicate, tr Transform) {
	t.Add(Rule{Name: p.Key(), Predicate: p, Transform: tr})
}

// Add appends r, or replaces in place the rule whose predicate has the same
// key. An empty name defaults to the key.
func (t *RuleTable) Add(r Rule) {
	key := r.Predicate.Key()
	if r.Name == "" {
		r.Name = key
	}
	for i := range t.rules {
		if t.rules[i].Predicate.Key() == key {
			t.rules[i] = r
			return
		}
	}
	t.rules = append(t.rules, r)
}

// Rules returns a copy of the rules in scan order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func (t *RuleTable) Len() int { return len(t.rules) }

// First returns the first rule whose predicate matches f.
func (t *RuleTable) First(f *frame.Frame) (Rule, bool) {
	for _, r := range t.rules {
		if r.Predicate.Match(f) {
			return r, true
		}
	}
	return Rule{}, false
}
