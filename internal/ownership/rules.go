// Package ownership validates workloads against a static ownership
// configuration mapping actor identities to the resource patterns they may
// lock. Validation happens caller-side, before submission: the dispatcher
// itself never checks which locks an actor is "allowed" to hold, only that
// no two running tasks hold overlapping locks.
package ownership

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gobwas/glob"
)

// ErrNotPermitted is returned when a task requests a lock outside its
// actor's allowed patterns.
var ErrNotPermitted = errors.New("lock not permitted for actor")

// Ruleset holds compiled ownership rules. Actors with no entry may not lock
// any resource; grants are explicit.
type Ruleset struct {
	rules map[string][]compiledRule
}

type compiledRule struct {
	pattern string
	matcher glob.Glob
}

// NewRuleset compiles a map of actor identity to allowed resource glob
// patterns (e.g. "docs/**", "pkg/parser/*.go").
func NewRuleset(rules map[string][]string) (*Ruleset, error) {
	rs := &Ruleset{rules: make(map[string][]compiledRule, len(rules))}
	for actor, patterns := range rules {
		for _, pattern := range patterns {
			matcher, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q for actor %q: %w", pattern, actor, err)
			}
			rs.rules[actor] = append(rs.rules[actor], compiledRule{pattern: pattern, matcher: matcher})
		}
	}
	return rs, nil
}

// Allowed reports whether the actor may lock the given resource.
func (r *Ruleset) Allowed(actor, lock string) bool {
	for _, rule := range r.rules[actor] {
		if rule.matcher.Match(lock) {
			return true
		}
	}
	return false
}

// Validate checks every requested lock against the actor's patterns.
// Returns ErrNotPermitted (wrapped with the offending lock) on the first
// violation. A task with no locks always validates.
func (r *Ruleset) Validate(actor string, locks []string) error {
	for _, lock := range locks {
		if !r.Allowed(actor, lock) {
			return fmt.Errorf("%w: actor %q requested %q", ErrNotPermitted, actor, lock)
		}
	}
	return nil
}

// Actors returns the configured actor identities, sorted.
func (r *Ruleset) Actors() []string {
	actors := make([]string, 0, len(r.rules))
	for actor := range r.rules {
		actors = append(actors, actor)
	}
	sort.Strings(actors)
	return actors
}

// Patterns returns the configured patterns for an actor, in rule order.
func (r *Ruleset) Patterns(actor string) []string {
	patterns := make([]string, 0, len(r.rules[actor]))
	for _, rule := range r.rules[actor] {
		patterns = append(patterns, rule.pattern)
	}
	return patterns
}
