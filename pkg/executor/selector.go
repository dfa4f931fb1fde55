package executor

import "fmt"

// Mode selects how a rule set is dispatched.
type Mode string

const (
	// Sequential evaluates rules one at a time in selector order.
	Sequential Mode = "sequential"

	// Parallel evaluates all selected rules concurrently.
	Parallel Mode = "parallel"

	// Batched evaluates rules in windows of the configured concurrency,
	// waiting for each window before starting the next.
	Batched Mode = "batched"
)

// Valid reports whether the mode is known. The empty mode is valid and
// means sequential.
func (m Mode) Valid() bool {
	switch m {
	case Sequential, Parallel, Batched, "":
		return true
	}
	return false
}

// Selector names the rules to evaluate. Exactly one of RuleIDs, Tags,
// or All must be set.
type Selector struct {
	// RuleIDs selects specific rules.
	RuleIDs []string

	// Tags selects rules carrying at least one of these tags.
	Tags []string

	// All selects every rule in the catalog.
	All bool

	// Mode selects the dispatch strategy. Empty means sequential.
	Mode Mode
}

// Validate checks that exactly one selection criterion is set and the
// mode is known.
func (s Selector) Validate() error {
	set := 0
	if len(s.RuleIDs) > 0 {
		set++
	}
	if len(s.Tags) > 0 {
		set++
	}
	if s.All {
		set++
	}
	if set != 1 {
		return fmt.Errorf("selector must set exactly one of rule IDs, tags, or all; got %d", set)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("unknown dispatch mode: %q", s.Mode)
	}
	return nil
}
