// Package dryrun implements the process-wide dry-run gate (spec.md 4.K).
package dryrun

import (
	"os"
	"strings"
)

// ShouldPerform reports whether side-effecting actions should actually run.
// It is false exactly when DRY_RUN parses as a truthy string (case
// insensitive: "true", "1", "yes"); true otherwise, including when DRY_RUN is
// unset or empty.
func ShouldPerform() bool {
	return !truthy(os.Getenv("DRY_RUN"))
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// Perform runs effect only when ShouldPerform reports true, otherwise it
// returns zero/synthetic, as a single combinator rather than scattering
// `if ShouldPerform()` checks across every component (spec.md §9 design
// note). The caller still executes all of its surrounding logging/logic;
// only effect itself is gated.
//
// synthesize, if non-nil, is called in dry-run mode to produce a stand-in
// return value (e.g. a fabricated GitHub release) so downstream logic
// remains exercised. If synthesize is nil, the zero value of T is returned.
func Perform[T any](effect func() (T, error), synthesize func() T) (T, error) {
	if ShouldPerform() {
		return effect()
	}
	var zero T
	if synthesize != nil {
		return synthesize(), nil
	}
	return zero, nil
}

// PerformVoid is Perform for effects with no return value.
func PerformVoid(effect func() error) error {
	if !ShouldPerform() {
		return nil
	}
	return effect()
}
