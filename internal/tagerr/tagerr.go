// Package tagerr declares the error taxonomy shared across the release
// engine's components (spec.md §7). Components wrap these with
// golang.org/x/xerrors so the underlying cause survives %w-unwrapping.
package tagerr

import "golang.org/x/xerrors"

// InvalidArgument is returned when a caller-supplied argument fails a basic
// precondition (e.g. an empty command name to proc.Spawn).
type InvalidArgument struct {
	Msg string
}

func (e *InvalidArgument) Error() string { return e.Msg }

// ProcessFailed is returned when a spawned child process exits non-zero, or
// fails to start at all.
type ProcessFailed struct {
	Code    int
	Args    []string
	Options interface{} // scrubbed options, e.g. env reduced to its key list
	Cause   error
}

func (e *ProcessFailed) Error() string {
	if e.Cause != nil {
		return xerrors.Errorf("process %v exited %d: %w", e.Args, e.Code, e.Cause).Error()
	}
	return xerrors.Errorf("process %v exited %d", e.Args, e.Code).Error()
}

func (e *ProcessFailed) Unwrap() error { return e.Cause }

// UnknownTarget is returned when a target spec names a driver that was never
// registered.
type UnknownTarget struct {
	Name string
}

func (e *UnknownTarget) Error() string { return "unknown target: " + e.Name }

// MissingTargetSpec is returned when a target spec is nil/empty or its name
// field is missing.
type MissingTargetSpec struct{}

func (e *MissingTargetSpec) Error() string { return "missing target spec" }

// MissingPrerequisite indicates a target's required credential or
// configuration is absent. It is never surfaced as a failure: callers log it
// at info and skip the target cleanly.
type MissingPrerequisite struct {
	Target string
	What   string
}

func (e *MissingPrerequisite) Error() string {
	return e.Target + ": missing prerequisite: " + e.What
}

// ConfigAbsent indicates no release.yml exists in the repository; the event
// that triggered the lookup is ignored silently.
type ConfigAbsent struct {
	Repo string
}

func (e *ConfigAbsent) Error() string { return "no release config in " + e.Repo }

// TransientHosting wraps a retryable hosting-API failure. The core never
// retries it itself; it is surfaced to the caller (the outer webhook runtime
// may choose to retry the event).
type TransientHosting struct {
	Cause error
}

func (e *TransientHosting) Error() string {
	return xerrors.Errorf("transient hosting error: %w", e.Cause).Error()
}

func (e *TransientHosting) Unwrap() error { return e.Cause }
