// Package tagship implements the core of a release-automation bot: it
// reacts to tag and commit-status events from a hosting provider and, once a
// tagged commit's checks are all green, publishes that commit's build
// artifacts to a configurable set of targets.
package tagship

import "fmt"

// Tag is a named immutable reference to a commit. Ref never carries the
// "refs/tags/" prefix.
type Tag struct {
	Ref string
	SHA string
}

// RepoKey identifies a repository for tag-cache partitioning.
type RepoKey struct {
	Owner string
	Repo  string
}

// String renders "owner/repo", used as a human-readable and scheduler-id
// component.
func (k RepoKey) String() string {
	return k.Owner + "/" + k.Repo
}

// StatusState is the state reported by a single commit status check.
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
	StatusError   StatusState = "error"
)

// StatusCheck is one reported commit status. Many checks may share a
// Context; only the latest by UpdatedAt is authoritative.
type StatusCheck struct {
	Context   string
	State     StatusState
	UpdatedAt int64 // unix seconds
}

// AggregateState is the release engine's three-valued summary of a commit's
// checks.
type AggregateState int

const (
	AggregatePending AggregateState = iota
	AggregateSuccess
	AggregateFailed
)

func (a AggregateState) String() string {
	switch a {
	case AggregatePending:
		return "pending"
	case AggregateSuccess:
		return "success"
	case AggregateFailed:
		return "failed"
	default:
		return fmt.Sprintf("AggregateState(%d)", int(a))
	}
}

// Changeset is a named section of a changelog document, extracted for one
// specific release version.
type Changeset struct {
	Name string
	Body string
}

// TargetSpec is a resolved target specification: a driver name plus whatever
// driver-specific options accompanied it in release.yml.
type TargetSpec struct {
	Name    string
	Options map[string]interface{}
}

// ScheduledReleaseID returns the scheduler key for a (repo, ref) pair, of the
// documented form "owner/repo:ref".
func ScheduledReleaseID(key RepoKey, ref string) string {
	return key.String() + ":" + ref
}
