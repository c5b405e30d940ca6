// Package status implements spec.md 4.G: fetching and de-duplicating commit
// status checks, and classifying their aggregate state.
package status

import (
	"context"
	"sort"
	"strings"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/hosting"
)

// GetStatuses fetches the statuses for ref. If the hosting provider's first
// page is already sorted descending by UpdatedAt, it is used directly;
// otherwise — because the provider has occasionally returned an unsorted
// first page — this falls back to full pagination and a manual ascending
// sort.
//
// Open question (spec.md §9): this only checks whether the *first* page is
// sorted; if a later page from the paginated fallback were itself unsorted
// relative to the others, that would not be separately detected beyond the
// final sort we do below. Preserved as specified rather than "fixed", since
// the full pagination path always re-sorts the complete set regardless.
func GetStatuses(ctx context.Context, client hosting.Client, key tagship.RepoKey, ref string) ([]tagship.StatusCheck, error) {
	firstPage, sortedDesc, err := client.ListStatuses(ctx, key, ref)
	if err != nil {
		return nil, err
	}
	if sortedDesc {
		return toChecks(firstPage), nil
	}

	all, err := client.ListAllStatuses(ctx, key, ref)
	if err != nil {
		return nil, err
	}
	checks := toChecks(all)
	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].UpdatedAt < checks[j].UpdatedAt
	})
	return checks, nil
}

func toChecks(statuses []hosting.Status) []tagship.StatusCheck {
	out := make([]tagship.StatusCheck, len(statuses))
	for i, s := range statuses {
		out[i] = tagship.StatusCheck{
			Context:   s.Context,
			State:     tagship.StatusState(s.State),
			UpdatedAt: s.UpdatedAt.Unix(),
		}
	}
	return out
}

// FilterLatestStatuses drops any status whose Context begins with an
// ignored-check prefix, groups the rest by Context, and keeps only the
// latest (by UpdatedAt) entry of each group.
func FilterLatestStatuses(statuses []tagship.StatusCheck, ignoredChecks []string) []tagship.StatusCheck {
	latest := make(map[string]tagship.StatusCheck)
	var order []string
	for _, s := range statuses {
		if hasIgnoredPrefix(s.Context, ignoredChecks) {
			continue
		}
		cur, ok := latest[s.Context]
		if !ok {
			order = append(order, s.Context)
		}
		if !ok || s.UpdatedAt > cur.UpdatedAt {
			latest[s.Context] = s
		}
	}
	out := make([]tagship.StatusCheck, 0, len(order))
	for _, ctx := range order {
		out = append(out, latest[ctx])
	}
	return out
}

func hasIgnoredPrefix(context string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(context, p) {
			return true
		}
	}
	return false
}

// Aggregate classifies a set of already-filtered status checks. An empty
// set is treated as Pending (checks configured but not yet reporting).
func Aggregate(checks []tagship.StatusCheck) tagship.AggregateState {
	if len(checks) == 0 {
		return tagship.AggregatePending
	}
	allSuccess := true
	for _, c := range checks {
		if c.State == tagship.StatusPending {
			return tagship.AggregatePending
		}
		if c.State != tagship.StatusSuccess {
			allSuccess = false
		}
	}
	if allSuccess {
		return tagship.AggregateSuccess
	}
	return tagship.AggregateFailed
}
