// Package dispatcher implements spec.md 4.I: the event dispatcher that
// subscribes to tag-created, tag-deleted, and status-update events and
// drives the tag cache, status evaluator, and scheduler.
package dispatcher

import (
	"context"
	"errors"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/config"
	"github.com/tagship/tagship/internal/hosting"
	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/scheduler"
	"github.com/tagship/tagship/internal/status"
	"github.com/tagship/tagship/internal/tagcache"
	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/xerrors"
)

// ConfigLoader fetches and parses a repository's release.yml. A missing
// config must be reported as a *tagerr.ConfigAbsent error, which the
// handlers treat as "ignore this event"; a nil config with a nil error is
// not recognised as absence.
type ConfigLoader func(ctx context.Context, key tagship.RepoKey) (*config.Config, error)

// CreateEvent is the relevant subset of a hosting "create" webhook payload.
type CreateEvent struct {
	Repo    tagship.RepoKey
	RefType string
	Ref     string
}

// DeleteEvent is the relevant subset of a hosting "delete" webhook payload.
type DeleteEvent struct {
	Repo    tagship.RepoKey
	RefType string
	Ref     string
}

// StatusEvent is the relevant subset of a hosting "status" webhook payload.
type StatusEvent struct {
	Repo tagship.RepoKey
	SHA  string
}

// Dispatcher wires together the tag cache, status evaluator, and scheduler
// behind the three event handlers.
type Dispatcher struct {
	hosting    hosting.Client
	tags       *tagcache.Cache
	scheduler  *scheduler.Scheduler
	loadConfig ConfigLoader
	logger     logging.Logger
}

// New builds a Dispatcher. loadConfig is injected so the dispatcher does not
// need to know whether config comes from the local filesystem or the
// hosting API's getContent.
func New(hostingClient hosting.Client, tags *tagcache.Cache, sched *scheduler.Scheduler, loadConfig ConfigLoader, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		hosting:    hostingClient,
		tags:       tags,
		scheduler:  sched,
		loadConfig: loadConfig,
		logger:     logger,
	}
}

// HandleCreate implements the tag-created event of spec.md 4.I.
func (d *Dispatcher) HandleCreate(ctx context.Context, ev CreateEvent) error {
	if ev.RefType != "tag" {
		return nil
	}
	cfg, ok, err := d.loadConfigIgnoringAbsence(ctx, ev.Repo)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	ref, err := d.hosting.GetReference(ctx, ev.Repo, "tags/"+ev.Ref)
	if err != nil {
		return xerrors.Errorf("resolving tags/%s: %w", ev.Ref, err)
	}
	sha := ref.ObjectSHA
	if ref.ObjectType == "tag" {
		tagObj, err := d.hosting.GetTag(ctx, ev.Repo, ref.ObjectSHA)
		if err != nil {
			return xerrors.Errorf("dereferencing annotated tag %s: %w", ev.Ref, err)
		}
		sha = tagObj.CommitSHA
	}

	tag, err := d.tags.AddTag(ctx, ev.Repo, ev.Ref, sha)
	if err != nil {
		return err
	}

	return d.processTag(ctx, ev.Repo, tag, cfg)
}

// HandleDelete implements the tag-deleted event of spec.md 4.I.
func (d *Dispatcher) HandleDelete(ctx context.Context, ev DeleteEvent) error {
	if ev.RefType != "tag" {
		return nil
	}
	_, ok, err := d.loadConfigIgnoringAbsence(ctx, ev.Repo)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	_, err = d.tags.RemoveTag(ctx, ev.Repo, ev.Ref)
	return err
}

// HandleStatus implements the status-update event of spec.md 4.I.
func (d *Dispatcher) HandleStatus(ctx context.Context, ev StatusEvent) error {
	cfg, ok, err := d.loadConfigIgnoringAbsence(ctx, ev.Repo)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	tag, err := d.tags.FindTag(ctx, ev.Repo, ev.SHA)
	if err != nil {
		return err
	}
	if tag == nil {
		return nil
	}

	return d.processTag(ctx, ev.Repo, *tag, cfg)
}

// processTag invokes the status evaluator and feeds its result to the
// scheduler (spec.md 4.I).
func (d *Dispatcher) processTag(ctx context.Context, repo tagship.RepoKey, tag tagship.Tag, cfg *config.Config) error {
	checks, err := status.GetStatuses(ctx, d.hosting, repo, tag.Ref)
	if err != nil {
		return err
	}
	filtered := status.FilterLatestStatuses(checks, cfg.IgnoredChecks)
	aggregate := status.Aggregate(filtered)

	d.scheduler.Evaluate(ctx, repo, tag, aggregate, cfg)
	return nil
}

func (d *Dispatcher) loadConfigIgnoringAbsence(ctx context.Context, repo tagship.RepoKey) (*config.Config, bool, error) {
	cfg, err := d.loadConfig(ctx, repo)
	if err != nil {
		var absent *tagerr.ConfigAbsent
		if errors.As(err, &absent) {
			d.logger.Debugw("no release config, ignoring event", "repo", repo.String())
			return nil, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}
