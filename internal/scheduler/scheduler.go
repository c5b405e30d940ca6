// Package scheduler implements spec.md 4.H: the debounced per-tag release
// scheduler state machine (idle/scheduled/dispatching) and the dispatch
// procedure that follows a debounce window.
//
// Per spec.md §9's design note, one cancel-handle per tag-id in a map is
// enough (no timer wheel); time.AfterFunc plays that role, generalizing the
// teacher's own pattern of a single timer per long-running watch
// (cmd/autobuilder/autobuilder.go's poll loop used a fixed ticker; this
// needs per-key debounce instead, which time.AfterFunc + Stop gives directly).
package scheduler

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/config"
	"github.com/tagship/tagship/internal/hosting"
	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/store"
	"github.com/tagship/tagship/internal/tagerr"
	"github.com/tagship/tagship/internal/target"
	"github.com/tagship/tagship/internal/workspace"
	"golang.org/x/xerrors"
)

const defaultReleaseTimeout = 60 * time.Second

type schedState int

const (
	idle schedState = iota
	scheduled
	dispatching
)

type entry struct {
	state schedState
	timer *time.Timer
}

// Scheduler holds one state-machine entry per "owner/repo:ref" id. The zero
// value is not usable; use New.
type Scheduler struct {
	hosting hosting.Client
	logger  logging.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a scheduler bound to a hosting client (passed to every target
// invocation) and a logger.
func New(hostingClient hosting.Client, logger logging.Logger) *Scheduler {
	return &Scheduler{
		hosting: hostingClient,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// releaseTimeout reads RELEASE_TIMEOUT: unset or empty means the default; any
// other value is parsed as a whole number of seconds and used as-is, and a
// value that does not parse as an integer also yields the default.
func releaseTimeout() time.Duration {
	v := os.Getenv("RELEASE_TIMEOUT")
	if v == "" {
		return defaultReleaseTimeout
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultReleaseTimeout
	}
	return time.Duration(secs) * time.Second
}

// Evaluate feeds one incoming aggregate state for (repo, tag) through the
// state machine in the table at spec.md 4.H. ctx bounds the eventual
// dispatch procedure, not this call, which never blocks.
func (s *Scheduler) Evaluate(ctx context.Context, repo tagship.RepoKey, tag tagship.Tag, aggregate tagship.AggregateState, cfg *config.Config) {
	id := tagship.ScheduledReleaseID(repo, tag.Ref)

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{state: idle}
		s.entries[id] = e
	}

	if e.state == dispatching {
		// dispatch runs to completion; ignore until it finishes and clears
		// the entry.
		s.mu.Unlock()
		return
	}
	if e.state == scheduled {
		e.timer.Stop()
		e.state = idle
	}

	switch aggregate {
	case tagship.AggregatePending:
		s.mu.Unlock()
		s.logger.Debugw("status checks still pending", "id", id)
	case tagship.AggregateFailed:
		s.mu.Unlock()
		s.logger.Infow("status checks have failed", "id", id)
	case tagship.AggregateSuccess:
		if len(cfg.Targets) == 0 {
			s.mu.Unlock()
			s.logger.Infow("no targets configured", "id", id)
			return
		}
		timeout := releaseTimeout()
		e.state = scheduled
		e.timer = time.AfterFunc(timeout, func() {
			s.dispatch(ctx, id, repo, tag, cfg)
		})
		s.mu.Unlock()
		s.logger.Infow("release scheduled", "id", id, "timeout", timeout)
	default:
		s.mu.Unlock()
	}
}

func (s *Scheduler) dispatch(ctx context.Context, id string, repo tagship.RepoKey, tag tagship.Tag, cfg *config.Config) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.state != scheduled {
		// cancelled between the timer firing and this goroutine acquiring
		// the lock.
		s.mu.Unlock()
		return
	}
	e.state = dispatching
	s.mu.Unlock()

	if err := s.runDispatch(ctx, repo, tag, cfg); err != nil {
		s.logger.Errorw("release dispatch failed", "id", id, "error", err)
	}

	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// runDispatch implements spec.md 4.H's five-step dispatch procedure.
func (s *Scheduler) runDispatch(ctx context.Context, repo tagship.RepoKey, tag tagship.Tag, cfg *config.Config) error {
	_, err := workspace.WithTempDir(func(dir string) (struct{}, error) {
		st, ok := store.New(cfg.Store, tag, repo, dir, s.logger)
		if !ok {
			return struct{}{}, xerrors.Errorf("unknown store driver %q", cfg.Store)
		}

		base := target.Context{
			Ctx:     ctx,
			Hosting: s.hosting,
			Logger:  s.logger,
			Store:   st,
			Tag:     tag,
			Repo:    repo,
		}

		var wg sync.WaitGroup
		for _, t := range cfg.Targets {
			spec := target.Spec{Name: t.Name, Options: t.Options}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.runTarget(base, spec)
			}()
		}
		wg.Wait()
		return struct{}{}, nil
	})
	return err
}

// runTarget invokes one target, isolating its failure from its peers per
// spec.md 4.E: a *tagerr.MissingPrerequisite is logged at info and treated
// as a clean skip, any other error is logged at error level, and neither
// propagates.
func (s *Scheduler) runTarget(base target.Context, spec target.Spec) {
	err := target.Run(base, spec)
	if err == nil {
		s.logger.Infow("target published", "target", spec.Name, "repo", base.Repo.String(), "tag", base.Tag.Ref)
		return
	}

	var missing *tagerr.MissingPrerequisite
	if errors.As(err, &missing) {
		s.logger.Infow("target skipped: missing prerequisite", "target", spec.Name, "what", missing.What)
		return
	}
	s.logger.Errorw("target failed", "target", spec.Name, "repo", base.Repo.String(), "tag", base.Tag.Ref, "error", err)
}
