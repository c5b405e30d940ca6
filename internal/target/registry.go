// Package target implements spec.md 4.E: the target registry and the
// per-release dispatch of configured targets. Generalizes the teacher's
// dynamic build-step dispatch (cmd/autobuilder/autobuilder.go walks a fixed
// set of build steps) into a registered name -> driver mapping, per spec.md
// §9's design note preferring a static registry over file-system-resolved
// driver modules.
package target

import (
	"context"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/hosting"
	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/store"
	"github.com/tagship/tagship/internal/tagerr"
)

// Context is the value every target driver receives. Drivers must treat it
// as read-only except for the fields documented as theirs to use; the engine
// builds a fresh Context per target so targets never share mutable state.
type Context struct {
	Ctx     context.Context
	Hosting hosting.Client
	Logger  logging.Logger
	Store   store.Store
	Tag     tagship.Tag
	Repo    tagship.RepoKey
	Options map[string]interface{}
}

// Driver publishes artifacts to one destination. A driver returning
// *tagerr.MissingPrerequisite is treated as a clean skip, not a failure.
type Driver func(tc Context) error

var registry = map[string]Driver{}

// Register adds a driver under name, called from each driver file's init().
func Register(name string, d Driver) {
	registry[name] = d
}

// Spec is an unresolved target entry from config.TargetSpec, accepted as
// either a bare string or name+options record.
type Spec struct {
	Name    string
	Options map[string]interface{}
}

// Resolve validates spec and looks up its driver. It never runs the driver.
func Resolve(spec Spec) (Driver, error) {
	if spec.Name == "" {
		return nil, &tagerr.MissingTargetSpec{}
	}
	d, ok := registry[spec.Name]
	if !ok {
		return nil, &tagerr.UnknownTarget{Name: spec.Name}
	}
	return d, nil
}

// Run resolves and invokes spec against base, extended with spec's options.
// Any error - including MissingPrerequisite - is returned to the caller
// uninspected; isolating target failures from one another is the caller's
// responsibility (the scheduler runs each Run in its own goroutine under a
// sync.WaitGroup).
func Run(base Context, spec Spec) error {
	d, err := Resolve(spec)
	if err != nil {
		return err
	}
	tc := base
	tc.Options = spec.Options
	return d(tc)
}
