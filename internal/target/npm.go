package target

import (
	"os"
	"strings"

	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/proc"
	"golang.org/x/xerrors"
)

func init() {
	Register("npm", npmTarget)
}

// npmTarget publishes the tagged release's tarball via `npm publish`.
// There is no credential env var of its own: npm publish relies on the
// ambient .npmrc the embedding runtime provisions, matching spec.md's
// env-variable table (only NPM_BIN is listed for this driver).
func npmTarget(tc Context) error {
	bin := os.Getenv("NPM_BIN")
	if bin == "" {
		bin = "npm"
	}

	paths, err := tc.Store.DownloadAll(tc.Ctx)
	if err != nil {
		return xerrors.Errorf("npm: downloading artifacts: %w", err)
	}

	tarball := firstMatching(paths, ".tgz")
	if tarball == "" {
		tc.Logger.Infow("npm: no tarball among artifacts, skipping", "repo", tc.Repo.String())
		return nil
	}

	err = dryrun.PerformVoid(func() error {
		_, err := proc.Spawn(tc.Ctx, bin, []string{"publish", tarball}, proc.Options{}, tc.Logger)
		return err
	})
	if err != nil {
		return xerrors.Errorf("npm publish %s: %w", tarball, err)
	}
	return nil
}

func firstMatching(paths []string, suffix string) string {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return p
		}
	}
	return ""
}
