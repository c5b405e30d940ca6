package target

import (
	"os"
	"strings"

	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/proc"
	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/xerrors"
)

func init() {
	Register("pypi", pypiTarget)
}

// pypiTarget uploads wheel/sdist artifacts via `twine upload`.
func pypiTarget(tc Context) error {
	username := os.Getenv("TWINE_USERNAME")
	password := os.Getenv("TWINE_PASSWORD")
	if username == "" || password == "" {
		return &tagerr.MissingPrerequisite{Target: "pypi", What: "TWINE_USERNAME/TWINE_PASSWORD"}
	}
	bin := os.Getenv("TWINE_BIN")
	if bin == "" {
		bin = "twine"
	}

	paths, err := tc.Store.DownloadAll(tc.Ctx)
	if err != nil {
		return xerrors.Errorf("pypi: downloading artifacts: %w", err)
	}

	var dists []string
	for _, p := range paths {
		if strings.HasSuffix(p, ".whl") || strings.HasSuffix(p, ".tar.gz") {
			dists = append(dists, p)
		}
	}
	if len(dists) == 0 {
		tc.Logger.Infow("pypi: no wheel or sdist among artifacts, skipping", "repo", tc.Repo.String())
		return nil
	}

	args := append([]string{"upload"}, dists...)
	opts := proc.Options{Env: map[string]string{
		"TWINE_USERNAME": username,
		"TWINE_PASSWORD": password,
		"PATH":           os.Getenv("PATH"),
	}}
	err = dryrun.PerformVoid(func() error {
		_, err := proc.Spawn(tc.Ctx, bin, args, opts, tc.Logger)
		return err
	})
	if err != nil {
		return xerrors.Errorf("twine upload: %w", err)
	}
	return nil
}
