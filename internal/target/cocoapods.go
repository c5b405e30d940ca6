package target

import (
	"os"
	"path/filepath"

	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/proc"
	"github.com/tagship/tagship/internal/tagerr"
	"github.com/tagship/tagship/internal/workspace"
	"golang.org/x/xerrors"
)

func init() {
	Register("cocoapods", cocoapodsTarget)
}

// cocoapodsTarget downloads the podspec committed at the tagged ref and
// pushes it via `pod trunk push`. The podspec path defaults to "<repo>.podspec"
// but may be overridden with the "podspec" option.
func cocoapodsTarget(tc Context) error {
	token := os.Getenv("COCOAPODS_TRUNK_TOKEN")
	if token == "" {
		return &tagerr.MissingPrerequisite{Target: "cocoapods", What: "COCOAPODS_TRUNK_TOKEN"}
	}
	bin := os.Getenv("COCOAPODS_BIN")
	if bin == "" {
		bin = "pod"
	}

	podspecPath, _ := tc.Options["podspec"].(string)
	if podspecPath == "" {
		podspecPath = tc.Repo.Repo + ".podspec"
	}

	content, err := tc.Hosting.GetContent(tc.Ctx, tc.Repo, podspecPath, tc.Tag.Ref)
	if err != nil {
		return xerrors.Errorf("cocoapods: fetching %s: %w", podspecPath, err)
	}
	if content == nil {
		return &tagerr.MissingPrerequisite{Target: "cocoapods", What: podspecPath + " not found at " + tc.Tag.Ref}
	}

	_, err = workspace.WithTempDir(func(dir string) (struct{}, error) {
		dest := filepath.Join(dir, filepath.Base(podspecPath))
		if err := os.WriteFile(dest, content.Data, 0644); err != nil {
			return struct{}{}, xerrors.Errorf("cocoapods: writing podspec: %w", err)
		}

		opts := proc.Options{Env: map[string]string{
			"COCOAPODS_TRUNK_TOKEN": token,
			"PATH":                  os.Getenv("PATH"),
		}}
		err := dryrun.PerformVoid(func() error {
			_, err := proc.Spawn(tc.Ctx, bin, []string{"trunk", "push", dest, "--allow-warnings"}, opts, tc.Logger)
			return err
		})
		if err != nil {
			return struct{}{}, xerrors.Errorf("pod trunk push: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
