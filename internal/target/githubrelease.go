package target

import (
	"os"
	"path/filepath"

	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/hosting"
	"golang.org/x/xerrors"
)

func init() {
	Register("githubrelease", githubReleaseTarget)
}

// githubReleaseTarget creates or reuses a release for the tag and uploads
// every downloaded artifact to it.
func githubReleaseTarget(tc Context) error {
	release, err := tc.Hosting.GetReleaseByTag(tc.Ctx, tc.Repo, tc.Tag.Ref)
	if err != nil {
		return xerrors.Errorf("githubrelease: looking up release for %s: %w", tc.Tag.Ref, err)
	}
	if release == nil {
		name, _ := tc.Options["name"].(string)
		if name == "" {
			name = tc.Tag.Ref
		}
		body, _ := tc.Options["body"].(string)
		release, err = dryrun.Perform(func() (*hosting.Release, error) {
			return tc.Hosting.CreateRelease(tc.Ctx, tc.Repo, tc.Tag.Ref, name, body)
		}, func() *hosting.Release {
			return &hosting.Release{TagName: tc.Tag.Ref, HTMLURL: "(dry-run, no release created)"}
		})
		if err != nil {
			return xerrors.Errorf("githubrelease: creating release for %s: %w", tc.Tag.Ref, err)
		}
	}

	paths, err := tc.Store.DownloadAll(tc.Ctx)
	if err != nil {
		return xerrors.Errorf("githubrelease: downloading artifacts: %w", err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return xerrors.Errorf("githubrelease: reading %s: %w", path, err)
		}
		err = dryrun.PerformVoid(func() error {
			_, err := tc.Hosting.UploadAsset(tc.Ctx, tc.Repo, release.ID, filepath.Base(path), data)
			return err
		})
		if err != nil {
			return xerrors.Errorf("githubrelease: uploading %s: %w", path, err)
		}
	}

	tc.Logger.Infow("github release published", "repo", tc.Repo.String(), "tag", tc.Tag.Ref, "url", release.HTMLURL, "assets", len(paths))
	return nil
}
