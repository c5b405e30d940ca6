package hosting

import (
	"context"
	"net/http"
	"os"

	"github.com/google/go-github/v27/github"
	"golang.org/x/oauth2"
	"golang.org/x/xerrors"
)

// githubClient backs Client with the real GitHub API, via the same
// oauth2.StaticTokenSource + go-github wiring cmd/autobuilder/autobuilder.go
// uses.
type githubClient struct {
	gh *github.Client
}

// NewGitHubClient builds a Client authenticated with a personal access
// token. An empty token yields an unauthenticated client (useful for public
// repos in tests), matching go-github's own behavior when passed a nil
// http.Client.
func NewGitHubClient(ctx context.Context, accessToken string) Client {
	var hc *http.Client
	if accessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		hc = oauth2.NewClient(ctx, ts)
	}
	return &githubClient{gh: github.NewClient(hc)}
}

func (c *githubClient) GetReference(ctx context.Context, key RepoKey, ref string) (*Reference, error) {
	r, _, err := c.gh.Git.GetRef(ctx, key.Owner, key.Repo, ref)
	if err != nil {
		return nil, xerrors.Errorf("GetReference(%s, %s): %w", key, ref, err)
	}
	return &Reference{
		ObjectType: r.GetObject().GetType(),
		ObjectSHA:  r.GetObject().GetSHA(),
	}, nil
}

func (c *githubClient) GetTag(ctx context.Context, key RepoKey, sha string) (*TagObject, error) {
	t, _, err := c.gh.Git.GetTag(ctx, key.Owner, key.Repo, sha)
	if err != nil {
		return nil, xerrors.Errorf("GetTag(%s, %s): %w", key, sha, err)
	}
	return &TagObject{CommitSHA: t.GetObject().GetSHA()}, nil
}

func (c *githubClient) ListTags(ctx context.Context, key RepoKey, perPage int) ([]RepoTag, error) {
	var out []RepoTag
	opts := &github.ListOptions{PerPage: perPage}
	for {
		tags, resp, err := c.gh.Repositories.ListTags(ctx, key.Owner, key.Repo, opts)
		if err != nil {
			return nil, xerrors.Errorf("ListTags(%s): %w", key, err)
		}
		for _, t := range tags {
			out = append(out, RepoTag{Name: t.GetName(), CommitSHA: t.GetCommit().GetSHA()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *githubClient) ListStatuses(ctx context.Context, key RepoKey, ref string) ([]Status, bool, error) {
	statuses, _, err := c.gh.Repositories.ListStatuses(ctx, key.Owner, key.Repo, ref, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, false, xerrors.Errorf("ListStatuses(%s, %s): %w", key, ref, err)
	}
	out := make([]Status, len(statuses))
	for i, s := range statuses {
		out[i] = Status{Context: s.GetContext(), State: s.GetState(), UpdatedAt: s.GetUpdatedAt()}
	}
	return out, sortedDescending(out), nil
}

func sortedDescending(statuses []Status) bool {
	for i := 1; i < len(statuses); i++ {
		if statuses[i].UpdatedAt.After(statuses[i-1].UpdatedAt) {
			return false
		}
	}
	return true
}

func (c *githubClient) ListAllStatuses(ctx context.Context, key RepoKey, ref string) ([]Status, error) {
	var out []Status
	opts := &github.ListOptions{PerPage: 100}
	for {
		statuses, resp, err := c.gh.Repositories.ListStatuses(ctx, key.Owner, key.Repo, ref, opts)
		if err != nil {
			return nil, xerrors.Errorf("ListAllStatuses(%s, %s): %w", key, ref, err)
		}
		for _, s := range statuses {
			out = append(out, Status{Context: s.GetContext(), State: s.GetState(), UpdatedAt: s.GetUpdatedAt()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *githubClient) GetContent(ctx context.Context, key RepoKey, path, ref string) (*Content, error) {
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	fc, _, resp, err := c.gh.Repositories.GetContents(ctx, key.Owner, key.Repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, xerrors.Errorf("GetContent(%s, %s): %w", key, path, err)
	}
	if fc == nil {
		return nil, nil
	}
	data, err := fc.GetContent()
	if err != nil {
		return nil, xerrors.Errorf("decoding content of %s: %w", path, err)
	}
	return &Content{Data: []byte(data), SHA: fc.GetSHA()}, nil
}

func (c *githubClient) GetReleaseByTag(ctx context.Context, key RepoKey, tag string) (*Release, error) {
	r, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, key.Owner, key.Repo, tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, xerrors.Errorf("GetReleaseByTag(%s, %s): %w", key, tag, err)
	}
	return toRelease(r), nil
}

func (c *githubClient) CreateRelease(ctx context.Context, key RepoKey, tag, name, body string) (*Release, error) {
	r, _, err := c.gh.Repositories.CreateRelease(ctx, key.Owner, key.Repo, &github.RepositoryRelease{
		TagName: &tag,
		Name:    &name,
		Body:    &body,
	})
	if err != nil {
		return nil, xerrors.Errorf("CreateRelease(%s, %s): %w", key, tag, err)
	}
	return toRelease(r), nil
}

// UploadAsset uploads data as a release asset. go-github's
// UploadReleaseAsset requires an *os.File (it stats the file for
// Content-Length), so data is spooled to a temp file first.
func (c *githubClient) UploadAsset(ctx context.Context, key RepoKey, releaseID int64, name string, data []byte) (*Asset, error) {
	f, err := os.CreateTemp("", "tagship-asset-")
	if err != nil {
		return nil, xerrors.Errorf("UploadAsset(%s, %s): spooling to temp file: %w", key, name, err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return nil, xerrors.Errorf("UploadAsset(%s, %s): %w", key, name, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, xerrors.Errorf("UploadAsset(%s, %s): %w", key, name, err)
	}

	a, _, err := c.gh.Repositories.UploadReleaseAsset(ctx, key.Owner, key.Repo, releaseID,
		&github.UploadOptions{Name: name}, f)
	if err != nil {
		return nil, xerrors.Errorf("UploadAsset(%s, release=%d, %s): %w", key, releaseID, name, err)
	}
	return &Asset{ID: a.GetID(), Name: a.GetName(), URL: a.GetBrowserDownloadURL()}, nil
}

func (c *githubClient) CreateFile(ctx context.Context, key RepoKey, path, message string, content []byte, branch string) error {
	_, _, err := c.gh.Repositories.CreateFile(ctx, key.Owner, key.Repo, path, &github.RepositoryContentFileOptions{
		Message: &message,
		Content: content,
		Branch:  nonEmptyPtr(branch),
	})
	if err != nil {
		return xerrors.Errorf("CreateFile(%s, %s): %w", key, path, err)
	}
	return nil
}

func (c *githubClient) UpdateFile(ctx context.Context, key RepoKey, path, message string, content []byte, sha, branch string) error {
	_, _, err := c.gh.Repositories.UpdateFile(ctx, key.Owner, key.Repo, path, &github.RepositoryContentFileOptions{
		Message: &message,
		Content: content,
		SHA:     &sha,
		Branch:  nonEmptyPtr(branch),
	})
	if err != nil {
		return xerrors.Errorf("UpdateFile(%s, %s): %w", key, path, err)
	}
	return nil
}

func toRelease(r *github.RepositoryRelease) *Release {
	if r == nil {
		return nil
	}
	return &Release{ID: r.GetID(), TagName: r.GetTagName(), HTMLURL: r.GetHTMLURL()}
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
