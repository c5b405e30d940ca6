package target

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/hosting"
	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/store"
)

// fakeStore is a minimal store.Store backed by a fixed list of local files,
// shared by the target driver tests below.
type fakeStore struct {
	files []store.File
	dir   string
}

func (f *fakeStore) ListFiles(ctx context.Context) ([]store.File, error) { return f.files, nil }

func (f *fakeStore) DownloadFile(ctx context.Context, file store.File) (string, error) {
	return filepath.Join(f.dir, file.Name), nil
}

func (f *fakeStore) DownloadFiles(ctx context.Context, files []store.File) ([]string, error) {
	out := make([]string, len(files))
	for i, file := range files {
		out[i] = filepath.Join(f.dir, file.Name)
	}
	return out, nil
}

func (f *fakeStore) DownloadAll(ctx context.Context) ([]string, error) {
	return f.DownloadFiles(ctx, f.files)
}

func (f *fakeStore) Capabilities() store.Capabilities { return store.Capabilities{} }

// fakeHosting implements hosting.Client with every method panicking, so
// tests embed it and override only what they exercise.
type fakeHosting struct {
	hosting.Client
	content        *hosting.Content
	release        *hosting.Release
	createdRelease *hosting.Release
	uploaded       []string
	createdFiles   map[string][]byte
	updatedFiles   map[string][]byte
}

func (f *fakeHosting) GetContent(ctx context.Context, key tagship.RepoKey, path, ref string) (*hosting.Content, error) {
	return f.content, nil
}

func (f *fakeHosting) GetReleaseByTag(ctx context.Context, key tagship.RepoKey, tag string) (*hosting.Release, error) {
	return f.release, nil
}

func (f *fakeHosting) CreateRelease(ctx context.Context, key tagship.RepoKey, tag, name, body string) (*hosting.Release, error) {
	f.createdRelease = &hosting.Release{ID: 1, TagName: tag, HTMLURL: "https://example.test/releases/" + tag}
	return f.createdRelease, nil
}

func (f *fakeHosting) UploadAsset(ctx context.Context, key tagship.RepoKey, releaseID int64, name string, data []byte) (*hosting.Asset, error) {
	f.uploaded = append(f.uploaded, name)
	return &hosting.Asset{Name: name}, nil
}

func (f *fakeHosting) CreateFile(ctx context.Context, key tagship.RepoKey, path, message string, content []byte, branch string) error {
	if f.createdFiles == nil {
		f.createdFiles = map[string][]byte{}
	}
	f.createdFiles[path] = content
	return nil
}

func (f *fakeHosting) UpdateFile(ctx context.Context, key tagship.RepoKey, path, message string, content []byte, sha, branch string) error {
	if f.updatedFiles == nil {
		f.updatedFiles = map[string][]byte{}
	}
	f.updatedFiles[path] = content
	return nil
}

func writeTemp(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func baseContext(t *testing.T) (Context, *fakeStore, *fakeHosting) {
	dir := t.TempDir()
	fs := &fakeStore{dir: dir}
	fh := &fakeHosting{}
	return Context{
		Ctx:     context.Background(),
		Hosting: fh,
		Logger:  logging.NewNop(),
		Store:   fs,
		Tag:     tagship.Tag{Ref: "v1.0.0", SHA: "abc123"},
		Repo:    tagship.RepoKey{Owner: "acme", Repo: "widget"},
	}, fs, fh
}

func TestFormulaTargetCreatesFileWithChecksum(t *testing.T) {
	tc, fs, fh := baseContext(t)
	fs.files = []store.File{{Name: "widget-1.0.0.tar.gz", Key: "k1"}}
	writeTemp(t, fs.dir, "widget-1.0.0.tar.gz", []byte("payload"))
	tc.Options = map[string]interface{}{"url": "https://example.test/widget-1.0.0.tar.gz"}

	if err := Run(tc, Spec{Name: "formula", Options: tc.Options}); err != nil {
		t.Fatal(err)
	}

	body, ok := fh.createdFiles["Formula/widget.rb"]
	if !ok {
		t.Fatalf("no file created; createdFiles=%v", fh.createdFiles)
	}
	if !strings.Contains(string(body), "sha256") {
		t.Fatalf("formula body missing sha256 line: %s", body)
	}
}

func TestGithubReleaseTargetCreatesAndUploads(t *testing.T) {
	tc, fs, fh := baseContext(t)
	fs.files = []store.File{{Name: "a.bin", Key: "a"}, {Name: "b.bin", Key: "b"}}
	writeTemp(t, fs.dir, "a.bin", []byte("a"))
	writeTemp(t, fs.dir, "b.bin", []byte("b"))

	if err := Run(tc, Spec{Name: "githubrelease"}); err != nil {
		t.Fatal(err)
	}
	if len(fh.uploaded) != 2 {
		t.Fatalf("uploaded = %v, want 2 assets", fh.uploaded)
	}
}

func TestGithubReleaseTargetDryRunSkipsMutatingCalls(t *testing.T) {
	t.Setenv("DRY_RUN", "true")

	tc, fs, fh := baseContext(t)
	fs.files = []store.File{{Name: "a.bin", Key: "a"}}
	writeTemp(t, fs.dir, "a.bin", []byte("a"))

	if err := Run(tc, Spec{Name: "githubrelease"}); err != nil {
		t.Fatal(err)
	}
	if fh.createdRelease != nil {
		t.Fatalf("CreateRelease was called under DRY_RUN: %v", fh.createdRelease)
	}
	if len(fh.uploaded) != 0 {
		t.Fatalf("UploadAsset was called under DRY_RUN: %v", fh.uploaded)
	}
}

func TestDockerTriggerMissingPrerequisite(t *testing.T) {
	tc, _, _ := baseContext(t)
	os.Unsetenv("DOCKER_TRIGGER_URL")

	err := Run(tc, Spec{Name: "dockertrigger"})
	if err == nil {
		t.Fatal("expected MissingPrerequisite error, got nil")
	}
}
