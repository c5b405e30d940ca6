package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/logging"
)

func TestObjectStorePrefix(t *testing.T) {
	o := &objectStore{
		repo:   tagship.RepoKey{Owner: "acme", Repo: "widget"},
		commit: tagship.Tag{Ref: "v1.0.0", SHA: "deadbeef"},
	}
	if got, want := o.prefix(), "acme/widget/deadbeef/"; got != want {
		t.Fatalf("prefix() = %q, want %q", got, want)
	}
}

// Under DRY_RUN, fetchFile must never touch the (here nil) S3 client, but
// must still leave a readable file at the returned path so downstream
// targets that read it (e.g. formula.go) keep working.
func TestObjectStoreFetchFileDryRunWritesPlaceholder(t *testing.T) {
	t.Setenv("DRY_RUN", "true")

	dir := t.TempDir()
	o := &objectStore{
		repo:   tagship.RepoKey{Owner: "acme", Repo: "widget"},
		commit: tagship.Tag{Ref: "v1.0.0", SHA: "deadbeef"},
		dir:    dir,
		logger: logging.NewNop(),
	}

	path, err := o.fetchFile(context.Background(), File{Name: "widget.tar.gz", Key: "widget.tar.gz"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "widget.tar.gz")); err != nil {
		t.Fatalf("placeholder file missing: %v", err)
	}
	if path == "" {
		t.Fatal("fetchFile returned empty path")
	}
}
