package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/logging"
)

func TestBuildAggStoreFetchFilesAndDownload(t *testing.T) {
	const body = "binary contents"
	mux := http.NewServeMux()
	mux.HandleFunc("/api/repos/gh/acme/widget/releases/deadbeef/artifacts", func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.Header.Get("Authorization"), "Bearer secret"; got != want {
			t.Errorf("Authorization header = %q, want %q", got, want)
		}
		json.NewEncoder(w).Encode([]aggArtifact{{Name: "widget.tar.gz", URL: "http://" + r.Host + "/dl/widget.tar.gz"}})
	})
	mux.HandleFunc("/dl/widget.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	os.Setenv("BUILDAGG_URL", srv.URL)
	os.Setenv("BUILDAGG_TOKEN", "secret")
	defer os.Unsetenv("BUILDAGG_URL")
	defer os.Unsetenv("BUILDAGG_TOKEN")

	s, ok := New("buildagg", tagship.Tag{Ref: "v1.0.0", SHA: "deadbeef"}, tagship.RepoKey{Owner: "acme", Repo: "widget"}, dir, logging.NewNop())
	if !ok {
		t.Fatal("buildagg driver not registered")
	}

	files, err := s.ListFiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "widget.tar.gz" {
		t.Fatalf("ListFiles = %v, want one file named widget.tar.gz", files)
	}

	paths, err := s.DownloadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("DownloadAll returned %d paths, want 1", len(paths))
	}

	got, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != body {
		t.Fatalf("downloaded content = %q, want %q", got, body)
	}

	if caps := s.Capabilities(); !caps.PreservesArtifactType {
		t.Fatal("Capabilities().PreservesArtifactType = false, want true")
	}
}
