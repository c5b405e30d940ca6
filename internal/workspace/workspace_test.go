package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWithTempDirRemovesOnSuccess(t *testing.T) {
	var dir string
	got, err := WithTempDir(func(d string) (string, error) {
		dir = d
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Fatalf("workspace dir %q not present during body", d)
		}
		return filepath.Join(d, "artifact.bin"), nil
	})
	if err != nil {
		t.Fatalf("WithTempDir: %v", err)
	}
	if got != filepath.Join(dir, "artifact.bin") {
		t.Fatalf("WithTempDir result = %q", got)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace dir %q still exists after WithTempDir returned", dir)
	}
}

func TestWithTempDirRemovesOnError(t *testing.T) {
	var dir string
	wantErr := errors.New("boom")
	_, err := WithTempDir(func(d string) (int, error) {
		dir = d
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithTempDir error = %v, want %v", err, wantErr)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace dir %q still exists after body returned an error", dir)
	}
}
