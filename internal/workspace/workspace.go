// Package workspace implements spec.md 4.C's scoped temp-directory helper.
package workspace

import (
	"os"

	"golang.org/x/xerrors"
)

const prefix = "tagship-"

// WithTempDir creates a uniquely-named empty directory under the system
// temp root, invokes body with its path, and unconditionally removes the
// directory tree afterwards — on success, on error, and even if body panics.
// It returns whatever body returns.
func WithTempDir[T any](body func(dir string) (T, error)) (T, error) {
	var zero T
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return zero, xerrors.Errorf("creating temp workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	return body(dir)
}
