package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tagship/tagship/internal/tagerr"
)

func TestLoadAppliesDefaultChangelog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "release.yml")
	if err := os.WriteFile(path, []byte("store: s3\ntargets: [npm]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, "acme/widget")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Changelog != "CHANGELOG.md" {
		t.Fatalf("Changelog = %q, want CHANGELOG.md", cfg.Changelog)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Name != "npm" {
		t.Fatalf("Targets = %v, want [npm]", cfg.Targets)
	}
}

func TestLoadMissingFileIsConfigAbsent(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"), "acme/widget")
	var absent *tagerr.ConfigAbsent
	if !errors.As(err, &absent) {
		t.Fatalf("Load error = %v, want *tagerr.ConfigAbsent", err)
	}
	if absent.Repo != "acme/widget" {
		t.Fatalf("Repo = %q, want acme/widget", absent.Repo)
	}
}

func TestLoadTargetWithOptions(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
store: buildagg
targets:
  - name: formula
    tap: acme/homebrew-tap
ignoredChecks: [codecov]
changelog: docs/CHANGES.md
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Changelog != "docs/CHANGES.md" {
		t.Fatalf("Changelog = %q, want docs/CHANGES.md", cfg.Changelog)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Name != "formula" {
		t.Fatalf("Targets = %v, want [formula]", cfg.Targets)
	}
	if cfg.Targets[0].Options["tap"] != "acme/homebrew-tap" {
		t.Fatalf("Targets[0].Options = %v, want tap=acme/homebrew-tap", cfg.Targets[0].Options)
	}
	if len(cfg.IgnoredChecks) != 1 || cfg.IgnoredChecks[0] != "codecov" {
		t.Fatalf("IgnoredChecks = %v, want [codecov]", cfg.IgnoredChecks)
	}
}
