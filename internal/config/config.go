// Package config implements spec.md 4.J: loading release.yml and merging it
// with defaults. Grounded on greg-hellings-devdashboard's pkg/config:
// os.ReadFile + yaml.Unmarshal + an explicit ApplyDefaults pass, rather than
// a generic merge library.
package config

import (
	"os"

	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const defaultChangelog = "CHANGELOG.md"

// TargetSpec is one entry of the targets sequence: either a bare driver name
// or an object carrying a name plus driver-specific options.
type TargetSpec struct {
	Name    string
	Options map[string]interface{}
}

// UnmarshalYAML accepts either a scalar string (shorthand for {name: ...})
// or a mapping with at least a "name" key.
func (t *TargetSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		t.Name = name
		return nil
	}

	var raw map[string]interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	name, _ := raw["name"].(string)
	t.Name = name
	delete(raw, "name")
	t.Options = raw
	return nil
}

// Config is one repository's release configuration, per spec.md §3.
type Config struct {
	Store         string       `yaml:"store"`
	Targets       []TargetSpec `yaml:"targets"`
	IgnoredChecks []string     `yaml:"ignoredChecks"`
	Changelog     string       `yaml:"changelog"`
}

// applyDefaults fills in fields the file left unset.
func (c *Config) applyDefaults() {
	if c.Changelog == "" {
		c.Changelog = defaultChangelog
	}
}

// Load reads and parses a release.yml at path, merging it with defaults.
// A missing file is reported as *tagerr.ConfigAbsent (spec.md: "no
// release.yml in the repo; event ignored silently"), not a generic I/O
// error, so dispatcher callers can type-switch on it.
func Load(path, repoSlug string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &tagerr.ConfigAbsent{Repo: repoSlug}
		}
		return nil, xerrors.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, xerrors.Errorf("parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadBytes parses data as a release.yml body, for callers (e.g. the
// dispatcher, fetching release.yml through the hosting API's getContent
// rather than the local filesystem) that already have the file in memory.
func LoadBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, xerrors.Errorf("parsing release.yml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
