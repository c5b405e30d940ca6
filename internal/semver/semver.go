// Package semver implements spec.md 4.A's version parser: scanning free text
// for the first semantic-version-shaped substring and returning its parsed
// components.
package semver

import (
	"regexp"
	"strings"

	gomodsemver "golang.org/x/mod/semver"
)

// Version is a parsed semantic version. Major/Minor/Patch are non-negative
// integers with no leading zeros (except the literal "0"); Pre and Build are
// the raw pre-release/build-metadata strings, without their leading "-"/"+".
type Version struct {
	Major, Minor, Patch string
	Pre, Build          string
}

// numeric component: "0" or a non-zero digit followed by any digits.
const numeric = `(?:0|[1-9][0-9]*)`

// preRelease / build metadata per semver.org grammar, simplified to
// dot-separated alphanumeric/hyphen identifiers.
const ident = `[0-9A-Za-z-]+`

var versionRE = regexp.MustCompile(
	`v?(` + numeric + `)\.(` + numeric + `)\.(` + numeric + `)` +
		`(?:-(` + ident + `(?:\.` + ident + `)*))?` +
		`(?:\+(` + ident + `(?:\.` + ident + `)*))?`,
)

// Parse scans text for the first substring matching the semver grammar
// v?MAJOR.MINOR.PATCH(-PRE)?(+BUILD)? and returns its parts, or nil when no
// such substring exists.
//
// Parse("v"+s) and Parse(s) return equal Versions for any valid semver
// string s (the leading "v" is stripped), since String reconstructs from the
// parsed parts, not from the matched text.
func Parse(text string) *Version {
	m := versionRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := &Version{
		Major: m[1],
		Minor: m[2],
		Patch: m[3],
		Pre:   m[4],
		Build: m[5],
	}
	// Defense in depth: confirm the canonical form round-trips through
	// golang.org/x/mod/semver, the same double-check
	// internal/checkupstream/check.go applied to upstream version strings
	// before trusting them.
	if !gomodsemver.IsValid("v" + v.String()) {
		return nil
	}
	return v
}

// String renders the normalized "MAJOR.MINOR.PATCH[-PRE][+BUILD]" form, with
// no leading "v".
func (v *Version) String() string {
	var b strings.Builder
	b.WriteString(v.Major)
	b.WriteByte('.')
	b.WriteString(v.Minor)
	b.WriteByte('.')
	b.WriteString(v.Patch)
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Equal reports whether two versions are the same release, by normalized
// string equality (spec.md 4.A: "Comparison between versions is by
// normalized string equality").
func Equal(a, b *Version) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}
