// Package changelog implements spec.md 4.A's findChangeset: locating the
// section of a markdown changelog that documents one specific release.
package changelog

import (
	"regexp"
	"strings"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/semver"
)

// atxHeading matches a "## text" ATX-style heading.
var atxHeading = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t]*$`)

// setextHeading matches a "text\n====" or "text\n----" underlined heading.
var setextHeading = regexp.MustCompile(`(?m)^([^\n]+)\n(={3,}|-{3,})[ \t]*$`)

type heading struct {
	text       string
	start, end int // [start,end) spans the heading line(s) themselves
}

// headings returns every recognized heading in markdown, in document order.
func headings(markdown string) []heading {
	var out []heading
	for _, m := range atxHeading.FindAllStringSubmatchIndex(markdown, -1) {
		out = append(out, heading{
			text:  markdown[m[2]:m[3]],
			start: m[0],
			end:   m[1],
		})
	}
	for _, m := range setextHeading.FindAllStringSubmatchIndex(markdown, -1) {
		out = append(out, heading{
			text:  markdown[m[2]:m[3]],
			start: m[0],
			end:   m[1],
		})
	}
	// sort by position; both slices are individually ordered, merge them.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].start < out[j-1].start; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Find locates the heading whose text parses to the version in tag and
// returns the content between that heading and the next recognized heading
// (or end of document), trimmed. Returns nil if tag doesn't parse as a
// version or no heading matches it.
func Find(markdown, tag string) *tagship.Changeset {
	target := semver.Parse(tag)
	if target == nil {
		return nil
	}
	hs := headings(markdown)
	for i, h := range hs {
		v := semver.Parse(h.text)
		if v == nil || !semver.Equal(v, target) {
			continue
		}
		bodyStart := h.end
		bodyEnd := len(markdown)
		if i+1 < len(hs) {
			bodyEnd = hs[i+1].start
		}
		return &tagship.Changeset{
			Name: strings.TrimSpace(h.text),
			Body: strings.TrimSpace(markdown[bodyStart:bodyEnd]),
		}
	}
	return nil
}
