package changelog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tagship/tagship"
)

func TestFind(t *testing.T) {
	const md = "# Changelog\n## 1.0.0\nNotes\n## 0.9.0\nolder"

	got := Find(md, "v1.0.0")
	want := &tagship.Changeset{Name: "1.0.0", Body: "Notes"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFindSetext(t *testing.T) {
	const md = "2.0.0\n=====\n\nBig release\n\n1.0.0\n-----\n\nFirst release\n"

	got := Find(md, "2.0.0")
	want := &tagship.Changeset{Name: "2.0.0", Body: "Big release"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFindNoMatch(t *testing.T) {
	const md = "## 1.0.0\nNotes"
	if got := Find(md, "v9.9.9"); got != nil {
		t.Fatalf("Find = %v, want nil", got)
	}
	if got := Find(md, "not-a-version"); got != nil {
		t.Fatalf("Find = %v, want nil", got)
	}
}

func TestFindLastSection(t *testing.T) {
	const md = "## 1.0.0\nonly section, no trailing heading\nmore text"
	got := Find(md, "1.0.0")
	want := &tagship.Changeset{Name: "1.0.0", Body: "only section, no trailing heading\nmore text"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Find mismatch (-want +got):\n%s", diff)
	}
}
