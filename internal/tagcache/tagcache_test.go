package tagcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/hosting"
)

type fakeClient struct {
	hosting.Client
	calls int32
	tags  []hosting.RepoTag
}

func (f *fakeClient) ListTags(ctx context.Context, key tagship.RepoKey, perPage int) ([]hosting.RepoTag, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.tags, nil
}

func TestGetTagsFetchesOnce(t *testing.T) {
	fc := &fakeClient{tags: []hosting.RepoTag{{Name: "v1.0.0", CommitSHA: "abc"}}}
	c := New(fc)
	key := tagship.RepoKey{Owner: "o", Repo: "r"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetTags(context.Background(), key); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fc.calls); got != 1 {
		t.Fatalf("ListTags called %d times, want 1", got)
	}
}

func TestAddTagReplacesSameRef(t *testing.T) {
	fc := &fakeClient{tags: []hosting.RepoTag{{Name: "v1.0.0", CommitSHA: "abc"}}}
	c := New(fc)
	key := tagship.RepoKey{Owner: "o", Repo: "r"}

	tag, err := c.AddTag(context.Background(), key, "v1.0.0", "def")
	if err != nil {
		t.Fatal(err)
	}
	if tag.SHA != "def" {
		t.Fatalf("AddTag returned SHA %q, want def", tag.SHA)
	}

	tags, err := c.GetTags(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 {
		t.Fatalf("GetTags = %v, want exactly one entry for v1.0.0", tags)
	}
	if tags[0].SHA != "def" {
		t.Fatalf("GetTags[0].SHA = %q, want def", tags[0].SHA)
	}
}

func TestRemoveTagThenFindTag(t *testing.T) {
	fc := &fakeClient{tags: []hosting.RepoTag{{Name: "v1.0.0", CommitSHA: "abc"}}}
	c := New(fc)
	key := tagship.RepoKey{Owner: "o", Repo: "r"}

	removed, err := c.RemoveTag(context.Background(), key, "v1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("RemoveTag returned false, want true")
	}

	// spec invariant 2: findTag(sha) returns nil after the delete.
	tag, err := c.FindTag(context.Background(), key, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if tag != nil {
		t.Fatalf("FindTag = %v, want nil", tag)
	}

	removedAgain, err := c.RemoveTag(context.Background(), key, "v1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if removedAgain {
		t.Fatal("RemoveTag of already-removed ref returned true")
	}
}

func TestFindTagBySHA(t *testing.T) {
	fc := &fakeClient{tags: []hosting.RepoTag{{Name: "v1.0.0", CommitSHA: "abc"}}}
	c := New(fc)
	key := tagship.RepoKey{Owner: "o", Repo: "r"}

	tag, err := c.FindTag(context.Background(), key, "abc")
	if err != nil {
		t.Fatal(err)
	}
	if tag == nil || tag.Ref != "v1.0.0" {
		t.Fatalf("FindTag = %v, want ref v1.0.0", tag)
	}
}
