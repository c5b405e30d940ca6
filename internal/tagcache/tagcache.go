// Package tagcache implements spec.md 4.F: a process-wide, per-repository
// mapping from tag ref to commit SHA, lazily populated via paginated API
// calls and never evicted.
//
// The cache is a mutex-guarded map of futures, generalizing the single-URL
// cache shape of cmd/distri-repobrowser/cache.go's metadataCache to one
// future per repository, with golang.org/x/sync/singleflight collapsing
// concurrent first-fetchers onto one in-flight call.
package tagcache

import (
	"context"
	"sync"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/hosting"
	"golang.org/x/sync/singleflight"
)

const tagsPerPage = 100

// Cache is a process-wide tag cache. The zero value is not usable; use New.
type Cache struct {
	client hosting.Client

	group singleflight.Group

	mu    sync.Mutex
	byKey map[tagship.RepoKey]*repoTags
}

type repoTags struct {
	fetched bool
	tags    []tagship.Tag
}

// New builds an empty, process-wide cache bound to client.
func New(client hosting.Client) *Cache {
	return &Cache{
		client: client,
		byKey:  make(map[tagship.RepoKey]*repoTags),
	}
}

// GetTags returns every known tag for key, triggering the first paginated
// fetch for key if none has happened yet. Concurrent callers for the same
// key share a single fetch.
func (c *Cache) GetTags(ctx context.Context, key tagship.RepoKey) ([]tagship.Tag, error) {
	c.mu.Lock()
	rt, ok := c.byKey[key]
	if ok && rt.fetched {
		out := append([]tagship.Tag(nil), rt.tags...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	_, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		c.mu.Lock()
		rt, ok := c.byKey[key]
		if ok && rt.fetched {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		tags, err := c.client.ListTags(ctx, key, tagsPerPage)
		if err != nil {
			return nil, err
		}
		resolved := make([]tagship.Tag, len(tags))
		for i, t := range tags {
			resolved[i] = tagship.Tag{Ref: t.Name, SHA: t.CommitSHA}
		}

		c.mu.Lock()
		c.byKey[key] = &repoTags{fetched: true, tags: resolved}
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tagship.Tag(nil), c.byKey[key].tags...), nil
}

// FindTag returns the tag whose SHA matches sha within key's repository, or
// nil if none does. It triggers the same lazy population as GetTags.
func (c *Cache) FindTag(ctx context.Context, key tagship.RepoKey, sha string) (*tagship.Tag, error) {
	tags, err := c.GetTags(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if t.SHA == sha {
			tag := t
			return &tag, nil
		}
	}
	return nil, nil
}

// AddTag awaits GetTags, removes any existing entry with the same ref, then
// appends {ref, sha}, returning the refreshed entry.
func (c *Cache) AddTag(ctx context.Context, key tagship.RepoKey, ref, sha string) (tagship.Tag, error) {
	if _, err := c.GetTags(ctx, key); err != nil {
		return tagship.Tag{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rt := c.byKey[key]
	filtered := rt.tags[:0:0]
	for _, t := range rt.tags {
		if t.Ref != ref {
			filtered = append(filtered, t)
		}
	}
	tag := tagship.Tag{Ref: ref, SHA: sha}
	rt.tags = append(filtered, tag)
	return tag, nil
}

// RemoveTag awaits GetTags, removes the entry named ref, and reports
// whether a removal occurred.
func (c *Cache) RemoveTag(ctx context.Context, key tagship.RepoKey, ref string) (bool, error) {
	if _, err := c.GetTags(ctx, key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rt := c.byKey[key]
	filtered := rt.tags[:0:0]
	removed := false
	for _, t := range rt.tags {
		if t.Ref == ref {
			removed = true
			continue
		}
		filtered = append(filtered, t)
	}
	rt.tags = filtered
	return removed, nil
}
