// Package hosting declares the hosting-provider REST client contract the
// release engine depends on (spec.md §6) and a github.com/google/go-github/v27
// backed implementation of it. Per spec.md §1, the client itself is an
// external collaborator: the engine only needs the operations below.
package hosting

import (
	"context"
	"time"

	"github.com/tagship/tagship"
)

// RepoKey is an alias for the root package's RepoKey, kept local under this
// name so the interface below reads independently of the root package.
type RepoKey = tagship.RepoKey

// Reference is the result of resolving a git ref, e.g. a tag name, to the
// object it points at (spec.md §6 gitdata.getReference).
type Reference struct {
	ObjectType string // "commit" or "tag"
	ObjectSHA  string
}

// TagObject is an annotated tag object (spec.md §6 gitdata.getTag); it
// dereferences to the commit it annotates.
type TagObject struct {
	CommitSHA string
}

// RepoTag is one entry from the repository's tag list.
type RepoTag struct {
	Name      string
	CommitSHA string
}

// Status is one reported commit status (spec.md §6 repos.getStatuses).
type Status struct {
	Context   string
	State     string // pending|success|failure|error
	UpdatedAt time.Time
}

// Content is the result of a repos.getContent call; nil when the path was
// not found (404s are normalized to nil, never an error, per spec.md §7).
type Content struct {
	Data []byte
	SHA  string
}

// Release is a GitHub-style release object.
type Release struct {
	ID      int64
	TagName string
	HTMLURL string
}

// Asset describes one uploaded release asset.
type Asset struct {
	ID   int64
	Name string
	URL  string
}

// Client is the hosting-provider REST surface the engine consumes. A single
// implementation instance is shared process-wide and is assumed internally
// thread-safe (spec.md §5).
type Client interface {
	// GetReference resolves ref (e.g. "tags/v1.2.3") to the object it points
	// at. Callers must dereference ObjectType=="tag" via GetTag themselves,
	// per spec.md 4.I.
	GetReference(ctx context.Context, key RepoKey, ref string) (*Reference, error)
	// GetTag fetches an annotated tag object by its own SHA.
	GetTag(ctx context.Context, key RepoKey, sha string) (*TagObject, error)
	// ListTags returns every tag in the repository, paginating internally
	// at perPage-sized pages (spec.md 4.F: page size 100).
	ListTags(ctx context.Context, key RepoKey, perPage int) ([]RepoTag, error)
	// ListStatuses returns the first page of commit statuses for ref,
	// in whatever order the hosting provider delivers it, plus a flag
	// reporting whether that first page was already sorted descending by
	// UpdatedAt (so the caller can decide whether to paginate further).
	ListStatuses(ctx context.Context, key RepoKey, ref string) (statuses []Status, firstPageSortedDesc bool, err error)
	// ListAllStatuses paginates through every status for ref; used only as
	// the fallback when the first page from ListStatuses isn't sorted.
	ListAllStatuses(ctx context.Context, key RepoKey, ref string) ([]Status, error)
	// GetContent fetches a file's content at an optional ref (empty string
	// means the default branch). Returns nil, nil on 404.
	GetContent(ctx context.Context, key RepoKey, path, ref string) (*Content, error)
	// GetReleaseByTag returns nil, nil on 404.
	GetReleaseByTag(ctx context.Context, key RepoKey, tag string) (*Release, error)
	CreateRelease(ctx context.Context, key RepoKey, tag, name, body string) (*Release, error)
	UploadAsset(ctx context.Context, key RepoKey, releaseID int64, name string, data []byte) (*Asset, error)
	CreateFile(ctx context.Context, key RepoKey, path, message string, content []byte, branch string) error
	UpdateFile(ctx context.Context, key RepoKey, path, message string, content []byte, sha, branch string) error
}
