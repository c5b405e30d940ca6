package store

import (
	"context"
	"sync/atomic"
	"testing"
)

type countingFetcher struct {
	fetchFileCalls int32
}

func (c *countingFetcher) fetchFiles(ctx context.Context) ([]File, error) {
	return []File{{Name: "a", Key: "a"}}, nil
}

func (c *countingFetcher) fetchFile(ctx context.Context, file File) (string, error) {
	atomic.AddInt32(&c.fetchFileCalls, 1)
	return "/tmp/" + file.Key, nil
}

func (c *countingFetcher) capabilities() Capabilities {
	return Capabilities{}
}

func TestDownloadFileMemoizesCompletedDownload(t *testing.T) {
	f := &countingFetcher{}
	b := newBase(f)

	file := File{Name: "a", Key: "a"}

	if _, err := b.DownloadFile(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	// A later, non-overlapping call (singleflight's own entry has already
	// been cleaned up by now) must not re-download.
	if _, err := b.DownloadFile(context.Background(), file); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt32(&f.fetchFileCalls); got != 1 {
		t.Fatalf("fetchFile called %d times, want 1", got)
	}
}
