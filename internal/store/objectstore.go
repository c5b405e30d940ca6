package store

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/renameio"
	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/logging"
	"golang.org/x/xerrors"
)

func init() {
	Register("s3", newObjectStore)
}

// objectStore lists and downloads artifacts stored in an S3-compatible
// bucket under the key prefix "owner/repo/sha/". Bucket and region are read
// from S3_BUCKET / AWS_REGION (defaulting to us-east-1) the same way the
// teacher's drivers read their own credentials from the environment.
type objectStore struct {
	commit tagship.Tag
	repo   tagship.RepoKey
	dir    string
	logger logging.Logger
	bucket string
	client *s3.S3
}

func newObjectStore(commit tagship.Tag, repo tagship.RepoKey, downloadDir string, logger logging.Logger) Store {
	bucket := os.Getenv("S3_BUCKET")
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	sess := session.Must(session.NewSession(&aws.Config{Region: aws.String(region)}))
	return newBase(&objectStore{
		commit: commit,
		repo:   repo,
		dir:    downloadDir,
		logger: logger,
		bucket: bucket,
		client: s3.New(sess),
	})
}

func (o *objectStore) prefix() string {
	return path.Join(o.repo.Owner, o.repo.Repo, o.commit.SHA) + "/"
}

func (o *objectStore) fetchFiles(ctx context.Context) ([]File, error) {
	var out []File
	err := o.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(o.bucket),
		Prefix: aws.String(o.prefix()),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			out = append(out, File{Name: path.Base(key), Key: key})
		}
		return true
	})
	if err != nil {
		return nil, xerrors.Errorf("listing s3://%s/%s: %w", o.bucket, o.prefix(), err)
	}
	o.logger.Debugw("listed artifacts", "count", len(out), "bucket", o.bucket, "prefix", o.prefix())
	return out, nil
}

func (o *objectStore) fetchFile(ctx context.Context, file File) (string, error) {
	dest := filepath.Join(o.dir, path.Base(file.Key))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}

	err := dryrun.PerformVoid(func() error {
		obj, err := o.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(o.bucket),
			Key:    aws.String(file.Key),
		})
		if err != nil {
			return xerrors.Errorf("downloading s3://%s/%s: %w", o.bucket, file.Key, err)
		}
		defer obj.Body.Close()

		w, err := renameio.TempFile("", dest)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, obj.Body); err != nil {
			return err
		}
		return w.CloseAtomicallyReplace()
	})
	if err != nil {
		return "", err
	}

	// dryrun.PerformVoid skipped the real download above; write a synthetic
	// stand-in so downstream reads (e.g. formula.go's checksum step) still
	// see a real file, per spec.md 4.K.
	if !dryrun.ShouldPerform() {
		if err := writeSyntheticArtifact(dest); err != nil {
			return "", err
		}
	}

	o.logger.Debugw("downloaded artifact", "key", file.Key, "path", dest)
	return dest, nil
}

func (o *objectStore) capabilities() Capabilities {
	return Capabilities{PreservesArtifactType: false}
}
