package publish

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"

	storage_go "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"

	"docs-export/pkg/config"
)

// BucketPublisher uploads dataset files to an object-storage bucket and
// verifies the result by re-listing the written keys.
type BucketPublisher struct {
	storage *storage_go.Client
	bucket  string
	retry   config.RetryPolicy
}

// NewBucketPublisher connects to the object store configured in cfg.
func NewBucketPublisher(cfg *config.Config) (*BucketPublisher, error) {
	client, err := supabase.NewClient(cfg.StorageURL, cfg.StorageKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize storage client: %w", err)
	}

	return &BucketPublisher{
		storage: client.Storage,
		bucket:  cfg.BucketName,
		retry:   cfg.Retry,
	}, nil
}

// newBucketPublisherWithClient is used by tests to point at a fake store.
func newBucketPublisherWithClient(storage *storage_go.Client, bucket string, retry config.RetryPolicy) *BucketPublisher {
	return &BucketPublisher{storage: storage, bucket: bucket, retry: retry}
}

// Upload writes every file to its fixed key, overwriting the previous run's
// object. Each upload is retried per the configured policy; a final failure
// wraps ErrUpload and is fatal for the run.
func (p *BucketPublisher) Upload(ctx context.Context, files []File) error {
	contentType := "text/csv"
	upsert := true
	options := storage_go.FileOptions{ContentType: &contentType, Upsert: &upsert}

	for _, file := range files {
		err := p.retry.Do(ctx, func() error {
			// Reopened per attempt: the reader is consumed on upload.
			f, err := os.Open(file.Path)
			if err != nil {
				return fmt.Errorf("open %s: %w", file.Path, err)
			}
			defer f.Close()

			_, err = p.storage.UploadFile(p.bucket, file.Key, f, options)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUpload, file.Key, err)
		}
		log.Printf("Uploaded %s to bucket %s", file.Key, p.bucket)
	}
	return nil
}

// Verify re-lists the uploaded keys and requires each object to be present
// with a non-zero size. A failure wraps ErrVerify, distinct from ErrUpload.
func (p *BucketPublisher) Verify(ctx context.Context, files []File) error {
	for _, file := range files {
		size, err := p.objectSize(file.Key)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrVerify, file.Key, err)
		}
		if size <= 0 {
			return fmt.Errorf("%w: %s has size %d", ErrVerify, file.Key, size)
		}
		log.Printf("Verified %s (%d bytes)", file.Key, size)
	}
	return nil
}

// objectSize lists the object's directory and returns the reported size.
func (p *BucketPublisher) objectSize(key string) (int64, error) {
	dir := path.Dir(key)
	if dir == "." {
		dir = ""
	}
	name := path.Base(key)

	objects, err := p.storage.ListFiles(p.bucket, dir, storage_go.FileSearchOptions{Limit: 100})
	if err != nil {
		return 0, fmt.Errorf("list %q: %w", dir, err)
	}

	for _, obj := range objects {
		if obj.Name != name {
			continue
		}
		// Object size arrives in the listing metadata.
		meta, _ := obj.Metadata.(map[string]interface{})
		if raw, ok := meta["size"]; ok {
			switch v := raw.(type) {
			case float64:
				return int64(v), nil
			case int64:
				return v, nil
			case int:
				return int64(v), nil
			}
		}
		return 0, fmt.Errorf("object %s has no size metadata", key)
	}

	return 0, fmt.Errorf("object %s not found", key)
}
