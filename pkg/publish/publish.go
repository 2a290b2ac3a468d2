// Package publish persists the built datasets: both files go to the
// object-storage bucket under fixed keys, and the metadata file is committed
// to the tracked repository when its content changed. The two legs are
// independent, not transactional; a push failure never undoes an upload.
package publish

import "errors"

// Failure classes. Upload and verification failures are distinct so the run
// report can tell "the write failed" from "the write claimed success but the
// object is missing or empty".
var (
	ErrUpload = errors.New("dataset upload failed")
	ErrVerify = errors.New("upload verification failed")
	ErrPush   = errors.New("metadata push failed")
)

// File is one local dataset file and the bucket key it publishes to.
type File struct {
	// Key is the object key inside the bucket. Keys are fixed per
	// deployment and overwritten on every run (last writer wins).
	Key string

	// Path is the local file to upload.
	Path string
}
