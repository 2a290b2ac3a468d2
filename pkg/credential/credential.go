// Package credential materializes the injected service-account secret as a
// short-lived local file. The artifact is owned by a single pipeline run:
// acquired at run start and released on every exit path. Components other
// than the document source client only ever see the artifact path, never the
// secret value itself.
package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Artifact is the materialized credential. Release must be called on every
// exit path of the owning run; failing to do so leaves the secret on disk,
// which is a defect.
type Artifact struct {
	path string
	dir  string

	mu       sync.Mutex
	released bool
}

// Provision writes the secret into a fresh private temp directory and
// returns the artifact. The file is readable only by the running process
// owner (0600 inside a 0700 directory).
func Provision(secret []byte) (*Artifact, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("credential secret is empty")
	}

	dir, err := os.MkdirTemp("", "docs-export-cred-*")
	if err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}

	path := filepath.Join(dir, "service_account_key.json")
	if err := os.WriteFile(path, secret, 0600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write credential file: %w", err)
	}

	return &Artifact{path: path, dir: dir}, nil
}

// Path returns the location of the materialized credential file.
func (a *Artifact) Path() string {
	return a.path
}

// Release removes the credential from disk. It is idempotent so it can be
// deferred unconditionally and also called explicitly.
func (a *Artifact) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released {
		return nil
	}
	a.released = true

	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("remove credential dir: %w", err)
	}
	return nil
}
