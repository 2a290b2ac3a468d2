package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	storage_go "github.com/supabase-community/storage-go"

	"docs-export/pkg/config"
)

func testRetry() config.RetryPolicy {
	return config.RetryPolicy{MaxAttempts: 2, InitialDelayMs: 1, BackoffMultiplier: 1.0, TimeoutSec: 5}
}

// fakeStore mimics the two storage endpoints the publisher uses: object
// upload and directory listing.
type fakeStore struct {
	uploaded    map[string][]byte
	failUploads bool
	listSizes   map[string]int // overrides reported sizes when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploaded: make(map[string][]byte)}
}

func (s *fakeStore) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/object/list/"):
			var req struct {
				Prefix string `json:"prefix"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)

			var objects []map[string]interface{}
			for key, data := range s.uploaded {
				dir, name := filepath.Split(key)
				if strings.Trim(dir, "/") != strings.Trim(req.Prefix, "/") {
					continue
				}
				size := len(data)
				if override, ok := s.listSizes[name]; ok {
					size = override
				}
				objects = append(objects, map[string]interface{}{
					"name":     name,
					"id":       key,
					"metadata": map[string]interface{}{"size": size},
				})
			}
			json.NewEncoder(w).Encode(objects)

		case strings.HasPrefix(r.URL.Path, "/object/"):
			if s.failUploads {
				http.Error(w, `{"error":"storage unavailable"}`, http.StatusInternalServerError)
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Errorf("read upload body: %v", err)
			}
			key := strings.TrimPrefix(r.URL.Path, "/object/")
			key = strings.SplitN(key, "/", 2)[1] // strip bucket
			s.uploaded[key] = body
			json.NewEncoder(w).Encode(map[string]string{"Key": key})

		default:
			http.NotFound(w, r)
		}
	})
}

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write dataset file: %v", err)
	}
	return path
}

func testFiles(t *testing.T) []File {
	return []File{
		{Key: "exports/docs_content.csv", Path: writeDataset(t, "docs_content.csv", "folder,filename\n,a\n")},
		{Key: "exports/docs_metadata.csv", Path: writeDataset(t, "docs_metadata.csv", "folder,filename\n,a\n")},
	}
}

func newTestPublisher(server *httptest.Server) *BucketPublisher {
	client := storage_go.NewClient(server.URL, "test-key", nil)
	return newBucketPublisherWithClient(client, "test-bucket", testRetry())
}

func TestUploadAndVerify(t *testing.T) {
	store := newFakeStore()
	server := httptest.NewServer(store.handler(t))
	defer server.Close()

	p := newTestPublisher(server)
	files := testFiles(t)

	if err := p.Upload(context.Background(), files); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if len(store.uploaded) != 2 {
		t.Fatalf("expected 2 uploaded objects, got %d", len(store.uploaded))
	}
	if _, ok := store.uploaded["exports/docs_content.csv"]; !ok {
		t.Error("content dataset missing under its fixed key")
	}

	if err := p.Verify(context.Background(), files); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestUpload_FailureWrapsErrUpload(t *testing.T) {
	store := newFakeStore()
	store.failUploads = true
	server := httptest.NewServer(store.handler(t))
	defer server.Close()

	p := newTestPublisher(server)

	err := p.Upload(context.Background(), testFiles(t))
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
	if errors.Is(err, ErrVerify) {
		t.Error("upload failure must not be classified as verification failure")
	}
}

func TestVerify_MissingObjectWrapsErrVerify(t *testing.T) {
	store := newFakeStore()
	server := httptest.NewServer(store.handler(t))
	defer server.Close()

	p := newTestPublisher(server)

	// Nothing uploaded: verification must fail with its own class.
	err := p.Verify(context.Background(), testFiles(t))
	if !errors.Is(err, ErrVerify) {
		t.Fatalf("expected ErrVerify, got %v", err)
	}
	if errors.Is(err, ErrUpload) {
		t.Error("verification failure must not be classified as upload failure")
	}
}

func TestVerify_ZeroSizeObjectFails(t *testing.T) {
	store := newFakeStore()
	server := httptest.NewServer(store.handler(t))
	defer server.Close()

	p := newTestPublisher(server)
	files := testFiles(t)

	if err := p.Upload(context.Background(), files); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	store.listSizes = map[string]int{"docs_content.csv": 0}
	err := p.Verify(context.Background(), files)
	if !errors.Is(err, ErrVerify) {
		t.Fatalf("expected ErrVerify for zero-size object, got %v", err)
	}
}

func TestUpload_Overwrite(t *testing.T) {
	store := newFakeStore()
	server := httptest.NewServer(store.handler(t))
	defer server.Close()

	p := newTestPublisher(server)

	first := []File{{Key: "exports/docs_metadata.csv", Path: writeDataset(t, "m.csv", "run one")}}
	if err := p.Upload(context.Background(), first); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	second := []File{{Key: "exports/docs_metadata.csv", Path: writeDataset(t, "m.csv", "run two")}}
	if err := p.Upload(context.Background(), second); err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	if got := string(store.uploaded["exports/docs_metadata.csv"]); !strings.Contains(got, "run two") {
		t.Errorf("expected last-writer-wins overwrite, got %q", got)
	}
}
