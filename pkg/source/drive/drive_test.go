package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docs-export/pkg/config"
)

func testRetry() config.RetryPolicy {
	return config.RetryPolicy{MaxAttempts: 2, InitialDelayMs: 1, BackoffMultiplier: 1.0, TimeoutSec: 5}
}

// newFakeDrive serves a small Drive folder tree:
//
//	Fathom/ (folder-fathom, parent folder-devrel "Marketing DevRel")
//	  doc-1 "Launch Plan"
//	  doc-2 "Broken Doc"   (export always fails)
//	  Notes/ (folder-notes)
//	    doc-3 "Meeting Notes"
//
// A second folder also named "Fathom" (folder-decoy) sits under "Archive".
func newFakeDrive(t *testing.T) *httptest.Server {
	t.Helper()

	writeList := func(w http.ResponseWriter, files []map[string]interface{}) {
		if err := json.NewEncoder(w).Encode(map[string]interface{}{"files": files}); err != nil {
			t.Errorf("encode list: %v", err)
		}
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		q := r.URL.Query().Get("q")

		switch {
		case path == "/files" && strings.Contains(q, "name='Fathom'"):
			// Decoy listed first so parent disambiguation must do work.
			writeList(w, []map[string]interface{}{
				{"id": "folder-decoy", "name": "Fathom", "mimeType": mimeTypeFolder, "parents": []string{"folder-archive"}},
				{"id": "folder-fathom", "name": "Fathom", "mimeType": mimeTypeFolder, "parents": []string{"folder-devrel"}},
			})

		case path == "/files" && strings.Contains(q, "'folder-fathom' in parents"):
			writeList(w, []map[string]interface{}{
				{"id": "doc-1", "name": "Launch Plan", "mimeType": mimeTypeDocument,
					"createdTime": "2024-03-01T10:00:00Z", "modifiedTime": "2024-03-05T12:30:00Z"},
				{"id": "doc-2", "name": "Broken Doc", "mimeType": mimeTypeDocument},
				{"id": "folder-notes", "name": "Notes", "mimeType": mimeTypeFolder},
				{"id": "sheet-1", "name": "Ignored Spreadsheet", "mimeType": "application/vnd.google-apps.spreadsheet"},
			})

		case path == "/files" && strings.Contains(q, "'folder-notes' in parents"):
			writeList(w, []map[string]interface{}{
				{"id": "doc-3", "name": "Meeting Notes", "mimeType": mimeTypeDocument,
					"createdTime": "2024-04-01T08:00:00Z", "modifiedTime": "2024-04-02T08:00:00Z"},
			})

		case path == "/files/folder-devrel":
			json.NewEncoder(w).Encode(map[string]string{"name": "Marketing DevRel"})

		case path == "/files/folder-archive":
			json.NewEncoder(w).Encode(map[string]string{"name": "Archive"})

		case path == "/files/doc-1/export":
			w.Write([]byte("Launch plan content.\n"))

		case path == "/files/doc-2/export":
			http.Error(w, "export failed", http.StatusInternalServerError)

		case path == "/files/doc-3/export":
			w.Write([]byte("Notes, with commas\nand lines.\n"))

		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestDriveClient(server *httptest.Server, cfg Config) *Client {
	cfg.Retry = testRetry()
	return newClientWithHTTP(server.Client(), server.URL, cfg)
}

func TestFindFolder_ParentDisambiguation(t *testing.T) {
	server := newFakeDrive(t)
	defer server.Close()

	client := newTestDriveClient(server, Config{Folder: "Fathom", ParentFolder: "Marketing DevRel"})

	folderID, err := client.FindFolder(context.Background(), "Fathom", "Marketing DevRel")
	if err != nil {
		t.Fatalf("FindFolder failed: %v", err)
	}
	if folderID != "folder-fathom" {
		t.Errorf("expected folder-fathom, got %s", folderID)
	}
}

func TestFindFolder_NoParentTakesFirstMatch(t *testing.T) {
	server := newFakeDrive(t)
	defer server.Close()

	client := newTestDriveClient(server, Config{Folder: "Fathom"})

	folderID, err := client.FindFolder(context.Background(), "Fathom", "")
	if err != nil {
		t.Fatalf("FindFolder failed: %v", err)
	}
	if folderID != "folder-decoy" {
		t.Errorf("expected first match folder-decoy, got %s", folderID)
	}
}

func TestFetchAll_RecursiveWalkWithSkip(t *testing.T) {
	server := newFakeDrive(t)
	defer server.Close()

	client := newTestDriveClient(server, Config{Folder: "Fathom", ParentFolder: "Marketing DevRel"})

	docs, report, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if report.Found != 3 {
		t.Errorf("expected 3 documents found, got %d", report.Found)
	}
	if report.Fetched != 2 {
		t.Errorf("expected 2 documents fetched, got %d", report.Fetched)
	}
	if report.Skipped != 1 {
		t.Errorf("expected 1 document skipped, got %d", report.Skipped)
	}
	if len(report.SkippedIDs) != 1 || report.SkippedIDs[0] != "doc-2" {
		t.Errorf("expected skipped IDs [doc-2], got %v", report.SkippedIDs)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	// Enumeration order: root docs first, then subfolder docs.
	if docs[0].ID != "doc-1" || docs[1].ID != "doc-3" {
		t.Errorf("unexpected document order: %s, %s", docs[0].ID, docs[1].ID)
	}

	if docs[0].Folder != "" {
		t.Errorf("root document should have empty folder, got %q", docs[0].Folder)
	}
	if docs[1].Folder != "Notes" {
		t.Errorf("expected folder Notes, got %q", docs[1].Folder)
	}

	if docs[0].Content != "Launch plan content." {
		t.Errorf("content should be trimmed, got %q", docs[0].Content)
	}
	if docs[0].CreatedAt.IsZero() || docs[0].ModifiedAt.IsZero() {
		t.Error("expected parsed timestamps on doc-1")
	}
	if docs[1].CreatedAt.IsZero() {
		t.Error("expected parsed created time on doc-3")
	}
}

func TestFetchAll_AuthFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestDriveClient(server, Config{Folder: "Fathom"})

	_, _, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected fatal error on authentication failure")
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("expected authentication error, got: %v", err)
	}
}

func TestFetchAll_FolderNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"files": []interface{}{}})
	}))
	defer server.Close()

	client := newTestDriveClient(server, Config{Folder: "Nowhere"})

	_, _, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected error for missing folder")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got: %v", err)
	}
}

func TestListFiles_Pagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"nextPageToken": "page-2",
				"files": []map[string]string{
					{"id": "doc-a", "name": "A", "mimeType": mimeTypeDocument},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"files": []map[string]string{
				{"id": "doc-b", "name": "B", "mimeType": mimeTypeDocument},
			},
		})
	}))
	defer server.Close()

	client := newTestDriveClient(server, Config{Folder: "Fathom"})

	files, err := client.listFiles(context.Background(), "'x' in parents")
	if err != nil {
		t.Fatalf("listFiles failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 page requests, got %d", calls)
	}
	if len(files) != 2 || files[0].ID != "doc-a" || files[1].ID != "doc-b" {
		t.Errorf("unexpected paged result: %+v", files)
	}
}
