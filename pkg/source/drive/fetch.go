package drive

import (
	"context"
	"fmt"
	"log"
	"time"

	"docs-export/pkg/domain"
	"docs-export/pkg/source"
)

// docEntry is a Google Doc found during the folder walk, tagged with the
// folder path it was found under.
type docEntry struct {
	file   driveFile
	folder string
}

// FetchAll resolves the configured folder, walks it recursively and exports
// every Google Doc as plain text. Enumeration failures are fatal; a failed
// per-document export skips that document and records it in the report.
func (c *Client) FetchAll(ctx context.Context) ([]domain.Document, *source.Report, error) {
	folderID, err := c.resolveFolder(ctx)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Resolved folder %q to ID %s", c.cfg.Folder, folderID)

	entries, err := c.walkFolder(ctx, folderID, "")
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate folder tree: %w", err)
	}
	log.Printf("Found %d documents under %q", len(entries), c.cfg.Folder)

	report := &source.Report{Found: len(entries)}
	docs := make([]domain.Document, 0, len(entries))

	for i, entry := range entries {
		log.Printf("Exporting %d/%d: %s", i+1, len(entries), entry.file.Name)

		var content string
		err := c.cfg.Retry.Do(ctx, func() error {
			var exportErr error
			content, exportErr = c.exportText(ctx, entry.file.ID)
			return exportErr
		})
		if err != nil {
			log.Printf("Skipping %s (%s): %v", entry.file.Name, entry.file.ID, err)
			report.Skip(entry.file.ID)
			continue
		}

		docs = append(docs, domain.Document{
			ID:         entry.file.ID,
			Title:      entry.file.Name,
			Folder:     entry.folder,
			Content:    content,
			CreatedAt:  parseTime(entry.file.CreatedTime),
			ModifiedAt: parseTime(entry.file.ModifiedTime),
		})
		report.Fetched++
	}

	log.Printf("Export fetch complete: %d fetched, %d skipped", report.Fetched, report.Skipped)
	return docs, report, nil
}

// walkFolder lists a folder and recurses into subfolders, collecting Google
// Docs in enumeration order. folderPath is the slash-joined path relative to
// the export root ("" for the root itself).
func (c *Client) walkFolder(ctx context.Context, folderID, folderPath string) ([]docEntry, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQueryValue(folderID))

	items, err := c.listFiles(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}

	var entries []docEntry
	for _, item := range items {
		switch item.MimeType {
		case mimeTypeDocument:
			entries = append(entries, docEntry{file: item, folder: folderPath})

		case mimeTypeFolder:
			subPath := item.Name
			if folderPath != "" {
				subPath = folderPath + "/" + item.Name
			}
			subEntries, err := c.walkFolder(ctx, item.ID, subPath)
			if err != nil {
				return nil, err
			}
			entries = append(entries, subEntries...)
		}
	}

	return entries, nil
}

// parseTime parses a Drive RFC 3339 timestamp; zero time when absent or
// malformed.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
