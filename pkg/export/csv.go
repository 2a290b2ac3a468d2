// Package export turns fetched documents into the two CSV datasets the
// pipeline publishes: the full content dataset and the metadata-only
// dataset. Building datasets is a pure transformation; serialization is the
// one place byte-level output matters, so it goes through encoding/csv for
// RFC 4180 quoting of delimiters and line breaks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"docs-export/pkg/domain"
)

// Column layouts. The metadata schema is the content schema minus the
// content column; both start with a header row.
var (
	contentHeader  = []string{"folder", "filename", "file_id", "created_date", "modified_date", "content_length", "content"}
	metadataHeader = []string{"folder", "filename", "file_id", "created_date", "modified_date", "content_length"}
)

// Dataset is a tabular collection of rows with a fixed schema.
type Dataset struct {
	header []string
	rows   [][]string
}

// BuildDatasets produces one content row and one metadata row per document,
// preserving input order. It performs no I/O; output is deterministic for a
// given input sequence.
func BuildDatasets(docs []domain.Document) (content, metadata *Dataset) {
	content = &Dataset{header: contentHeader, rows: make([][]string, 0, len(docs))}
	metadata = &Dataset{header: metadataHeader, rows: make([][]string, 0, len(docs))}

	for _, doc := range docs {
		base := []string{
			doc.Folder,
			doc.Title,
			doc.ID,
			formatDate(doc.CreatedAt),
			formatDate(doc.ModifiedAt),
			strconv.Itoa(len(doc.Content)),
		}
		content.rows = append(content.rows, append(append([]string{}, base...), doc.Content))
		metadata.rows = append(metadata.rows, base)
	}
	return content, metadata
}

// Len returns the number of data rows (excluding the header).
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Header returns the column names.
func (d *Dataset) Header() []string {
	return d.header
}

// Rows returns the data rows in order.
func (d *Dataset) Rows() [][]string {
	return d.rows
}

// Write serializes the dataset as CSV with a header row.
func (d *Dataset) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(d.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range d.rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile serializes the dataset to a file, replacing any existing file.
func (d *Dataset) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := d.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// formatDate renders a source timestamp as a date; empty when unknown.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
