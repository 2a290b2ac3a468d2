// Package source defines the document source abstraction. The pipeline is
// not hard-wired to one document store: any implementation that can
// enumerate and fetch documents plugs into the same export/publish shape.
package source

import (
	"context"

	"docs-export/pkg/domain"
)

// Source fetches all documents in a configured scope.
type Source interface {
	// FetchAll authenticates, enumerates the configured scope and
	// retrieves each document's textual content. The returned sequence
	// is finite and re-fetched on every call; there is no caching layer.
	//
	// A fatal error (authentication, enumeration) returns a non-nil
	// error and no documents. Per-document fetch failures are
	// recoverable: the document is skipped, counted in the report, and
	// never yields a partial row.
	FetchAll(ctx context.Context) ([]domain.Document, *Report, error)
}

// Report summarizes a fetch pass over the source.
type Report struct {
	// Found is the number of documents enumerated in the scope.
	Found int

	// Fetched is the number of documents successfully retrieved.
	Fetched int

	// Skipped is the number of documents that failed to fetch and were
	// left out. Skipped == Found - Fetched.
	Skipped int

	// SkippedIDs lists the identifiers of skipped documents, in
	// enumeration order, for the run log.
	SkippedIDs []string
}

// Skip records a failed document fetch.
func (r *Report) Skip(id string) {
	r.Skipped++
	r.SkippedIDs = append(r.SkippedIDs, id)
}
