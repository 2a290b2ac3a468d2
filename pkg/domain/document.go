package domain

import "time"

// Document represents a single remote document fetched during a pipeline run.
// A Document is immutable once fetched and is scoped to the run that fetched it.
type Document struct {
	// ID is the identifier of the document in the source system
	// (Drive file ID, or the page URL for web sources).
	ID string `bson:"id" json:"id"`

	// Title is the document name as reported by the source.
	Title string `bson:"title" json:"title"`

	// Folder is the path of the folder containing the document, relative to
	// the export root (empty for documents directly under the root).
	Folder string `bson:"folder,omitempty" json:"folder,omitempty"`

	// Content is the plain-text content of the document.
	Content string `bson:"content,omitempty" json:"content,omitempty"`

	// CreatedAt and ModifiedAt are source timestamps; either may be zero
	// when the source does not report them.
	CreatedAt  time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	ModifiedAt time.Time `bson:"modified_at,omitempty" json:"modified_at,omitempty"`
}
