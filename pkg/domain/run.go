package domain

import "time"

// RunSummary records the outcome of one end-to-end pipeline run.
// One summary document is persisted per run when a run log store is configured.
type RunSummary struct {
	// RunID uniquely identifies the run (generated at run start).
	RunID string `bson:"run_id" json:"run_id"`

	StartedAt  time.Time `bson:"started_at" json:"started_at"`
	FinishedAt time.Time `bson:"finished_at" json:"finished_at"`

	// State is the last pipeline state the run reached before cleanup.
	State string `bson:"state" json:"state"`

	// Found is the number of documents enumerated in the source,
	// Fetched the number successfully retrieved, Skipped the number that
	// failed to fetch and were left out of the datasets.
	Found   int `bson:"found" json:"found"`
	Fetched int `bson:"fetched" json:"fetched"`
	Skipped int `bson:"skipped" json:"skipped"`

	// Committed is true when the metadata commit created a new commit
	// (false for the no-op case where the file was unchanged).
	Committed bool `bson:"committed" json:"committed"`

	// Uploaded and Verified report the object-storage leg of the run.
	Uploaded bool `bson:"uploaded" json:"uploaded"`
	Verified bool `bson:"verified" json:"verified"`

	// Err holds the run's fatal error message, empty on success.
	Err string `bson:"err,omitempty" json:"err,omitempty"`
}

// Succeeded reports whether the run completed every required step.
func (s *RunSummary) Succeeded() bool {
	return s.Err == "" && s.Verified
}
