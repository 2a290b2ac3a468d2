// Package exportservice orchestrates one end-to-end pipeline run: provision
// the credential, fetch documents, build the datasets, commit the metadata
// file, upload and verify both datasets, and release the credential on every
// exit path. Execution is strictly sequential; the only retry is the bounded
// per-call policy inside the components, never a rerun of the pipeline.
package exportservice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docs-export/pkg/config"
	"docs-export/pkg/credential"
	"docs-export/pkg/domain"
	"docs-export/pkg/export"
	"docs-export/pkg/publish"
	"docs-export/pkg/source"
)

// BucketPublisher uploads dataset files and verifies the written objects.
type BucketPublisher interface {
	Upload(ctx context.Context, files []publish.File) error
	Verify(ctx context.Context, files []publish.File) error
}

// RepoPublisher commits the metadata file when it changed.
type RepoPublisher interface {
	CommitMetadata(ctx context.Context, path string) (bool, error)
}

// RunRecorder persists run summaries (optional).
type RunRecorder interface {
	SaveRun(ctx context.Context, summary *domain.RunSummary) error
}

// MetadataLoader loads metadata rows into the warehouse (optional).
type MetadataLoader interface {
	LoadMetadata(ctx context.Context, docs []domain.Document) (int, error)
}

// SourceFactory builds the document source for a run. It receives the path
// of the provisioned credential artifact; sources that do not need a
// credential ignore it.
type SourceFactory func(ctx context.Context, credentialPath string) (source.Source, error)

// Config wires the run dependencies.
type Config struct {
	// Secret is the raw service-account credential to provision.
	Secret []byte

	// NewSource builds the document source once the credential exists.
	NewSource SourceFactory

	// Bucket and Repo publish the datasets. A nil Bucket or Repo skips
	// that leg (dry runs); a skipped upload leg means the run never
	// reaches the verified state.
	Bucket BucketPublisher
	Repo   RepoPublisher

	// Recorder and Loader are optional post-steps; their failures are
	// logged and never change the run's status.
	Recorder RunRecorder
	Loader   MetadataLoader

	// RepoDir is the clone the metadata file is written into.
	RepoDir string

	// Output names the dataset files; StoragePrefix prefixes their
	// bucket keys.
	Output        config.OutputConfig
	StoragePrefix string
}

// Service runs the export pipeline.
type Service struct {
	cfg Config
}

// New validates the wiring and returns a service.
func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("credential secret is required")
	}
	if cfg.NewSource == nil {
		return nil, fmt.Errorf("source factory is required")
	}
	if cfg.Output.ContentFile == "" || cfg.Output.MetadataFile == "" {
		return nil, fmt.Errorf("output file names are required")
	}
	if cfg.Repo != nil && cfg.RepoDir == "" {
		return nil, fmt.Errorf("repo dir is required when a repo publisher is set")
	}
	return &Service{cfg: cfg}, nil
}

// Run executes one pipeline run. The returned summary is always non-nil;
// the error is the run's fatal failure, if any. The credential is released
// before Run returns, whatever happened.
func (s *Service) Run(ctx context.Context) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	m := newMachine()
	log.Printf("Run %s starting", summary.RunID)

	art, err := credential.Provision(s.cfg.Secret)
	var runErr error
	if err != nil {
		runErr = fmt.Errorf("provision credential: %w", err)
	} else {
		runErr = func() error {
			// Release registered before any fallible step runs.
			defer func() {
				if releaseErr := art.Release(); releaseErr != nil {
					log.Printf("Run %s: credential release failed: %v", summary.RunID, releaseErr)
				}
			}()
			return s.run(ctx, m, summary, art.Path())
		}()
	}

	summary.State = string(m.state())
	if !m.state().Terminal() {
		_ = m.advance(StateCredentialCleaned)
	}
	summary.FinishedAt = time.Now().UTC()
	if runErr != nil {
		summary.Err = runErr.Error()
		log.Printf("Run %s failed in state %s: %v", summary.RunID, summary.State, runErr)
	} else {
		log.Printf("Run %s finished in state %s (%d fetched, %d skipped)",
			summary.RunID, summary.State, summary.Fetched, summary.Skipped)
	}

	s.record(ctx, summary)
	return summary, runErr
}

// run performs the fallible middle of the pipeline; the caller owns
// credential release and summary finalization.
func (s *Service) run(ctx context.Context, m *machine, summary *domain.RunSummary, credentialPath string) error {
	if err := m.advance(StateCredentialProvisioned); err != nil {
		return err
	}

	src, err := s.cfg.NewSource(ctx, credentialPath)
	if err != nil {
		return fmt.Errorf("initialize source: %w", err)
	}

	docs, report, err := src.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch documents: %w", err)
	}
	summary.Found = report.Found
	summary.Fetched = report.Fetched
	summary.Skipped = report.Skipped
	if err := m.advance(StateDocumentsFetched); err != nil {
		return err
	}

	contentDS, metadataDS := export.BuildDatasets(docs)

	// The content dataset is ephemeral: staged in a temp dir, uploaded,
	// then discarded. Only the metadata file lands in the repository.
	stageDir, err := os.MkdirTemp("", "docs-export-run-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	contentPath := filepath.Join(stageDir, s.cfg.Output.ContentFile)
	if err := contentDS.WriteFile(contentPath); err != nil {
		return fmt.Errorf("write content dataset: %w", err)
	}

	metadataPath := filepath.Join(stageDir, s.cfg.Output.MetadataFile)
	if s.cfg.Repo != nil {
		metadataPath = filepath.Join(s.cfg.RepoDir, s.cfg.Output.MetadataFile)
	}
	if err := metadataDS.WriteFile(metadataPath); err != nil {
		return fmt.Errorf("write metadata dataset: %w", err)
	}
	if err := m.advance(StateDatasetsBuilt); err != nil {
		return err
	}

	// Commit leg. A failure here is fatal for the run but does not stop
	// the upload leg; the two are independent, not transactional.
	var commitErr error
	if s.cfg.Repo != nil {
		committed, err := s.cfg.Repo.CommitMetadata(ctx, metadataPath)
		summary.Committed = committed
		if err != nil {
			commitErr = fmt.Errorf("commit metadata: %w", err)
			log.Printf("Run %s: %v (continuing with upload)", summary.RunID, commitErr)
		} else if err := m.advance(StateMetadataCommitted); err != nil {
			return err
		}
	}

	if s.cfg.Bucket != nil {
		files := []publish.File{
			{Key: path.Join(s.cfg.StoragePrefix, s.cfg.Output.ContentFile), Path: contentPath},
			{Key: path.Join(s.cfg.StoragePrefix, s.cfg.Output.MetadataFile), Path: metadataPath},
		}

		if err := s.cfg.Bucket.Upload(ctx, files); err != nil {
			return errors.Join(commitErr, err)
		}
		summary.Uploaded = true
		if err := m.advance(StateUploaded); err != nil {
			return err
		}

		if err := s.cfg.Bucket.Verify(ctx, files); err != nil {
			return errors.Join(commitErr, err)
		}
		summary.Verified = true
		if err := m.advance(StateVerified); err != nil {
			return err
		}
	}

	// Warehouse load is best-effort once the datasets are published.
	if s.cfg.Loader != nil && commitErr == nil {
		if _, err := s.cfg.Loader.LoadMetadata(ctx, docs); err != nil {
			log.Printf("Run %s: warehouse load failed: %v", summary.RunID, err)
		}
	}

	if report.Skipped > 0 {
		log.Printf("Run %s: %d documents skipped: %v", summary.RunID, report.Skipped, report.SkippedIDs)
	}
	return commitErr
}

// record saves the run summary when a recorder is configured.
func (s *Service) record(ctx context.Context, summary *domain.RunSummary) {
	if s.cfg.Recorder == nil {
		return
	}
	if err := s.cfg.Recorder.SaveRun(ctx, summary); err != nil {
		log.Printf("Run %s: failed to record run summary: %v", summary.RunID, err)
	}
}
