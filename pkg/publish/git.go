package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// RepoPublisher commits the metadata dataset to the tracked repository.
// Commit and push only happen when the staged file actually changed; a run
// over unchanged source data produces zero new commits.
type RepoPublisher struct {
	repoPath string
	token    string

	authorName  string
	authorEmail string
}

// NewRepoPublisher returns a publisher for the clone at repoPath. An empty
// token disables token auth (local remotes, dry runs).
func NewRepoPublisher(repoPath, token string) *RepoPublisher {
	return &RepoPublisher{
		repoPath:    repoPath,
		token:       token,
		authorName:  "docs-export",
		authorEmail: "docs-export@localhost",
	}
}

// CommitMetadata stages the file at path, commits it if the staged diff is
// non-empty and pushes to origin. It returns true when a new commit was
// created; the unchanged case is a successful no-op and push is skipped.
// Push failures wrap ErrPush and are not retried here; the scheduler may
// re-trigger the whole run.
func (p *RepoPublisher) CommitMetadata(ctx context.Context, path string) (bool, error) {
	repo, err := git.PlainOpen(p.repoPath)
	if err != nil {
		return false, fmt.Errorf("open repository %s: %w", p.repoPath, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}

	rel, err := p.relPath(path)
	if err != nil {
		return false, err
	}

	if _, err := wt.Add(rel); err != nil {
		return false, fmt.Errorf("stage %s: %w", rel, err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}
	if _, changed := status[rel]; !changed {
		log.Printf("Metadata file %s unchanged, skipping commit and push", rel)
		return false, nil
	}

	commit, err := wt.Commit(fmt.Sprintf("Update %s", rel), &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.authorName,
			Email: p.authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("commit %s: %w", rel, err)
	}
	log.Printf("Committed %s as %s", rel, commit.String()[:8])

	if err := p.push(ctx, repo); err != nil {
		return true, err
	}
	return true, nil
}

// push pushes the current branch to origin.
func (p *RepoPublisher) push(ctx context.Context, repo *git.Repository) error {
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("%w: resolve HEAD: %v", ErrPush, err)
	}

	options := &git.PushOptions{
		RemoteName: "origin",
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(fmt.Sprintf("%s:%s", head.Name(), head.Name())),
		},
	}
	if p.token != "" {
		// Token auth the way CI platforms expect it.
		options.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: p.token}
	}

	err = repo.PushContext(ctx, options)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		log.Printf("Push: remote already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPush, err)
	}

	log.Printf("Pushed %s to origin", head.Name().Short())
	return nil
}

// relPath converts an absolute metadata file path to the repository-relative
// slash form go-git expects.
func (p *RepoPublisher) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	root, err := filepath.Abs(p.repoPath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p.repoPath, err)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("metadata file %s is outside repository %s: %w", path, root, err)
	}
	return filepath.ToSlash(rel), nil
}
