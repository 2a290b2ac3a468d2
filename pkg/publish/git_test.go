package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// newTestRepo creates a working clone wired to a local bare remote.
func newTestRepo(t *testing.T) (workDir string, remote *git.Repository) {
	t.Helper()

	remoteDir := filepath.Join(t.TempDir(), "remote.git")
	remote, err := git.PlainInit(remoteDir, true)
	if err != nil {
		t.Fatalf("init bare remote: %v", err)
	}

	workDir = filepath.Join(t.TempDir(), "work")
	repo, err := git.PlainInit(workDir, false)
	if err != nil {
		t.Fatalf("init work repo: %v", err)
	}

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteDir},
	})
	if err != nil {
		t.Fatalf("create remote: %v", err)
	}

	return workDir, remote
}

func writeMetadata(t *testing.T, workDir, content string) string {
	t.Helper()
	path := filepath.Join(workDir, "docs_metadata.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write metadata file: %v", err)
	}
	return path
}

func commitCount(t *testing.T, workDir string) int {
	t.Helper()
	repo, err := git.PlainOpen(workDir)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	iter, err := repo.Log(&git.LogOptions{})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	count := 0
	err = iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("iterate log: %v", err)
	}
	return count
}

func TestCommitMetadata_FirstCommitAndPush(t *testing.T) {
	workDir, remote := newTestRepo(t)
	path := writeMetadata(t, workDir, "folder,filename\n,a\n")

	p := NewRepoPublisher(workDir, "")

	committed, err := p.CommitMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("CommitMetadata failed: %v", err)
	}
	if !committed {
		t.Fatal("expected a commit for a new metadata file")
	}
	if got := commitCount(t, workDir); got != 1 {
		t.Errorf("expected 1 commit, got %d", got)
	}

	// The remote received the branch.
	refs, err := remote.References()
	if err != nil {
		t.Fatalf("remote references: %v", err)
	}
	found := false
	_ = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsBranch() {
			found = true
		}
		return nil
	})
	if !found {
		t.Error("expected a branch ref on the remote after push")
	}
}

func TestCommitMetadata_IdempotentWhenUnchanged(t *testing.T) {
	workDir, _ := newTestRepo(t)
	path := writeMetadata(t, workDir, "folder,filename\n,a\n")

	p := NewRepoPublisher(workDir, "")

	if _, err := p.CommitMetadata(context.Background(), path); err != nil {
		t.Fatalf("first CommitMetadata failed: %v", err)
	}

	// Same content written again, as a re-run of the pipeline would.
	writeMetadata(t, workDir, "folder,filename\n,a\n")

	committed, err := p.CommitMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("second CommitMetadata failed: %v", err)
	}
	if committed {
		t.Error("identical content must not create a second commit")
	}
	if got := commitCount(t, workDir); got != 1 {
		t.Errorf("expected 1 commit after identical re-run, got %d", got)
	}
}

func TestCommitMetadata_ChangedContentCommitsAgain(t *testing.T) {
	workDir, _ := newTestRepo(t)
	path := writeMetadata(t, workDir, "folder,filename\n,a\n")

	p := NewRepoPublisher(workDir, "")

	if _, err := p.CommitMetadata(context.Background(), path); err != nil {
		t.Fatalf("first CommitMetadata failed: %v", err)
	}

	writeMetadata(t, workDir, "folder,filename\n,a\n,b\n")

	committed, err := p.CommitMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("second CommitMetadata failed: %v", err)
	}
	if !committed {
		t.Error("changed content must create a new commit")
	}
	if got := commitCount(t, workDir); got != 2 {
		t.Errorf("expected 2 commits, got %d", got)
	}
}

func TestCommitMetadata_PushFailureWrapsErrPush(t *testing.T) {
	// A work repo with no origin remote: the commit succeeds, push fails.
	workDir := filepath.Join(t.TempDir(), "work")
	if _, err := git.PlainInit(workDir, false); err != nil {
		t.Fatalf("init work repo: %v", err)
	}
	path := writeMetadata(t, workDir, "folder,filename\n,a\n")

	p := NewRepoPublisher(workDir, "")

	committed, err := p.CommitMetadata(context.Background(), path)
	if err == nil {
		t.Fatal("expected push failure without a remote")
	}
	if !committed {
		t.Error("commit should have been created before the push failed")
	}
	if !errors.Is(err, ErrPush) {
		t.Errorf("expected ErrPush, got %v", err)
	}
}
