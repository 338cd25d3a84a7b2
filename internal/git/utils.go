package git

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// openRepository opens the repository enclosing path, walking up parent folders.
func openRepository(path string) (*git.Repository, error) {
	if path == "" {
		return nil, ErrSourceNotSet
	}
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository %q: %w", path, err)
	}
	return repo, nil
}

// findGitRepositoryPath returns the worktree root of the repository enclosing sourceFolder.
func findGitRepositoryPath(sourceFolder string) (string, error) {
	repo, err := openRepository(sourceFolder)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBareRepository, err)
	}
	return filepath.Clean(wt.Filesystem.Root()), nil
}

// resolveCommit resolves a revision such as a branch, tag, "HEAD~1" or hash to its commit.
func resolveCommit(repo *git.Repository, revision string) (*object.Commit, error) {
	if revision == "" {
		return nil, ErrEmptyRevision
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %q: %w", hash.String(), err)
	}
	return commit, nil
}

// RepositoryRoot returns the worktree root of the repository enclosing path.
func RepositoryRoot(path string) (string, error) {
	return findGitRepositoryPath(path)
}
