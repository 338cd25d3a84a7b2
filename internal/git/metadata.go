package git

import (
	"path/filepath"
	"strings"
)

// RepositoryMetadata describes the repository a scanned path belongs to.
type RepositoryMetadata struct {
	BranchName    *string
	CommitHash    *string
	RepositoryURL *string
	// Subfolder is the scanned path relative to the repository root, slash separated.
	Subfolder      string
	RepoRootFolder string
}

// CollectRepositoryMetadata collects the branch, HEAD commit and origin URL of
// the repository enclosing sourceFolder. On error the returned metadata still
// carries the cleaned source folder as RepoRootFolder.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, ErrSourceNotSet
	}

	if absSource, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = absSource
	}

	md := &RepositoryMetadata{
		RepoRootFolder: filepath.Clean(sourceFolder),
	}

	repoRootFolder, err := findGitRepositoryPath(sourceFolder)
	if err != nil {
		return md, err
	}
	md.RepoRootFolder = repoRootFolder

	repo, err := openRepository(repoRootFolder)
	if err != nil {
		return md, err
	}

	if rel, err := filepath.Rel(repoRootFolder, sourceFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			branchName := head.Name().Short()
			md.BranchName = &branchName
		}
		hash := head.Hash().String()
		md.CommitHash = &hash
	}

	if remote, err := repo.Remote("origin"); err == nil {
		if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
			url := strings.TrimSuffix(cfg.URLs[0], ".git")
			md.RepositoryURL = &url
		}
	}

	return md, nil
}
