package writers

import (
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/pkg/shared/files"
	"github.com/scan-io-git/skim/pkg/shared/vcsurl"
)

// locator turns analysed file paths into reported URIs and source links.
type locator struct {
	root   string
	ref    string
	remote *vcsurl.VCSURL
}

func newLocator(md *git.RepositoryMetadata, logger hclog.Logger) *locator {
	l := &locator{}
	if md == nil {
		return l
	}
	l.root = md.RepoRootFolder
	if md.CommitHash != nil {
		l.ref = *md.CommitHash
	}
	if md.RepositoryURL != nil && *md.RepositoryURL != "" {
		remote, err := vcsurl.Parse(*md.RepositoryURL)
		if err != nil {
			logger.Debug("source links disabled", "remote", *md.RepositoryURL, "error", err)
		} else {
			l.remote = remote
		}
	}
	return l
}

// uri returns path relative to the repository root when one is known, or the
// slash separated path otherwise.
func (l *locator) uri(path string) string {
	if l.root == "" {
		return filepath.ToSlash(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return files.RelativeTo(l.root, abs)
}

// link returns a permalink for the given repository relative uri, or "" when
// the remote or revision is unknown.
func (l *locator) link(uri string, startLine, endLine int) string {
	if l.remote == nil || l.ref == "" || filepath.IsAbs(uri) {
		return ""
	}
	link, err := l.remote.Permalink(l.ref, uri, startLine, endLine)
	if err != nil {
		return ""
	}
	return link
}

// PathMapper returns the function writers use to turn analysed file paths
// into reported paths for md.
func PathMapper(md *git.RepositoryMetadata) func(string) string {
	return newLocator(md, hclog.NewNullLogger()).uri
}
