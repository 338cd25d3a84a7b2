package git

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/hashicorp/go-hclog"
)

const gitDir = ".git"

// IgnoreGate reports whether paths are excluded by the ignore rules of their
// enclosing repository: every .gitignore of the worktree plus .git/info/exclude.
// Matchers are built once per repository root. Safe for concurrent use.
type IgnoreGate struct {
	mu       sync.Mutex
	roots    map[string]string
	matchers map[string]gitignore.Matcher
	logger   hclog.Logger
}

// NewIgnoreGate creates an empty gate.
func NewIgnoreGate(logger hclog.Logger) *IgnoreGate {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &IgnoreGate{
		roots:    make(map[string]string),
		matchers: make(map[string]gitignore.Matcher),
		logger:   logger,
	}
}

// IsIgnored reports whether path is ignored. Paths outside any repository are
// never ignored. Anything under the .git folder is always ignored.
func (g *IgnoreGate) IsIgnored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	isDir := false
	if info, err := os.Stat(abs); err == nil {
		isDir = info.IsDir()
	}
	dir := abs
	if !isDir {
		dir = filepath.Dir(abs)
	}

	root, matcher := g.matcherFor(dir)
	if matcher == nil {
		return false
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if parts[0] == gitDir {
		return true
	}
	return matcher.Match(parts, isDir)
}

// Invalidate drops cached matchers so that edited ignore files are re-read.
func (g *IgnoreGate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = make(map[string]string)
	g.matchers = make(map[string]gitignore.Matcher)
}

func (g *IgnoreGate) matcherFor(dir string) (string, gitignore.Matcher) {
	g.mu.Lock()
	defer g.mu.Unlock()

	root, known := g.roots[dir]
	if !known {
		var err error
		root, err = findGitRepositoryPath(dir)
		if err != nil {
			g.logger.Trace("no repository for path", "path", dir, "error", err)
			root = ""
		}
		g.roots[dir] = root
	}
	if root == "" {
		return "", nil
	}

	if m, ok := g.matchers[root]; ok {
		return root, m
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		g.logger.Warn("failed to read ignore patterns", "root", root, "error", err)
	}
	m := gitignore.NewMatcher(patterns)
	g.matchers[root] = m
	g.logger.Debug("ignore patterns loaded", "root", root, "patterns", len(patterns))
	return root, m
}
