package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddedLines(t *testing.T) {
	repoDir, baseHash, headHash := setupDiffRepo(t)

	got, err := AddedLines(repoDir, baseHash, headHash, nil)
	require.NoError(t, err)

	assert.Equal(t, map[int]string{2: "beta2", 4: "delta"}, got["data.txt"])
	assert.Equal(t, map[int]string{1: "onlyline"}, got["new.txt"])
	assert.Equal(t, map[int]string{1: "noline"}, got["plain.txt"])
	assert.Equal(t, []string{"data.txt", "new.txt", "plain.txt"}, SortedPaths(got))

	filtered, err := AddedLines(repoDir, baseHash, headHash, []string{"new.txt"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, map[int]string{1: "onlyline"}, filtered["new.txt"])
}

func TestAddedLinesRevisions(t *testing.T) {
	repoDir, _, _ := setupDiffRepo(t)

	got, err := AddedLines(filepath.Join(repoDir, "sub"), "HEAD~1", "HEAD", []string{"data.txt"})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{2: "beta2", 4: "delta"}, got["data.txt"])
}

func TestAddedLinesErrors(t *testing.T) {
	repoDir, baseHash, _ := setupDiffRepo(t)

	tests := []struct {
		name    string
		repo    string
		base    string
		head    string
		wantErr error
	}{
		{name: "missing base", repo: repoDir, base: "", head: "HEAD", wantErr: ErrEmptyRevision},
		{name: "missing head", repo: repoDir, base: baseHash, head: "", wantErr: ErrEmptyRevision},
		{name: "not a repository", repo: t.TempDir(), base: "HEAD~1", head: "HEAD", wantErr: ErrNotRepository},
		{name: "unknown revision", repo: repoDir, base: "no-such-branch", head: "HEAD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AddedLines(tt.repo, tt.base, tt.head, nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestToBlocks(t *testing.T) {
	tests := []struct {
		name  string
		lines map[int]string
		want  []Block
	}{
		{name: "empty", lines: nil, want: nil},
		{name: "single", lines: map[int]string{3: "x"}, want: []Block{{StartLine: 3, Text: "x"}}},
		{
			name:  "runs",
			lines: map[int]string{2: "b", 1: "a", 5: "e", 6: "f", 9: "i"},
			want: []Block{
				{StartLine: 1, Text: "a\nb"},
				{StartLine: 5, Text: "e\nf"},
				{StartLine: 9, Text: "i"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToBlocks(tt.lines))
		})
	}
}

func TestAddedBlocks(t *testing.T) {
	repoDir, baseHash, headHash := setupDiffRepo(t)

	got, err := AddedBlocks(repoDir, baseHash, headHash, nil)
	require.NoError(t, err)
	assert.Equal(t, []Block{{StartLine: 2, Text: "beta2"}, {StartLine: 4, Text: "delta"}}, got["data.txt"])
}

// setupDiffRepo initialises a temporary repository with two commits and returns
// the repo path along with base and head commit hashes.
func setupDiffRepo(t *testing.T) (string, string, string) {
	t.Helper()

	repoDir := t.TempDir()
	repo, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	baseFiles := map[string]string{
		"data.txt":     "alpha\nbeta\ngamma\n",
		"sub/keep.txt": "keep\n",
	}
	baseHash := commitFiles(t, wt, baseFiles, "base commit")

	headFiles := map[string]string{
		"data.txt":  "alpha\nbeta2\ngamma\ndelta\n",
		"new.txt":   "onlyline\n",
		"plain.txt": "noline",
	}
	headHash := commitFiles(t, wt, headFiles, "head commit")

	return repoDir, baseHash.String(), headHash.String()
}

func commitFiles(t *testing.T, wt *git.Worktree, files map[string]string, message string) plumbing.Hash {
	t.Helper()

	for path, content := range files {
		abs := filepath.Join(wt.Filesystem.Root(), path)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
		_, err := wt.Add(path)
		require.NoError(t, err)
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}
