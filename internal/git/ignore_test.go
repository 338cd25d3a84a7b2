package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIgnoreGate(t *testing.T) {
	repoDir := t.TempDir()
	_, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(repoDir, ".gitignore"), "*.log\nbuild/\n")
	writeFile(t, filepath.Join(repoDir, "sub", ".gitignore"), "local.json\n")
	writeFile(t, filepath.Join(repoDir, ".git", "info", "exclude"), "secret.txt\n")
	writeFile(t, filepath.Join(repoDir, "build", "out.js"), "x")
	writeFile(t, filepath.Join(repoDir, "src", "main.go"), "package main")

	gate := NewIgnoreGate(hclog.NewNullLogger())

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "tracked source", path: "src/main.go", want: false},
		{name: "extension pattern", path: "src/debug.log", want: true},
		{name: "ignored directory", path: "build", want: true},
		{name: "file in ignored directory", path: "build/out.js", want: true},
		{name: "nested gitignore", path: "sub/local.json", want: true},
		{name: "nested gitignore is scoped", path: "local.json", want: false},
		{name: "info exclude", path: "secret.txt", want: true},
		{name: "git folder", path: ".git/config", want: true},
		{name: "repository root", path: ".", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.IsIgnored(filepath.Join(repoDir, tt.path)))
		})
	}
}

func TestIgnoreGateOutsideRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "*.log\n")

	gate := NewIgnoreGate(nil)
	assert.False(t, gate.IsIgnored(filepath.Join(dir, "debug.log")))
}

func TestIgnoreGateInvalidate(t *testing.T) {
	repoDir := t.TempDir()
	_, err := git.PlainInit(repoDir, false)
	require.NoError(t, err)

	gate := NewIgnoreGate(nil)
	target := filepath.Join(repoDir, "notes.md")
	assert.False(t, gate.IsIgnored(target))

	writeFile(t, filepath.Join(repoDir, ".gitignore"), "*.md\n")
	assert.False(t, gate.IsIgnored(target))

	gate.Invalidate()
	assert.True(t, gate.IsIgnored(target))
}
