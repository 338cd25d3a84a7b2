package git

import "errors"

// Repository errors
var (
	ErrNotRepository  = errors.New("path is not inside a git repository")
	ErrSourceNotSet   = errors.New("source folder is not set")
	ErrEmptyRevision  = errors.New("revision is required to compute diff")
	ErrBareRepository = errors.New("repository has no worktree")
)
