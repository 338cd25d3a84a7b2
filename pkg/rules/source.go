package rules

import (
	"errors"
	"io/fs"
)

// RuleSource yields raw rule definitions into a RuleSet under its own name.
type RuleSource interface {
	Name() string
	Load(rs *RuleSet) error
}

// StringSource is an in-memory rule source.
type StringSource struct {
	SourceName string
	Content    string
}

func (s StringSource) Name() string { return s.SourceName }

// Load implements RuleSource.
func (s StringSource) Load(rs *RuleSet) error {
	return rs.AddFromString(s.Content, s.SourceName)
}

// DirectorySource loads every rule file of a directory.
type DirectorySource struct {
	Path  string
	Label string
}

func (s DirectorySource) Name() string { return s.Label }

// Load implements RuleSource.
func (s DirectorySource) Load(rs *RuleSet) error {
	if s.Path == "" {
		return &LoadErrors{Errors: []error{&IOError{Path: s.Path, Err: errors.New("rule directory is not set")}}}
	}
	return rs.AddFromDirectory(s.Path, s.Label)
}

// FSSource loads rule files from an fs.FS, typically an embedded corpus.
type FSSource struct {
	FS    fs.FS
	Root  string
	Label string
}

func (s FSSource) Name() string { return s.Label }

// Load implements RuleSource.
func (s FSSource) Load(rs *RuleSet) error {
	return rs.AddFromFS(s.FS, s.Root, s.Label)
}
