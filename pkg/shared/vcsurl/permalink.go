package vcsurl

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncompleteRemote = errors.New("remote has no host, namespace or repository")
	ErrMissingRef       = errors.New("ref is required")
	ErrMissingFile      = errors.New("file path is required")
)

// linkFormat describes how a provider addresses a file and a line range.
type linkFormat struct {
	// file receives host, owner path, repository, ref and file.
	file       func(host, owner, repo, ref, file string) string
	line, span string
}

var (
	githubLinks = linkFormat{
		file: func(host, owner, repo, ref, file string) string {
			return fmt.Sprintf("https://%s/%s/%s/blob/%s/%s", host, owner, repo, ref, file)
		},
		line: "#L%d", span: "#L%d-L%d",
	}
	gitlabLinks = linkFormat{
		file: func(host, owner, repo, ref, file string) string {
			return fmt.Sprintf("https://%s/%s/%s/-/blob/%s/%s", host, owner, repo, ref, file)
		},
		line: "#L%d", span: "#L%d-%d",
	}
	bitbucketLinks = linkFormat{
		file: func(host, owner, repo, ref, file string) string {
			return fmt.Sprintf("https://%s/%s/repos/%s/browse/%s?at=%s", host, owner, repo, file, ref)
		},
		line: "#%d", span: "#%d-%d",
	}
)

// Permalink links file at ref in the repository u points to. Lines are
// 1-based; startLine 0 omits the anchor and an endLine not after startLine
// anchors a single line.
func (u *VCSURL) Permalink(ref, file string, startLine, endLine int) (string, error) {
	if u.Host == "" || u.Namespace == "" || u.Repository == "" {
		return "", ErrIncompleteRemote
	}
	if ref == "" {
		return "", ErrMissingRef
	}
	file = strings.TrimLeft(strings.ReplaceAll(file, "\\", "/"), "/")
	if file == "" {
		return "", ErrMissingFile
	}

	format, owner := githubLinks, u.Namespace
	switch u.VCSType {
	case Gitlab:
		format = gitlabLinks
	case Bitbucket:
		// "~user" addresses a personal repository
		format, owner = bitbucketLinks, "projects/"+u.Namespace
		if user, ok := strings.CutPrefix(u.Namespace, "~"); ok {
			owner = "users/" + user
		}
	}

	link := format.file(u.Host, owner, u.Repository, ref, file)
	switch {
	case startLine <= 0:
	case endLine <= startLine:
		link += fmt.Sprintf(format.line, startLine)
	default:
		link += fmt.Sprintf(format.span, startLine, endLine)
	}
	return link, nil
}
