// Package ci reads the commit and pull request metadata CI providers expose
// through environment variables.
package ci

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/scan-io-git/skim/internal/git"
)

// Kind identifies a CI provider.
type Kind int

const (
	Unknown Kind = iota
	GitHub
	GitLab
	Bitbucket
)

var (
	// ErrNotDetected is returned outside a known CI provider.
	ErrNotDetected = errors.New("no supported CI environment detected")
	// ErrNoDiffRange is returned when the job does not build a pull or merge request.
	ErrNoDiffRange = errors.New("the CI job does not build a pull or merge request")
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment is the CI metadata relevant to an analysis.
type Environment struct {
	Kind Kind
	// CommitHash is the commit the job runs on.
	CommitHash string
	// ReferenceName is the short branch or tag name.
	ReferenceName string
	// RepositoryURL is the web URL of the repository.
	RepositoryURL string
	// TargetBranch is the branch a pull or merge request is merged into.
	TargetBranch string
	// BaseCommit is the merge base of a merge request when the provider computes it.
	BaseCommit string
}

func (k Kind) String() string {
	switch k {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	case Bitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// Detect infers the CI provider from well-known environment variables.
func Detect(lookup LookupFunc) Kind {
	if lookup == nil {
		lookup = os.Getenv
	}
	switch {
	case lookup("GITHUB_ACTIONS") == "true" || lookup("GITHUB_SHA") != "":
		return GitHub
	case strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "":
		return GitLab
	case lookup("BITBUCKET_BUILD_NUMBER") != "" || lookup("BITBUCKET_REPO_SLUG") != "":
		return Bitbucket
	default:
		return Unknown
	}
}

// FromEnvironment reads the metadata of the detected provider.
func FromEnvironment(lookup LookupFunc) (Environment, error) {
	if lookup == nil {
		lookup = os.Getenv
	}
	switch kind := Detect(lookup); kind {
	case GitHub:
		env := Environment{
			Kind:          kind,
			CommitHash:    lookup("GITHUB_SHA"),
			ReferenceName: lookup("GITHUB_HEAD_REF"),
			TargetBranch:  lookup("GITHUB_BASE_REF"),
		}
		if env.ReferenceName == "" {
			env.ReferenceName = lookup("GITHUB_REF_NAME")
		}
		if server, repo := lookup("GITHUB_SERVER_URL"), lookup("GITHUB_REPOSITORY"); server != "" && repo != "" {
			env.RepositoryURL = strings.TrimSuffix(server, "/") + "/" + repo
		}
		return env, nil
	case GitLab:
		env := Environment{
			Kind:          kind,
			CommitHash:    lookup("CI_COMMIT_SHA"),
			ReferenceName: lookup("CI_COMMIT_REF_NAME"),
			RepositoryURL: lookup("CI_PROJECT_URL"),
			TargetBranch:  lookup("CI_MERGE_REQUEST_TARGET_BRANCH_NAME"),
			BaseCommit:    lookup("CI_MERGE_REQUEST_DIFF_BASE_SHA"),
		}
		if tag := lookup("CI_COMMIT_TAG"); tag != "" {
			env.ReferenceName = tag
		}
		return env, nil
	case Bitbucket:
		env := Environment{
			Kind:          kind,
			CommitHash:    lookup("BITBUCKET_COMMIT"),
			ReferenceName: lookup("BITBUCKET_BRANCH"),
			TargetBranch:  lookup("BITBUCKET_PR_DESTINATION_BRANCH"),
		}
		if tag := lookup("BITBUCKET_TAG"); tag != "" {
			env.ReferenceName = tag
		}
		if u, err := url.Parse(lookup("BITBUCKET_GIT_HTTP_ORIGIN")); err == nil && u.Scheme != "" && u.Host != "" {
			env.RepositoryURL = u.String()
		}
		return env, nil
	default:
		return Environment{}, ErrNotDetected
	}
}

// DiffRange returns the revisions bounding the changes of the pull or merge
// request under build. The target branch is addressed through the origin
// remote, which CI checkouts fetch.
func (e Environment) DiffRange() (string, string, error) {
	head := e.CommitHash
	if head == "" {
		head = "HEAD"
	}
	switch {
	case e.BaseCommit != "":
		return e.BaseCommit, head, nil
	case e.TargetBranch != "":
		return "origin/" + e.TargetBranch, head, nil
	default:
		return "", "", fmt.Errorf("%w (%s)", ErrNoDiffRange, e.Kind)
	}
}

// Enrich fills the revision, branch and remote of md that the local
// repository could not provide, as in detached or remote-less checkouts.
func (e Environment) Enrich(md *git.RepositoryMetadata) {
	if md == nil {
		return
	}
	if md.CommitHash == nil && e.CommitHash != "" {
		hash := e.CommitHash
		md.CommitHash = &hash
	}
	if md.BranchName == nil && e.ReferenceName != "" {
		branch := e.ReferenceName
		md.BranchName = &branch
	}
	if md.RepositoryURL == nil && e.RepositoryURL != "" {
		repoURL := strings.TrimSuffix(e.RepositoryURL, ".git")
		md.RepositoryURL = &repoURL
	}
}
