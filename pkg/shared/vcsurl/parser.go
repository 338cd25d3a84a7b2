package vcsurl

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

type VCSType int

const (
	UnknownVCS VCSType = iota // UnknownVCS means the type should be determined from the URL
	GenericVCS                // GenericVCS uses GitHub-style blob links
	Github
	Gitlab
	Bitbucket
)

var (
	validSchemes = []string{"http", "https", "ssh"}
	scpLike      = regexp.MustCompile(`^(?:[\w.-]+@)?([^:/]+):(.*)$`)
)

// VCSURL is a parsed repository remote.
type VCSURL struct {
	Namespace  string
	Repository string
	// Host is the web host of the repository, without the ssh port.
	Host      string
	Raw       string
	VCSType   VCSType
	ParsedURL *url.URL
}

// StringToVCSType maps a provider name to its VCSType.
func StringToVCSType(name string) VCSType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "github":
		return Github
	case "gitlab":
		return Gitlab
	case "bitbucket":
		return Bitbucket
	case "generic":
		return GenericVCS
	default:
		return UnknownVCS
	}
}

func isValidScheme(scheme string) bool {
	for _, validScheme := range validSchemes {
		if scheme == validScheme {
			return true
		}
	}
	return false
}

func determineVCSType(host string) VCSType {
	switch {
	case strings.Contains(host, "github"):
		return Github
	case strings.Contains(host, "gitlab"):
		return Gitlab
	case strings.Contains(host, "bitbucket"):
		return Bitbucket
	default:
		return GenericVCS
	}
}

// Parse parses a repository remote and detects the VCS type from its host.
func Parse(raw string) (*VCSURL, error) {
	return ParseForVCSType(raw, UnknownVCS)
}

// ParseForVCSType parses a repository remote such as https://host/ns/repo,
// ssh://git@host/ns/repo.git or git@host:ns/repo.git.
func ParseForVCSType(raw string, vcsType VCSType) (*VCSURL, error) {
	u := VCSURL{Raw: raw}

	rawURL := strings.TrimSpace(raw)
	if !strings.Contains(rawURL, "://") {
		if parts := scpLike.FindStringSubmatch(rawURL); len(parts) == 3 {
			rawURL = fmt.Sprintf("ssh://%s/%s", parts[1], parts[2])
		}
	}
	rawURL = strings.TrimSuffix(rawURL, ".git")

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, err
	}
	if !isValidScheme(parsedURL.Scheme) {
		return nil, fmt.Errorf("invalid scheme: %s", raw)
	}
	u.ParsedURL = parsedURL
	u.Host = parsedURL.Hostname()

	if vcsType == UnknownVCS {
		vcsType = determineVCSType(parsedURL.Hostname())
	}
	u.VCSType = vcsType

	pathDirs := GetPathDirs(parsedURL.Path)
	if vcsType == Bitbucket {
		return handleBitbucket(u, pathDirs)
	}
	if len(pathDirs) < 2 {
		return nil, fmt.Errorf("remote %q does not name a repository", raw)
	}
	u.Namespace = path.Join(pathDirs[:len(pathDirs)-1]...)
	u.Repository = pathDirs[len(pathDirs)-1]
	return &u, nil
}

// handleBitbucket understands the on-prem Bitbucket layouts: scm clone links,
// ssh remotes with optional ~user namespaces and browse links.
func handleBitbucket(u VCSURL, pathDirs []string) (*VCSURL, error) {
	switch {
	case len(pathDirs) > 3 && pathDirs[0] == "projects" && pathDirs[2] == "repos":
		u.Namespace, u.Repository = pathDirs[1], pathDirs[3]
	case len(pathDirs) > 3 && pathDirs[0] == "users" && pathDirs[2] == "repos":
		u.Namespace, u.Repository = "~"+pathDirs[1], pathDirs[3]
	case len(pathDirs) == 3 && pathDirs[0] == "scm":
		u.Namespace, u.Repository = pathDirs[1], pathDirs[2]
	case len(pathDirs) == 2 && pathDirs[0] != "projects" && pathDirs[0] != "users" && pathDirs[0] != "scm":
		u.Namespace, u.Repository = pathDirs[0], pathDirs[1]
	default:
		return nil, fmt.Errorf("invalid Bitbucket URL: %s", u.Raw)
	}
	return &u, nil
}

// GetPathDirs splits a URL path into its non-empty segments.
func GetPathDirs(p string) []string {
	var dirs []string
	for _, d := range strings.Split(strings.Trim(p, "/"), "/") {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
