package writers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/pkg/rules"
)

// Output formats
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatJSON, FormatSARIF}

// ErrUnknownFormat is returned by New for unsupported formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Record is one issue together with the path of the file it was found in.
type Record struct {
	Path  string
	Issue rules.Issue
}

// Writer renders issues. WriteIssue is called once per issue in report order;
// FlushAndClose completes the output and closes the destination when it is an
// io.Closer.
type Writer interface {
	WriteIssue(Record) error
	FlushAndClose() error
}

// Options configures writers.
type Options struct {
	ToolName    string
	ToolVersion string
	// Repository, when set, makes reported paths repository relative and
	// enables source links for remotes on known hosts.
	Repository *git.RepositoryMetadata
	Logger     hclog.Logger
}

// New creates a writer for format on w.
func New(format string, w io.Writer, opts Options) (Writer, error) {
	if opts.ToolName == "" {
		opts.ToolName = "skim"
	}
	if opts.ToolVersion == "" {
		opts.ToolVersion = "unknown"
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	loc := newLocator(opts.Repository, opts.Logger)

	switch strings.ToLower(format) {
	case FormatText, "":
		return newTextWriter(w, loc), nil
	case FormatJSON:
		return newJSONWriter(w, opts, loc), nil
	case FormatSARIF:
		return newSarifWriter(w, opts, loc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Extension returns the file extension conventionally used for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "json"
	case FormatSARIF:
		return "sarif"
	default:
		return "txt"
	}
}

// severityLabel is the upper-case name of the most severe flag.
func severityLabel(s rules.Severity) string {
	return strings.ToUpper(s.Highest().String())
}

// sarifLevel maps a severity to a SARIF result level.
func sarifLevel(s rules.Severity) string {
	switch s.Highest() {
	case rules.Critical, rules.Important:
		return "error"
	case rules.Moderate:
		return "warning"
	default:
		return "note"
	}
}

// span returns the 1-based end line and exclusive end column of an issue.
func span(is rules.Issue) (int, int) {
	nl := strings.Count(is.Text, "\n")
	if nl == 0 {
		return is.Line, is.Column + len(is.Text)
	}
	return is.Line + nl, len(is.Text) - strings.LastIndex(is.Text, "\n")
}

func closeIfCloser(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
