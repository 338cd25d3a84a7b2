package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/scan-io-git/skim/internal/analyzer"
	"github.com/scan-io-git/skim/pkg/rules"
)

// ErrUnsupportedReport is returned for files that are not JSON reports.
var ErrUnsupportedReport = errors.New("baseline must be a JSON report")

type report struct {
	Issues *[]struct {
		Path    string `json:"path"`
		Line    int    `json:"line"`
		EndLine int    `json:"end_line"`
		RuleID  string `json:"rule_id"`
		Match   string `json:"match"`
	} `json:"issues"`
}

// Load reads the issues of a JSON report produced by an earlier run.
func Load(path string) ([]Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %q: %w", path, err)
	}

	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedReport, path, err)
	}
	if r.Issues == nil {
		return nil, fmt.Errorf("%w: %q has no issues list", ErrUnsupportedReport, path)
	}

	known := make([]Fingerprint, 0, len(*r.Issues))
	for _, is := range *r.Issues {
		known = append(known, Fingerprint{
			RuleID:    is.RuleID,
			Path:      is.Path,
			StartLine: is.Line,
			EndLine:   is.EndLine,
			MatchHash: HashMatch(is.Match),
		})
	}
	return known, nil
}

// FromIssue fingerprints an issue found in the file reported as path.
func FromIssue(path string, is rules.Issue) Fingerprint {
	return Fingerprint{
		RuleID:    is.Rule.ID,
		Path:      path,
		StartLine: is.Line,
		EndLine:   is.Line + strings.Count(is.Text, "\n"),
		MatchHash: HashMatch(is.Text),
	}
}

// Filter removes the issues of result that correlate with known and returns
// the filtered result with the number of removed issues. reportPath maps
// analysed file paths to the form used in the baseline.
func Filter(result analyzer.Result, known []Fingerprint, reportPath func(string) string) (analyzer.Result, int) {
	if len(known) == 0 {
		return result, 0
	}

	var current []Fingerprint
	for _, f := range result.Files {
		path := reportPath(f.Path)
		for _, is := range f.Issues {
			current = append(current, FromIssue(path, is))
		}
	}
	c := NewCorrelator(current, known)

	filtered := analyzer.Result{Files: make([]analyzer.FileResult, 0, len(result.Files))}
	suppressed, i := 0, 0
	for _, f := range result.Files {
		kept := make([]rules.Issue, 0, len(f.Issues))
		for _, is := range f.Issues {
			if c.IsKnown(i) {
				suppressed++
			} else {
				kept = append(kept, is)
			}
			i++
		}
		f.Issues = kept
		filtered.Files = append(filtered.Files, f)
	}
	return filtered, suppressed
}
