package writers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/scan-io-git/skim/pkg/rules"
)

type jsonReport struct {
	RunID   string      `json:"run_id"`
	Tool    jsonTool    `json:"tool"`
	Issues  []jsonIssue `json:"issues"`
	Summary jsonSummary `json:"summary"`
}

type jsonTool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type jsonIssue struct {
	Path           string         `json:"path"`
	Line           int            `json:"line"`
	Column         int            `json:"column"`
	EndLine        int            `json:"end_line"`
	EndColumn      int            `json:"end_column"`
	Boundary       rules.Boundary `json:"boundary"`
	RuleID         string         `json:"rule_id"`
	RuleName       string         `json:"rule_name"`
	Severity       rules.Severity `json:"severity"`
	Tags           []string       `json:"tags,omitempty"`
	Description    string         `json:"description,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	Match          string         `json:"match"`
	URL            string         `json:"url,omitempty"`
}

type jsonSummary struct {
	Issues     int            `json:"issues"`
	Files      int            `json:"files"`
	Rules      int            `json:"rules"`
	BySeverity map[string]int `json:"by_severity"`
}

// jsonWriter buffers issues and writes a single JSON document on FlushAndClose.
type jsonWriter struct {
	dst    io.Writer
	report jsonReport
	loc    *locator
	files  map[string]struct{}
	rules  map[string]struct{}
}

func newJSONWriter(w io.Writer, opts Options, loc *locator) *jsonWriter {
	return &jsonWriter{
		dst: w,
		report: jsonReport{
			RunID:  uuid.New().String(),
			Tool:   jsonTool{Name: opts.ToolName, Version: opts.ToolVersion},
			Issues: []jsonIssue{},
			Summary: jsonSummary{
				BySeverity: make(map[string]int),
			},
		},
		loc:   loc,
		files: make(map[string]struct{}),
		rules: make(map[string]struct{}),
	}
}

func (j *jsonWriter) WriteIssue(r Record) error {
	is := r.Issue
	uri := j.loc.uri(r.Path)
	endLine, endColumn := span(is)
	j.report.Issues = append(j.report.Issues, jsonIssue{
		Path:           uri,
		Line:           is.Line,
		Column:         is.Column,
		EndLine:        endLine,
		EndColumn:      endColumn,
		Boundary:       is.Boundary,
		RuleID:         is.Rule.ID,
		RuleName:       is.Rule.Name,
		Severity:       is.Rule.Severity,
		Tags:           is.Rule.Tags,
		Description:    is.Rule.Description,
		Recommendation: is.Rule.Recommendation,
		Match:          is.Text,
		URL:            j.loc.link(uri, is.Line, endLine),
	})
	j.files[uri] = struct{}{}
	j.rules[is.Rule.ID] = struct{}{}
	j.report.Summary.BySeverity[is.Rule.Severity.Highest().String()]++
	return nil
}

func (j *jsonWriter) FlushAndClose() error {
	j.report.Summary.Issues = len(j.report.Issues)
	j.report.Summary.Files = len(j.files)
	j.report.Summary.Rules = len(j.rules)

	enc := json.NewEncoder(j.dst)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j.report); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return closeIfCloser(j.dst)
}
