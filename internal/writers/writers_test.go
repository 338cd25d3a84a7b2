package writers

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/pkg/rules"
)

var (
	weakHash = &rules.Rule{
		ID:             "SK100001",
		Name:           "Weak hash algorithm",
		Description:    "MD5 is broken.",
		Recommendation: "Use SHA-256.",
		Tags:           []string{"Cryptography"},
		Severity:       rules.Critical,
		Source:         "default:cryptography.json",
	}
	todo = &rules.Rule{
		ID:       "SK400001",
		Name:     "Review marker",
		Severity: rules.BestPractice | rules.ManualReview,
	}
)

func testRecords() []Record {
	return []Record{
		{Path: "src/app.cs", Issue: rules.Issue{Rule: weakHash, Line: 3, Column: 9, Boundary: rules.Boundary{Index: 40, Length: 3}, Text: "MD5"}},
		{Path: "src/app.cs", Issue: rules.Issue{Rule: todo, Line: 10, Column: 1, Text: "TODO:\nfix"}},
		{Path: "lib/util.py", Issue: rules.Issue{Rule: weakHash, Line: 1, Column: 1, Text: "md5"}},
	}
}

// nopCloser records whether Close was called.
type nopCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func writeAll(t *testing.T, format string, opts Options) *nopCloser {
	t.Helper()
	out := &nopCloser{}
	w, err := New(format, out, opts)
	require.NoError(t, err)
	for _, r := range testRecords() {
		require.NoError(t, w.WriteIssue(r))
	}
	require.NoError(t, w.FlushAndClose())
	assert.True(t, out.closed)
	return out
}

func TestNewUnknownFormat(t *testing.T) {
	_, err := New("xml", &bytes.Buffer{}, Options{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.EqualError(t, err, `unknown output format: "xml"`)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "txt", Extension(FormatText))
	assert.Equal(t, "json", Extension("JSON"))
	assert.Equal(t, "sarif", Extension(FormatSARIF))
}

func TestTextWriter(t *testing.T) {
	out := writeAll(t, FormatText, Options{})
	assert.Equal(t,
		"src/app.cs:3:9 [CRITICAL] SK100001 Weak hash algorithm\n"+
			"src/app.cs:10:1 [BEST-PRACTICE] SK400001 Review marker\n"+
			"lib/util.py:1:1 [CRITICAL] SK100001 Weak hash algorithm\n",
		out.String())
}

func TestTextWriterWithoutCloser(t *testing.T) {
	var buf bytes.Buffer
	w, err := New("", &buf, Options{})
	require.NoError(t, err)
	require.NoError(t, w.FlushAndClose())
	assert.Empty(t, buf.String())
}

func TestJSONWriter(t *testing.T) {
	out := writeAll(t, FormatJSON, Options{ToolVersion: "1.2.3"})

	var report struct {
		RunID string `json:"run_id"`
		Tool  struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"tool"`
		Issues []struct {
			Path      string `json:"path"`
			Line      int    `json:"line"`
			EndLine   int    `json:"end_line"`
			EndColumn int    `json:"end_column"`
			Boundary  struct {
				Index  int `json:"index"`
				Length int `json:"length"`
			} `json:"boundary"`
			RuleID   string          `json:"rule_id"`
			Severity json.RawMessage `json:"severity"`
			Match    string          `json:"match"`
			URL      string          `json:"url"`
		} `json:"issues"`
		Summary struct {
			Issues     int            `json:"issues"`
			Files      int            `json:"files"`
			Rules      int            `json:"rules"`
			BySeverity map[string]int `json:"by_severity"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))

	_, err := uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "skim", report.Tool.Name)
	assert.Equal(t, "1.2.3", report.Tool.Version)

	require.Len(t, report.Issues, 3)
	assert.Equal(t, "src/app.cs", report.Issues[0].Path)
	assert.Equal(t, 3, report.Issues[0].EndLine)
	assert.Equal(t, 12, report.Issues[0].EndColumn)
	assert.Equal(t, 40, report.Issues[0].Boundary.Index)
	assert.Equal(t, 3, report.Issues[0].Boundary.Length)
	assert.JSONEq(t, `"critical"`, string(report.Issues[0].Severity))
	assert.Empty(t, report.Issues[0].URL)

	assert.Equal(t, 11, report.Issues[1].EndLine)
	assert.Equal(t, 4, report.Issues[1].EndColumn)
	assert.JSONEq(t, `["best-practice","manual-review"]`, string(report.Issues[1].Severity))

	assert.Equal(t, 3, report.Summary.Issues)
	assert.Equal(t, 2, report.Summary.Files)
	assert.Equal(t, 2, report.Summary.Rules)
	assert.Equal(t, map[string]int{"critical": 2, "best-practice": 1}, report.Summary.BySeverity)
}

func TestJSONWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(FormatJSON, &buf, Options{})
	require.NoError(t, err)
	require.NoError(t, w.FlushAndClose())
	assert.Contains(t, buf.String(), `"issues": []`)
}

func TestSarifWriter(t *testing.T) {
	out := writeAll(t, FormatSARIF, Options{ToolVersion: "1.2.3"})

	var report sarif.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.Len(t, report.Runs, 1)
	run := report.Runs[0]

	assert.Equal(t, "skim", run.Tool.Driver.Name)
	require.NotNil(t, run.Tool.Driver.SemanticVersion)
	assert.Equal(t, "1.2.3", *run.Tool.Driver.SemanticVersion)

	require.Len(t, run.Tool.Driver.Rules, 2)
	first := run.Tool.Driver.Rules[0]
	assert.Equal(t, "SK100001", first.ID)
	require.NotNil(t, first.Name)
	assert.Equal(t, "Weak hash algorithm", *first.Name)
	require.NotNil(t, first.Help)
	assert.Equal(t, "Use SHA-256.", *first.Help.Text)
	assert.Equal(t, "SK400001", run.Tool.Driver.Rules[1].ID)

	require.Len(t, run.Results, 3)
	res := run.Results[0]
	require.NotNil(t, res.RuleID)
	assert.Equal(t, "SK100001", *res.RuleID)
	require.NotNil(t, res.Level)
	assert.Equal(t, "error", *res.Level)
	assert.Equal(t, "Weak hash algorithm. Use SHA-256.", *res.Message.Text)

	region := res.Locations[0].PhysicalLocation.Region
	assert.Equal(t, 3, *region.StartLine)
	assert.Equal(t, 9, *region.StartColumn)
	assert.Equal(t, 3, *region.EndLine)
	assert.Equal(t, 12, *region.EndColumn)
	assert.Equal(t, "src/app.cs", *res.Locations[0].PhysicalLocation.ArtifactLocation.URI)

	assert.Equal(t, "note", *run.Results[1].Level)
	assert.Equal(t, "note", run.Results[1].Properties["Level"])
}

func TestRepositoryLocator(t *testing.T) {
	root := t.TempDir()
	commit := "0123456789abcdef"
	remote := "git@github.com:org/project.git"
	md := &git.RepositoryMetadata{RepoRootFolder: root, CommitHash: &commit, RepositoryURL: &remote}

	var buf bytes.Buffer
	w, err := New(FormatSARIF, &buf, Options{Repository: md})
	require.NoError(t, err)
	require.NoError(t, w.WriteIssue(Record{
		Path:  filepath.Join(root, "src", "app.cs"),
		Issue: rules.Issue{Rule: weakHash, Line: 3, Column: 9, Text: "MD5"},
	}))
	require.NoError(t, w.WriteIssue(Record{
		Path:  filepath.Join(filepath.Dir(root), "elsewhere.cs"),
		Issue: rules.Issue{Rule: weakHash, Line: 1, Column: 1, Text: "MD5"},
	}))
	require.NoError(t, w.FlushAndClose())

	var report sarif.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	results := report.Runs[0].Results
	require.Len(t, results, 2)

	inside := results[0].Locations[0]
	assert.Equal(t, "src/app.cs", *inside.PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "https://github.com/org/project/blob/0123456789abcdef/src/app.cs#L3", inside.Properties["WebURL"])

	outside := results[1].Locations[0]
	assert.Equal(t, filepath.ToSlash(filepath.Join(filepath.Dir(root), "elsewhere.cs")), *outside.PhysicalLocation.ArtifactLocation.URI)
	assert.Nil(t, outside.Properties["WebURL"])
}

func TestSpan(t *testing.T) {
	tests := []struct {
		name    string
		issue   rules.Issue
		endLine int
		endCol  int
	}{
		{name: "single line", issue: rules.Issue{Line: 2, Column: 5, Text: "abc"}, endLine: 2, endCol: 8},
		{name: "two lines", issue: rules.Issue{Line: 2, Column: 5, Text: "abc\nde"}, endLine: 3, endCol: 3},
		{name: "ends with newline", issue: rules.Issue{Line: 1, Column: 1, Text: "a\n"}, endLine: 2, endCol: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endLine, endCol := span(tt.issue)
			assert.Equal(t, tt.endLine, endLine)
			assert.Equal(t, tt.endCol, endCol)
		})
	}
}
