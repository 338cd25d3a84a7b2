package writers

import (
	"fmt"
	"io"
	"sort"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/skim/pkg/rules"
)

// InformationURI is reported as the tool's information URI in SARIF output.
const InformationURI = "https://github.com/scan-io-git/skim"

// sarifWriter buffers issues and emits a SARIF 2.1.0 report on FlushAndClose.
type sarifWriter struct {
	dst     io.Writer
	opts    Options
	loc     *locator
	records []Record
}

func newSarifWriter(w io.Writer, opts Options, loc *locator) *sarifWriter {
	return &sarifWriter{dst: w, opts: opts, loc: loc}
}

func (s *sarifWriter) WriteIssue(r Record) error {
	s.records = append(s.records, r)
	return nil
}

func (s *sarifWriter) FlushAndClose() error {
	report, err := s.build()
	if err != nil {
		return err
	}
	if err := report.PrettyWrite(s.dst); err != nil {
		return fmt.Errorf("failed to write SARIF report: %w", err)
	}
	return closeIfCloser(s.dst)
}

func (s *sarifWriter) build() (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(s.opts.ToolName, InformationURI)
	version := s.opts.ToolVersion
	run.Tool.Driver.SemanticVersion = &version

	for _, r := range distinctRules(s.records) {
		addRule(run, r)
	}

	for _, rec := range s.records {
		is := rec.Issue
		uri := s.loc.uri(rec.Path)
		endLine, endColumn := span(is)
		line, column := is.Line, is.Column

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(uri)).
				WithRegion(&sarif.Region{
					StartLine:   &line,
					StartColumn: &column,
					EndLine:     &endLine,
					EndColumn:   &endColumn,
				}),
		)
		if link := s.loc.link(uri, line, endLine); link != "" {
			location.Properties = map[string]interface{}{"WebURL": link}
		}

		level := sarifLevel(is.Rule.Severity)
		result := sarif.NewRuleResult(is.Rule.ID).
			WithMessage(sarif.NewTextMessage(resultMessage(is))).
			WithLevel(level).
			WithLocations([]*sarif.Location{location})
		result.Properties = map[string]interface{}{
			"Level":    level,
			"Title":    is.Rule.Name,
			"Severity": is.Rule.Severity.Names(),
		}
		run.AddResult(result)
	}

	report.AddRun(run)
	return report, nil
}

func addRule(run *sarif.Run, r *rules.Rule) {
	description := r.Description
	if description == "" {
		description = r.Name
	}
	rule := run.AddRule(r.ID).
		WithDescription(description).
		WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: sarifLevel(r.Severity)}).
		WithProperties(sarif.Properties{
			"tags":     r.Tags,
			"severity": r.Severity.Names(),
			"source":   r.Source,
		})

	name := r.Name
	rule.Name = &name
	rule.ShortDescription = &sarif.MultiformatMessageString{Text: &name}
	rule.FullDescription = &sarif.MultiformatMessageString{Text: &description}
	if r.Recommendation != "" {
		help := r.Recommendation
		rule.Help = &sarif.MultiformatMessageString{Text: &help}
	}
}

func resultMessage(is rules.Issue) string {
	if is.Rule.Recommendation == "" {
		return is.Rule.Name
	}
	return is.Rule.Name + ". " + is.Rule.Recommendation
}

// distinctRules returns the rules referenced by records ordered by identifier.
func distinctRules(records []Record) []*rules.Rule {
	seen := make(map[string]*rules.Rule)
	for _, rec := range records {
		seen[rec.Issue.Rule.ID] = rec.Issue.Rule
	}
	out := make([]*rules.Rule, 0, len(seen))
	for _, r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
