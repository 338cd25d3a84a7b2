package rules

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/dlclark/regexp2"
	"github.com/hashicorp/go-hclog"
)

// DefaultCustomLabel names the sources loaded from the custom rules directory.
const DefaultCustomLabel = "custom"

// Issue is one reported match of a rule against analysed text.
type Issue struct {
	Rule *Rule
	// Line is 1-based and offset by the caller's starting line.
	Line int
	// Column is the 1-based byte column of the match within its line.
	Column   int
	Boundary Boundary
	Text     string
}

// Settings is the settings surface that drives Reload.
type Settings struct {
	UseDefaultRules         bool
	UseCustomRules          bool
	CustomRulesPath         string
	UseGitIgnore            bool
	EnableImportantRules    bool
	EnableModerateRules     bool
	EnableBestPracticeRules bool
	EnableManualReviewRules bool
}

// SeverityMask composes the enabled levels. Critical is always included.
func (s Settings) SeverityMask() Severity {
	mask := Critical
	if s.EnableImportantRules {
		mask |= Important
	}
	if s.EnableModerateRules {
		mask |= Moderate
	}
	if s.EnableBestPracticeRules {
		mask |= BestPractice
	}
	if s.EnableManualReviewRules {
		mask |= ManualReview
	}
	return mask
}

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	// Defaults is the bundled rule corpus loaded by Reload when UseDefaultRules is set.
	Defaults RuleSource
	// RuleSet configures rule sets built by Reload.
	RuleSet    RuleSetOptions
	Segmenters *SegmenterRegistry
	Logger     hclog.Logger
}

type snapshot struct {
	rules *RuleSet
	mask  Severity
}

// Processor analyses text against the current RuleSet and severity mask.
// Analyze is safe for concurrent use; the rule set and mask are swapped as one
// snapshot so a call never sees a half-applied change.
type Processor struct {
	state      atomic.Pointer[snapshot]
	defaults   RuleSource
	ruleOpts   RuleSetOptions
	segmenters *SegmenterRegistry
	logger     hclog.Logger
}

// NewProcessor creates a Processor over rs with a Critical-only mask.
// A nil rs starts with an empty rule set.
func NewProcessor(rs *RuleSet, opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.RuleSet.Logger == nil {
		opts.RuleSet.Logger = logger.Named("ruleset")
	}
	if opts.Segmenters == nil {
		opts.Segmenters = NewSegmenterRegistry()
	}
	if rs == nil {
		rs = NewRuleSet(opts.RuleSet)
	}
	p := &Processor{
		defaults:   opts.Defaults,
		ruleOpts:   opts.RuleSet,
		segmenters: opts.Segmenters,
		logger:     logger,
	}
	p.state.Store(&snapshot{rules: rs, mask: Critical})
	return p
}

// Rules returns the current rule set.
func (p *Processor) Rules() *RuleSet { return p.state.Load().rules }

// Severity returns the current severity mask.
func (p *Processor) Severity() Severity { return p.state.Load().mask }

// SetRules publishes rs for subsequent Analyze calls.
func (p *Processor) SetRules(rs *RuleSet) {
	p.update(func(s snapshot) snapshot {
		s.rules = rs
		return s
	})
}

// SetSeverity publishes a new mask. Critical is always added.
func (p *Processor) SetSeverity(mask Severity) {
	p.update(func(s snapshot) snapshot {
		s.mask = mask | Critical
		return s
	})
}

func (p *Processor) update(fn func(snapshot) snapshot) {
	for {
		old := p.state.Load()
		next := fn(*old)
		if p.state.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Reload builds a fresh rule set from settings and publishes it together with
// the composed severity mask. Load errors are collected and returned; whatever
// loaded successfully is still published.
func (p *Processor) Reload(settings Settings) error {
	rs := NewRuleSet(p.ruleOpts)
	collected := &LoadErrors{}

	if settings.UseDefaultRules && p.defaults != nil {
		collected.add(p.defaults.Load(rs))
	}
	if settings.UseCustomRules {
		collected.add(DirectorySource{Path: settings.CustomRulesPath, Label: DefaultCustomLabel}.Load(rs))
	}

	mask := settings.SeverityMask()
	p.state.Store(&snapshot{rules: rs, mask: mask})

	p.logger.Info("rules reloaded", "rules", rs.Len(), "sources", len(rs.Sources()), "severity", mask.String(), "errors", len(collected.Errors))
	return collected.errOrNil()
}

// Analyze scans text and returns its issues ordered by line, start offset and
// rule identifier. startLine is the line number of the first line of text;
// values below 1 are treated as 1. An empty result is not an error.
func (p *Processor) Analyze(text string, languages []string, startLine int) []Issue {
	snap := p.state.Load()
	if startLine < 1 {
		startLine = 1
	}
	if snap.rules == nil || text == "" {
		return nil
	}

	candidates := snap.rules.CandidatesFor(languages, snap.mask|Critical)
	if len(candidates) == 0 {
		return nil
	}

	t := newSubject(text)
	segments := p.segmenters.Segment(text, languages)
	suppressed := parseSuppressions(t)

	var issues []Issue
	for _, r := range candidates {
		for _, m := range matchRule(r, t, segments) {
			line, lineStart := t.lineOf(m.Boundary.Start())
			if suppressed.covers(line, r.ID) {
				continue
			}
			issues = append(issues, Issue{
				Rule:     r,
				Line:     line + startLine,
				Column:   m.Boundary.Start() - lineStart + 1,
				Boundary: m.Boundary,
				Text:     m.Text,
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Boundary.Index != b.Boundary.Index {
			return a.Boundary.Index < b.Boundary.Index
		}
		return a.Rule.ID < b.Rule.ID
	})
	return issues
}

// HasMultipleProblems reports whether more than one distinct rule fires on text.
func (p *Processor) HasMultipleProblems(text string, languages []string) bool {
	return DistinctRules(p.Analyze(text, languages, 1)) > 1
}

// DistinctRules counts the distinct rule identifiers among issues.
func DistinctRules(issues []Issue) int {
	seen := make(map[string]struct{}, len(issues))
	for _, is := range issues {
		seen[is.Rule.ID] = struct{}{}
	}
	return len(seen)
}

// suppressionPattern matches inline suppressions such as
// "skim: ignore DS123,DS456" or "DevSkim: ignore all".
var suppressionPattern = regexp2.MustCompile(`\b(?:dev)?skim:\s*ignore\s+(all\b|[\w\-]+(?:\s*,\s*[\w\-]+)*)`, regexp2.IgnoreCase)

// suppressions maps a 0-based line to the rule identifiers ignored on it.
// A nil set means every rule.
type suppressions map[int]map[string]struct{}

func parseSuppressions(t *subject) suppressions {
	if !strings.Contains(strings.ToLower(t.s), "skim:") {
		return nil
	}
	out := make(suppressions)
	m, err := suppressionPattern.FindRunesMatch(t.runes)
	for m != nil && err == nil {
		line, _ := t.lineOf(t.byteOffset(m.Index))
		ids := m.GroupByNumber(1).String()
		if strings.EqualFold(ids, "all") {
			out[line] = nil
		} else if set, exists := out[line]; !exists || set != nil {
			if set == nil {
				set = make(map[string]struct{})
				out[line] = set
			}
			for _, id := range strings.Split(ids, ",") {
				set[strings.TrimSpace(id)] = struct{}{}
			}
		}
		m, err = suppressionPattern.FindNextMatch(m)
	}
	return out
}

func (s suppressions) covers(line int, ruleID string) bool {
	set, ok := s[line]
	if !ok {
		return false
	}
	if set == nil {
		return true
	}
	_, hit := set[ruleID]
	return hit
}
