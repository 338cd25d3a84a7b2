package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileRule(t *testing.T, r *Rule) *Rule {
	t.Helper()
	if r.ID == "" {
		r.ID = "TEST"
	}
	if r.Severity == 0 {
		r.Severity = Critical
	}
	require.NoError(t, r.compile("test", DefaultMatchTimeout))
	return r
}

func spans(matches []Match) []string {
	out := []string{}
	for _, m := range matches {
		out = append(out, m.Text)
	}
	return out
}

func TestMatcherPatternTypes(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		text    string
		want    []string
	}{
		{name: "regex", pattern: Pattern{Pattern: `md5\(`}, text: "md5(x); amd5(y)", want: []string{"md5(", "md5("}},
		{name: "regex word", pattern: Pattern{Pattern: `md5`, Type: PatternRegexWord}, text: "md5 amd5 md5sum md5", want: []string{"md5", "md5"}},
		{name: "string is word bounded", pattern: Pattern{Pattern: "token", Type: PatternString}, text: "token tokens mytoken token", want: []string{"token", "token"}},
		{name: "string ending in punctuation", pattern: Pattern{Pattern: "eval(", Type: PatternString}, text: "eval(a) medieval(b)", want: []string{"eval("}},
		{name: "substring escapes metacharacters", pattern: Pattern{Pattern: "a.b*", Type: PatternSubstring}, text: "a.b* axb xa.b*", want: []string{"a.b*", "a.b*"}},
		{name: "ignore case", pattern: Pattern{Pattern: "secret", Type: PatternString, Modifiers: []string{"i"}}, text: "SECRET Secret", want: []string{"SECRET", "Secret"}},
		{name: "case sensitive by default", pattern: Pattern{Pattern: "secret", Type: PatternString}, text: "SECRET secret", want: []string{"secret"}},
		{name: "anchors are per line", pattern: Pattern{Pattern: `^import`}, text: "import a\nx import\nimport b", want: []string{"import", "import"}},
		{name: "dot does not cross lines", pattern: Pattern{Pattern: `begin.*end`}, text: "begin\nend", want: []string{}},
		{name: "singleline modifier", pattern: Pattern{Pattern: `begin.*end`, Modifiers: []string{"s"}}, text: "begin\nend", want: []string{"begin\nend"}},
		{name: "ignore case keeps per line anchors", pattern: Pattern{Pattern: `^import`, Modifiers: []string{"i", "s"}}, text: "IMPORT a\nx import\nImport b", want: []string{"IMPORT", "Import"}},
		{name: "lookahead", pattern: Pattern{Pattern: `http://(?!localhost)\w+`}, text: "http://localhost http://example", want: []string{"http://example"}},
	}

	m := NewMatcher(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.pattern
			r := compileRule(t, &Rule{Patterns: []*Pattern{&p}})
			assert.Equal(t, tt.want, spans(m.Match(r, tt.text, nil)))
		})
	}
}

func TestMatcherScopes(t *testing.T) {
	text := "password := load() // password reset\n"
	tests := []struct {
		name   string
		scopes []Scope
		want   []int
	}{
		{name: "default", scopes: nil, want: []int{0, 22}},
		{name: "all", scopes: []Scope{ScopeAll}, want: []int{0, 22}},
		{name: "code", scopes: []Scope{ScopeCode}, want: []int{0}},
		{name: "comment", scopes: []Scope{ScopeComment}, want: []int{22}},
	}

	m := NewMatcher(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := compileRule(t, &Rule{Patterns: []*Pattern{{Pattern: "password", Type: PatternString, Scopes: tt.scopes}}})
			var got []int
			for _, match := range m.Match(r, text, []string{"go"}) {
				got = append(got, match.Boundary.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcherUnicodeOffsets(t *testing.T) {
	text := "// héllo wörld\nsecret = 1"
	r := compileRule(t, &Rule{Patterns: []*Pattern{{Pattern: "secret", Type: PatternString}}})

	matches := NewMatcher(nil).Match(r, text, []string{"go"})
	require.Len(t, matches, 1)
	b := matches[0].Boundary
	assert.Equal(t, strings.Index(text, "secret"), b.Start())
	assert.Equal(t, "secret", text[b.Start():b.End()])

	wide := compileRule(t, &Rule{Patterns: []*Pattern{{Pattern: "wörld", Type: PatternString}}})
	matches = NewMatcher(nil).Match(wide, text, nil)
	require.Len(t, matches, 1)
	assert.Equal(t, len("wörld"), matches[0].Boundary.Length)
	assert.Equal(t, "wörld", matches[0].Text)
}

func TestMatcherMergesPatternsAndExclusions(t *testing.T) {
	r := compileRule(t, &Rule{
		Patterns: []*Pattern{
			{Pattern: "key", Type: PatternString},
			{Pattern: `\bkey\b`},
			{Pattern: "api", Type: PatternString},
		},
		Exclusions: []*Pattern{{Pattern: "test_", Type: PatternSubstring}},
	})

	text := "key api\ntest_key api\nkey"
	var got []int
	for _, match := range NewMatcher(nil).Match(r, text, nil) {
		got = append(got, match.Boundary.Index)
	}
	assert.Equal(t, []int{0, 4, 21}, got)
}

func TestMatcherMultilineMatchExcludedByAnyLine(t *testing.T) {
	r := compileRule(t, &Rule{
		Patterns:   []*Pattern{{Pattern: `open\(\s*\)`}},
		Exclusions: []*Pattern{{Pattern: "safe", Type: PatternString}},
	})

	assert.Empty(t, NewMatcher(nil).Match(r, "open(\n) // safe", nil))
	assert.Len(t, NewMatcher(nil).Match(r, "open(\n)\nsafe", nil), 1)
}

func TestMatchSegmentsUsesCallerSegmentation(t *testing.T) {
	r := compileRule(t, &Rule{Patterns: []*Pattern{{Pattern: "x", Type: PatternString, Scopes: []Scope{ScopeComment}}}})
	m := NewMatcher(nil)

	text := "x x x"
	assert.Empty(t, m.MatchSegments(r, text, nil))

	matches := m.MatchSegments(r, text, Segments{{Start: 2, End: 3}})
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Boundary.Index)
}

func TestMatcherNoPatterns(t *testing.T) {
	r := compileRule(t, &Rule{})
	assert.Empty(t, NewMatcher(nil).Match(r, "anything", nil))
	assert.Empty(t, NewMatcher(nil).Match(nil, "anything", nil))
}

func TestWordBounded(t *testing.T) {
	tests := []struct {
		literal string
		want    string
	}{
		{literal: "token", want: `\btoken\b`},
		{literal: "eval(", want: `\beval\(`},
		{literal: "$$", want: `\$\$`},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			assert.Equal(t, tt.want, wordBounded(tt.literal))
		})
	}
}
