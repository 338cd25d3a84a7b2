package rules

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Boundary is a span of the analysed text in byte offsets.
type Boundary struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// Start returns the first byte offset of the span.
func (b Boundary) Start() int { return b.Index }

// End returns the byte offset just past the span.
func (b Boundary) End() int { return b.Index + b.Length }

// Match is one raw pattern match of a rule.
type Match struct {
	Boundary Boundary
	Text     string
}

// Matcher evaluates a single rule against text.
type Matcher struct {
	segmenters *SegmenterRegistry
}

// NewMatcher creates a Matcher. A nil registry selects the built-in segmenters.
func NewMatcher(segmenters *SegmenterRegistry) *Matcher {
	if segmenters == nil {
		segmenters = NewSegmenterRegistry()
	}
	return &Matcher{segmenters: segmenters}
}

// Match evaluates rule against text, segmenting it for the given languages.
func (m *Matcher) Match(rule *Rule, text string, languages []string) []Match {
	return m.MatchSegments(rule, text, m.segmenters.Segment(text, languages))
}

// MatchSegments evaluates rule against text using a caller-provided
// code/comment segmentation. Results are ordered by ascending start offset.
func (m *Matcher) MatchSegments(rule *Rule, text string, segments Segments) []Match {
	return matchRule(rule, newSubject(text), segments)
}

// subject is the prepared form of one analysed text, shared by every rule
// evaluated against it.
type subject struct {
	s     string
	runes []rune
	// offsets maps rune index to byte offset; nil when the text is ASCII.
	offsets []int
	// newlines holds the byte offsets of every '\n', built on first use.
	newlines []int
	indexed  bool
}

func newSubject(s string) *subject {
	t := &subject{s: s, runes: []rune(s)}
	if len(t.runes) != len(s) {
		t.offsets = make([]int, 0, len(t.runes)+1)
		for i := range s {
			t.offsets = append(t.offsets, i)
		}
		t.offsets = append(t.offsets, len(s))
	}
	return t
}

func (t *subject) byteOffset(runeIndex int) int {
	if t.offsets == nil {
		return runeIndex
	}
	if runeIndex >= len(t.offsets) {
		return len(t.s)
	}
	return t.offsets[runeIndex]
}

// lineOf returns the 0-based line of offset and the offset at which that line starts.
func (t *subject) lineOf(offset int) (int, int) {
	if !t.indexed {
		for i := 0; i < len(t.s); i++ {
			if t.s[i] == '\n' {
				t.newlines = append(t.newlines, i)
			}
		}
		t.indexed = true
	}
	line := sort.SearchInts(t.newlines, offset)
	if line == 0 {
		return 0, 0
	}
	return line, t.newlines[line-1] + 1
}

// lineEnd returns the offset of the newline ending the line that holds offset.
func (t *subject) lineEnd(offset int) int {
	if offset >= len(t.s) {
		return len(t.s)
	}
	if i := strings.IndexByte(t.s[offset:], '\n'); i >= 0 {
		return offset + i
	}
	return len(t.s)
}

// find returns every non-empty match of p whose start lies in an allowed region.
// A match timeout ends the search and keeps what was found so far.
func (t *subject) find(p *Pattern, segments Segments) []Boundary {
	if p.re == nil {
		return nil
	}
	var out []Boundary
	m, err := p.re.FindRunesMatch(t.runes)
	for m != nil && err == nil {
		start := t.byteOffset(m.Index)
		end := t.byteOffset(m.Index + m.Length)
		if end > start && segments.kindAt(start)&p.scopes != 0 {
			out = append(out, Boundary{Index: start, Length: end - start})
		}
		m, err = p.re.FindNextMatch(m)
	}
	return out
}

func matchRule(rule *Rule, t *subject, segments Segments) []Match {
	if rule == nil || len(rule.Patterns) == 0 || len(t.s) == 0 {
		return nil
	}

	seen := make(map[Boundary]struct{})
	var spans []Boundary
	for _, p := range rule.Patterns {
		for _, b := range t.find(p, segments) {
			if _, dup := seen[b]; dup {
				continue
			}
			seen[b] = struct{}{}
			spans = append(spans, b)
		}
	}
	if len(spans) == 0 {
		return nil
	}

	var excluded []Boundary
	for _, p := range rule.Exclusions {
		excluded = append(excluded, t.find(p, segments)...)
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Index != spans[j].Index {
			return spans[i].Index < spans[j].Index
		}
		return spans[i].Length < spans[j].Length
	})

	matches := make([]Match, 0, len(spans))
	for _, b := range spans {
		if len(excluded) > 0 && t.excludedBy(b, excluded) {
			continue
		}
		matches = append(matches, Match{Boundary: b, Text: validText(t.s[b.Start():b.End()])})
	}
	return matches
}

// excludedBy reports whether any exclusion span touches the lines spanned by b.
func (t *subject) excludedBy(b Boundary, excluded []Boundary) bool {
	_, from := t.lineOf(b.Start())
	to := t.lineEnd(b.End() - 1)
	for _, e := range excluded {
		if e.Start() < to && e.End() > from {
			return true
		}
	}
	return false
}

// validText keeps matched text printable when a span cuts through invalid UTF-8.
func validText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
