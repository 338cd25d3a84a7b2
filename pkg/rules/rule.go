package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single pattern evaluation against one text.
const DefaultMatchTimeout = 2 * time.Second

// PatternType tells how the pattern text is turned into an expression.
type PatternType string

const (
	PatternRegex     PatternType = "regex"
	PatternRegexWord PatternType = "regex-word"
	PatternString    PatternType = "string"
	PatternSubstring PatternType = "substring"
)

// Scope restricts a pattern to code or comment regions of the text.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeCode    Scope = "code"
	ScopeComment Scope = "comment"
)

// Rule is a named pattern-based detector for one security-relevant construct.
// Rules are immutable once registered in a RuleSet.
type Rule struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Severity       Severity   `json:"severity"`
	AppliesTo      []string   `json:"applies_to,omitempty"`
	Patterns       []*Pattern `json:"patterns"`
	Exclusions     []*Pattern `json:"exclusions,omitempty"`
	Disabled       bool       `json:"disabled,omitempty"`

	// Source is the name of the rule source that contributed the rule.
	Source string `json:"-"`

	// decodeErr holds a field error that rejects only this rule.
	decodeErr error
}

// Pattern is a single match expression of a rule.
type Pattern struct {
	Pattern   string      `json:"pattern"`
	Type      PatternType `json:"type,omitempty"`
	Modifiers []string    `json:"modifiers,omitempty"`
	Scopes    []Scope     `json:"scopes,omitempty"`

	re     *regexp2.Regexp
	scopes regionKind
}

// AppliesToLanguage reports whether the rule targets lang. Rules without a
// language list apply to every language.
func (r *Rule) AppliesToLanguage(lang string) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, l := range r.AppliesTo {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// compile validates the rule and compiles its patterns and exclusions.
func (r *Rule) compile(source string, timeout time.Duration) error {
	r.Source = source
	if strings.TrimSpace(r.ID) == "" {
		return &ParseError{Source: source, Err: ErrMissingID}
	}
	if r.decodeErr != nil {
		return &ParseError{Source: source, RuleID: r.ID, Err: r.decodeErr}
	}
	if r.Severity == 0 {
		return &ParseError{Source: source, RuleID: r.ID, Err: ErrMissingSeverity}
	}
	for i, lang := range r.AppliesTo {
		r.AppliesTo[i] = strings.ToLower(strings.TrimSpace(lang))
	}
	for _, group := range [][]*Pattern{r.Patterns, r.Exclusions} {
		for _, p := range group {
			if p == nil {
				return &ParseError{Source: source, RuleID: r.ID, Err: ErrEmptyPattern}
			}
			if err := p.compile(timeout); err != nil {
				return &PatternCompileError{Source: source, RuleID: r.ID, Pattern: p.Pattern, Err: err}
			}
		}
	}
	return nil
}

// compile builds the regular expression for the pattern.
func (p *Pattern) compile(timeout time.Duration) error {
	if p.Pattern == "" {
		return ErrEmptyPattern
	}
	if p.Type == "" {
		p.Type = PatternRegex
	}

	var expr string
	switch p.Type {
	case PatternRegex:
		expr = p.Pattern
	case PatternRegexWord:
		expr = `\b(?:` + p.Pattern + `)\b`
	case PatternString:
		expr = wordBounded(p.Pattern)
	case PatternSubstring:
		expr = regexp2.Escape(p.Pattern)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPatternType, p.Type)
	}

	opts := regexp2.RegexOptions(regexp2.Multiline)
	for _, m := range p.Modifiers {
		switch strings.ToLower(m) {
		case "i":
			opts |= regexp2.IgnoreCase
		case "m":
		case "s", "d":
			opts |= regexp2.Singleline
		default:
			return fmt.Errorf("%w: %q", ErrUnknownModifier, m)
		}
	}

	p.scopes = 0
	for _, s := range p.Scopes {
		switch Scope(strings.ToLower(string(s))) {
		case ScopeCode:
			p.scopes |= regionCode
		case ScopeComment:
			p.scopes |= regionComment
		case ScopeAll:
			p.scopes |= regionCode | regionComment
		default:
			return fmt.Errorf("%w: %q", ErrUnknownPatternScope, s)
		}
	}
	if p.scopes == 0 {
		p.scopes = regionCode | regionComment
	}

	re, err := regexp2.Compile(expr, opts)
	if err != nil {
		return err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	p.re = re
	return nil
}

// wordBounded escapes a literal and anchors it on word boundaries wherever the
// literal itself starts or ends with a word character.
func wordBounded(literal string) string {
	expr := regexp2.Escape(literal)
	first, _ := utf8.DecodeRuneInString(literal)
	last, _ := utf8.DecodeLastRuneInString(literal)
	if isWordRune(first) {
		expr = `\b` + expr
	}
	if isWordRune(last) {
		expr += `\b`
	}
	return expr
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// decodeRules accepts either a JSON array of rules or a single rule object.
// Any structural problem rejects the whole source. An unknown severity name is
// kept on the record and rejects only that rule when it is compiled.
func decodeRules(content, source string) ([]*Rule, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, &ParseError{Source: source, Err: ErrEmptySource}
	}

	var records []json.RawMessage
	if strings.HasPrefix(trimmed, "{") {
		records = []json.RawMessage{json.RawMessage(trimmed)}
	} else if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	list := make([]*Rule, 0, len(records))
	for i, raw := range records {
		var r Rule
		if err := json.Unmarshal(raw, &r); err != nil {
			if !errors.Is(err, ErrUnknownSeverity) {
				return nil, &ParseError{Source: source, RuleID: recordID(raw, i), Err: err}
			}
			r = Rule{ID: recordID(raw, i), decodeErr: err}
		}
		list = append(list, &r)
	}
	return list, nil
}

// recordID extracts the identifier of a malformed record for error reporting,
// falling back to its position in the source.
func recordID(raw json.RawMessage, index int) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.ID != "" {
		return probe.ID
	}
	return fmt.Sprintf("#%d", index)
}
