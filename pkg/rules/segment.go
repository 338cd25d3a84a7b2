package rules

import (
	"sort"
	"strings"
)

type regionKind uint8

const (
	regionCode regionKind = 1 << iota
	regionComment
)

// Region is a comment span of the analysed text in byte offsets, End exclusive.
type Region struct {
	Start int
	End   int
}

// Segments is the code/comment segmentation of one text: the sorted, disjoint
// comment regions. Everything outside them is code.
type Segments []Region

// kindAt classifies the byte at offset.
func (s Segments) kindAt(offset int) regionKind {
	i := sort.Search(len(s), func(i int) bool { return s[i].End > offset })
	if i < len(s) && s[i].Start <= offset {
		return regionComment
	}
	return regionCode
}

// Segmenter splits text into code and comment regions for one language family.
type Segmenter interface {
	Segment(text string) Segments
}

// CommentSyntax is a table-driven Segmenter. String literals are skipped so that
// comment markers inside them are not treated as comments.
type CommentSyntax struct {
	Line       []string
	BlockStart string
	BlockEnd   string
	Quotes     string
	// Multiline lists quote characters whose literals may span lines.
	Multiline string
}

// Segment implements Segmenter.
func (cs *CommentSyntax) Segment(text string) Segments {
	var out Segments
	i := 0
outer:
	for i < len(text) {
		c := text[i]

		if strings.IndexByte(cs.Quotes, c) >= 0 {
			i = skipString(text, i, c, strings.IndexByte(cs.Multiline, c) >= 0)
			continue
		}

		if cs.BlockStart != "" && strings.HasPrefix(text[i:], cs.BlockStart) {
			stop := len(text)
			if end := strings.Index(text[i+len(cs.BlockStart):], cs.BlockEnd); end >= 0 {
				stop = i + len(cs.BlockStart) + end + len(cs.BlockEnd)
			}
			out = append(out, Region{Start: i, End: stop})
			i = stop
			continue
		}

		for _, marker := range cs.Line {
			if strings.HasPrefix(text[i:], marker) {
				stop := len(text)
				if end := strings.IndexByte(text[i:], '\n'); end >= 0 {
					stop = i + end
				}
				out = append(out, Region{Start: i, End: stop})
				i = stop
				continue outer
			}
		}
		i++
	}
	return out
}

// skipString returns the offset just past the string literal opened at start.
// Unterminated single-line literals end at the newline.
func skipString(text string, start int, quote byte, multiline bool) int {
	j := start + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		case '\n':
			if !multiline {
				return j
			}
		}
		j++
	}
	return len(text)
}

var (
	cStyle     = &CommentSyntax{Line: []string{"//"}, BlockStart: "/*", BlockEnd: "*/", Quotes: "\"'`", Multiline: "`"}
	phpStyle   = &CommentSyntax{Line: []string{"//", "#"}, BlockStart: "/*", BlockEnd: "*/", Quotes: "\"'"}
	hashStyle  = &CommentSyntax{Line: []string{"#"}, Quotes: "\"'"}
	psStyle    = &CommentSyntax{Line: []string{"#"}, BlockStart: "<#", BlockEnd: "#>", Quotes: "\"'"}
	sqlStyle   = &CommentSyntax{Line: []string{"--"}, BlockStart: "/*", BlockEnd: "*/", Quotes: "'"}
	luaStyle   = &CommentSyntax{Line: []string{"--"}, BlockStart: "--[[", BlockEnd: "]]", Quotes: "\"'"}
	markup     = &CommentSyntax{BlockStart: "<!--", BlockEnd: "-->"}
	basicStyle = &CommentSyntax{Line: []string{"'", "REM ", "Rem ", "rem "}, Quotes: "\""}
)

// SegmenterRegistry maps language identifiers to segmenters.
type SegmenterRegistry struct {
	byLanguage map[string]Segmenter
}

// NewSegmenterRegistry returns a registry preloaded with the built-in families.
func NewSegmenterRegistry() *SegmenterRegistry {
	r := &SegmenterRegistry{byLanguage: make(map[string]Segmenter)}
	r.registerAll(cStyle, "c", "cpp", "csharp", "java", "javascript", "typescript", "go",
		"rust", "swift", "kotlin", "scala", "objective-c", "groovy", "dart", "fsharp")
	r.registerAll(phpStyle, "php")
	r.registerAll(hashStyle, "python", "ruby", "perl", "shellscript", "yaml", "r",
		"coffeescript", "dockerfile", "makefile", "toml")
	r.registerAll(psStyle, "powershell")
	r.registerAll(sqlStyle, "sql", "plsql", "tsql")
	r.registerAll(luaStyle, "lua")
	r.registerAll(markup, "html", "xml")
	r.registerAll(basicStyle, "vb")
	return r
}

func (r *SegmenterRegistry) registerAll(s Segmenter, langs ...string) {
	for _, l := range langs {
		r.byLanguage[l] = s
	}
}

// Register sets the segmenter for a language, replacing any built-in one.
// Registration is not safe concurrently with lookups.
func (r *SegmenterRegistry) Register(lang string, s Segmenter) {
	r.byLanguage[strings.ToLower(lang)] = s
}

// For returns the segmenter of the first language in langs that has one.
func (r *SegmenterRegistry) For(langs []string) Segmenter {
	for _, l := range langs {
		if s, ok := r.byLanguage[strings.ToLower(l)]; ok {
			return s
		}
	}
	return nil
}

// Segment classifies text using the first matching language; without one the
// whole text is code.
func (r *SegmenterRegistry) Segment(text string, langs []string) Segments {
	if s := r.For(langs); s != nil {
		return s.Segment(text)
	}
	return nil
}
