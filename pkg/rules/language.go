package rules

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// UnknownLanguage is returned when a file name yields no language.
const UnknownLanguage = "unknown"

var extensionLanguages = map[string]string{
	".c": "c", ".h": "c",
	".cc": "cpp", ".cpp": "cpp", ".cxx": "cpp", ".hpp": "cpp", ".hh": "cpp", ".hxx": "cpp",
	".cs": "csharp", ".csx": "csharp",
	".vb": "vb", ".vbs": "vb", ".bas": "vb",
	".fs": "fsharp", ".fsx": "fsharp", ".fsi": "fsharp",
	".m": "objective-c", ".mm": "objective-c",
	".java": "java", ".kt": "kotlin", ".kts": "kotlin", ".scala": "scala", ".groovy": "groovy",
	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".ts": "typescript", ".tsx": "typescript",
	".coffee": "coffeescript", ".dart": "dart",
	".py": "python", ".pyw": "python",
	".rb": "ruby", ".php": "php", ".pl": "perl", ".pm": "perl", ".lua": "lua", ".r": "r",
	".go": "go", ".rs": "rust", ".swift": "swift",
	".sql": "sql", ".pks": "plsql", ".pkb": "plsql",
	".ps1": "powershell", ".psm1": "powershell", ".psd1": "powershell",
	".sh": "shellscript", ".bash": "shellscript", ".zsh": "shellscript", ".ksh": "shellscript",
	".html": "html", ".htm": "html", ".cshtml": "html", ".aspx": "html",
	".xml": "xml", ".config": "xml", ".csproj": "xml", ".xaml": "xml", ".plist": "xml",
	".json": "json", ".yml": "yaml", ".yaml": "yaml", ".toml": "toml",
}

var fileNameLanguages = map[string]string{
	"dockerfile":  "dockerfile",
	"makefile":    "makefile",
	"gnumakefile": "makefile",
	"rakefile":    "ruby",
	"gemfile":     "ruby",
	"jenkinsfile": "groovy",
}

// enryAliases maps go-enry language names to the identifiers used by rules.
var enryAliases = map[string]string{
	"c#":                "csharp",
	"c++":               "cpp",
	"f#":                "fsharp",
	"shell":             "shellscript",
	"visual basic .net": "vb",
	"vba":               "vb",
	"vbscript":          "vb",
	"objective-c++":     "objective-c",
	"plsql":             "plsql",
	"tsql":              "sql",
}

var defaultContentTypes = map[string][]string{
	"csharp":           {"csharp"},
	"c/c++":            {"cpp", "c"},
	"basic":            {"vb"},
	"f#":               {"fsharp"},
	"javascript":       {"javascript"},
	"node.js":          {"javascript"},
	"typescript":       {"typescript"},
	"python":           {"python"},
	"html":             {"html"},
	"htmlx":            {"html"},
	"razor":            {"html", "csharp"},
	"xml":              {"xml"},
	"xaml":             {"xml"},
	"sql":              {"sql"},
	"sql server tools": {"sql", "tsql"},
	"powershell":       {"powershell"},
	"json":             {"json"},
	"yaml":             {"yaml"},
	"java":             {"java"},
	"go":               {"go"},
	"ruby":             {"ruby"},
	"php":              {"php"},
}

// Resolver maps a file name and a host content-type tag to language identifiers.
type Resolver struct {
	contentTypes map[string][]string
}

// DefaultResolver uses the built-in content-type table.
var DefaultResolver = NewResolver(nil)

// NewResolver creates a Resolver. extra adds or overrides content-type
// mappings; keys are matched case-insensitively.
func NewResolver(extra map[string][]string) *Resolver {
	table := make(map[string][]string, len(defaultContentTypes)+len(extra))
	for k, v := range defaultContentTypes {
		table[k] = v
	}
	for k, v := range extra {
		table[strings.ToLower(k)] = normalizeLanguages(v)
	}
	return &Resolver{contentTypes: table}
}

// Resolve returns the union of the file-derived language and the languages
// mapped from contentType. The file-derived language is always first.
func (r *Resolver) Resolve(contentType, fileName string) []string {
	langs := []string{FromFileName(fileName)}
	for _, l := range r.contentTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		if !contains(langs, l) {
			langs = append(langs, l)
		}
	}
	return langs
}

// FromFileName derives a language from a file name, returning UnknownLanguage
// when neither the extension nor the name is recognised.
func FromFileName(fileName string) string {
	base := filepath.Base(fileName)
	if fileName == "" || base == "." || base == string(filepath.Separator) {
		return UnknownLanguage
	}
	if lang, ok := fileNameLanguages[strings.ToLower(base)]; ok {
		return lang
	}
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	if lang, safe := enry.GetLanguageByExtension(base); safe && lang != "" && lang != "Text" {
		return normalizeEnryName(lang)
	}
	if lang, safe := enry.GetLanguageByFilename(base); safe && lang != "" && lang != "Text" {
		return normalizeEnryName(lang)
	}
	return UnknownLanguage
}

func normalizeEnryName(name string) string {
	lower := strings.ToLower(name)
	if alias, ok := enryAliases[lower]; ok {
		return alias
	}
	return strings.ReplaceAll(lower, " ", "-")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
