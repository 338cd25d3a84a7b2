package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/shared/files"
)

// Skip reasons reported on FileResult.
const (
	SkipIgnored  = "ignored"
	SkipExcluded = "excluded"
	SkipBinary   = "binary"
	SkipTooLarge = "too-large"
)

// Gate decides whether a path is excluded by version-control ignore rules.
type Gate interface {
	IsIgnored(path string) bool
}

// Options configures an Analyzer.
type Options struct {
	Threads      int
	MaxFileSize  int64
	Exclude      []string
	UseGitIgnore bool
}

// FileResult holds the outcome for one file.
type FileResult struct {
	Path      string
	Languages []string
	Issues    []rules.Issue
	Skipped   string
	Err       error
}

// Result aggregates per-file results ordered by path.
type Result struct {
	Files []FileResult
}

// IssueCount returns the total number of issues.
func (r Result) IssueCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Issues)
	}
	return n
}

// Errors returns the per-file errors in path order.
func (r Result) Errors() []error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Analyzer runs a rule processor over files on disk.
type Analyzer struct {
	processor *rules.Processor
	resolver  *rules.Resolver
	gate      Gate
	opts      Options
	logger    hclog.Logger
}

// New creates an Analyzer. A nil resolver uses rules.DefaultResolver and a nil
// gate disables ignore handling.
func New(processor *rules.Processor, resolver *rules.Resolver, gate Gate, opts Options, logger hclog.Logger) *Analyzer {
	if resolver == nil {
		resolver = rules.DefaultResolver
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	return &Analyzer{
		processor: processor,
		resolver:  resolver,
		gate:      gate,
		opts:      opts,
		logger:    logger,
	}
}

// AnalyzeText analyses text that belongs to fileName. It returns nothing when
// the file is ignored by version control. startLine is the line number of the
// first line of text.
func (a *Analyzer) AnalyzeText(fileName, contentType, text string, startLine int) []rules.Issue {
	if a.ignored(fileName) {
		return nil
	}
	return a.processor.Analyze(text, a.resolver.Resolve(contentType, fileName), startLine)
}

// AnalyzeFile analyses a single file, applying the ignore gate, exclude globs,
// size limit and binary detection.
func (a *Analyzer) AnalyzeFile(path string) FileResult {
	if a.ignored(path) {
		return FileResult{Path: path, Skipped: SkipIgnored}
	}
	if a.excluded(filepath.ToSlash(filepath.Clean(path))) {
		return FileResult{Path: path, Skipped: SkipExcluded}
	}
	return a.analyzeCandidate(path)
}

// AnalyzePaths analyses files and directory trees. Directories are walked
// recursively; .git folders, ignored and excluded entries are not reported.
// Paths that cannot be accessed are reported with an error.
func (a *Analyzer) AnalyzePaths(paths []string) Result {
	var (
		candidates []string
		results    []FileResult
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			results = append(results, FileResult{Path: p, Err: fmt.Errorf("failed to access %q: %w", p, err)})
			continue
		}
		if !info.IsDir() {
			if r, skip := a.preCheck(p, filepath.ToSlash(filepath.Clean(p))); skip {
				results = append(results, r)
				continue
			}
			candidates = append(candidates, p)
			continue
		}
		found, errs := a.walk(p)
		candidates = append(candidates, found...)
		results = append(results, errs...)
	}

	a.logger.Debug("files selected for analysis", "files", len(candidates))
	analysed := make([]FileResult, len(candidates))
	forEachBounded(a.opts.Threads, candidates, func(i int, path string) {
		analysed[i] = a.analyzeCandidate(path)
	})
	results = append(results, analysed...)

	sortResults(results)
	return Result{Files: results}
}

// AnalyzeDiff analyses only the lines added between base and head in the
// repository enclosing repoPath. Each run of added lines is analysed with its
// own starting line so reported lines match the head revision.
func (a *Analyzer) AnalyzeDiff(repoPath, base, head string) (Result, error) {
	root, err := git.RepositoryRoot(repoPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to locate repository: %w", err)
	}
	blocks, err := git.AddedBlocks(root, base, head, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to collect added lines: %w", err)
	}

	paths := git.SortedPaths(blocks)
	results := make([]FileResult, len(paths))
	forEachBounded(a.opts.Threads, paths, func(i int, rel string) {
		full := filepath.Join(root, filepath.FromSlash(rel))
		res := FileResult{Path: full}
		switch {
		case a.ignored(full):
			res.Skipped = SkipIgnored
		case a.excluded(rel):
			res.Skipped = SkipExcluded
		default:
			res.Languages = a.resolver.Resolve("", rel)
			for _, b := range blocks[rel] {
				if files.LooksBinary([]byte(b.Text)) {
					res.Issues, res.Skipped = nil, SkipBinary
					break
				}
				res.Issues = append(res.Issues, a.processor.Analyze(b.Text, res.Languages, b.StartLine)...)
			}
		}
		results[i] = res
	})

	a.logger.Debug("diff analysed", "base", base, "head", head, "files", len(results))
	return Result{Files: results}, nil
}

func (a *Analyzer) walk(root string) ([]string, []FileResult) {
	var (
		found []string
		errs  []FileResult
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, FileResult{Path: path, Err: fmt.Errorf("failed to access %q: %w", path, err)})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel := files.RelativeTo(root, path)
		if d.IsDir() {
			if d.Name() == ".git" || a.ignored(path) || a.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, skip := a.preCheck(path, rel); skip {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		errs = append(errs, FileResult{Path: root, Err: err})
	}
	return found, errs
}

func (a *Analyzer) preCheck(path, rel string) (FileResult, bool) {
	if a.ignored(path) {
		a.logger.Trace("skipping ignored file", "path", path)
		return FileResult{Path: path, Skipped: SkipIgnored}, true
	}
	if a.excluded(rel) {
		a.logger.Trace("skipping excluded file", "path", path)
		return FileResult{Path: path, Skipped: SkipExcluded}, true
	}
	return FileResult{}, false
}

func (a *Analyzer) analyzeCandidate(path string) FileResult {
	res := FileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to access %q: %w", path, err)
		return res
	}
	if a.opts.MaxFileSize > 0 && info.Size() > a.opts.MaxFileSize {
		a.logger.Debug("skipping large file", "path", path, "size", info.Size())
		res.Skipped = SkipTooLarge
		return res
	}

	content, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %q: %w", path, err)
		return res
	}
	if files.LooksBinary(content) {
		res.Skipped = SkipBinary
		return res
	}

	res.Languages = a.resolver.Resolve("", path)
	res.Issues = a.processor.Analyze(string(content), res.Languages, 1)
	if len(res.Issues) > 0 {
		a.logger.Debug("issues found", "path", path, "issues", len(res.Issues))
	}
	return res
}

func (a *Analyzer) ignored(path string) bool {
	return a.opts.UseGitIgnore && a.gate != nil && a.gate.IsIgnored(path)
}

// excluded matches rel against the exclude globs. Patterns without a slash
// also match the base name, so "*.min.js" excludes minified files anywhere.
func (a *Analyzer) excluded(rel string) bool {
	base := rel
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		base = rel[i+1:]
	}
	for _, pattern := range a.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}

func sortResults(results []FileResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
}
