package rules

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
)

// RuleSetOptions configures a RuleSet.
type RuleSetOptions struct {
	// Recursive makes directory loads descend into subdirectories.
	Recursive bool
	// MatchTimeout bounds one pattern evaluation; zero selects DefaultMatchTimeout.
	MatchTimeout time.Duration
	Logger       hclog.Logger
}

// RuleSet is an ordered collection of compiled rules built from named sources.
// Loading a source again replaces its earlier contribution. A RuleSet is safe
// for concurrent use; readers never observe a partially applied source.
type RuleSet struct {
	mu      sync.RWMutex
	sources []*ruleSource
	opts    RuleSetOptions
	logger  hclog.Logger

	// derived from sources by rebuild
	rules     []*Rule
	byID      map[string]*Rule
	index     map[string][]int
	universal []int
	cache     *sync.Map
}

type ruleSource struct {
	name  string
	rules []*Rule
}

// NewRuleSet creates an empty RuleSet.
func NewRuleSet(opts RuleSetOptions) *RuleSet {
	if opts.MatchTimeout == 0 {
		opts.MatchTimeout = DefaultMatchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	rs := &RuleSet{opts: opts, logger: logger}
	rs.rebuild()
	return rs
}

// AddFromString parses a batch of rule definitions and registers them under
// sourceName, replacing rules previously loaded from the same source.
//
// A structurally invalid source returns a *ParseError and leaves the set
// unchanged. Invalid individual rules are excluded and reported through a
// *LoadErrors while the remaining rules are registered.
func (rs *RuleSet) AddFromString(content, sourceName string) error {
	decoded, err := decodeRules(content, sourceName)
	if err != nil {
		return err
	}

	collected := &LoadErrors{}
	accepted := make([]*Rule, 0, len(decoded))
	local := make(map[string]struct{}, len(decoded))
	for _, r := range decoded {
		if err := r.compile(sourceName, rs.opts.MatchTimeout); err != nil {
			collected.add(err)
			continue
		}
		if r.Disabled {
			rs.logger.Debug("skipping disabled rule", "source", sourceName, "rule", r.ID)
			continue
		}
		if _, dup := local[r.ID]; dup {
			collected.add(&ParseError{Source: sourceName, RuleID: r.ID, Err: ErrDuplicateID})
			continue
		}
		local[r.ID] = struct{}{}
		if len(r.Patterns) == 0 {
			rs.logger.Warn(ErrNoPatterns.Error(), "source", sourceName, "rule", r.ID)
		}
		accepted = append(accepted, r)
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	owners := make(map[string]string)
	for _, src := range rs.sources {
		if src.name == sourceName {
			continue
		}
		for _, r := range src.rules {
			owners[r.ID] = src.name
		}
	}
	unique := accepted[:0]
	for _, r := range accepted {
		if owner, taken := owners[r.ID]; taken {
			collected.add(&ParseError{Source: sourceName, RuleID: r.ID, Err: fmt.Errorf("%w by %q", ErrDuplicateID, owner)})
			continue
		}
		unique = append(unique, r)
	}

	replaced := false
	for _, src := range rs.sources {
		if src.name == sourceName {
			src.rules = unique
			replaced = true
			break
		}
	}
	if !replaced {
		rs.sources = append(rs.sources, &ruleSource{name: sourceName, rules: unique})
	}
	rs.rebuild()

	rs.logger.Debug("rule source loaded", "source", sourceName, "rules", len(unique), "rejected", len(collected.Errors), "replaced", replaced)
	return collected.errOrNil()
}

// AddFromDirectory loads every rule file (*.json) under dir. Each file becomes
// its own source named "<sourceLabel>:<relative path>". A malformed or
// unreadable file is reported and the remaining files are still loaded.
func (rs *RuleSet) AddFromDirectory(dir, sourceLabel string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &LoadErrors{Errors: []error{&IOError{Path: dir, Err: err}}}
	}
	if !info.IsDir() {
		return &LoadErrors{Errors: []error{&IOError{Path: dir, Err: fmt.Errorf("not a directory")}}}
	}
	return rs.AddFromFS(os.DirFS(dir), ".", sourceLabel)
}

// AddFromFS is AddFromDirectory over an fs.FS rooted at root.
func (rs *RuleSet) AddFromFS(fsys fs.FS, root, sourceLabel string) error {
	collected := &LoadErrors{}

	sub := fsys
	if root != "" && root != "." {
		var err error
		if sub, err = fs.Sub(fsys, root); err != nil {
			collected.add(&IOError{Path: root, Err: err})
			return collected
		}
	}

	pattern := "*.json"
	if rs.opts.Recursive {
		pattern = "**/*.json"
	}
	files, err := doublestar.Glob(sub, pattern, doublestar.WithFilesOnly())
	if err != nil {
		collected.add(&IOError{Path: root, Err: err})
		return collected
	}
	sort.Strings(files)

	for _, name := range files {
		data, err := fs.ReadFile(sub, name)
		if err != nil {
			collected.add(&IOError{Path: path.Join(root, name), Err: err})
			continue
		}
		if err := rs.AddFromString(string(data), sourceLabel+":"+name); err != nil {
			rs.logger.Warn("rule file rejected", "file", path.Join(root, name), "error", err)
			collected.add(err)
		}
	}

	rs.logger.Debug("rule directory loaded", "label", sourceLabel, "files", len(files), "errors", len(collected.Errors))
	return collected.errOrNil()
}

// RemoveSource drops every rule contributed by sourceName.
func (rs *RuleSet) RemoveSource(sourceName string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for i, src := range rs.sources {
		if src.name == sourceName {
			rs.sources = append(rs.sources[:i:i], rs.sources[i+1:]...)
			rs.rebuild()
			return true
		}
	}
	return false
}

// Clone returns an independent RuleSet holding the same rules. Rules are
// shared; they are immutable once registered.
func (rs *RuleSet) Clone() *RuleSet {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	c := &RuleSet{opts: rs.opts, logger: rs.logger}
	for _, src := range rs.sources {
		c.sources = append(c.sources, &ruleSource{name: src.name, rules: append([]*Rule(nil), src.rules...)})
	}
	c.rebuild()
	return c
}

// Len returns the number of registered rules.
func (rs *RuleSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}

// Rules returns all rules in store order.
func (rs *RuleSet) Rules() []*Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]*Rule(nil), rs.rules...)
}

// ByID looks a rule up by identifier.
func (rs *RuleSet) ByID(id string) (*Rule, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	r, ok := rs.byID[id]
	return r, ok
}

// Sources returns the source names in load order.
func (rs *RuleSet) Sources() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	names := make([]string, 0, len(rs.sources))
	for _, src := range rs.sources {
		names = append(names, src.name)
	}
	return names
}

// CandidatesFor returns, in store order, every rule whose severity intersects
// mask and whose language list is empty or intersects languages.
// The returned slice is shared and must not be modified.
func (rs *RuleSet) CandidatesFor(languages []string, mask Severity) []*Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	langs := normalizeLanguages(languages)
	key := fmt.Sprintf("%d|%s", mask, strings.Join(langs, ","))
	if cached, ok := rs.cache.Load(key); ok {
		return cached.([]*Rule)
	}

	positions := rs.universal
	for _, lang := range langs {
		if list, ok := rs.index[lang]; ok {
			positions = mergePositions(positions, list)
		}
	}

	candidates := make([]*Rule, 0, len(positions))
	for _, pos := range positions {
		if r := rs.rules[pos]; r.Severity.Intersects(mask) {
			candidates = append(candidates, r)
		}
	}
	rs.cache.Store(key, candidates)
	return candidates
}

// rebuild recomputes the flattened rule list and the language index.
// Callers hold the write lock.
func (rs *RuleSet) rebuild() {
	rs.rules = nil
	rs.byID = make(map[string]*Rule)
	rs.index = make(map[string][]int)
	rs.universal = nil
	rs.cache = &sync.Map{}

	for _, src := range rs.sources {
		for _, r := range src.rules {
			pos := len(rs.rules)
			rs.rules = append(rs.rules, r)
			rs.byID[r.ID] = r
			if len(r.AppliesTo) == 0 {
				rs.universal = append(rs.universal, pos)
				continue
			}
			for _, lang := range normalizeLanguages(r.AppliesTo) {
				rs.index[lang] = append(rs.index[lang], pos)
			}
		}
	}
}

// mergePositions merges two ascending position lists without duplicates.
func mergePositions(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// normalizeLanguages lowercases, sorts and de-duplicates language identifiers.
func normalizeLanguages(languages []string) []string {
	out := make([]string, 0, len(languages))
	for _, l := range languages {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	uniq := out[:0]
	for i, l := range out {
		if i == 0 || l != out[i-1] {
			uniq = append(uniq, l)
		}
	}
	return uniq
}
