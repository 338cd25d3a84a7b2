package git

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Block is a run of consecutive added lines of one file.
type Block struct {
	// StartLine is the 1-based line number of the first line in the new file.
	StartLine int
	Text      string
}

// AddedLines returns, for every file touched between base and head, a map of
// new-file line numbers to the textual content that was added. Returned line
// numbers are 1-based and only include additions; deletions and context lines are
// ignored. Paths that are deleted or outside the optional filter list are skipped.
// base and head accept any revision go-git can resolve.
func AddedLines(repoPath, base, head string, filters []string) (map[string]map[int]string, error) {
	if base == "" || head == "" {
		return nil, ErrEmptyRevision
	}

	repo, err := openRepository(repoPath)
	if err != nil {
		return nil, err
	}

	baseCommit, err := resolveCommit(repo, base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base: %w", err)
	}
	headCommit, err := resolveCommit(repo, head)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve head: %w", err)
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load base tree: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load head tree: %w", err)
	}

	patch, err := baseTree.Patch(headTree)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}

	parsed, err := diff.ParseMultiFileDiff([]byte(patch.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	allowed := buildFilterSet(filters)
	result := make(map[string]map[int]string)

	for _, fd := range parsed {
		// deleted files and files without hunks
		if fd == nil || fd.NewName == "/dev/null" || len(fd.Hunks) == 0 {
			continue
		}

		path := strings.TrimPrefix(fd.NewName, "b/")
		if len(allowed) > 0 && !allowed[path] {
			continue
		}

		added := make(map[int]string)
		for _, h := range fd.Hunks {
			if h == nil {
				continue
			}
			lineNo := int(h.NewStartLine)
			if lineNo <= 0 {
				lineNo = 1
			}
			for _, bodyLine := range bytes.Split(h.Body, []byte("\n")) {
				if len(bodyLine) == 0 {
					continue
				}
				switch bodyLine[0] {
				case '+':
					added[lineNo] = string(bodyLine[1:])
					lineNo++
				case '-', '\\':
					// deletion or "\ No newline at end of file"
				default:
					lineNo++
				}
			}
		}

		if len(added) > 0 {
			result[path] = added
		}
	}

	return result, nil
}

// AddedBlocks groups the output of AddedLines into runs of consecutive lines so
// that patterns spanning several added lines can still match.
func AddedBlocks(repoPath, base, head string, filters []string) (map[string][]Block, error) {
	added, err := AddedLines(repoPath, base, head, filters)
	if err != nil {
		return nil, err
	}
	blocks := make(map[string][]Block, len(added))
	for path, lines := range added {
		blocks[path] = ToBlocks(lines)
	}
	return blocks, nil
}

// ToBlocks converts a line-number map into ordered blocks of consecutive lines.
func ToBlocks(lines map[int]string) []Block {
	if len(lines) == 0 {
		return nil
	}
	numbers := make([]int, 0, len(lines))
	for n := range lines {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var blocks []Block
	var text []string
	start, prev := numbers[0], numbers[0]-1
	for _, n := range numbers {
		if n != prev+1 {
			blocks = append(blocks, Block{StartLine: start, Text: strings.Join(text, "\n")})
			text = text[:0]
			start = n
		}
		text = append(text, lines[n])
		prev = n
	}
	return append(blocks, Block{StartLine: start, Text: strings.Join(text, "\n")})
}

// buildFilterSet returns an O(1) lookup table for the provided filter slice.
// Nil is returned when no filters are supplied to avoid extra map checks downstream.
func buildFilterSet(filters []string) map[string]bool {
	if len(filters) == 0 {
		return nil
	}
	set := make(map[string]bool, len(filters))
	for _, f := range filters {
		set[f] = true
	}
	return set
}

// SortedPaths returns the map keys in ascending order for deterministic iteration.
func SortedPaths[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
