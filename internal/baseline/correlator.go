package baseline

// Fingerprint identifies an issue independently of the run that produced it.
type Fingerprint struct {
	RuleID    string
	Path      string
	StartLine int
	EndLine   int
	// MatchHash is HashMatch of the matched text; empty when unknown.
	MatchHash string
}

// Correlator pairs issues of the current run with issues of a baseline.
// A known issue may match several current issues and vice versa.
type Correlator struct {
	Current []Fingerprint
	Known   []Fingerprint

	currentToKnown map[int][]int
	knownToCurrent map[int][]int
	processed      bool
}

// NewCorrelator creates a Correlator. Nothing is computed until Process.
func NewCorrelator(current, known []Fingerprint) *Correlator {
	return &Correlator{Current: current, Known: known}
}

// stages are applied in order; issues matched in one stage are excluded from
// the following ones, while matches within a single stage may be many-to-many.
//
//  1. rule + path + start and end line + match hash
//  2. rule + path + match hash (the code moved)
//  3. rule + path + start and end line (the match text changed in place)
//  4. rule + path + start line
var stages = []func(a, b Fingerprint) bool{
	func(a, b Fingerprint) bool {
		return sameHash(a, b) && a.StartLine == b.StartLine && a.EndLine == b.EndLine
	},
	sameHash,
	func(a, b Fingerprint) bool { return a.StartLine == b.StartLine && a.EndLine == b.EndLine },
	func(a, b Fingerprint) bool { return a.StartLine == b.StartLine },
}

func sameHash(a, b Fingerprint) bool {
	return a.MatchHash != "" && a.MatchHash == b.MatchHash
}

type groupKey struct {
	ruleID string
	path   string
}

// Process computes the correlation. It is idempotent.
func (c *Correlator) Process() {
	if c.processed {
		return
	}
	c.currentToKnown = make(map[int][]int)
	c.knownToCurrent = make(map[int][]int)

	// only issues of the same rule in the same file can ever match
	known := make(map[groupKey][]int)
	for ki, k := range c.Known {
		if k.RuleID == "" {
			continue
		}
		key := groupKey{k.RuleID, k.Path}
		known[key] = append(known[key], ki)
	}

	matchedKnown := make(map[int]bool)
	matchedCurrent := make(map[int]bool)
	for _, match := range stages {
		knownThis := make(map[int]bool)
		currentThis := make(map[int]bool)

		for ci, cur := range c.Current {
			if matchedCurrent[ci] || cur.RuleID == "" {
				continue
			}
			for _, ki := range known[groupKey{cur.RuleID, cur.Path}] {
				if matchedKnown[ki] || !match(c.Known[ki], cur) {
					continue
				}
				c.currentToKnown[ci] = append(c.currentToKnown[ci], ki)
				c.knownToCurrent[ki] = append(c.knownToCurrent[ki], ci)
				knownThis[ki] = true
				currentThis[ci] = true
			}
		}

		for ki := range knownThis {
			matchedKnown[ki] = true
		}
		for ci := range currentThis {
			matchedCurrent[ci] = true
		}
	}
	c.processed = true
}

// IsKnown reports whether the current issue at index i correlates with a
// baseline issue.
func (c *Correlator) IsKnown(i int) bool {
	c.Process()
	return len(c.currentToKnown[i]) > 0
}

// Unmatched returns the current issues without a baseline counterpart.
func (c *Correlator) Unmatched() []Fingerprint {
	c.Process()
	var out []Fingerprint
	for ci, cur := range c.Current {
		if len(c.currentToKnown[ci]) == 0 {
			out = append(out, cur)
		}
	}
	return out
}

// Fixed returns the baseline issues no longer reported by the current run.
func (c *Correlator) Fixed() []Fingerprint {
	c.Process()
	var out []Fingerprint
	for ki, k := range c.Known {
		if len(c.knownToCurrent[ki]) == 0 {
			out = append(out, k)
		}
	}
	return out
}
