package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is a set of severity flags. A rule may carry several flags at once,
// and the processor uses the same type as its active mask.
type Severity uint8

const (
	Critical Severity = 1 << iota
	Important
	Moderate
	BestPractice
	ManualReview
)

// AllSeverities enables every severity level.
const AllSeverities = Critical | Important | Moderate | BestPractice | ManualReview

var severityNames = []struct {
	flag Severity
	name string
}{
	{Critical, "critical"},
	{Important, "important"},
	{Moderate, "moderate"},
	{BestPractice, "best-practice"},
	{ManualReview, "manual-review"},
}

// ParseSeverity converts a single severity name into its flag.
// Names are case-insensitive; "bestpractice" and "best_practice" are accepted as aliases.
func ParseSeverity(name string) (Severity, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	switch normalized {
	case "bestpractice":
		normalized = "best-practice"
	case "manualreview":
		normalized = "manual-review"
	}
	for _, s := range severityNames {
		if s.name == normalized {
			return s.flag, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

// Has reports whether every flag of other is present in s.
func (s Severity) Has(other Severity) bool {
	return other != 0 && s&other == other
}

// Intersects reports whether s and other share at least one flag.
func (s Severity) Intersects(other Severity) bool {
	return s&other != 0
}

// Highest returns the most severe single flag in s, or 0 for an empty set.
func (s Severity) Highest() Severity {
	for _, sn := range severityNames {
		if s&sn.flag != 0 {
			return sn.flag
		}
	}
	return 0
}

// Names returns the flag names in order of decreasing severity.
func (s Severity) Names() []string {
	var names []string
	for _, sn := range severityNames {
		if s&sn.flag != 0 {
			names = append(names, sn.name)
		}
	}
	return names
}

func (s Severity) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Names(), "|")
}

// MarshalJSON writes a single name for single-flag values and a list otherwise.
func (s Severity) MarshalJSON() ([]byte, error) {
	names := s.Names()
	if len(names) == 1 {
		return json.Marshal(names[0])
	}
	return json.Marshal(names)
}

// UnmarshalJSON accepts either a severity name or a list of names.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		flag, err := ParseSeverity(single)
		if err != nil {
			return err
		}
		*s = flag
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("severity must be a string or a list of strings: %w", err)
	}
	var combined Severity
	for _, name := range list {
		flag, err := ParseSeverity(name)
		if err != nil {
			return err
		}
		combined |= flag
	}
	*s = combined
	return nil
}
