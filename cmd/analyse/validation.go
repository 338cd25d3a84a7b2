package analyse

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/pkg/rules"
)

// validateAnalyseArgs validates the arguments provided to the analyse command.
func validateAnalyseArgs(options *RunOptionsAnalyse, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one target path must be specified")
	}

	for _, targetPath := range args {
		if _, err := os.Stat(targetPath); os.IsNotExist(err) {
			return fmt.Errorf("the target path does not exist: %v", targetPath)
		}
	}

	if err := config.ValidateFormat(options.Format); err != nil {
		return fmt.Errorf("invalid 'format' flag: %w", err)
	}

	if options.Threads < 0 {
		return fmt.Errorf("the 'threads' flag must be a positive integer")
	}

	if options.CI && (options.Base != "" || options.Head != "") {
		return fmt.Errorf("the 'ci' flag cannot be used with 'base' and 'head'")
	}

	if options.CI && len(args) > 1 {
		return fmt.Errorf("only one repository path can be analysed with 'ci'")
	}

	if (options.Base == "") != (options.Head == "") {
		return fmt.Errorf("the 'base' and 'head' flags must be used together")
	}

	if options.Base != "" && len(args) > 1 {
		return fmt.Errorf("only one repository path can be analysed with 'base' and 'head'")
	}

	for _, name := range options.Severity {
		if _, err := rules.ParseSeverity(name); err != nil {
			return fmt.Errorf("invalid 'severity' flag: %w", err)
		}
	}

	for _, pattern := range options.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid 'exclude' pattern: %q", pattern)
		}
	}

	if options.CustomRules != "" {
		info, err := os.Stat(options.CustomRules)
		if err != nil {
			return fmt.Errorf("the rules path does not exist: %v", options.CustomRules)
		}
		if !info.IsDir() {
			return fmt.Errorf("the rules path is not a directory: %v", options.CustomRules)
		}
	}

	if options.Baseline != "" {
		info, err := os.Stat(options.Baseline)
		if err != nil {
			return fmt.Errorf("the baseline file does not exist: %v", options.Baseline)
		}
		if info.IsDir() {
			return fmt.Errorf("the baseline path is a directory: %v", options.Baseline)
		}
	}

	return nil
}
