package watch

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// validateWatchArgs validates the arguments provided to the watch command.
// An empty rules flag falls back to customRulesPath.
func validateWatchArgs(options *RunOptionsWatch, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one target path must be specified")
	}
	for _, targetPath := range args {
		if _, err := os.Stat(targetPath); os.IsNotExist(err) {
			return fmt.Errorf("the target path does not exist: %v", targetPath)
		}
	}

	if options.CustomRules == "" && AppConfig != nil {
		options.CustomRules = AppConfig.Rules.CustomRulesPath
	}
	if options.CustomRules == "" {
		return fmt.Errorf("the 'rules' flag or the custom_rules_path setting must be specified")
	}
	info, err := os.Stat(options.CustomRules)
	if err != nil {
		return fmt.Errorf("the rules path does not exist: %v", options.CustomRules)
	}
	if !info.IsDir() {
		return fmt.Errorf("the rules path is not a directory: %v", options.CustomRules)
	}

	if options.Threads < 0 {
		return fmt.Errorf("the 'threads' flag must be a positive integer")
	}
	if options.Debounce < 0 {
		return fmt.Errorf("the 'debounce' flag cannot be negative")
	}
	for _, pattern := range options.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid 'exclude' pattern: %q", pattern)
		}
	}
	return nil
}
