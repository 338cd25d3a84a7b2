package verify

import (
	"fmt"
)

// validateVerifyArgs validates the arguments provided to the verify command.
func validateVerifyArgs(options *RunOptionsVerify, args []string) error {
	if options.NoDefaultRules && len(args) == 0 {
		return fmt.Errorf("nothing to verify: specify rule paths or drop the 'no-default-rules' flag")
	}
	for _, path := range args {
		if path == "" {
			return fmt.Errorf("rule paths cannot be empty")
		}
	}
	return nil
}
