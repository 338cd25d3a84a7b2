package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/rules/defaults"
)

// HasFlags reports whether any flag of fs was set on the command line.
func HasFlags(fs *pflag.FlagSet) bool {
	set := false
	fs.Visit(func(*pflag.Flag) { set = true })
	return set
}

// NewProcessor creates a rule processor over ruleSetOpts and loads the rules
// selected by settings. The processor is returned even when some rules failed
// to load; the aggregated load error is returned alongside it.
func NewProcessor(ruleSetOpts rules.RuleSetOptions, settings rules.Settings, logger hclog.Logger) (*rules.Processor, error) {
	ruleSetOpts.Logger = logger.Named("rules")

	p := rules.NewProcessor(nil, rules.ProcessorOptions{
		Defaults: defaults.Source(),
		RuleSet:  ruleSetOpts,
		Logger:   logger.Named("processor"),
	})
	return p, p.Reload(settings)
}
