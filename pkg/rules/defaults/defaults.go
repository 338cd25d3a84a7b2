// Package defaults bundles the default rule corpus.
package defaults

import (
	"embed"

	"github.com/scan-io-git/skim/pkg/rules"
)

// Label is the source label of the bundled corpus.
const Label = "default"

//go:embed rules/*.json
var corpus embed.FS

// Source returns the bundled corpus as a rule source.
func Source() rules.RuleSource {
	return rules.FSSource{FS: corpus, Root: "rules", Label: Label}
}
