package verify

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/shared/errors"
)

const validRules = `[{"id": "V1", "name": "valid", "severity": "moderate", "applies_to": ["go"], "patterns": [{"pattern": "unsafe.Pointer", "type": "string"}]}]`

func writeRules(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateVerifyArgs(t *testing.T) {
	tests := []struct {
		name    string
		options RunOptionsVerify
		args    []string
		wantErr string
	}{
		{name: "Bundled rules only"},
		{name: "Paths without bundled rules", options: RunOptionsVerify{NoDefaultRules: true}, args: []string{"rules"}},
		{
			name:    "Nothing to verify",
			options: RunOptionsVerify{NoDefaultRules: true},
			wantErr: "nothing to verify: specify rule paths or drop the 'no-default-rules' flag",
		},
		{name: "Empty path", args: []string{""}, wantErr: "rule paths cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateVerifyArgs(&tt.options, tt.args)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, "good/valid.json", validRules)
	broken := writeRules(t, dir, "broken.json", `{"id": `)
	badPattern := writeRules(t, dir, "bad.json", `[{"id": "B1", "name": "bad", "severity": "critical", "patterns": [{"pattern": "(unclosed", "type": "regex"}]}]`)

	rs := rules.NewRuleSet(rules.RuleSetOptions{})
	errs := loadRules(rs, &RunOptionsVerify{NoDefaultRules: true}, []string{filepath.Join(dir, "good"), broken, badPattern, filepath.Join(dir, "missing")})

	assert.Equal(t, 1, rs.Len())
	_, ok := rs.ByID("V1")
	assert.True(t, ok)

	require.Len(t, errs, 3)
	var parseErr *rules.ParseError
	assert.ErrorAs(t, errs[0], &parseErr)
	var compileErr *rules.PatternCompileError
	assert.ErrorAs(t, errs[1], &compileErr)
	var ioErr *rules.IOError
	assert.ErrorAs(t, errs[2], &ioErr)
}

func TestLoadRulesWithDefaults(t *testing.T) {
	rs := rules.NewRuleSet(rules.RuleSetOptions{})
	errs := loadRules(rs, &RunOptionsVerify{}, nil)
	assert.Empty(t, errs)
	assert.Greater(t, rs.Len(), 0)
}

func TestListRules(t *testing.T) {
	rs := rules.NewRuleSet(rules.RuleSetOptions{})
	require.NoError(t, rs.AddFromString(validRules+"", "custom.json"))
	require.NoError(t, rs.AddFromString(`[{"id": "V2", "name": "any language", "severity": "critical", "patterns": [{"pattern": "x", "type": "string"}]}]`, "other.json"))

	var buf bytes.Buffer
	require.NoError(t, listRules(&buf, rs.Rules()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "SEVERITY", "LANGUAGES", "NAME", "SOURCE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"V1", "moderate", "go", "valid", "custom.json"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"V2", "critical", "*", "any", "language", "other.json"}, strings.Fields(lines[2]))
}

func TestRunVerifyCommand(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, "valid.json", validRules)

	AppConfig = &config.Config{}
	t.Cleanup(func() {
		verifyOptions = RunOptionsVerify{}
		VerifyCmd.SetOut(nil)
	})

	var out bytes.Buffer
	VerifyCmd.SetOut(&out)

	verifyOptions = RunOptionsVerify{NoDefaultRules: true}
	require.NoError(t, runVerifyCommand(VerifyCmd, []string{dir}))
	assert.Contains(t, out.String(), "1 rule(s) loaded from 1 source(s), 0 error(s)")

	out.Reset()
	writeRules(t, dir, "zz-broken.json", `[{"id": "", "name": "no id", "severity": "critical", "patterns": []}]`)
	err := runVerifyCommand(VerifyCmd, []string{dir})
	assert.EqualError(t, err, "1 rule definition error(s)")
	assert.Equal(t, errors.ExitError, errors.ExitCode(err))
	assert.Contains(t, out.String(), "error: ")
}
