package writers

import (
	"bufio"
	"fmt"
	"io"
)

// textWriter prints one line per issue: path:line:col [SEVERITY] ID Name.
type textWriter struct {
	dst io.Writer
	bw  *bufio.Writer
	loc *locator
}

func newTextWriter(w io.Writer, loc *locator) *textWriter {
	return &textWriter{dst: w, bw: bufio.NewWriter(w), loc: loc}
}

func (t *textWriter) WriteIssue(r Record) error {
	is := r.Issue
	_, err := fmt.Fprintf(t.bw, "%s:%d:%d [%s] %s %s\n",
		t.loc.uri(r.Path), is.Line, is.Column, severityLabel(is.Rule.Severity), is.Rule.ID, is.Rule.Name)
	return err
}

func (t *textWriter) FlushAndClose() error {
	if err := t.bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush text output: %w", err)
	}
	return closeIfCloser(t.dst)
}
