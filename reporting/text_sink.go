package reporting

import (
	"fmt"
	"io"

	"github.com/killrvideo/vector-acceptor/runner"
	"github.com/killrvideo/vector-acceptor/types"
)

// TextSink streams case fragments to a writer while the run progresses and
// writes the summary block once the run completes. Its output matches Render.
type TextSink struct {
	w    io.Writer
	opts Options
}

var _ runner.ResultSink = (*TextSink)(nil)

// NewTextSink creates a sink writing to w
func NewTextSink(w io.Writer, opts Options) *TextSink {
	return &TextSink{w: w, opts: opts}
}

// Consume writes the fragment for one case
func (s *TextSink) Consume(result types.CaseResult) error {
	if _, err := io.WriteString(s.w, FormatCase(result, s.opts.Verbose)); err != nil {
		return fmt.Errorf("failed to write case %q: %w", result.Case.Name, err)
	}
	return nil
}

// Complete writes the summary block
func (s *TextSink) Complete(summary *runner.Summary) error {
	if _, err := io.WriteString(s.w, FormatSummary(summary, s.opts)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
