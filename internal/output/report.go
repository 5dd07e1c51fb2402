/*
PURPOSE:
  Writes the human-readable evaluation report to stdout.

REQUIREMENTS:
  User-specified:
  - Per input: a centered divider with the filename, the rendered prompt,
    the generated text, total time, load time, and both throughputs.

  Implementation-discovered:
  - Several prompt directories report concurrently under "all"; one
    input's block is emitted as a single locked write so blocks never
    interleave mid-way.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (Runner)
  - Consumes: internal/model.Result

ERROR HANDLING:
  - Returns the underlying writer's error.

USAGE:
  r := output.NewReporter(os.Stdout)
  r.Directory("summarize")
  r.Write(result)
*/

package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/daryltucker/prompt-eval/internal/model"
)

// DividerWidth is the width of the centered divider lines.
const DividerWidth = 70

// Sink receives every result, successful or failed.
type Sink interface {
	Write(r model.Result) error
	Close() error
}

// Reporter formats results for a terminal.
type Reporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Directory writes the banner that precedes a prompt directory's results.
func (r *Reporter) Directory(dir string) error {
	return r.emit(Center(dir, DividerWidth, '=') + "\n")
}

// Write writes one result block. Failed results are not printed here;
// the runner logs them.
func (r *Reporter) Write(res model.Result) error {
	if res.Error != "" {
		return nil
	}
	return r.emit(FormatResult(res))
}

// Close is a no-op; the Reporter does not own its writer.
func (r *Reporter) Close() error { return nil }

func (r *Reporter) emit(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := io.WriteString(r.w, s)
	return err
}

// FormatResult renders the report block for one input.
func FormatResult(res model.Result) string {
	var b strings.Builder

	b.WriteString(Center(res.InputPath, DividerWidth, '-'))
	b.WriteString("\n")
	b.WriteString(res.Prompt)
	b.WriteString(res.Response)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total time: %.2f seconds\n", res.TotalDuration.Seconds())
	fmt.Fprintf(&b, "Loaded model in %.2f seconds\n", res.LoadDuration.Seconds())
	fmt.Fprintf(&b, "Evaluated prompt at %.2f tokens per second (%d tokens)\n",
		res.PromptTokensPerSecond(), res.PromptEvalCount)
	fmt.Fprintf(&b, "Evaluated response at %.2f tokens per second (%d tokens)\n",
		res.EvalTokensPerSecond(), res.EvalCount)

	return b.String()
}

// Center pads s with fill on both sides to width runes. When the padding
// is odd, the extra fill goes on the left for odd widths and on the right
// for even widths.
func Center(s string, width int, fill rune) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	marg := width - n
	left := marg/2 + (marg & width & 1)
	right := marg - left

	f := string(fill)
	return strings.Repeat(f, left) + s + strings.Repeat(f, right)
}
