package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/leapstack-labs/unitable/pkg/core"
)

// Renderer writes command output in the configured mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	r := &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		isTTY:  isTTY,
	}
	r.styles = NewStyles(out, isTTY && r.EffectiveMode() == ModeText)
	return r
}

// EffectiveMode resolves auto: text on a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether the output is a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the standard output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Styles returns the renderer's styles.
func (r *Renderer) Styles() *Styles { return r.styles }

// Println writes a line to standard output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output to standard output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Success writes a success line to standard output.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render(msg))
}

// Warning writes a warning line to error output.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render(msg))
}

// Error writes an error line to error output.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: ")+msg)
}

// Muted renders s in the muted style.
func (r *Renderer) Muted(s string) string {
	return r.styles.Muted.Render(s)
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// summaryJSON is the JSON form of one operation summary.
type summaryJSON struct {
	Op      string `json:"op"`
	Target  string `json:"target,omitempty"`
	Rows    int64  `json:"rows"`
	Columns int    `json:"columns"`
	Message string `json:"message"`
}

// StatusLine writes the one-line summary of an operation. CSV output keeps
// standard output for data, so summaries go to error output there.
func (r *Renderer) StatusLine(sum core.Summary) {
	switch r.EffectiveMode() {
	case ModeJSON:
		line, err := json.Marshal(summaryJSON{
			Op:      sum.Op,
			Target:  sum.Target,
			Rows:    sum.RowsAfter,
			Columns: sum.ColumnsAfter,
			Message: sum.Message(),
		})
		if err == nil {
			_, _ = fmt.Fprintln(r.out, string(line))
		}
	case ModeCSV:
		_, _ = fmt.Fprintln(r.errOut, sum.Message())
	case ModeMarkdown:
		r.Printf("> %s\n", sum.Message())
	default:
		r.Println(r.styles.Op.Render(sum.Op) + " " + sum.Message())
	}
}

// OnOperation prints a status line for every successful operation. Failed
// operations surface as the script's error instead.
func (r *Renderer) OnOperation(_ context.Context, sum core.Summary) {
	if sum.Err != nil {
		return
	}
	r.StatusLine(sum)
}
