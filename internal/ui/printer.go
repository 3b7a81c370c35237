package ui

import (
	"fmt"
	"io"

	"github.com/muurk/dlipower/internal/powerswitch"
)

// Printer writes styled components to a writer. Commands print through a
// Printer rather than to stdout directly so output can be captured.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a printer sized to the terminal
func NewPrinter(w io.Writer) *Printer {
	return &Printer{out: w, width: GetTerminalWidth()}
}

func (p *Printer) Width() int {
	return p.width
}

func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints a failure box with the error's troubleshooting hint
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(NewFailureResult(title, err, troubleshooting...).SetWidth(p.width).Render())
}

func (p *Printer) PrintReport(r powerswitch.Report) {
	p.Println(RenderReport(r))
}

func (p *Printer) PrintOutcomes(res *powerswitch.DispatchResult) {
	p.Println(RenderOutcomes(res))
}
