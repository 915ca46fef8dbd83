package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a spinner on w while a long operation runs. With quiet set
// it does nothing.
type Progress struct {
	s *spinner.Spinner
}

// StartProgress starts a spinner with message.
func StartProgress(w io.Writer, quiet bool, message string) *Progress {
	if quiet {
		return &Progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &Progress{s: s}
}

// Pause stops the spinner so that the web UI can write to the terminal.
func (p *Progress) Pause() {
	if p.s != nil {
		p.s.Stop()
	}
}

// Done stops the spinner, leaving a failure marker when err is set.
func (p *Progress) Done(err error) {
	if p.s == nil {
		return
	}
	if err != nil {
		p.s.FinalMSG = fmt.Sprintf("%s\n", text.FgRed.Sprint("Token acquisition failed"))
	}
	p.s.Stop()
}
