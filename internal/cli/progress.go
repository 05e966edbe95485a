package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// progressReporter shows wait-loop progress on stderr: a spinner on a
// terminal, plain lines otherwise, nothing in quiet mode.
type progressReporter struct {
	mu      sync.Mutex
	w       io.Writer
	quiet   bool
	spinner *spinner.Spinner
	last    string
}

func newProgressReporter(w io.Writer, quiet bool) *progressReporter {
	p := &progressReporter{w: w, quiet: quiet}
	if !quiet && isTerminal(w) {
		p.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Update replaces the current progress message.
func (p *progressReporter) Update(message string) {
	if p == nil || p.quiet {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.spinner == nil {
		// Repeated identical messages carry no news in a log.
		if message != p.last {
			fmt.Fprintln(p.w, message)
		}
		p.last = message
		return
	}

	p.spinner.Lock()
	p.spinner.Suffix = " " + message
	p.spinner.Unlock()
	if !p.spinner.Active() {
		p.spinner.Start()
	}
}

// Stop clears the spinner. Safe to call more than once.
func (p *progressReporter) Stop() {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.spinner != nil && p.spinner.Active() {
		p.spinner.Stop()
	}
}
