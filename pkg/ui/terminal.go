package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes the progress stream. Lines from concurrent downloads never
// interleave. Colour is only emitted when w is a terminal and noColor is
// false.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	color bool

	ok    lipgloss.Style
	skip  lipgloss.Style
	fail  lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, noColor bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		color: !noColor,
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		skip:  r.NewStyle().Foreground(lipgloss.Color("3")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		label: r.NewStyle().Foreground(lipgloss.Color("6")),
		value: r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, line)
}

// Downloading announces a media file about to be fetched
func (p *Printer) Downloading(name string) {
	p.println(p.style(p.ok, "[✓]") + " downloading " + name)
}

// AlreadyDownloaded announces a media file skipped because it exists
func (p *Printer) AlreadyDownloaded(name string) {
	p.println(p.style(p.skip, "[✗]") + " " + name + " was already downloaded.")
}

// Failed reports a media file that could not be saved
func (p *Printer) Failed(name string, err error) {
	p.println(p.style(p.fail, "[!]") + fmt.Sprintf(" %s: %v", name, err))
}

// Error prints a failure that is not tied to a single file
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	p.println(p.style(p.fail, msg))
}

// Info prints a label and value pair
func (p *Printer) Info(label, value string) {
	p.println(p.style(p.label, label+":") + " " + p.style(p.value, value))
}

// UserSummary prints the result of archiving one user
func (p *Printer) UserSummary(username string, posts, saved int, elapsed time.Duration) {
	p.Info(username, fmt.Sprintf("%d posts, %d new files in %s", posts, saved, elapsed.Round(time.Millisecond)))
}

// TotalTime prints the run's wall-clock duration
func (p *Printer) TotalTime(d time.Duration) {
	p.println(fmt.Sprintf("Total time: %s", d))
}
