package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cbout22/ghdir/internal/orchestrator"
)

// printer writes user-facing output. Logs go elsewhere.
type printer struct {
	w     io.Writer
	plain bool

	mu      sync.Mutex
	drawing bool // a \r progress line is on screen
}

func newPrinter(w io.Writer, plain bool) *printer {
	return &printer{w: w, plain: plain}
}

func (p *printer) info(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLine()
	fmt.Fprintln(p.w, msg)
}

// progress redraws a single status line; it is called in completion order.
func (p *printer) progress(pg orchestrator.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\rDownloading %d/%d files... (%s)", pg.Completed, pg.Total, pg.Path)
	p.drawing = true
	if pg.Completed == pg.Total {
		p.endLine()
	}
}

func (p *printer) failure(path string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLine()
	fmt.Fprintf(p.w, "  ✗ %s: %v\n", path, err)
}

// summary prints lines framed in a box, or as-is in plain mode.
func (p *printer) summary(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLine()

	if p.plain {
		for _, l := range lines {
			fmt.Fprintln(p.w, l)
		}
		return
	}
	fmt.Fprint(p.w, box(lines))
}

func (p *printer) endLine() {
	if p.drawing {
		fmt.Fprintln(p.w)
		p.drawing = false
	}
}

// box frames lines with rounded box-drawing characters and one column of
// padding.
func box(lines []string) string {
	width := 0
	for _, l := range lines {
		width = max(width, utf8.RuneCountInString(l))
	}

	var b strings.Builder
	b.WriteString("╭" + strings.Repeat("─", width+2) + "╮\n")
	for _, l := range lines {
		pad := width - utf8.RuneCountInString(l)
		b.WriteString("│ " + l + strings.Repeat(" ", pad) + " │\n")
	}
	b.WriteString("╰" + strings.Repeat("─", width+2) + "╯\n")
	return b.String()
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// formatSize renders n bytes with two decimals in the largest unit that
// keeps the value at or above 1.
func formatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	v := float64(n)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[i])
}
