// Package render formats search results for terminals and logs.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sanonone/wikihop/pkg/search"
)

// DefaultBaseURL prefixes every rendered title.
const DefaultBaseURL = "https://en.wikipedia.org/wiki/"

// Arrows placed after a title, chosen by how the next title was reached.
const (
	ArrowDirect     = " ->"
	ArrowRedirect   = " =>"
	ArrowNormalized = " ~>"
)

// Renderer turns paths into chains of page URLs.
type Renderer struct {
	baseURL string
	color   bool
	printer *message.Printer

	title    lipgloss.Style
	arrow    lipgloss.Style
	redirect lipgloss.Style
	summary  lipgloss.Style
	failure  lipgloss.Style
}

// New creates a renderer. color enables lipgloss styling.
func New(baseURL string, color bool) *Renderer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Renderer{
		baseURL:  baseURL,
		color:    color,
		printer:  message.NewPrinter(language.English),
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		arrow:    lipgloss.NewStyle().Faint(true),
		redirect: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		summary:  lipgloss.NewStyle().Bold(true),
		failure:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// URL returns the page URL of title. Only bytes that cannot appear in a URL
// path are escaped; parentheses, commas and slashes are kept as written.
func (r *Renderer) URL(title string) string {
	return r.baseURL + escapePath(title)
}

func escapePath(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if pathSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// pathSafe reports whether c may appear unescaped in a URL path. Controls,
// non-ASCII bytes and the delimiters of a URL or of percent-encoding are not.
func pathSafe(c byte) bool {
	if c <= ' ' || c >= 0x7f {
		return false
	}
	switch c {
	case '"', '#', '%', '<', '>', '?', '`', '{', '}':
		return false
	}
	return true
}

// Arrow returns the arrow that leads to a title reached by kind.
func Arrow(kind search.HopKind) string {
	switch kind {
	case search.HopRedirect:
		return ArrowRedirect
	case search.HopNormalized:
		return ArrowNormalized
	}
	return ArrowDirect
}

// Path renders one URL per line, each followed by the arrow to the next.
func (r *Renderer) Path(path []search.Hop) string {
	var b strings.Builder
	for i, hop := range path {
		line := r.URL(hop.Title)
		if r.color {
			if hop.Kind == search.HopRedirect || hop.Kind == search.HopNormalized {
				line = r.redirect.Render(line)
			} else {
				line = r.title.Render(line)
			}
		}
		b.WriteString(line)
		if i+1 < len(path) {
			arrow := Arrow(path[i+1].Kind)
			if r.color {
				arrow = r.arrow.Render(arrow)
			}
			b.WriteString(arrow)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Summary describes the outcome of res in one line.
func (r *Renderer) Summary(res *search.Result) string {
	elapsed := res.Stats.Elapsed.Round(time.Millisecond)
	var line string
	style := r.summary
	switch res.Outcome {
	case search.Found:
		line = r.printer.Sprintf("Found %q -> %q in %d hops after exploring %d titles (%s)",
			res.Start, res.Goal, res.DirectHops(), res.Stats.Explored, elapsed)
	case search.Exhausted:
		line = r.printer.Sprintf("No path from %q to %q: explored %d titles (%s)",
			res.Start, res.Goal, res.Stats.Explored, elapsed)
		style = r.failure
	default:
		line = r.printer.Sprintf("Gave up on %q -> %q after exploring %d titles (%s)",
			res.Start, res.Goal, res.Stats.Explored, elapsed)
		style = r.failure
	}
	if r.color {
		return style.Render(line)
	}
	return line
}

// Progress formats a progress snapshot with grouped digits.
func (r *Renderer) Progress(s search.Stats) string {
	return r.printer.Sprintf("explored %d titles, visited %d, frontier %d, depth %d",
		s.Explored, s.Visited, s.Frontier, s.Depth)
}

// Result writes the summary followed by the path, if any.
func (r *Renderer) Result(w io.Writer, res *search.Result) error {
	if _, err := fmt.Fprintln(w, r.Summary(res)); err != nil {
		return err
	}
	if res.Outcome != search.Found {
		return nil
	}
	_, err := io.WriteString(w, r.Path(res.Path))
	return err
}
