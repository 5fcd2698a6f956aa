// Package ui renders brick's user-facing console output.
//
// Output is plain status lines decorated with a fixed colour palette
// (bold, underline, padding). Colour codes are only emitted when the
// destination writer is a terminal, so tests and piped output receive
// the bare text.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Brand colours of the palette.
const (
	colorPrimary   = "#07AAFF"
	colorSecondary = "#FFC05B"
	colorTertiary  = "#f14fa1"
	colorError     = "9"  // ANSI bright red
	colorSuccess   = "2"  // ANSI green
	colorVersion   = "12" // ANSI bright blue
)

// Palette is the immutable set of styles used by a Printer. It is built
// once per process and passed to the Printer explicitly.
type Palette struct {
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Tertiary  lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Version   lipgloss.Style
}

// NewPalette builds the default palette for the given renderer. The
// renderer decides whether colours are emitted based on its output.
func NewPalette(r *lipgloss.Renderer) Palette {
	return Palette{
		Primary:   r.NewStyle().Foreground(lipgloss.Color(colorPrimary)),
		Secondary: r.NewStyle().Foreground(lipgloss.Color(colorSecondary)),
		Tertiary:  r.NewStyle().Foreground(lipgloss.Color(colorTertiary)),
		Error:     r.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true),
		Success:   r.NewStyle().Foreground(lipgloss.Color(colorSuccess)).Bold(true),
		Version:   r.NewStyle().Foreground(lipgloss.Color(colorVersion)),
	}
}

// Printer writes decorated status lines to a writer.
type Printer struct {
	w       io.Writer
	palette Palette
}

// NewPrinter creates a Printer whose palette is rendered for w.
func NewPrinter(w io.Writer) *Printer {
	return NewPrinterWithPalette(w, NewPalette(lipgloss.NewRenderer(w)))
}

// NewPrinterWithPalette creates a Printer with an explicit palette.
func NewPrinterWithPalette(w io.Writer, palette Palette) *Printer {
	return &Printer{w: w, palette: palette}
}

// Writer returns the underlying destination.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Banner prints a bold, primary-coloured section header.
func (p *Printer) Banner(msg string) {
	p.line(p.palette.Primary.Bold(true).Render("  " + msg))
}

// Step prints a primary-coloured progress line.
func (p *Printer) Step(msg string) {
	p.line(p.palette.Primary.Render("  " + msg))
}

// Notice prints a tertiary-coloured informational line.
func (p *Printer) Notice(msg string) {
	p.line(p.palette.Tertiary.Render("  " + msg))
}

// Success prints a success line.
func (p *Printer) Success(msg string) {
	p.line(p.palette.Success.Render("  " + msg))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	p.line(p.palette.Error.Render("  " + msg))
}

// Version prints a version string.
func (p *Printer) Version(version string) {
	p.line(p.palette.Version.Render(version))
}

// URL prints an address line such as "    Local:   http://localhost:8000/".
// Labels are indented and padded so that the URLs line up.
func (p *Printer) URL(label, url string) {
	padded := fmt.Sprintf("    %-8s", label)
	p.line(p.palette.Secondary.Render(padded) + " " + p.palette.Secondary.Underline(true).Render(url))
}

// Changed prints a watched file change notification.
func (p *Printer) Changed(relPath string) {
	p.line(p.palette.Tertiary.Bold(true).Render("    "+relPath) + " " + p.palette.Tertiary.Render("has changed..."))
}

// Raw prints text without decoration. Empty text prints nothing.
func (p *Printer) Raw(text string) {
	if text == "" {
		return
	}
	_, _ = io.WriteString(p.w, text)
	if text[len(text)-1] != '\n' {
		_, _ = io.WriteString(p.w, "\n")
	}
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	p.line("")
}

func (p *Printer) line(s string) {
	_, _ = fmt.Fprintln(p.w, s)
}
