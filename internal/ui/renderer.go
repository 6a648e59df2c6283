package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Renderer handles all terminal output with consistent styling.
type Renderer struct {
	out     io.Writer
	err     io.Writer
	noColor bool
	quiet   bool

	// dotting is true while a run of progress dots is on the current
	// terminal line and still needs a newline.
	dotting bool
}

// NewRenderer creates a new Renderer with default settings.
func NewRenderer() *Renderer {
	return &Renderer{
		out: os.Stdout,
		err: os.Stderr,
	}
}

// Option is a functional option for configuring the Renderer.
type Option func(*Renderer)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(r *Renderer) {
		r.out = w
	}
}

// WithError sets the error writer.
func WithError(w io.Writer) Option {
	return func(r *Renderer) {
		r.err = w
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) Option {
	return func(r *Renderer) {
		r.noColor = noColor
	}
}

// WithQuiet enables quiet mode (suppresses status messages and progress).
func WithQuiet(quiet bool) Option {
	return func(r *Renderer) {
		r.quiet = quiet
	}
}

// NewRendererWithOptions creates a new Renderer with the given options.
func NewRendererWithOptions(opts ...Option) *Renderer {
	r := NewRenderer()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// render applies styling if color is enabled.
func (r *Renderer) render(style lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return style.Render(text)
}

// --- Status and Messages ---

// Status prints a status message (suppressed in quiet mode).
func (r *Renderer) Status(format string, args ...any) {
	if r.quiet {
		return
	}
	r.EndProgress()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(StatusStyle, msg))
}

// Info prints an informational message.
func (r *Renderer) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.out, msg)
}

// Success prints a success message.
func (r *Renderer) Success(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.out, r.render(SuccessStyle, msg))
}

// Warning prints a warning message.
func (r *Renderer) Warning(format string, args ...any) {
	r.EndProgress()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(WarningStyle, "Warning: "+msg))
}

// Error prints an error message.
func (r *Renderer) Error(format string, args ...any) {
	r.EndProgress()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(ErrorStyle, "Error: "+msg))
}

// Debug prints a debug message (only when verbose).
func (r *Renderer) Debug(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(r.err, r.render(MutedStyle, "[DEBUG] "+msg))
}

// --- Progress ---

// ProgressDot emits a single dot so an operator can see the relay is alive
// inside a large member. Suppressed in quiet mode.
func (r *Renderer) ProgressDot() {
	if r.quiet {
		return
	}
	fmt.Fprint(r.err, ".")
	r.dotting = true
}

// EndProgress terminates a run of progress dots with a newline.
func (r *Renderer) EndProgress() {
	if !r.dotting {
		return
	}
	fmt.Fprintln(r.err)
	r.dotting = false
}

// --- Formatted Output ---

// KeyValue prints a key-value pair.
func (r *Renderer) KeyValue(key, value string) {
	label := r.render(LabelStyle, key+":")
	fmt.Fprintf(r.out, "%s %s\n", label, value)
}

// KeyValueIndent prints an indented key-value pair.
func (r *Renderer) KeyValueIndent(key, value string, indent int) {
	prefix := strings.Repeat("  ", indent)
	label := r.render(LabelStyle, key+":")
	fmt.Fprintf(r.out, "%s%s %s\n", prefix, label, value)
}

// Section prints a section title.
func (r *Renderer) Section(title string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.render(SectionTitleStyle, title))
}

// Newline prints a blank line.
func (r *Renderer) Newline() {
	fmt.Fprintln(r.out)
}
