package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Formatter prints diagnostics with a source line and caret marker.
type Formatter struct {
	out         io.Writer
	sourceCache map[string]string
}

// NewFormatter creates a formatter writing to stderr.
func NewFormatter() *Formatter {
	return &Formatter{
		out:         os.Stderr,
		sourceCache: make(map[string]string),
	}
}

// NewFormatterTo creates a formatter writing to the given sink.
func NewFormatterTo(out io.Writer) *Formatter {
	return &Formatter{
		out:         out,
		sourceCache: make(map[string]string),
	}
}

// SetSource seeds the source cache for a filename, so snippets can be shown
// without re-reading the file (the CLI already holds the text in memory).
func (f *Formatter) SetSource(filename, src string) {
	f.sourceCache[filename] = src
}

// Format prints a single diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	if !d.Span.IsValid() {
		fmt.Fprintf(f.out, "%s: %s\n", d.Severity, d.Message)
		return
	}

	fmt.Fprintf(f.out, "%s: %s: %s\n", d.Span, d.Severity, d.Message)

	src, ok := f.loadSource(d.Span.Filename)
	if !ok {
		return
	}
	lines := strings.Split(src, "\n")
	if d.Span.Line > len(lines) {
		return
	}
	line := lines[d.Span.Line-1]
	fmt.Fprintf(f.out, "  %s\n", line)

	width := 1
	if d.Span.EndLine == d.Span.Line && d.Span.EndColumn > d.Span.Column {
		width = d.Span.EndColumn - d.Span.Column
	}
	if d.Span.Column-1+width > len(line)+1 {
		width = 1
	}
	fmt.Fprintf(f.out, "  %s%s\n", strings.Repeat(" ", d.Span.Column-1), strings.Repeat("^", width))
}

// FormatAll prints every diagnostic in order.
func (f *Formatter) FormatAll(diags []Diagnostic) {
	for _, d := range diags {
		f.Format(d)
	}
}

func (f *Formatter) loadSource(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	if src, ok := f.sourceCache[filename]; ok {
		return src, true
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", false
	}
	f.sourceCache[filename] = string(data)
	return string(data), true
}
