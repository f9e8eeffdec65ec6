// Package writer provides indentation-aware text building for the binding
// generators.
package writer

import (
	"fmt"
	"strings"
)

// Writer accumulates generated source text with automatic indentation.
type Writer struct {
	sb          strings.Builder
	indent      int
	indentUnit  string
	prefix      string
	needsIndent bool
}

// NewWriter creates a writer using the given indentation unit ("\t" for C,
// "    " for Python, "  " for TypeScript).
func NewWriter(indentUnit string) *Writer {
	return &Writer{indentUnit: indentUnit, needsIndent: true}
}

// Indent increases the indentation level.
func (w *Writer) Indent() {
	w.indent++
	w.prefix = strings.Repeat(w.indentUnit, w.indent)
}

// Dedent decreases the indentation level.
func (w *Writer) Dedent() {
	if w.indent > 0 {
		w.indent--
		w.prefix = strings.Repeat(w.indentUnit, w.indent)
	}
}

// Write appends a string to the current line.
func (w *Writer) Write(s string) {
	if w.needsIndent && s != "" {
		w.sb.WriteString(w.prefix)
		w.needsIndent = false
	}
	w.sb.WriteString(s)
}

// Writef appends a formatted string to the current line.
func (w *Writer) Writef(format string, args ...interface{}) {
	w.Write(fmt.Sprintf(format, args...))
}

// WriteLine appends a full line.
func (w *Writer) WriteLine(s string) {
	w.Write(s)
	w.Newline()
}

// WriteLinef appends a formatted full line.
func (w *Writer) WriteLinef(format string, args ...interface{}) {
	w.Writef(format, args...)
	w.Newline()
}

// Newline terminates the current line.
func (w *Writer) Newline() {
	w.sb.WriteString("\n")
	w.needsIndent = true
}

// BlankLine inserts a separating empty line, collapsing runs of them.
func (w *Writer) BlankLine() {
	if w.sb.Len() > 0 && !strings.HasSuffix(w.sb.String(), "\n\n") {
		w.Newline()
	}
}

// WriteCommentBlock writes each line of doc prefixed with the given comment
// leader ("// ", "# "). Empty docs produce nothing.
func (w *Writer) WriteCommentBlock(leader, doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(doc), "\n") {
		w.WriteLine(strings.TrimRight(leader+strings.TrimSpace(line), " "))
	}
}

// String returns the accumulated text.
func (w *Writer) String() string {
	return w.sb.String()
}

// Bytes returns the accumulated text as bytes.
func (w *Writer) Bytes() []byte {
	return []byte(w.sb.String())
}
