package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Indentation(t *testing.T) {
	// Test plan:
	// - Lines pick up the current indentation prefix
	// - Dedent below zero is a no-op
	// - Partial writes only indent the start of a line

	w := NewWriter("    ")
	w.WriteLine("def f():")
	w.Indent()
	w.WriteLine("pass")
	w.Dedent()
	w.Dedent()
	w.WriteLine("done")

	assert.Equal(t, "def f():\n    pass\ndone\n", w.String())

	w = NewWriter("\t")
	w.Indent()
	w.Write("a")
	w.Writef(" = %d", 1)
	w.Newline()
	assert.Equal(t, "\ta = 1\n", w.String())
}

func TestWriter_BlankLine(t *testing.T) {
	// Test plan:
	// - BlankLine separates sections but collapses repeats
	// - BlankLine at the very start writes nothing

	w := NewWriter("  ")
	w.BlankLine()
	w.WriteLine("one")
	w.BlankLine()
	w.BlankLine()
	w.WriteLine("two")

	assert.Equal(t, "one\n\ntwo\n", w.String())
}

func TestWriter_CommentBlock(t *testing.T) {
	// Test plan:
	// - Multi-line docs get the leader per line
	// - Empty docs produce nothing

	w := NewWriter("  ")
	w.WriteCommentBlock("# ", "First line.\nSecond line.")
	assert.Equal(t, "# First line.\n# Second line.\n", w.String())

	w = NewWriter("  ")
	w.WriteCommentBlock("// ", "")
	assert.Equal(t, "", w.String())

	assert.Equal(t, []byte(""), NewWriter("  ").Bytes())
}
