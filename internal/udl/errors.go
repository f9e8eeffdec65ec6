package udl

import "fmt"

// SyntaxError reports malformed UDL source text. It always carries the
// position of the offending token so the schema author can fix the input.
type SyntaxError struct {
	Pos     Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

func syntaxErrorf(pos Position, format string, args ...interface{}) error {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
