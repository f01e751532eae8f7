package types

import "fmt"

// position is a location in a type-grammar source string, used only for
// parse-error messages. Trimmed down from the teacher's lexer.Position:
// the type grammar has no multi-file compilation to support, so Filename
// is dropped and only Line/Column survive.
type position struct {
	Line   int
	Column int
}

func (p position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
