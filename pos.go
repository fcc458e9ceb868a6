package chp

import "fmt"

// Pos is a source location: the file it came from, a 1-based line
// number, and a half-open column span [Start, End) into that line's
// buffer, as described by the lexer's line/column model. Columns are
// 0-based byte offsets within the current line.
type Pos struct {
	File  string
	Line  int
	Start int
	End   int
}

// String renders a position the way diagnostics print it:
// "path[line:col]" for an empty span, "path[line:start..end]"
// otherwise.
func (p Pos) String() string {
	if p.Start == p.End {
		return fmt.Sprintf("%s[%d:%d]", p.File, p.Line, p.Start)
	}
	return fmt.Sprintf("%s[%d:%d..%d]", p.File, p.Line, p.Start, p.End)
}

// Contains reports whether the column c falls within [Start, End).
func (p Pos) Contains(c int) bool { return c >= p.Start && c < p.End }

// Join returns the smallest Pos spanning both p and o. Both must
// belong to the same file and line; if they don't, p is returned
// unchanged (this only happens for synthetic nodes and is harmless
// since they're not used for carets).
func (p Pos) Join(o Pos) Pos {
	if p.File != o.File || p.Line != o.Line {
		return p
	}
	start, end := p.Start, p.End
	if o.Start < start {
		start = o.Start
	}
	if o.End > end {
		end = o.End
	}
	return Pos{File: p.File, Line: p.Line, Start: start, End: end}
}

// NoPos is the zero value, for synthetic nodes that have no source
// location.
var NoPos = Pos{}
