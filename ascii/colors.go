// Package ascii holds the terminal color codes the front-end's
// diagnostic printer uses, grouped into a Theme so the meaning of a
// color (severity vs. source excerpt) stays separate from its escape
// sequence.
package ascii

import "fmt"

const (
	Reset  = "\033[0m"
	Red    = "\033[1;31m"
	Yellow = "\033[1;33m"

	// 256-color palette
	Orange = "\033[38;5;208m"
)

// Theme maps the parts of a printed Diagnostic (§7's lex/parse/
// resolver/sem error format) to a color: the severity word and
// position prefix, and the source-line/caret excerpt underneath it.
type Theme struct {
	Error   string // SevError diagnostics
	Warning string // SevWarning diagnostics
	Excerpt string // the source line + caret(s) under a diagnostic
}

// DefaultTheme is the palette Diagnostic.Print renders with.
var DefaultTheme = Theme{
	Error:   Red,
	Warning: Yellow,
	Excerpt: Orange,
}

func Color(color, format string, args ...any) string {
	return fmt.Sprintf(color+format+Reset, args...)
}
