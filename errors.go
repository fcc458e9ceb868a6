package chp

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dudecc/chpsim/ascii"
	pkgerrors "github.com/pkg/errors"
)

// errOut is where diagnostics are written; overridable by tests.
var errOut io.Writer = os.Stderr

// Severity distinguishes fatal diagnostics from advisory ones.
// Warnings never trigger a recovery jump; errors do.
type Severity int

const (
	SevError Severity = iota
	SevWarning
)

func (s Severity) String() string {
	if s == SevWarning {
		return "Warning"
	}
	return "Error"
}

// Diagnostic is the uniform shape for every lex/parse/resolver/sem
// problem, so the driver can print them all the same way:
// "path[line:col] Error|Warning: message".
type Diagnostic struct {
	Pos      Pos
	Severity Severity
	Message  string
	Line     string // source line, for the caret excerpt; may be empty
}

func (d Diagnostic) Error() string { return d.String() }

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", d.Pos, d.Severity, d.Message)
	if d.Line != "" {
		b.WriteByte('\n')
		b.WriteString(caretExcerpt(d.Line, d.Pos))
	}
	return b.String()
}

// Print writes the diagnostic to errOut: the severity line in red or
// yellow depending on d.Severity, followed by its source excerpt (if
// any) in a distinct color so the caret underline stands out from the
// message above it.
func (d Diagnostic) Print() {
	color := ascii.DefaultTheme.Error
	if d.Severity == SevWarning {
		color = ascii.DefaultTheme.Warning
	}
	fmt.Fprint(errOut, ascii.Color(color, "%s %s: %s", d.Pos, d.Severity, d.Message))
	if d.Line == "" {
		fmt.Fprintln(errOut)
		return
	}
	fmt.Fprintln(errOut)
	fmt.Fprintln(errOut, ascii.Color(ascii.DefaultTheme.Excerpt, "%s", caretExcerpt(d.Line, d.Pos)))
}

// ParseError is produced when the parser needs a token it didn't get.
// It carries the expected set so diagnostics can render
// "expected X or Y, found Z".
type ParseError struct {
	Pos      Pos
	Expected []TokenKind
	Found    Token
	Message  string // overrides the generic "expected/found" message when set
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Pos, e.message())
}

func (e *ParseError) message() string {
	if e.Message != "" {
		return e.Message
	}
	names := make([]string, len(e.Expected))
	for i, k := range e.Expected {
		names[i] = TokenStr(k)
	}
	return fmt.Sprintf("expected %s, found %s", strings.Join(names, " or "), TokenStr(e.Found.Kind))
}

// Diagnostic converts a ParseError into the uniform Diagnostic shape.
func (e *ParseError) Diagnostic(line string) Diagnostic {
	return Diagnostic{Pos: e.Pos, Severity: SevError, Message: e.message(), Line: line}
}

// ResolverError covers required-module lookup failures: not found,
// self-dependency, required path is a directory, or an I/O failure
// other than "does not exist" encountered while probing the search
// path.
type ResolverError struct {
	Pos     Pos
	Message string
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Pos, e.Message)
}

func (e *ResolverError) Diagnostic() Diagnostic {
	return Diagnostic{Pos: e.Pos, Severity: SevError, Message: e.Message}
}

// SemError covers every semantic-analysis failure: duplicate
// declaration, unknown identifier, import conflict at use site,
// out-of-scope variable reference, type mismatch, non-constant where
// a constant is required, replicator misuse, and misplaced
// control-flow constructs.
type SemError struct {
	Pos     Pos
	Message string
}

func (e *SemError) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Pos, e.Message)
}

func (e *SemError) Diagnostic() Diagnostic {
	return Diagnostic{Pos: e.Pos, Severity: SevError, Message: e.Message}
}

// InternalError represents a broken invariant: a dispatch slot that
// was required but never registered, or similar. It is always fatal;
// when one reaches the analyzer's report path, diagnosticOf renders it
// as a Diagnostic with no source position. cause carries
// a captured stack trace (via pkg/errors) so a crash report points at
// the dispatch site, not just the top-level caller that observed it.
type InternalError struct {
	Message string
	cause   error
}

func (e *InternalError) Error() string { return "internal error: " + e.Message }

// Unwrap exposes the stack-carrying cause to errors.As/errors.Is and
// to pkg/errors' %+v formatting.
func (e *InternalError) Unwrap() error { return e.cause }

// StackTrace renders the call stack captured when the invariant broke.
func (e *InternalError) StackTrace() string {
	if e.cause == nil {
		return ""
	}
	return fmt.Sprintf("%+v", e.cause)
}

func newInternalError(format string, args ...any) *InternalError {
	msg := fmt.Sprintf(format, args...)
	return &InternalError{Message: msg, cause: pkgerrors.New(msg)}
}

// Recovery is the Go-idiomatic stand-in for the source's setjmp-based
// recovery point: instead of a non-local jump, each pipeline stage
// returns a Go error (or []Diagnostic) up the call stack, and the
// driver decides whether to keep going. Installing a Recovery means
// "collect diagnostics instead of stopping at the first one"; a
// strict Recovery reports (and exits on) the first error, matching
// "no recovery point set" in the spec.
type Recovery struct {
	Strict bool
	diags  []Diagnostic
}

// NewRecovery creates a recovery point that accumulates diagnostics
// rather than aborting, mirroring a registered setjmp target.
func NewRecovery() *Recovery { return &Recovery{} }

// Report records a diagnostic. In strict mode it is also printed
// immediately and the process exits with status 1, matching "no
// recovery point installed" for semantic errors; warnings never exit.
func (r *Recovery) Report(d Diagnostic) {
	r.diags = append(r.diags, d)
	if r.Strict {
		d.Print()
		if d.Severity == SevError {
			os.Exit(1)
		}
	}
}

// Diagnostics returns every diagnostic collected so far.
func (r *Recovery) Diagnostics() []Diagnostic { return r.diags }

// HasErrors reports whether any SevError diagnostic was recorded.
func (r *Recovery) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == SevError {
			return true
		}
	}
	return false
}

// PrintAll writes every collected diagnostic to errOut in order.
func (r *Recovery) PrintAll() {
	for _, d := range r.diags {
		d.Print()
	}
}
