package chp

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Mode governs the lexer's interactive-vs-file behavior. File mode
// (the zero value) treats newline as insignificant whitespace and
// recognizes every keyword; command mode is used by the interactive
// debugger driver (out of scope here, but the lexer still carries the
// flags it toggles).
type Mode struct {
	Command  bool // newline is a token; end-of-line "//" comments disabled
	Keyword  bool // recognize keywords while in command mode
	Filename bool // next token is consumed verbatim as a path
	Readline bool // use line editing/history when prompting
}

// LexError is returned for any lex-time failure: illegal byte,
// invalid literal, unterminated string/char, unknown escape,
// unbalanced comment marker. It always carries enough of the source
// line to render a caret-annotated excerpt.
type LexError struct {
	Pos     Pos
	Message string
	Line    string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s Error: %s\n%s", e.Pos, e.Message, caretExcerpt(e.Line, e.Pos))
}

func caretExcerpt(line string, p Pos) string {
	var b strings.Builder
	b.WriteString(line)
	if !strings.HasSuffix(line, "\n") {
		b.WriteByte('\n')
	}
	col := p.Start
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	b.WriteString(strings.Repeat(" ", col))
	width := p.End - p.Start
	if width < 1 {
		width = 1
	}
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}

// Lexer tokenizes a byte stream. It keeps two tokens (curr, prev) so
// one-token lookback is always available without a generalized
// history buffer.
type Lexer struct {
	file string
	src  *bufio.Reader

	line    string // current line's buffer, growable per ReadString call
	lineNo  int
	cursor  int // byte offset into line
	tokStart int

	curr, prev Token
	haveCurr   bool

	mode Mode

	// disableKeywords, when set in command mode, makes the lexer
	// return plain identifiers even for keyword spellings (so
	// `step` can name a variable); Redo re-scans under the new
	// setting.
	disableKeywords bool

	atEOF bool
}

// NewLexer allocates a lexer with no associated input; call
// StartFile or PromptCommand before Next.
func NewLexer() *Lexer { return &Lexer{} }

// StartFile begins scanning a file: it stores the path (used in
// diagnostics) and primes the line buffer.
func (l *Lexer) StartFile(path string, r io.Reader) error {
	l.file = path
	l.src = bufio.NewReader(r)
	l.line = ""
	l.lineNo = 0
	l.cursor = 0
	l.atEOF = false
	l.haveCurr = false
	return l.nextLine()
}

// PromptCommand reads one line from prompt-style input (interactive
// mode), re-initializes the lexer buffers around it, scans the first
// token and returns its kind. It returns TokEOF when the caller
// signals end of input by returning io.EOF from the reader.
func (l *Lexer) PromptCommand(r *bufio.Reader, prompt string) (TokenKind, error) {
	l.mode.Command = true
	fmt.Print(prompt)
	text, err := r.ReadString('\n')
	if err != nil && text == "" {
		return TokEOF, nil
	}
	l.file = "<command>"
	l.src = nil
	l.line = text
	l.lineNo++
	l.cursor = 0
	l.atEOF = false
	l.haveCurr = false
	tok, err := l.Next()
	if err != nil {
		return TokEOF, err
	}
	return tok.Kind, nil
}

func (l *Lexer) nextLine() error {
	if l.src == nil {
		l.atEOF = true
		l.line = ""
		return nil
	}
	text, err := l.src.ReadString('\n')
	if err == io.EOF && text == "" {
		l.atEOF = true
		l.line = ""
		return nil
	}
	if err != nil && err != io.EOF {
		return err
	}
	l.line = text
	l.lineNo++
	l.cursor = 0
	return nil
}

func (l *Lexer) errAt(start, end int, format string, args ...any) *LexError {
	return &LexError{
		Pos:     Pos{File: l.file, Line: l.lineNo, Start: start, End: end},
		Message: fmt.Sprintf(format, args...),
		Line:    l.line,
	}
}

func (l *Lexer) peek() byte {
	if l.cursor >= len(l.line) {
		return 0
	}
	return l.line[l.cursor]
}

func (l *Lexer) peekAt(off int) byte {
	if l.cursor+off >= len(l.line) {
		return 0
	}
	return l.line[l.cursor+off]
}

// Curr returns the token most recently produced by Next.
func (l *Lexer) Curr() Token { return l.curr }

// Prev returns the token before Curr.
func (l *Lexer) Prev() Token { return l.prev }

// Redo re-scans the current token from its start column, used after a
// mode flag (keyword recognition) changes in command mode. This only
// works because the lexer always records tokStart.
func (l *Lexer) Redo() (Token, error) {
	l.cursor = l.tokStart
	return l.Next()
}

// Next advances the lexer and returns the next token, or a *LexError
// for invalid input.
func (l *Lexer) Next() (Token, error) {
	tok, err := l.scan()
	if err != nil {
		return Token{}, err
	}
	l.prev = l.curr
	l.curr = tok
	l.haveCurr = true
	return tok, nil
}

func (l *Lexer) scan() (Token, error) {
	for {
		if err := l.skipSpaceAndComments(); err != nil {
			return Token{}, err
		}
		if l.atEOF {
			return Token{Kind: TokEOF, Pos: Pos{File: l.file, Line: l.lineNo, Start: l.cursor, End: l.cursor}}, nil
		}
		if l.cursor >= len(l.line) {
			if l.mode.Command {
				return Token{Kind: TokNewline, Pos: Pos{File: l.file, Line: l.lineNo, Start: l.cursor, End: l.cursor}}, nil
			}
			if err := l.nextLine(); err != nil {
				return Token{}, err
			}
			if l.atEOF {
				return Token{Kind: TokEOF, Pos: Pos{File: l.file, Line: l.lineNo, Start: l.cursor, End: l.cursor}}, nil
			}
			continue
		}
		break
	}

	l.tokStart = l.cursor
	c := l.peek()

	switch {
	case isIdentStart(c):
		return l.scanIdentOrInstance()
	case c == '`':
		return l.scanSymbol()
	case c == '\'':
		return l.scanChar()
	case c == '"':
		return l.scanString()
	case isDigit(c):
		return l.scanNumber()
	case c == '.' && isDigit(l.peekAt(1)):
		return l.scanNumber()
	case c == '/' && l.mode.Filename:
		return l.scanFilenameToken()
	default:
		return l.scanOperator()
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) skipSpaceAndComments() error {
	for {
		if l.atEOF {
			return nil
		}
		if l.cursor >= len(l.line) {
			return nil
		}
		c := l.peek()
		if c == ' ' || c == '\t' || c == '\r' {
			l.cursor++
			continue
		}
		if c == '\n' {
			if l.mode.Command {
				return nil
			}
			l.cursor++
			continue
		}
		if c == '/' && l.peekAt(1) == '/' && !l.mode.Command {
			// line comment: consume to end of buffer, next
			// refill will move past it.
			l.cursor = len(l.line)
			continue
		}
		if c == '/' && l.peekAt(1) == '*' {
			if err := l.skipBlockComment(); err != nil {
				return err
			}
			continue
		}
		if c == '*' && l.peekAt(1) == '/' {
			return l.errAt(l.cursor, l.cursor+2, "unexpected `*/` outside of a comment")
		}
		return nil
	}
}

// skipBlockComment consumes a balanced /* ... */ comment. A nested
// "/*" is a warning (printed, not fatal); an unterminated comment at
// EOF is silently closed.
func (l *Lexer) skipBlockComment() error {
	l.cursor += 2
	depth := 1
	for depth > 0 {
		if l.cursor >= len(l.line) {
			if err := l.nextLine(); err != nil {
				return err
			}
			if l.atEOF {
				return nil // silently closed at EOF
			}
			continue
		}
		if l.peek() == '*' && l.peekAt(1) == '/' {
			depth--
			l.cursor += 2
			continue
		}
		if l.peek() == '/' && l.peekAt(1) == '*' {
			fmt.Fprintf(errOut, "%s[%d:%d] Warning: nested `/*` inside a comment\n",
				l.file, l.lineNo, l.cursor)
			depth++
			l.cursor += 2
			continue
		}
		l.cursor++
	}
	return nil
}

func (l *Lexer) scanIdentOrInstance() (Token, error) {
	if l.peek() == '/' {
		return l.scanInstanceName()
	}
	start := l.cursor
	for l.cursor < len(l.line) && isIdentCont(l.peek()) {
		l.cursor++
	}
	text := l.line[start:l.cursor]
	return l.finishIdent(text, start)
}

func (l *Lexer) finishIdent(text string, start int) (Token, error) {
	pos := Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}
	if isAllAlpha(text) && !(l.mode.Command && l.disableKeywords) {
		folded := strings.ToLower(text)
		if kind, ok := keywordTable[folded]; ok {
			return Token{Kind: kind, Text: text, Pos: pos}, nil
		}
	}
	return Token{Kind: TokIdent, Text: text, Pos: pos}, nil
}

func isAllAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_') {
			return false
		}
	}
	return true
}

// scanInstanceName recognizes command-mode hierarchical process
// paths like /a/b[2]/c: a leading '/' followed by identifiers and
// bracketed indices.
func (l *Lexer) scanInstanceName() (Token, error) {
	start := l.cursor
	for l.cursor < len(l.line) {
		c := l.peek()
		if c == '/' || isIdentCont(c) || c == '[' || c == ']' {
			l.cursor++
			continue
		}
		break
	}
	text := l.line[start:l.cursor]
	return Token{Kind: TokInstance, Text: text, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
}

func (l *Lexer) scanSymbol() (Token, error) {
	start := l.cursor
	l.cursor++ // consume backtick
	idStart := l.cursor
	if !isIdentStart(l.peek()) {
		return Token{}, l.errAt(start, l.cursor+1, "expected identifier after `` ` ``")
	}
	for l.cursor < len(l.line) && isIdentCont(l.peek()) {
		l.cursor++
	}
	name := l.line[idStart:l.cursor]
	return Token{Kind: TokSymbol, Text: name, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
}

var escapeValues = map[byte]byte{
	'n': '\n', 't': '\t', 'v': '\v', 'b': '\b', 'r': '\r', 'f': '\f', 'a': '\a',
	'\\': '\\', '\'': '\'', '"': '"',
	'q': 0x11, // XON
	's': 0x13, // XOFF
}

func (l *Lexer) scanEscape() (byte, error) {
	start := l.cursor
	l.cursor++ // consume backslash
	if l.cursor >= len(l.line) {
		return 0, l.errAt(start, l.cursor, "unterminated escape sequence")
	}
	c := l.peek()
	v, ok := escapeValues[c]
	if !ok {
		return 0, l.errAt(start, l.cursor+1, "unknown escape sequence `\\%c`", c)
	}
	l.cursor++
	return v, nil
}

func (l *Lexer) scanChar() (Token, error) {
	start := l.cursor
	l.cursor++ // opening quote
	var v byte
	if l.cursor >= len(l.line) {
		return Token{}, l.errAt(start, l.cursor, "unterminated character literal")
	}
	if l.peek() == '\\' {
		var err error
		v, err = l.scanEscape()
		if err != nil {
			return Token{}, err
		}
	} else {
		v = l.peek()
		l.cursor++
	}
	if l.cursor >= len(l.line) || l.peek() != '\'' {
		return Token{}, l.errAt(start, l.cursor, "unterminated character literal")
	}
	l.cursor++
	return Token{Kind: TokChar, CVal: rune(v), Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
}

func (l *Lexer) scanString() (Token, error) {
	start := l.cursor
	l.cursor++ // opening quote
	var sb strings.Builder
	for {
		if l.cursor >= len(l.line) {
			return Token{}, l.errAt(start, l.cursor, "unterminated string literal")
		}
		c := l.peek()
		if c == '"' {
			l.cursor++
			break
		}
		if c == '\n' {
			return Token{}, l.errAt(start, l.cursor, "newline inside string literal")
		}
		if c == '\\' {
			v, err := l.scanEscape()
			if err != nil {
				return Token{}, err
			}
			sb.WriteByte(v)
			continue
		}
		sb.WriteByte(c)
		l.cursor++
	}
	return Token{Kind: TokString, SVal: sb.String(), Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
}

// scanFilenameToken consumes everything up to the first unescaped
// space as a string, used by the special filename-reading mode.
func (l *Lexer) scanFilenameToken() (Token, error) {
	start := l.cursor
	var sb strings.Builder
	for l.cursor < len(l.line) {
		c := l.peek()
		if c == ' ' || c == '\n' {
			break
		}
		if c == '\\' && l.peekAt(1) == ' ' {
			sb.WriteByte(' ')
			l.cursor += 2
			continue
		}
		sb.WriteByte(c)
		l.cursor++
	}
	return Token{Kind: TokString, SVal: sb.String(), Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// scanNumber recognizes integers (with 0x/0X, 0b/0B, decimal default,
// and N#dddd base-N suffix forms, underscores ignored, overflow
// promoted to bigint) and floats (decimal with at least two of
// {integer part, fractional part, exponent}).
func (l *Lexer) scanNumber() (Token, error) {
	start := l.cursor

	base := 10
	digitsStart := l.cursor

	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		base = 16
		l.cursor += 2
		digitsStart = l.cursor
	} else if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		base = 2
		l.cursor += 2
		digitsStart = l.cursor
	}

	if base == 16 || base == 2 {
		return l.finishBasedInt(start, digitsStart, base)
	}

	// Decimal: could turn out to be N#dddd, a float, or plain int.
	for l.cursor < len(l.line) && (isDigit(l.peek()) || l.peek() == '_') {
		l.cursor++
	}

	if l.peek() == '#' {
		baseDigits := strings.ReplaceAll(l.line[digitsStart:l.cursor], "_", "")
		n := 0
		for _, c := range []byte(baseDigits) {
			n = n*10 + int(c-'0')
		}
		if n < 2 || n > 36 {
			return Token{}, l.errAt(start, l.cursor+1, "base must be between 2 and 36, got %d", n)
		}
		l.cursor++ // '#'
		return l.finishBasedInt(start, l.cursor, n)
	}

	// Float detection: fractional part and/or exponent.
	hasFrac := false
	hasExp := false
	save := l.cursor
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		hasFrac = true
		l.cursor++ // '.'
		for l.cursor < len(l.line) && (isDigit(l.peek()) || l.peek() == '_') {
			l.cursor++
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		expSave := l.cursor
		l.cursor++
		if l.peek() == '+' || l.peek() == '-' {
			l.cursor++
		}
		if isDigit(l.peek()) {
			hasExp = true
			for l.cursor < len(l.line) && isDigit(l.peek()) {
				l.cursor++
			}
		} else {
			l.cursor = expSave
		}
	}

	if hasFrac || hasExp {
		// Spec: at least two of {integer part, fractional part,
		// exponent} must be present. We always have an integer
		// part here (we started on a digit), so one of frac/exp
		// suffices.
		text := strings.ReplaceAll(l.line[start:l.cursor], "_", "")
		var f float64
		if _, err := fmt.Sscanf(text, "%g", &f); err != nil {
			return Token{}, l.errAt(start, l.cursor, "invalid float literal %q", text)
		}
		return Token{Kind: TokFloat, FVal: f, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
	}
	l.cursor = save

	if isIdentStart(l.peek()) {
		return Token{}, l.errAt(start, l.cursor+1, "stray letter in integer literal")
	}

	digits := strings.ReplaceAll(l.line[digitsStart:l.cursor], "_", "")
	return l.buildIntToken(digits, 10, start)
}

func (l *Lexer) finishBasedInt(start, digitsStart, base int) (Token, error) {
	for l.cursor < len(l.line) && (digitValue(l.peek()) >= 0 && digitValue(l.peek()) < base || l.peek() == '_') {
		l.cursor++
	}
	if isIdentStart(l.peek()) || (isDigit(l.peek()) && digitValue(l.peek()) >= base) {
		return Token{}, l.errAt(start, l.cursor+1, "stray letter in integer literal")
	}
	digits := strings.ReplaceAll(l.line[digitsStart:l.cursor], "_", "")
	if digits == "" {
		return Token{}, l.errAt(start, l.cursor, "empty integer literal")
	}
	return l.buildIntToken(digits, base, start)
}

func (l *Lexer) buildIntToken(digits string, base, start int) (Token, error) {
	bi, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return Token{}, l.errAt(start, l.cursor, "invalid integer literal %q", digits)
	}
	pos := Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}
	if bi.IsInt64() {
		return Token{Kind: TokInt, IVal: bi.Int64(), Pos: pos}, nil
	}
	return Token{Kind: TokBigInt, BVal: bi, Pos: pos}, nil
}

// operator table: longest match wins. Includes the deliberate
// rejections that fix up to a related operator while continuing.
type opEntry struct {
	text string
	kind TokenKind
}

var operatorTable = []opEntry{
	{"#?", TokPeek},
	{":=", TokAssign},
	{"->", TokArrow},
	{"!?", TokSendProbe},
	{"!=", TokNeq},
	{"++", TokConcat},
	{"<=", TokLe},
	{">=", TokGe},
	{"..", TokDotDot},
	{"::", TokColonColon},
	{"<<", TokLShift},
	{">>", TokRShift},
	{"!", TokSend},
	{"?", TokRecv},
	{"#", TokProbe},
	{"+", TokPlus},
	{"-", TokMinus},
	{"~", TokTilde},
	{"*", TokStar},
	{"/", TokSlash},
	{"%", TokPercent},
	{"^", TokCaret},
	{"=", TokEq},
	{"<", TokLt},
	{">", TokGt},
	{"&", TokAnd},
	{"|", TokOr},
	{"(", TokLParen},
	{")", TokRParen},
	{"[", TokLBracket},
	{"]", TokRBracket},
	{"{", TokLBrace},
	{"}", TokRBrace},
	{",", TokComma},
	{";", TokSemi},
	{":", TokColon},
	{".", TokDot},
}

func (l *Lexer) scanOperator() (Token, error) {
	start := l.cursor

	// Deliberate rejections: diagnose and continue as if the
	// related, valid operator had been written.
	if l.peek() == '=' && l.peekAt(1) == '=' {
		l.warn(start, start+2, "`==` is not an operator here, did you mean `=`?")
		l.cursor += 2
		return Token{Kind: TokEq, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
	}
	if l.peek() == '?' && l.peekAt(1) == '#' {
		l.warn(start, start+2, "`?#` is not an operator here, did you mean `#?`?")
		l.cursor += 2
		return Token{Kind: TokPeek, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
	}
	if l.peek() == '&' && l.peekAt(1) == '&' {
		l.warn(start, start+2, "`&&` is not an operator here, did you mean `&`?")
		l.cursor += 2
		return Token{Kind: TokAnd, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
	}
	if l.peek() == '|' && l.peekAt(1) == '|' {
		l.warn(start, start+2, "`||` is not an operator here, did you mean `|`?")
		l.cursor += 2
		return Token{Kind: TokOr, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
	}

	for _, e := range operatorTable {
		if strings.HasPrefix(l.line[l.cursor:], e.text) {
			l.cursor += len(e.text)
			return Token{Kind: e.kind, Pos: Pos{File: l.file, Line: l.lineNo, Start: start, End: l.cursor}}, nil
		}
	}

	c := l.peek()
	if c < 0x20 || c >= 0x7f {
		return Token{}, l.errAt(start, start+1, "non-printable byte 0x%02x in source", c)
	}
	return Token{}, l.errAt(start, start+1, "illegal character %q", c)
}

func (l *Lexer) warn(start, end int, format string, args ...any) {
	fmt.Fprintf(errOut, "%s[%d:%d] Warning: %s\n", l.file, l.lineNo, start, fmt.Sprintf(format, args...))
}

// Have reports whether the current token matches k, without
// consuming it.
func (l *Lexer) Have(k TokenKind) bool { return l.haveCurr && l.curr.Kind == k }

// HaveNext consumes and returns true if the current token matches k;
// otherwise leaves the lexer state untouched and returns false.
func (l *Lexer) HaveNext(k TokenKind) (bool, error) {
	if !l.Have(k) {
		return false, nil
	}
	if _, err := l.Next(); err != nil {
		return false, err
	}
	return true, nil
}

// MustBe requires the current token to be k, consuming it; otherwise
// it produces a locatable parse error.
func (l *Lexer) MustBe(k TokenKind) (Token, error) {
	if !l.Have(k) {
		return Token{}, l.unexpected(k)
	}
	tok := l.curr
	if _, err := l.Next(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// MustBeOneOf requires the current token to be one of ks, consuming
// it.
func (l *Lexer) MustBeOneOf(ks ...TokenKind) (Token, error) {
	for _, k := range ks {
		if l.Have(k) {
			return l.MustBe(k)
		}
	}
	return Token{}, l.unexpectedSet(ks)
}

func (l *Lexer) unexpected(k TokenKind) error {
	return &ParseError{
		Pos:      l.curr.Pos,
		Expected: []TokenKind{k},
		Found:    l.curr,
	}
}

func (l *Lexer) unexpectedSet(ks []TokenKind) error {
	return &ParseError{
		Pos:      l.curr.Pos,
		Expected: ks,
		Found:    l.curr,
	}
}

// SetMode replaces the lexer's mode flags wholesale.
func (l *Lexer) SetMode(m Mode) { l.mode = m }

// GetMode returns the lexer's current mode flags.
func (l *Lexer) GetMode() Mode { return l.mode }

// SetKeywordRecognition toggles whether command-mode scanning treats
// keyword spellings as keywords. Callers follow this with Redo to
// re-interpret the token just produced.
func (l *Lexer) SetKeywordRecognition(on bool) { l.disableKeywords = !on }
