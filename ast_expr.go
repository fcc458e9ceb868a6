package chp

import (
	"fmt"
	"math/big"
	"strings"
)

// LiteralKind discriminates the literal variants the grammar
// recognizes: int/bigint/char/string/symbol/bool all share one node
// shape since none of them have children.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitBigInt
	LitChar
	LitString
	LitSymbol
	LitBool
)

// LiteralExpr is a leaf expression: exactly one of its value fields
// is meaningful, selected by Kind.
type LiteralExpr struct {
	Node
	exprBase
	Kind LiteralKind

	IVal int64
	BVal *big.Int
	CVal rune
	SVal string
	Sym  Symbol
	Bool bool

	// ResolvedType is filled in by the analyzer.
	ResolvedType Type
}

func (e *LiteralExpr) Accept(v Visitor) error { return v.VisitLiteralExpr(e) }

func (e *LiteralExpr) String() string {
	switch e.Kind {
	case LitInt:
		return fmt.Sprintf("%d", e.IVal)
	case LitBigInt:
		return e.BVal.String()
	case LitChar:
		return fmt.Sprintf("'%c'", e.CVal)
	case LitString:
		var b strings.Builder
		printStringLiteral(&b, e.SVal)
		return b.String()
	case LitSymbol:
		return "`" + e.Sym.String()
	case LitBool:
		if e.Bool {
			return "true"
		}
		return "false"
	}
	return "<literal>"
}

// printStringLiteral renders s as a C-style double-quoted literal
// with backslash escapes for newline, tab, backslash and double
// quote; every other byte is written as is.
func printStringLiteral(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
}

// NameExpr is a named reference. After semantic analysis, Binding
// points at the declaration it resolved to (nil until analyzed, or
// if Flags has FlagErroneous), and FrameDepth counts the replicator
// sub-scopes crossed between the reference and its binding.
type NameExpr struct {
	Node
	exprBase
	Name Symbol

	Binding      Decl
	FrameDepth   int
	ResolvedType Type
}

func (e *NameExpr) Accept(v Visitor) error { return v.VisitNameExpr(e) }
func (e *NameExpr) String() string         { return e.Name.String() }

// BinaryExpr is a two-operand expression. Op is one of the binary
// operator token kinds (|, &, xor, comparisons, ++, + - * / % mod,
// ^). Precedence/associativity are resolved by the parser's Pratt
// fixup before this tree is handed to the analyzer.
type BinaryExpr struct {
	Node
	exprBase
	Op    TokenKind
	Left  Expr
	Right Expr

	ResolvedType Type
}

func (e *BinaryExpr) Accept(v Visitor) error { return v.VisitBinaryExpr(e) }
func (e *BinaryExpr) String() string {
	s := fmt.Sprintf("%s %s %s", e.Left, TokenStr(e.Op), e.Right)
	if e.HasFlag(FlagParenthesized) {
		return "(" + s + ")"
	}
	return s
}

// UnaryExpr covers the four prefix operators: + - ~ (bitwise not)
// and # (probe-count).
type UnaryExpr struct {
	Node
	exprBase
	Op      TokenKind
	Operand Expr

	ResolvedType Type
}

func (e *UnaryExpr) Accept(v Visitor) error { return v.VisitUnaryExpr(e) }
func (e *UnaryExpr) String() string         { return TokenStr(e.Op) + e.Operand.String() }

// IndexExpr is array subscript x[i]. Multi-index subscripts
// x[i,j] are desugared by the parser into nested IndexExprs.
type IndexExpr struct {
	Node
	exprBase
	Base  Expr
	Index Expr

	ResolvedType Type
}

func (e *IndexExpr) Accept(v Visitor) error { return v.VisitIndexExpr(e) }
func (e *IndexExpr) String() string         { return fmt.Sprintf("%s[%s]", e.Base, e.Index) }

// SubrangeExpr is array subrange x[lo..hi].
type SubrangeExpr struct {
	Node
	exprBase
	Base   Expr
	Lo, Hi Expr

	ResolvedType Type
}

func (e *SubrangeExpr) Accept(v Visitor) error { return v.VisitSubrangeExpr(e) }
func (e *SubrangeExpr) String() string         { return fmt.Sprintf("%s[%s..%s]", e.Base, e.Lo, e.Hi) }

// FieldExpr is a record field selector x.field.
type FieldExpr struct {
	Node
	exprBase
	Base  Expr
	Field Symbol

	ResolvedType Type
}

func (e *FieldExpr) Accept(v Visitor) error { return v.VisitFieldExpr(e) }
func (e *FieldExpr) String() string         { return fmt.Sprintf("%s.%s", e.Base, e.Field) }

// CallExpr is a function or procedure call.
type CallExpr struct {
	Node
	exprBase
	Callee Symbol
	Args   []Expr

	Binding      Decl
	ResolvedType Type
}

func (e *CallExpr) Accept(v Visitor) error { return v.VisitCallExpr(e) }
func (e *CallExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Callee, strings.Join(parts, ", "))
}

// ArrayConstructorExpr builds an array value from element
// expressions: array{e1, e2, ...}.
type ArrayConstructorExpr struct {
	Node
	exprBase
	Elems []Expr

	ResolvedType Type
}

func (e *ArrayConstructorExpr) Accept(v Visitor) error { return v.VisitArrayConstructorExpr(e) }
func (e *ArrayConstructorExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, x := range e.Elems {
		parts[i] = x.String()
	}
	return fmt.Sprintf("array{%s}", strings.Join(parts, ", "))
}

// RecordFieldInit is one `name: value` pair inside a record
// constructor.
type RecordFieldInit struct {
	Name  Symbol
	Value Expr
}

// RecordConstructorExpr builds a record value:
// record{a: 1, b: 2}.
type RecordConstructorExpr struct {
	Node
	exprBase
	Fields []RecordFieldInit

	ResolvedType Type
}

func (e *RecordConstructorExpr) Accept(v Visitor) error { return v.VisitRecordConstructorExpr(e) }
func (e *RecordConstructorExpr) String() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Value)
	}
	return fmt.Sprintf("record{%s}", strings.Join(parts, ", "))
}

// TypeValueExpr reifies a type as an expression value, used by the
// generic-type meta-parameter machinery (e.g. passing `int` as an
// argument to a process with a `type` meta parameter).
type TypeValueExpr struct {
	Node
	exprBase
	Type TypeNode

	ResolvedType Type // the GenericType holder this value satisfies
}

func (e *TypeValueExpr) Accept(v Visitor) error { return v.VisitTypeValueExpr(e) }
func (e *TypeValueExpr) String() string         { return e.Type.String() }

// ProbeValueExpr is a value-probe guard: #{p1,...,pn : b}, true when
// a matching communication is pending on every listed port and the
// boolean expression b (which may reference the pending values)
// holds.
type ProbeValueExpr struct {
	Node
	exprBase
	Ports []Symbol
	Body  Expr

	ResolvedType Type
}

func (e *ProbeValueExpr) Accept(v Visitor) error { return v.VisitProbeValueExpr(e) }
func (e *ProbeValueExpr) String() string {
	names := make([]string, len(e.Ports))
	for i, p := range e.Ports {
		names[i] = p.String()
	}
	return fmt.Sprintf("#{%s : %s}", strings.Join(names, ","), e.Body)
}

// ReplicatorExpr is <<op i: lo..hi: body>> for an associative
// combinator (+ * ++ & | xor = !=).
type ReplicatorExpr struct {
	Node
	exprBase
	Op       TokenKind
	Var      Symbol
	Lo, Hi   Expr
	Body     Expr

	ResolvedType Type
}

func (e *ReplicatorExpr) Accept(v Visitor) error { return v.VisitReplicatorExpr(e) }
func (e *ReplicatorExpr) String() string {
	return fmt.Sprintf("<<%s %s: %s..%s: %s>>", TokenStr(e.Op), e.Var, e.Lo, e.Hi, e.Body)
}
