package chp

import (
	"fmt"
	"strings"
)

// IntRangeTypeNode is `{lo..hi}`.
type IntRangeTypeNode struct {
	Node
	typeBase
	Lo, Hi Expr
}

func (t *IntRangeTypeNode) Accept(v Visitor) error { return v.VisitIntRangeTypeNode(t) }
func (t *IntRangeTypeNode) String() string         { return fmt.Sprintf("{%s..%s}", t.Lo, t.Hi) }

// EnumTypeNode is `{a, b, c}`.
type EnumTypeNode struct {
	Node
	typeBase
	Symbols []Symbol
}

func (t *EnumTypeNode) Accept(v Visitor) error { return v.VisitEnumTypeNode(t) }
func (t *EnumTypeNode) String() string {
	parts := make([]string, len(t.Symbols))
	for i, s := range t.Symbols {
		parts[i] = s.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ArrayTypeNode is `array[lo..hi] of T`. Multi-dimension arrays
// (`array[l1..h1, l2..h2] of T`) are desugared by the parser into
// nested ArrayTypeNodes.
type ArrayTypeNode struct {
	Node
	typeBase
	Lo, Hi Expr
	Elem   TypeNode
}

func (t *ArrayTypeNode) Accept(v Visitor) error { return v.VisitArrayTypeNode(t) }
func (t *ArrayTypeNode) String() string {
	return fmt.Sprintf("array[%s..%s] of %s", t.Lo, t.Hi, t.Elem)
}

// RecordTypeNode is `record { f1: T1; f2: T2; ... }`.
type RecordTypeNode struct {
	Node
	typeBase
	Fields []*FieldDecl
}

func (t *RecordTypeNode) Accept(v Visitor) error { return v.VisitRecordTypeNode(t) }
func (t *RecordTypeNode) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	return "record { " + strings.Join(parts, "; ") + " }"
}

// UnionArm is one tagged-union arm: a name, its payload type, and
// optional up/down coercion routine names (used when an arm's type
// subsumes, or is subsumed by, another type in the union).
type UnionArm struct {
	Name Symbol
	Type TypeNode
	Up   Symbol // zero Symbol if absent
	Down Symbol
}

func (a UnionArm) String() string {
	s := fmt.Sprintf("%s: %s", a.Name, a.Type)
	if a.Up.Valid() {
		s += fmt.Sprintf(" up %s", a.Up)
	}
	if a.Down.Valid() {
		s += fmt.Sprintf(" down %s", a.Down)
	}
	return s
}

// UnionTypeNode is a tagged union with an ordered arm list and an
// optional `default:` arm.
type UnionTypeNode struct {
	Node
	typeBase
	Arms    []UnionArm
	Default *UnionArm
}

func (t *UnionTypeNode) Accept(v Visitor) error { return v.VisitUnionTypeNode(t) }
func (t *UnionTypeNode) String() string {
	parts := make([]string, len(t.Arms))
	for i, a := range t.Arms {
		parts[i] = a.String()
	}
	if t.Default != nil {
		parts = append(parts, "default: "+t.Default.String())
	}
	return "union { " + strings.Join(parts, "; ") + " }"
}

// NamedTypeNode references a type declared elsewhere by name.
// Structural equivalence treats named types as transparent: it's the
// referenced type that participates in comparisons, not the name.
type NamedTypeNode struct {
	Node
	typeBase
	Name Symbol

	Binding Decl // the *TypeDecl this name resolved to
}

func (t *NamedTypeNode) Accept(v Visitor) error { return v.VisitNamedTypeNode(t) }
func (t *NamedTypeNode) String() string         { return t.Name.String() }

// GenericKind discriminates the four meta-parameter generic forms.
type GenericKind int

const (
	GenericInt GenericKind = iota
	GenericBool
	GenericSymbol
	GenericType
)

// GenericTypeNode stands for a meta parameter's declared kind (int,
// bool, symbol, or type) before instantiation substitutes the actual
// per-instance type.
type GenericTypeNode struct {
	Node
	typeBase
	Kind GenericKind
}

func (t *GenericTypeNode) Accept(v Visitor) error { return v.VisitGenericTypeNode(t) }
func (t *GenericTypeNode) String() string {
	switch t.Kind {
	case GenericInt:
		return "int"
	case GenericBool:
		return "bool"
	case GenericSymbol:
		return "symbol"
	default:
		return "type"
	}
}

// WiredTypeNode models raw wires for prs/delay bodies: two groups of
// boolean wires, inputs and outputs.
type WiredTypeNode struct {
	Node
	typeBase
	Inputs  []Symbol
	Outputs []Symbol
}

func (t *WiredTypeNode) Accept(v Visitor) error { return v.VisitWiredTypeNode(t) }
func (t *WiredTypeNode) String() string {
	in := make([]string, len(t.Inputs))
	for i, s := range t.Inputs {
		in[i] = s.String()
	}
	out := make([]string, len(t.Outputs))
	for i, s := range t.Outputs {
		out[i] = s.String()
	}
	return fmt.Sprintf("wired(%s; %s)", strings.Join(in, ","), strings.Join(out, ","))
}

// DummyTypeNode is a placeholder used while parsing a type that
// hasn't been fully recognized yet (error recovery).
type DummyTypeNode struct {
	Node
	typeBase
}

func (t *DummyTypeNode) Accept(v Visitor) error { return v.VisitDummyTypeNode(t) }
func (t *DummyTypeNode) String() string         { return "<dummy>" }
