package chp

import "fmt"

// Type is the reduced type-system interface every TypeNode resolves
// to after analysis. Equivalence between two Types is structural,
// never nominal: a NamedTypeNode contributes only the Type of
// whatever it refers to, never its own identity.
type Type interface {
	// Equal reports structural equivalence with other.
	Equal(other Type) bool
	String() string
}

// IntType is the machine default integer type (arbitrary range,
// promoted to big.Int on overflow by the lexer/folder, never by the
// type system itself).
type IntType struct{}

func (IntType) Equal(other Type) bool { _, ok := other.(IntType); return ok }
func (IntType) String() string        { return "int" }

// BoolType is the two-valued boolean type.
type BoolType struct{}

func (BoolType) Equal(other Type) bool { _, ok := other.(BoolType); return ok }
func (BoolType) String() string        { return "bool" }

// SymbolType is the type of bare identifiers used as tags (enum
// constants behave as values of an EnumType; SymbolType is reserved
// for the `symbol` meta-parameter kind and generic-type holders that
// resolve to a symbol).
type SymbolType struct{}

func (SymbolType) Equal(other Type) bool { _, ok := other.(SymbolType); return ok }
func (SymbolType) String() string        { return "symbol" }

// CharType is a single character.
type CharType struct{}

func (CharType) Equal(other Type) bool { _, ok := other.(CharType); return ok }
func (CharType) String() string        { return "char" }

// IntRangeType is `{lo..hi}`, a subrange of IntType. Two int-range
// types are equal when their bounds coincide; one is compatible with
// another whenever its folded bounds nest inside the target's
// (checked by Compatible, not Equal). CompatibleRuntime checks a
// single value against the bounds.
type IntRangeType struct {
	Lo, Hi int64
}

func (t IntRangeType) Equal(other Type) bool {
	o, ok := other.(IntRangeType)
	return ok && o.Lo == t.Lo && o.Hi == t.Hi
}
func (t IntRangeType) String() string { return fmt.Sprintf("{%d..%d}", t.Lo, t.Hi) }

// EnumType is an ordered, closed set of symbol constants. Two enum
// types are structurally equal only when their symbol lists match
// exactly in order, matching how the source compares inline enum
// type literals (as opposed to named type aliases, which compare by
// their underlying EnumType).
type EnumType struct {
	Symbols []Symbol
}

func (t EnumType) Equal(other Type) bool {
	o, ok := other.(EnumType)
	if !ok || len(o.Symbols) != len(t.Symbols) {
		return false
	}
	for i := range t.Symbols {
		if !t.Symbols[i].Equal(o.Symbols[i]) {
			return false
		}
	}
	return true
}

func (t EnumType) String() string {
	s := "{"
	for i, sym := range t.Symbols {
		if i > 0 {
			s += ", "
		}
		s += sym.String()
	}
	return s + "}"
}

// ArrayType is a fixed-size array of an element type. Length is
// Hi-Lo+1 and participates in equivalence: two arrays are equal only
// when both their element type and their bounds match.
type ArrayType struct {
	Lo, Hi int64
	Elem   Type
}

func (t ArrayType) Equal(other Type) bool {
	o, ok := other.(ArrayType)
	return ok && o.Lo == t.Lo && o.Hi == t.Hi && t.Elem.Equal(o.Elem)
}

func (t ArrayType) String() string {
	return fmt.Sprintf("array[%d..%d] of %s", t.Lo, t.Hi, t.Elem)
}

// RecordField is one named, typed record member, ordered.
type RecordField struct {
	Name Symbol
	Type Type
}

// RecordType is a fixed set of named fields, compared structurally in
// declaration order: field count, names, and types must all match.
type RecordType struct {
	Fields []RecordField
}

func (t RecordType) Equal(other Type) bool {
	o, ok := other.(RecordType)
	if !ok || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Name.Equal(o.Fields[i].Name) || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

func (t RecordType) String() string {
	s := "record {"
	for i, f := range t.Fields {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return s + "}"
}

// UnionMember is one arm of a UnionType: a tag, its payload type, and
// the up/down coercion routines (nil when absent) linking it to
// another arm it subsumes or is subsumed by.
type UnionMember struct {
	Name Symbol
	Type Type
	Up   Decl // *RoutineDecl coercing a narrower arm up into this one
	Down Decl // *RoutineDecl coercing this arm down into a narrower one
}

// UnionType is a tagged union: a closed, ordered set of members plus
// an optional default member selected when no tag matches.
type UnionType struct {
	Members []UnionMember
	Default *UnionMember
}

func (t UnionType) Equal(other Type) bool {
	o, ok := other.(UnionType)
	if !ok || len(o.Members) != len(t.Members) || (t.Default == nil) != (o.Default == nil) {
		return false
	}
	for i := range t.Members {
		if !t.Members[i].Name.Equal(o.Members[i].Name) || !t.Members[i].Type.Equal(o.Members[i].Type) {
			return false
		}
	}
	if t.Default != nil && !t.Default.Type.Equal(o.Default.Type) {
		return false
	}
	return true
}

func (t UnionType) String() string {
	s := "union {"
	for i, m := range t.Members {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s: %s", m.Name, m.Type)
	}
	return s + "}"
}

// Member looks up a union arm by tag name.
func (t UnionType) Member(name Symbol) (UnionMember, bool) {
	for _, m := range t.Members {
		if m.Name.Equal(name) {
			return m, true
		}
	}
	return UnionMember{}, false
}

// WiredType is the type of a prs/delay body's wire set: a group of
// boolean input wires and a group of boolean output wires, compared
// by arity alone (wire names are scoping, not typing, concerns).
type WiredType struct {
	NumInputs, NumOutputs int
}

func (t WiredType) Equal(other Type) bool {
	o, ok := other.(WiredType)
	return ok && o.NumInputs == t.NumInputs && o.NumOutputs == t.NumOutputs
}
func (t WiredType) String() string { return fmt.Sprintf("wired(%d;%d)", t.NumInputs, t.NumOutputs) }

// PortType wraps a payload Type with a direction: a process parameter
// declared with `?` (input) or `!` (output). Port identity, not just
// payload type, matters for connect-statement compatibility: an
// input port connects only to an output port of the same payload
// type and vice versa.
type PortType struct {
	Payload Type
	Input   bool
}

func (t PortType) Equal(other Type) bool {
	o, ok := other.(PortType)
	return ok && o.Input == t.Input && t.Payload.Equal(o.Payload)
}

func (t PortType) String() string {
	dir := "!"
	if t.Input {
		dir = "?"
	}
	return fmt.Sprintf("port%s %s", dir, t.Payload)
}

// GenericType is the type a meta-parameter holds before a process or
// routine is instantiated: a placeholder for int, bool, symbol, or an
// arbitrary type supplied by the caller.
type GenericType struct {
	Kind GenericKind
}

func (t GenericType) Equal(other Type) bool {
	o, ok := other.(GenericType)
	return ok && o.Kind == t.Kind
}

func (t GenericType) String() string { return (&GenericTypeNode{Kind: t.Kind}).String() }

// StringType is the built-in string type. Equal deliberately ignores
// Len: two string types are structurally equivalent regardless of
// declared length, matching how the built-in module's own `string`
// alias is patched after resolution.
type StringType struct {
	Len int
}

func (StringType) Equal(other Type) bool { _, ok := other.(StringType); return ok }
func (StringType) String() string        { return "string" }

// ErrorType stands in for the type of an expression that failed to
// analyze; it compares equal to everything so one error doesn't
// cascade into a flood of unrelated type-mismatch diagnostics.
type ErrorType struct{}

func (ErrorType) Equal(Type) bool  { return true }
func (ErrorType) String() string   { return "<error>" }

// Compatible reports whether a value of type src may be used where
// dst is expected: either the types are structurally Equal, or dst is
// an IntRangeType and src is IntType (a concrete value is checked
// against the bounds by CompatibleRuntime), or both are IntRangeTypes
// and src's bounds nest inside dst's, or dst is IntType and src is an
// IntRangeType, or either side is ErrorType.
func Compatible(dst, src Type) bool {
	if _, ok := dst.(ErrorType); ok {
		return true
	}
	if _, ok := src.(ErrorType); ok {
		return true
	}
	if dst.Equal(src) {
		return true
	}
	if dr, ok := dst.(IntRangeType); ok {
		if _, ok := src.(IntType); ok {
			return true
		}
		if sr, ok := src.(IntRangeType); ok {
			return sr.Lo >= dr.Lo && sr.Hi <= dr.Hi
		}
	}
	if _, ok := dst.(IntType); ok {
		if _, ok := src.(IntRangeType); ok {
			return true
		}
	}
	return false
}

// CompatibleRuntime additionally checks that a concrete runtime value
// v falls within dst's bounds when dst is an IntRangeType, matching
// the design's split between compile-time structural compatibility
// and the executor's runtime bound check.
func CompatibleRuntime(dst Type, v int64) bool {
	if r, ok := dst.(IntRangeType); ok {
		return v >= r.Lo && v <= r.Hi
	}
	return true
}
