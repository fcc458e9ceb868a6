package chp

import (
	"fmt"
	"strings"
)

// VarDecl declares a local variable, optionally with an initializer.
// It implements both Decl and Stmt: `var x, y: T;` appears inline in a
// routine or process body, one VarDecl per name after the parser
// splits a multi-name declaration.
type VarDecl struct {
	Node
	declBase
	stmtBase
	Name Symbol
	Type TypeNode
	Init Expr // nil if absent

	ResolvedType Type // filled in during the analyzer's full pass
}

func (d *VarDecl) Accept(v Visitor) error { return v.VisitVarDecl(d) }
func (d *VarDecl) DeclName() Symbol       { return d.Name }
func (d *VarDecl) String() string {
	s := fmt.Sprintf("var %s: %s", d.Name, d.Type)
	if d.Init != nil {
		s += " := " + d.Init.String()
	}
	return s + ";"
}

// ParamKind discriminates the four parameter-passing modes.
type ParamKind int

const (
	ParamValue ParamKind = iota
	ParamValueResult
	ParamResult
	ParamConst
)

func (k ParamKind) String() string {
	switch k {
	case ParamValueResult:
		return "value-result"
	case ParamResult:
		return "result"
	case ParamConst:
		return "const"
	default:
		return "value"
	}
}

// ParamDecl is a routine or process-port parameter.
type ParamDecl struct {
	Node
	declBase
	Name Symbol
	Type TypeNode
	Kind ParamKind
}

func (d *ParamDecl) Accept(v Visitor) error { return v.VisitParamDecl(d) }
func (d *ParamDecl) DeclName() Symbol       { return d.Name }
func (d *ParamDecl) String() string {
	dir := ""
	if d.HasFlag(FlagInport) {
		dir = "?"
	} else if d.HasFlag(FlagOutport) {
		dir = "!"
	}
	return fmt.Sprintf("%s%s: %s", d.Name, dir, d.Type)
}

// MetaParamDecl is a build-time (generic) parameter: int, bool,
// symbol, or type.
type MetaParamDecl struct {
	Node
	declBase
	Name Symbol
	Kind GenericKind
}

func (d *MetaParamDecl) Accept(v Visitor) error { return v.VisitMetaParamDecl(d) }
func (d *MetaParamDecl) DeclName() Symbol       { return d.Name }
func (d *MetaParamDecl) String() string {
	return fmt.Sprintf("%s: %s", d.Name, (&GenericTypeNode{Kind: d.Kind}).String())
}

// FieldDecl is one record field.
type FieldDecl struct {
	Node
	declBase
	Name Symbol
	Type TypeNode
}

func (d *FieldDecl) Accept(v Visitor) error { return v.VisitFieldDecl(d) }
func (d *FieldDecl) DeclName() Symbol       { return d.Name }
func (d *FieldDecl) String() string         { return fmt.Sprintf("%s: %s", d.Name, d.Type) }

// WireDecl declares a raw wire used inside a prs/delay body.
type WireDecl struct {
	Node
	declBase
	Name  Symbol
	Input bool
}

func (d *WireDecl) Accept(v Visitor) error { return v.VisitWireDecl(d) }
func (d *WireDecl) DeclName() Symbol       { return d.Name }
func (d *WireDecl) String() string {
	dir := "output"
	if d.Input {
		dir = "input"
	}
	return fmt.Sprintf("wire %s %s;", dir, d.Name)
}

// InstanceDecl is `instance x: T(args);`. It is legal only inside a
// meta body and doubles as a statement there, so it implements both
// Decl and Stmt.
type InstanceDecl struct {
	Node
	declBase
	stmtBase
	Name Symbol
	Type Symbol
	Args []Expr

	Binding Decl // the *ProcessDecl this instantiates
}

func (d *InstanceDecl) Accept(v Visitor) error { return v.VisitInstanceDecl(d) }
func (d *InstanceDecl) DeclName() Symbol       { return d.Name }
func (d *InstanceDecl) String() string {
	parts := make([]string, len(d.Args))
	for i, a := range d.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("instance %s: %s(%s);", d.Name, d.Type, strings.Join(parts, ", "))
}

// TypeDecl is `type Name = T;`.
type TypeDecl struct {
	Node
	declBase
	Name Symbol
	Type TypeNode
}

func (d *TypeDecl) Accept(v Visitor) error { return v.VisitTypeDecl(d) }
func (d *TypeDecl) DeclName() Symbol       { return d.Name }
func (d *TypeDecl) String() string         { return fmt.Sprintf("type %s = %s;", d.Name, d.Type) }

// ConstValue is the folded value of a constant expression.
type ConstValue struct {
	Kind LiteralKind
	IVal int64
	CVal rune
	SVal string
	Sym  Symbol
	Bool bool
}

// ConstDecl is `const Name: T = value;`. Folded holds the evaluated
// value once constant folding has run.
type ConstDecl struct {
	Node
	declBase
	Name   Symbol
	Type   TypeNode
	Value  Expr
	Folded *ConstValue
}

func (d *ConstDecl) Accept(v Visitor) error { return v.VisitConstDecl(d) }
func (d *ConstDecl) DeclName() Symbol       { return d.Name }
func (d *ConstDecl) String() string {
	return fmt.Sprintf("const %s: %s = %s;", d.Name, d.Type, d.Value)
}

// FieldDefDecl is a bit-field alias: `field Name = Base[lo..hi];`.
type FieldDefDecl struct {
	Node
	declBase
	Name  Symbol
	Base  Symbol
	Range *SubrangeExpr
}

func (d *FieldDefDecl) Accept(v Visitor) error { return v.VisitFieldDefDecl(d) }
func (d *FieldDefDecl) DeclName() Symbol       { return d.Name }
func (d *FieldDefDecl) String() string {
	return fmt.Sprintf("field %s = %s;", d.Name, d.Range)
}

// PropertyDecl is a `property { ... }` block attached to a process.
// The executor (out of scope) interprets its body; the front-end
// only parses and scopes it.
type PropertyDecl struct {
	Node
	declBase
	Name Symbol
	Body Stmt
}

func (d *PropertyDecl) Accept(v Visitor) error { return v.VisitPropertyDecl(d) }
func (d *PropertyDecl) DeclName() Symbol       { return d.Name }
func (d *PropertyDecl) String() string {
	return fmt.Sprintf("property %s { %s }", d.Name, d.Body)
}

// ModuleDecl is the root AST node of one source file: its require
// edges followed by its top-level definitions, in source order.
type ModuleDecl struct {
	Node
	declBase
	Path     string
	Requires []*RequiresDecl
	Decls    []Decl
}

func (d *ModuleDecl) Accept(v Visitor) error { return v.VisitModuleDecl(d) }
func (d *ModuleDecl) DeclName() Symbol       { return NewSymbol(d.Path) }
func (d *ModuleDecl) String() string {
	s := ""
	for _, r := range d.Requires {
		s += r.String() + "\n"
	}
	for _, decl := range d.Decls {
		s += decl.String() + "\n"
	}
	return s
}

// RequiresDecl is a `requires "path";` module dependency edge.
type RequiresDecl struct {
	Node
	declBase
	Path string

	Resolved *Module
}

func (d *RequiresDecl) Accept(v Visitor) error { return v.VisitRequiresDecl(d) }
func (d *RequiresDecl) DeclName() Symbol       { return NewSymbol(d.Path) }
func (d *RequiresDecl) String() string         { return fmt.Sprintf("requires %q;", d.Path) }

// ProcessBody groups the up-to-one-each bodies a process can carry.
type ProcessBody struct {
	Meta     *CompoundStmt // instance/connect statements
	HSE      Stmt
	PRS      []PRNode
	CHP      Stmt
	Delay    []PRNode
	Property *PropertyDecl
}

// ProcessDecl declares a concurrent process: its ports, optional meta
// parameters, and up to one each of meta/hse/prs/chp/delay/property
// bodies.
type ProcessDecl struct {
	Node
	declBase
	Name        Symbol
	MetaParams  []*MetaParamDecl
	Ports       []*ParamDecl
	Body        ProcessBody
}

func (d *ProcessDecl) Accept(v Visitor) error { return v.VisitProcessDecl(d) }
func (d *ProcessDecl) DeclName() Symbol       { return d.Name }
func (d *ProcessDecl) String() string {
	ports := make([]string, len(d.Ports))
	for i, p := range d.Ports {
		ports[i] = p.String()
	}
	exported := ""
	if d.HasFlag(FlagExported) {
		exported = "export "
	}
	return fmt.Sprintf("%sprocess %s(%s) chp { %s }", exported, d.Name, strings.Join(ports, "; "), d.Body.CHP)
}

// RoutineKind distinguishes pure functions from value-result
// procedures.
type RoutineKind int

const (
	RoutineFunction RoutineKind = iota
	RoutineProcedure
)

// RoutineDecl is a function or procedure definition: pure and
// returning a value (RoutineFunction), or mutating its value-result
// parameters (RoutineProcedure).
type RoutineDecl struct {
	Node
	declBase
	Kind       RoutineKind
	Name       Symbol
	Params     []*ParamDecl
	ReturnType TypeNode // nil for procedures
	Body       Stmt
}

func (d *RoutineDecl) Accept(v Visitor) error { return v.VisitRoutineDecl(d) }
func (d *RoutineDecl) DeclName() Symbol       { return d.Name }
func (d *RoutineDecl) String() string {
	kw := "function"
	if d.Kind == RoutineProcedure {
		kw = "procedure"
	}
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = p.String()
	}
	exported := ""
	if d.HasFlag(FlagExported) {
		exported = "export "
	}
	ret := ""
	if d.ReturnType != nil {
		ret = ": " + d.ReturnType.String()
	}
	return fmt.Sprintf("%s%s %s(%s)%s %s", exported, kw, d.Name, strings.Join(params, "; "), ret, d.Body)
}
