package chp

import (
	"fmt"
	"math/big"
)

// Analyzer drives the two-pass semantic analysis described in §4.4:
// a forward-declaration pass that inserts every top-level name into
// its module's declaration scope without descending into bodies, then
// a full pass that walks every body with complete global visibility.
// It implements Visitor so expression and statement analysis reuses
// the same dispatch mechanism Accept uses elsewhere in the tree;
// BaseVisitor supplies the no-op default for declaration-level nodes
// this analyzer handles itself through analyzeDecl instead.
type Analyzer struct {
	BaseVisitor

	db  *Database
	rec *Recovery

	byPath map[string]*Module

	module *Module
	scope  *Scope
	inMeta bool

	typeCache map[TypeNode]Type
}

// NewAnalyzer creates an analyzer that reports diagnostics through
// rec and resolves required modules against db's loader/config.
func NewAnalyzer(db *Database, rec *Recovery) *Analyzer {
	return &Analyzer{db: db, rec: rec, typeCache: make(map[TypeNode]Type)}
}

// Analyze runs both passes over modules, which must already be in the
// resolver's reverse-topological order. Calling Analyze again with a
// module already marked Analyzed is a no-op for that module, matching
// the idempotence law in §8.
func (a *Analyzer) Analyze(modules []*Module) error {
	a.byPath = make(map[string]*Module, len(modules))
	for _, m := range modules {
		a.byPath[m.Path] = m
	}
	for _, m := range modules {
		if err := a.forwardDeclare(m); err != nil {
			return err
		}
	}
	for _, m := range modules {
		if err := a.analyzeModule(m); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) report(err error) {
	if err == nil {
		return
	}
	if d, ok := diagnosticOf(err); ok {
		a.rec.Report(d)
	}
}

func (a *Analyzer) warn(pos Pos, format string, args ...any) {
	a.rec.Report(Diagnostic{Pos: pos, Severity: SevWarning, Message: fmt.Sprintf(format, args...)})
}

func diagnosticOf(err error) (Diagnostic, bool) {
	switch e := err.(type) {
	case *SemError:
		return e.Diagnostic(), true
	case *ScopeError:
		return Diagnostic{Pos: e.Pos, Severity: SevError, Message: e.Message}, true
	case *ResolverError:
		return e.Diagnostic(), true
	case *ParseError:
		return e.Diagnostic(""), true
	case *LexError:
		return Diagnostic{Pos: e.Pos, Severity: SevError, Message: e.Message, Line: e.Line}, true
	case *InternalError:
		return Diagnostic{Severity: SevError, Message: e.Error()}, true
	}
	return Diagnostic{}, false
}

func (a *Analyzer) builtinModule() *Module {
	if !a.db.Config().GetBool("module.import_builtin") {
		return nil
	}
	name := a.db.Config().GetString("module.builtin_name")
	return a.byPath[name]
}

// ---- Pass 1: forward declaration ----

func (a *Analyzer) forwardDeclare(m *Module) error {
	if m.ForwardDeclared {
		return nil
	}
	// Set before recursing: a module that requires one of its own
	// strongly-connected-component mates calls back into this
	// function, and the early-return here is what lets the pair
	// forward-declare each other without looping forever. Each
	// module's own names are already in its DeclScope below, so the
	// mate's import step can see them even though their signatures
	// haven't been resolved yet - resolution happens lazily, the
	// first time a reference actually needs the type.
	m.ForwardDeclared = true
	m.ImportScope = NewScope()
	m.DeclScope = m.ImportScope.EnterLevel()

	for _, d := range m.AST.Decls {
		if !m.DeclScope.Declare(d.DeclName(), d) {
			a.report(&SemError{Pos: d.NodePos(), Message: fmt.Sprintf("duplicate declaration of %q", d.DeclName())})
		}
	}

	for _, req := range m.AST.Requires {
		dep := req.Resolved
		if dep == nil {
			continue
		}
		if err := a.forwardDeclare(dep); err != nil {
			return err
		}
		a.importModule(m, dep, m.InCycleWith(dep))
	}
	if builtin := a.builtinModule(); builtin != nil && builtin != m {
		if err := a.forwardDeclare(builtin); err != nil {
			return err
		}
		a.importModule(m, builtin, false)
	}

	a.module = m
	for _, d := range m.AST.Decls {
		a.forwardSignature(d)
	}
	return nil
}

// importModule copies every exported local declaration of dep into
// m's import scope. When m and dep sit in the same strongly connected
// component, only process/routine names cross: a module may be
// mutually recursive with another through its routines without either
// side's type declarations needing to be visible yet, which is what
// keeps a definitional type cycle from slipping through as a false
// mutual recursion.
func (a *Analyzer) importModule(m, dep *Module, sameCycle bool) {
	for _, name := range dep.DeclScope.LocalEntries() {
		decl, _ := dep.DeclScope.LookupLocal(name)
		if !decl.HasFlag(FlagExported) {
			continue
		}
		if sameCycle {
			switch decl.(type) {
			case *ProcessDecl, *RoutineDecl:
			default:
				continue
			}
		}
		m.ImportScope.DeclareImport(name, decl)
	}
}

// forwardSignature resolves the "essential signature elements" of one
// top-level declaration - everything needed to type-check a reference
// to it from another declaration - without descending into routine or
// process bodies.
func (a *Analyzer) forwardSignature(d Decl) {
	switch n := d.(type) {
	case *TypeDecl:
		if _, err := a.resolveType(n.Type); err != nil {
			a.report(err)
		}
		n.SetFlag(FlagForwardDeclared)
	case *ConstDecl:
		if n.Type != nil {
			if _, err := a.resolveType(n.Type); err != nil {
				a.report(err)
			}
		}
		v, err := a.foldConstDecl(n)
		if err != nil {
			a.report(err)
		}
		n.Folded = v
		n.SetFlag(FlagForwardDeclared)
	case *FieldDefDecl:
		if n.Range != nil {
			if _, err := a.evalConstInt(n.Range.Lo); err != nil {
				a.report(err)
			}
			if _, err := a.evalConstInt(n.Range.Hi); err != nil {
				a.report(err)
			}
		}
		n.SetFlag(FlagForwardDeclared)
	case *RoutineDecl:
		for _, p := range n.Params {
			if _, err := a.resolveType(p.Type); err != nil {
				a.report(err)
			}
		}
		if n.ReturnType != nil {
			if _, err := a.resolveType(n.ReturnType); err != nil {
				a.report(err)
			}
		}
		n.SetFlag(FlagForwardDeclared)
	case *ProcessDecl:
		for _, p := range n.Ports {
			if _, err := a.resolveType(p.Type); err != nil {
				a.report(err)
			}
		}
		n.SetFlag(FlagForwardDeclared)
	}
}

// ---- Pass 2: full analysis ----

func (a *Analyzer) analyzeModule(m *Module) error {
	if m.Analyzed {
		return nil
	}
	m.Analyzed = true

	// Rebuild the import scope without the same-cycle restriction:
	// every module, including this one's own strongly connected
	// component mates, has now completed forward declaration, so type
	// aliases that cross the cycle become visible too.
	m.ImportScope.Reset()
	for _, req := range m.AST.Requires {
		if req.Resolved != nil {
			a.importModule(m, req.Resolved, false)
		}
	}
	if builtin := a.builtinModule(); builtin != nil && builtin != m {
		a.importModule(m, builtin, false)
	}

	a.module = m
	a.scope = m.DeclScope
	for _, d := range m.AST.Decls {
		if err := a.analyzeDecl(d); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeDecl(d Decl) error {
	switch n := d.(type) {
	case *ConstDecl:
		if n.Folded == nil {
			v, err := a.foldConstDecl(n)
			if err != nil {
				a.report(err)
			}
			n.Folded = v
		}
		return nil
	case *RoutineDecl:
		saved := a.scope
		a.scope = a.module.DeclScope.EnterBody()
		for _, p := range n.Params {
			a.scope.Declare(p.Name, p)
		}
		var err error
		if n.Body != nil {
			err = n.Body.Accept(a)
		}
		a.scope = saved
		return err
	case *ProcessDecl:
		return a.analyzeProcess(n)
	case *TypeDecl, *FieldDefDecl, *RequiresDecl, *PropertyDecl:
		return nil
	}
	return nil
}

func (a *Analyzer) analyzeProcess(n *ProcessDecl) error {
	saved := a.scope
	a.scope = a.module.DeclScope.EnterBody()
	defer func() { a.scope = saved }()

	for _, p := range n.Ports {
		a.scope.Declare(p.Name, p)
	}
	for _, mp := range n.MetaParams {
		a.scope.Declare(mp.Name, mp)
	}

	if n.Body.Meta != nil {
		a.inMeta = true
		err := n.Body.Meta.Accept(a)
		a.inMeta = false
		if err != nil {
			return err
		}
	}
	if n.Body.HSE != nil {
		if err := n.Body.HSE.Accept(a); err != nil {
			return err
		}
	}
	if n.Body.CHP != nil {
		if err := n.Body.CHP.Accept(a); err != nil {
			return err
		}
	}
	for _, pr := range n.Body.PRS {
		if err := a.analyzePR(pr); err != nil {
			return err
		}
	}
	for _, pr := range n.Body.Delay {
		if err := a.analyzePR(pr); err != nil {
			return err
		}
	}
	if n.Body.Property != nil && n.Body.Property.Body != nil {
		if err := n.Body.Property.Body.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzePR(pr PRNode) error {
	switch n := pr.(type) {
	case *RuleNode:
		if err := n.Guard.Accept(a); err != nil {
			return err
		}
		return a.analyzePR(n.Transition)
	case *TransitionNode:
		// Wire declarations are not yet threaded through this
		// front-end's scope system (no parser production builds a
		// WireDecl into scope), so a transition's target is accepted
		// without a "not declared" check rather than flagging every
		// prs body as an error.
		return nil
	case *DelayHoldNode:
		for _, t := range n.Transitions {
			if err := a.analyzePR(t); err != nil {
				return err
			}
		}
		if n.Cond != nil {
			return n.Cond.Accept(a)
		}
		return nil
	case *PRReplicator:
		saved := a.scope
		a.scope = a.scope.EnterSublevel()
		lo, _ := a.evalConstInt(n.Lo)
		hi, _ := a.evalConstInt(n.Hi)
		a.scope.Declare(n.Var, &VarDecl{Node: Node{Pos: n.Pos}, Name: n.Var, ResolvedType: IntRangeType{Lo: lo, Hi: hi}})
		err := a.analyzePR(n.Body)
		a.scope = saved
		return err
	}
	return nil
}

// ---- Type resolution ----

func (a *Analyzer) resolveType(t TypeNode) (Type, error) {
	if t == nil {
		return ErrorType{}, nil
	}
	if cached, ok := a.typeCache[t]; ok {
		return cached, nil
	}
	var result Type = ErrorType{}
	var err error

	switch n := t.(type) {
	case *IntRangeTypeNode:
		lo, e1 := a.evalConstInt(n.Lo)
		hi, e2 := a.evalConstInt(n.Hi)
		err = firstErr(e1, e2)
		result = IntRangeType{Lo: lo, Hi: hi}
	case *EnumTypeNode:
		result = EnumType{Symbols: n.Symbols}
	case *ArrayTypeNode:
		lo, e1 := a.evalConstInt(n.Lo)
		hi, e2 := a.evalConstInt(n.Hi)
		elem, e3 := a.resolveType(n.Elem)
		err = firstErr(e1, e2, e3)
		result = ArrayType{Lo: lo, Hi: hi, Elem: elem}
	case *RecordTypeNode:
		fields := make([]RecordField, len(n.Fields))
		for i, f := range n.Fields {
			ft, e := a.resolveType(f.Type)
			if err == nil {
				err = e
			}
			fields[i] = RecordField{Name: f.Name, Type: ft}
		}
		result = RecordType{Fields: fields}
	case *UnionTypeNode:
		members := make([]UnionMember, len(n.Arms))
		for i, arm := range n.Arms {
			mt, e := a.resolveType(arm.Type)
			if err == nil {
				err = e
			}
			members[i] = UnionMember{Name: arm.Name, Type: mt, Up: a.resolveCoercion(arm.Up), Down: a.resolveCoercion(arm.Down)}
		}
		var def *UnionMember
		if n.Default != nil {
			dt, e := a.resolveType(n.Default.Type)
			if err == nil {
				err = e
			}
			def = &UnionMember{Name: n.Default.Name, Type: dt}
		}
		result = UnionType{Members: members, Default: def}
	case *NamedTypeNode:
		lk, ok := a.module.DeclScope.Resolve(n.Name)
		if !ok {
			switch n.Name.String() {
			case "int":
				result = IntType{}
			case "bool":
				result = BoolType{}
			case "char":
				result = CharType{}
			default:
				err = &SemError{Pos: n.Pos, Message: fmt.Sprintf("unknown type %q", n.Name)}
			}
			break
		}
		if lk.Conflict {
			err = &SemError{Pos: n.Pos, Message: fmt.Sprintf("%q is ambiguous: imported from multiple modules", n.Name)}
			break
		}
		td, ok := lk.Decl.(*TypeDecl)
		if !ok {
			err = &SemError{Pos: n.Pos, Message: fmt.Sprintf("%q is not a type", n.Name)}
			break
		}
		n.Binding = td
		result, err = a.resolveType(td.Type)
		if n.Name.String() == "string" {
			result = StringType{}
		}
	case *GenericTypeNode:
		result = GenericType{Kind: n.Kind}
	case *WiredTypeNode:
		result = WiredType{NumInputs: len(n.Inputs), NumOutputs: len(n.Outputs)}
	case *DummyTypeNode:
		result = ErrorType{}
	}

	a.typeCache[t] = result
	return result, err
}

func (a *Analyzer) resolveCoercion(name Symbol) Decl {
	if !name.Valid() {
		return nil
	}
	lk, ok := a.module.DeclScope.Resolve(name)
	if !ok {
		return nil
	}
	return lk.Decl
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// ---- Constant folding ----

// constValueType infers the type of a constant declared without an
// explicit `: T` annotation, from the kind of its folded value.
func constValueType(v *ConstValue) Type {
	if v == nil {
		return ErrorType{}
	}
	switch v.Kind {
	case LitInt, LitBigInt:
		return IntType{}
	case LitChar:
		return CharType{}
	case LitString:
		return StringType{}
	case LitSymbol:
		return SymbolType{}
	case LitBool:
		return BoolType{}
	}
	return ErrorType{}
}

func (a *Analyzer) foldConstDecl(n *ConstDecl) (*ConstValue, error) {
	if n.Folded != nil {
		return n.Folded, nil
	}
	return a.evalConst(n.Value)
}

func (a *Analyzer) evalConstInt(e Expr) (int64, error) {
	v, err := a.evalConst(e)
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case LitInt:
		return v.IVal, nil
	case LitBigInt:
		return v.IVal, nil
	}
	return 0, &SemError{Pos: e.NodePos(), Message: "expected a constant integer expression"}
}

// evalConst evaluates e under the constant-folding rule (§4.4): every
// leaf must be a literal or a previously folded constant, with no
// references to variables. Function calls are never folded, calls to
// built-ins included: any call is "not a constant expression".
func (a *Analyzer) evalConst(e Expr) (*ConstValue, error) {
	switch n := e.(type) {
	case *LiteralExpr:
		switch n.Kind {
		case LitInt:
			return &ConstValue{Kind: LitInt, IVal: n.IVal}, nil
		case LitBigInt:
			if !n.BVal.IsInt64() {
				return nil, &SemError{Pos: n.Pos, Message: "constant exceeds representable range"}
			}
			return &ConstValue{Kind: LitBigInt, IVal: n.BVal.Int64()}, nil
		case LitChar:
			return &ConstValue{Kind: LitChar, CVal: n.CVal}, nil
		case LitString:
			return &ConstValue{Kind: LitString, SVal: n.SVal}, nil
		case LitSymbol:
			return &ConstValue{Kind: LitSymbol, Sym: n.Sym}, nil
		case LitBool:
			return &ConstValue{Kind: LitBool, Bool: n.Bool}, nil
		}
	case *NameExpr:
		lk, ok := a.module.DeclScope.Resolve(n.Name)
		if !ok {
			lk, ok = a.scope.Resolve(n.Name)
		}
		if !ok {
			return nil, &SemError{Pos: n.Pos, Message: fmt.Sprintf("%q is not in scope", n.Name)}
		}
		cd, ok := lk.Decl.(*ConstDecl)
		if !ok {
			return nil, &SemError{Pos: n.Pos, Message: fmt.Sprintf("%q is not a constant", n.Name)}
		}
		return a.foldConstDecl(cd)
	case *UnaryExpr:
		v, err := a.evalConst(n.Operand)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case TokMinus:
			return &ConstValue{Kind: LitInt, IVal: -v.IVal}, nil
		case TokPlus:
			return &ConstValue{Kind: LitInt, IVal: v.IVal}, nil
		case TokTilde:
			return &ConstValue{Kind: LitInt, IVal: ^v.IVal}, nil
		}
		return nil, &SemError{Pos: n.Pos, Message: "not a constant expression"}
	case *BinaryExpr:
		l, err := a.evalConst(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := a.evalConst(n.Right)
		if err != nil {
			return nil, err
		}
		return evalConstBinary(n.Pos, n.Op, l, r)
	}
	return nil, &SemError{Pos: e.NodePos(), Message: "not a constant expression"}
}

func evalConstBinary(pos Pos, op TokenKind, l, r *ConstValue) (*ConstValue, error) {
	switch op {
	case TokPlus:
		return &ConstValue{Kind: LitInt, IVal: l.IVal + r.IVal}, nil
	case TokMinus:
		return &ConstValue{Kind: LitInt, IVal: l.IVal - r.IVal}, nil
	case TokStar:
		return &ConstValue{Kind: LitInt, IVal: l.IVal * r.IVal}, nil
	case TokSlash:
		if r.IVal == 0 {
			return nil, &SemError{Pos: pos, Message: "division by zero in constant expression"}
		}
		return &ConstValue{Kind: LitInt, IVal: l.IVal / r.IVal}, nil
	case TokPercent, TokMod:
		if r.IVal == 0 {
			return nil, &SemError{Pos: pos, Message: "division by zero in constant expression"}
		}
		return &ConstValue{Kind: LitInt, IVal: l.IVal % r.IVal}, nil
	case TokCaret:
		res := new(big.Int).Exp(big.NewInt(l.IVal), big.NewInt(r.IVal), nil)
		return &ConstValue{Kind: LitInt, IVal: res.Int64()}, nil
	case TokEq:
		return &ConstValue{Kind: LitBool, Bool: l.IVal == r.IVal}, nil
	case TokNeq:
		return &ConstValue{Kind: LitBool, Bool: l.IVal != r.IVal}, nil
	case TokLt:
		return &ConstValue{Kind: LitBool, Bool: l.IVal < r.IVal}, nil
	case TokGt:
		return &ConstValue{Kind: LitBool, Bool: l.IVal > r.IVal}, nil
	case TokLe:
		return &ConstValue{Kind: LitBool, Bool: l.IVal <= r.IVal}, nil
	case TokGe:
		return &ConstValue{Kind: LitBool, Bool: l.IVal >= r.IVal}, nil
	case TokAnd:
		return &ConstValue{Kind: LitBool, Bool: l.Bool && r.Bool}, nil
	case TokOr:
		return &ConstValue{Kind: LitBool, Bool: l.Bool || r.Bool}, nil
	case TokXor:
		return &ConstValue{Kind: LitBool, Bool: l.Bool != r.Bool}, nil
	}
	return nil, &SemError{Pos: pos, Message: fmt.Sprintf("%s is not valid in a constant expression", TokenStr(op))}
}

// ---- expression type extraction ----

func exprType(e Expr) Type {
	switch n := e.(type) {
	case *LiteralExpr:
		return n.ResolvedType
	case *NameExpr:
		return n.ResolvedType
	case *BinaryExpr:
		return n.ResolvedType
	case *UnaryExpr:
		return n.ResolvedType
	case *IndexExpr:
		return n.ResolvedType
	case *SubrangeExpr:
		return n.ResolvedType
	case *FieldExpr:
		return n.ResolvedType
	case *CallExpr:
		return n.ResolvedType
	case *ArrayConstructorExpr:
		return n.ResolvedType
	case *RecordConstructorExpr:
		return n.ResolvedType
	case *TypeValueExpr:
		return n.ResolvedType
	case *ProbeValueExpr:
		return n.ResolvedType
	case *ReplicatorExpr:
		return n.ResolvedType
	}
	return ErrorType{}
}

func (a *Analyzer) declType(d Decl) Type {
	switch n := d.(type) {
	case *VarDecl:
		if n.ResolvedType != nil {
			return n.ResolvedType
		}
		t, _ := a.resolveType(n.Type)
		return t
	case *ParamDecl:
		t, _ := a.resolveType(n.Type)
		if n.HasFlag(FlagInport) {
			return PortType{Payload: t, Input: true}
		}
		if n.HasFlag(FlagOutport) {
			return PortType{Payload: t, Input: false}
		}
		return t
	case *ConstDecl:
		if n.Type != nil {
			t, _ := a.resolveType(n.Type)
			return t
		}
		return constValueType(n.Folded)
	case *MetaParamDecl:
		return GenericType{Kind: n.Kind}
	case *FieldDecl:
		t, _ := a.resolveType(n.Type)
		return t
	}
	return ErrorType{}
}

// ---- Visitor: expressions ----

func (a *Analyzer) VisitLiteralExpr(e *LiteralExpr) error {
	switch e.Kind {
	case LitInt, LitBigInt:
		e.ResolvedType = IntType{}
	case LitChar:
		e.ResolvedType = CharType{}
	case LitString:
		e.ResolvedType = StringType{}
	case LitSymbol:
		e.ResolvedType = SymbolType{}
	case LitBool:
		e.ResolvedType = BoolType{}
	}
	return nil
}

func (a *Analyzer) VisitNameExpr(e *NameExpr) error {
	lk, ok := a.scope.Resolve(e.Name)
	if !ok {
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q is not in scope", e.Name)})
		e.SetFlag(FlagErroneous)
		e.ResolvedType = ErrorType{}
		return nil
	}
	if lk.Conflict {
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q is ambiguous: imported from more than one required module", e.Name)})
		e.SetFlag(FlagErroneous)
		e.ResolvedType = ErrorType{}
		return nil
	}
	e.Binding = lk.Decl
	e.FrameDepth = lk.FrameDepth
	e.ResolvedType = a.declType(lk.Decl)
	return nil
}

func (a *Analyzer) VisitBinaryExpr(e *BinaryExpr) error {
	if err := e.Left.Accept(a); err != nil {
		return err
	}
	if err := e.Right.Accept(a); err != nil {
		return err
	}
	lt, rt := exprType(e.Left), exprType(e.Right)
	switch e.Op {
	case TokEq, TokNeq, TokLt, TokGt, TokLe, TokGe:
		if !Compatible(lt, rt) && !Compatible(rt, lt) {
			a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("cannot compare %s with %s", lt, rt)})
		}
		e.ResolvedType = BoolType{}
	case TokAnd, TokOr, TokXor:
		e.ResolvedType = BoolType{}
	case TokConcat:
		e.ResolvedType = lt
	default:
		if !Compatible(lt, rt) && !Compatible(rt, lt) {
			a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("type mismatch: %s vs %s", lt, rt)})
			e.ResolvedType = ErrorType{}
		} else {
			e.ResolvedType = IntType{}
		}
	}
	return nil
}

func (a *Analyzer) VisitUnaryExpr(e *UnaryExpr) error {
	if err := e.Operand.Accept(a); err != nil {
		return err
	}
	if e.Op == TokProbe {
		e.ResolvedType = BoolType{}
		return nil
	}
	e.ResolvedType = exprType(e.Operand)
	return nil
}

func (a *Analyzer) VisitIndexExpr(e *IndexExpr) error {
	if err := e.Base.Accept(a); err != nil {
		return err
	}
	if err := e.Index.Accept(a); err != nil {
		return err
	}
	bt := exprType(e.Base)
	if at, ok := bt.(ArrayType); ok {
		e.ResolvedType = at.Elem
		return nil
	}
	if _, ok := bt.(ErrorType); ok {
		e.ResolvedType = ErrorType{}
		return nil
	}
	a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%s is not an array", bt)})
	e.ResolvedType = ErrorType{}
	return nil
}

func (a *Analyzer) VisitSubrangeExpr(e *SubrangeExpr) error {
	if err := e.Base.Accept(a); err != nil {
		return err
	}
	if err := e.Lo.Accept(a); err != nil {
		return err
	}
	if err := e.Hi.Accept(a); err != nil {
		return err
	}
	bt := exprType(e.Base)
	at, ok := bt.(ArrayType)
	if !ok {
		if _, isErr := bt.(ErrorType); !isErr {
			a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%s is not an array", bt)})
		}
		e.ResolvedType = ErrorType{}
		return nil
	}
	lo, _ := a.evalConstInt(e.Lo)
	hi, _ := a.evalConstInt(e.Hi)
	e.ResolvedType = ArrayType{Lo: lo, Hi: hi, Elem: at.Elem}
	return nil
}

func (a *Analyzer) VisitFieldExpr(e *FieldExpr) error {
	if err := e.Base.Accept(a); err != nil {
		return err
	}
	bt := exprType(e.Base)
	if rt, ok := bt.(RecordType); ok {
		for _, f := range rt.Fields {
			if f.Name.Equal(e.Field) {
				e.ResolvedType = f.Type
				return nil
			}
		}
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("record has no field %q", e.Field)})
		e.ResolvedType = ErrorType{}
		return nil
	}
	if ut, ok := bt.(UnionType); ok {
		if m, ok := ut.Member(e.Field); ok {
			e.ResolvedType = m.Type
			return nil
		}
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("union has no arm %q", e.Field)})
		e.ResolvedType = ErrorType{}
		return nil
	}
	if _, ok := bt.(ErrorType); ok {
		e.ResolvedType = ErrorType{}
		return nil
	}
	a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%s is not a record or union", bt)})
	e.ResolvedType = ErrorType{}
	return nil
}

func (a *Analyzer) VisitCallExpr(e *CallExpr) error {
	for _, arg := range e.Args {
		if err := arg.Accept(a); err != nil {
			return err
		}
	}
	lk, ok := a.scope.Resolve(e.Callee)
	if !ok {
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q is not in scope", e.Callee)})
		e.ResolvedType = ErrorType{}
		return nil
	}
	rd, ok := lk.Decl.(*RoutineDecl)
	if !ok {
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q is not callable", e.Callee)})
		e.ResolvedType = ErrorType{}
		return nil
	}
	e.Binding = rd
	if len(e.Args) != len(rd.Params) {
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q expects %d argument(s), got %d", e.Callee, len(rd.Params), len(e.Args))})
	} else {
		for i, arg := range e.Args {
			pt, _ := a.resolveType(rd.Params[i].Type)
			if !Compatible(pt, exprType(arg)) {
				a.report(&SemError{Pos: arg.NodePos(), Message: fmt.Sprintf("argument %d: cannot use %s as %s", i+1, exprType(arg), pt)})
			}
		}
	}
	if rd.ReturnType == nil {
		a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q is a procedure, not a function", e.Callee)})
		e.ResolvedType = ErrorType{}
		return nil
	}
	e.ResolvedType, _ = a.resolveType(rd.ReturnType)
	return nil
}

func (a *Analyzer) VisitArrayConstructorExpr(e *ArrayConstructorExpr) error {
	var elem Type = ErrorType{}
	for i, x := range e.Elems {
		if err := x.Accept(a); err != nil {
			return err
		}
		if i == 0 {
			elem = exprType(x)
		} else if !Compatible(elem, exprType(x)) {
			a.report(&SemError{Pos: x.NodePos(), Message: fmt.Sprintf("array element %d: %s does not match %s", i, exprType(x), elem)})
		}
	}
	e.ResolvedType = ArrayType{Lo: 0, Hi: int64(len(e.Elems)) - 1, Elem: elem}
	return nil
}

func (a *Analyzer) VisitRecordConstructorExpr(e *RecordConstructorExpr) error {
	fields := make([]RecordField, len(e.Fields))
	for i, f := range e.Fields {
		if err := f.Value.Accept(a); err != nil {
			return err
		}
		fields[i] = RecordField{Name: f.Name, Type: exprType(f.Value)}
	}
	e.ResolvedType = RecordType{Fields: fields}
	return nil
}

func (a *Analyzer) VisitTypeValueExpr(e *TypeValueExpr) error {
	t, err := a.resolveType(e.Type)
	if err != nil {
		a.report(err)
	}
	e.ResolvedType = t
	return nil
}

func (a *Analyzer) VisitProbeValueExpr(e *ProbeValueExpr) error {
	for _, p := range e.Ports {
		if _, ok := a.scope.Resolve(p); !ok {
			a.report(&SemError{Pos: e.Pos, Message: fmt.Sprintf("%q is not in scope", p)})
		}
	}
	if err := e.Body.Accept(a); err != nil {
		return err
	}
	e.ResolvedType = BoolType{}
	return nil
}

func (a *Analyzer) VisitReplicatorExpr(e *ReplicatorExpr) error {
	lo, errLo := a.evalConstInt(e.Lo)
	hi, errHi := a.evalConstInt(e.Hi)
	if err := firstErr(errLo, errHi); err != nil {
		a.report(err)
	}
	saved := a.scope
	a.scope = a.scope.EnterSublevel()
	a.scope.Declare(e.Var, &VarDecl{Node: Node{Pos: e.Pos}, Name: e.Var, ResolvedType: IntRangeType{Lo: lo, Hi: hi}})
	err := e.Body.Accept(a)
	a.scope = saved
	if err != nil {
		return err
	}
	e.ResolvedType = exprType(e.Body)
	return nil
}

// ---- Visitor: statements ----

func (a *Analyzer) VisitSkipStmt(*SkipStmt) error { return nil }

func (a *Analyzer) VisitVarDecl(d *VarDecl) error {
	t, err := a.resolveType(d.Type)
	if err != nil {
		a.report(err)
	}
	d.ResolvedType = t
	if !a.scope.Declare(d.Name, d) {
		a.report(&SemError{Pos: d.Pos, Message: fmt.Sprintf("duplicate declaration of %q", d.Name)})
	}
	if d.Init != nil {
		if err := d.Init.Accept(a); err != nil {
			return err
		}
		if !Compatible(t, exprType(d.Init)) {
			a.report(&SemError{Pos: d.Pos, Message: fmt.Sprintf("cannot initialize %s with %s", t, exprType(d.Init))})
		}
	}
	return nil
}

func (a *Analyzer) VisitAssignStmt(s *AssignStmt) error {
	if err := s.LHS.Accept(a); err != nil {
		return err
	}
	if err := s.RHS.Accept(a); err != nil {
		return err
	}
	lt, rt := exprType(s.LHS), exprType(s.RHS)
	if !Compatible(lt, rt) {
		a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("cannot assign %s to %s", rt, lt)})
	}
	return nil
}

func (a *Analyzer) VisitBoolSetStmt(s *BoolSetStmt) error {
	if err := s.LHS.Accept(a); err != nil {
		return err
	}
	t := exprType(s.LHS)
	if _, ok := t.(BoolType); !ok {
		if _, isErr := t.(ErrorType); !isErr {
			a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("boolean-set target must be bool, got %s", t)})
		}
	}
	return nil
}

func (a *Analyzer) VisitCommStmt(s *CommStmt) error {
	if err := s.Port.Accept(a); err != nil {
		return err
	}
	pt := exprType(s.Port)
	port, isPort := pt.(PortType)
	if !isPort {
		if _, isErr := pt.(ErrorType); !isErr {
			a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("%s is not a port", pt)})
		}
	}
	if s.Value == nil {
		return nil
	}
	// `port?x` both declares and binds x when it names no existing
	// binding: CHP receive is the binding form for a process's local
	// variables, not just an assignment to a pre-declared one.
	if s.Kind == CommRecv {
		if ne, ok := s.Value.(*NameExpr); ok {
			if _, found := a.scope.Resolve(ne.Name); !found {
				payload := Type(ErrorType{})
				if isPort {
					payload = port.Payload
				}
				vd := &VarDecl{Node: Node{Pos: ne.Pos}, Name: ne.Name, ResolvedType: payload}
				a.scope.Declare(ne.Name, vd)
				ne.Binding = vd
				ne.ResolvedType = payload
				return nil
			}
		}
	}
	if err := s.Value.Accept(a); err != nil {
		return err
	}
	if isPort && !Compatible(port.Payload, exprType(s.Value)) {
		a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("cannot communicate %s over a port of %s", exprType(s.Value), port.Payload)})
	}
	return nil
}

func (a *Analyzer) VisitGuardedCmd(g *GuardedCmd) error {
	if err := g.Guard.Accept(a); err != nil {
		return err
	}
	if _, ok := exprType(g.Guard).(BoolType); !ok {
		if _, isErr := exprType(g.Guard).(ErrorType); !isErr {
			a.report(&SemError{Pos: g.Pos, Message: fmt.Sprintf("guard must be bool, got %s", exprType(g.Guard))})
		}
	}
	return g.Body.Accept(a)
}

func (a *Analyzer) VisitSelectionStmt(s *SelectionStmt) error {
	if len(s.Arms) == 0 {
		a.warn(s.Pos, "selection has no guards")
	}
	for _, arm := range s.Arms {
		if err := arm.Accept(a); err != nil {
			return err
		}
	}
	if s.Default != nil {
		if err := s.Default.Body.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) VisitLoopStmt(s *LoopStmt) error { return s.Body.Accept(a) }

func (a *Analyzer) VisitCompoundStmt(s *CompoundStmt) error {
	saved := a.scope
	a.scope = a.scope.EnterLevel()
	for _, st := range s.Stmts {
		if err := st.Accept(a); err != nil {
			a.scope = saved
			return err
		}
	}
	a.scope = saved
	return nil
}

func (a *Analyzer) VisitParStmt(s *ParStmt) error {
	for _, st := range s.Stmts {
		if err := st.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) VisitConnectStmt(s *ConnectStmt) error {
	if !a.inMeta {
		a.report(&SemError{Pos: s.Pos, Message: "connect can only occur in a meta process"})
	}
	if err := s.A.Accept(a); err != nil {
		return err
	}
	if err := s.B.Accept(a); err != nil {
		return err
	}
	ap, aok := exprType(s.A).(PortType)
	bp, bok := exprType(s.B).(PortType)
	if aok && bok {
		if ap.Input == bp.Input {
			a.report(&SemError{Pos: s.Pos, Message: "connect requires one input port and one output port"})
		} else if !ap.Payload.Equal(bp.Payload) {
			a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("connect port payload mismatch: %s vs %s", ap.Payload, bp.Payload)})
		}
	}
	return nil
}

func (a *Analyzer) VisitInstanceDecl(d *InstanceDecl) error {
	if !a.inMeta {
		a.report(&SemError{Pos: d.Pos, Message: "An instance declaration can only occur in a meta process"})
	}
	lk, ok := a.scope.Resolve(d.Type)
	if !ok {
		a.report(&SemError{Pos: d.Pos, Message: fmt.Sprintf("%q is not in scope", d.Type)})
	} else if pd, ok := lk.Decl.(*ProcessDecl); ok {
		d.Binding = pd
		if len(d.Args) != len(pd.MetaParams) {
			a.report(&SemError{Pos: d.Pos, Message: fmt.Sprintf("%q expects %d meta argument(s), got %d", d.Type, len(pd.MetaParams), len(d.Args))})
		}
	} else {
		a.report(&SemError{Pos: d.Pos, Message: fmt.Sprintf("%q is not a process", d.Type)})
	}
	if !a.scope.Declare(d.Name, d) {
		a.report(&SemError{Pos: d.Pos, Message: fmt.Sprintf("duplicate declaration of %q", d.Name)})
	}
	for _, arg := range d.Args {
		if err := arg.Accept(a); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) VisitProcCallStmt(s *ProcCallStmt) error {
	for _, arg := range s.Args {
		if err := arg.Accept(a); err != nil {
			return err
		}
	}
	lk, ok := a.scope.Resolve(s.Callee)
	if !ok {
		a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("%q is not in scope", s.Callee)})
		return nil
	}
	rd, ok := lk.Decl.(*RoutineDecl)
	if !ok {
		a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("%q is not callable", s.Callee)})
		return nil
	}
	s.Binding = rd
	if len(s.Args) != len(rd.Params) {
		a.report(&SemError{Pos: s.Pos, Message: fmt.Sprintf("%q expects %d argument(s), got %d", s.Callee, len(rd.Params), len(s.Args))})
	}
	return nil
}

func (a *Analyzer) VisitReplicatorStmt(s *ReplicatorStmt) error {
	lo, _ := a.evalConstInt(s.Lo)
	hi, _ := a.evalConstInt(s.Hi)
	saved := a.scope
	a.scope = a.scope.EnterSublevel()
	a.scope.Declare(s.Var, &VarDecl{Node: Node{Pos: s.Pos}, Name: s.Var, ResolvedType: IntRangeType{Lo: lo, Hi: hi}})
	err := s.Body.Accept(a)
	a.scope = saved
	return err
}

func (a *Analyzer) VisitEndStmt(*EndStmt) error { return nil }
