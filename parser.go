package chp

import "fmt"

// Parser is a recursive-descent parser with a Pratt-style precedence
// table for binary expressions. It holds one token of lookahead
// (whatever the Lexer currently buffers) and reports every failure
// through rec, its installed Recovery, rather than stopping at the
// first error: a top-level declaration that fails to parse (including
// a failure anywhere inside its body) is reported and dropped from the
// module, and the parser resynchronizes at the next top-level
// declaration boundary.
type Parser struct {
	lex *Lexer
	rec *Recovery

	tok Token
}

// NewParser creates a parser reading from lex, reporting diagnostics
// through rec.
func NewParser(lex *Lexer, rec *Recovery) *Parser {
	return &Parser{lex: lex, rec: rec}
}

func (p *Parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) at(k TokenKind) bool { return p.tok.Kind == k }

func (p *Parser) accept(k TokenKind) (bool, error) {
	if p.tok.Kind != k {
		return false, nil
	}
	if err := p.advance(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if p.tok.Kind != k {
		return Token{}, &ParseError{Pos: p.tok.Pos, Expected: []TokenKind{k}, Found: p.tok}
	}
	t := p.tok
	return t, p.advance()
}

func (p *Parser) reportParse(err error) {
	if pe, ok := err.(*ParseError); ok {
		p.rec.Report(pe.Diagnostic(""))
		return
	}
	if le, ok := err.(*LexError); ok {
		p.rec.Report(Diagnostic{Pos: le.Pos, Severity: SevError, Message: le.Message, Line: le.Line})
		return
	}
	p.rec.Report(Diagnostic{Pos: p.tok.Pos, Severity: SevError, Message: err.Error()})
}

// synchronize skips tokens until a statement/declaration boundary
// (`;`, or one of the tokens that can start the next top-level item)
// so one malformed construct doesn't cascade into a flood of
// unrelated parse errors.
func (p *Parser) synchronize() {
	for {
		switch p.tok.Kind {
		case TokSemi:
			p.advance()
			return
		case TokEOF, TokExport, TokType, TokConst, TokField, TokFunction,
			TokProcedure, TokProcess, TokRequires:
			return
		}
		if err := p.advance(); err != nil {
			return
		}
	}
}

// ident parses one identifier into an interned Symbol.
func (p *Parser) ident() (Symbol, Pos, error) {
	t, err := p.expect(TokIdent)
	if err != nil {
		return Symbol{}, Pos{}, err
	}
	return NewSymbol(t.Text), t.Pos, nil
}

// ParseModule parses one complete source file: its requires edges
// followed by top-level declarations, in source order.
func (p *Parser) ParseModule() (mod *ModuleDecl, err error) {
	if err := p.advance(); err != nil {
		return nil, err
	}

	mod = &ModuleDecl{}

	for p.at(TokRequires) {
		r, err := p.parseRequires()
		if err != nil {
			p.reportParse(err)
			p.synchronize()
			continue
		}
		mod.Requires = append(mod.Requires, r)
	}

	for !p.at(TokEOF) {
		d, err := p.parseTopDecl()
		if err != nil {
			p.reportParse(err)
			p.synchronize()
			continue
		}
		if d != nil {
			mod.Decls = append(mod.Decls, d)
		}
	}

	return mod, nil
}

func (p *Parser) parseRequires() (*RequiresDecl, error) {
	start, err := p.expect(TokRequires)
	if err != nil {
		return nil, err
	}
	s, err := p.expect(TokString)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	return &RequiresDecl{Node: Node{Pos: start.Pos.Join(s.Pos)}, Path: s.SVal}, nil
}

// parseTopDecl parses one top-level item: an optional `export`
// prefix followed by a type/const/field/function/procedure/process
// definition.
func (p *Parser) parseTopDecl() (Decl, error) {
	exported := false
	if ok, err := p.accept(TokExport); err != nil {
		return nil, err
	} else if ok {
		exported = true
	}

	var d Decl
	var err error
	switch p.tok.Kind {
	case TokType:
		d, err = p.parseTypeDecl()
	case TokConst:
		d, err = p.parseConstDecl()
	case TokField:
		d, err = p.parseFieldDefDecl()
	case TokFunction, TokProcedure:
		d, err = p.parseRoutineDecl()
	case TokProcess:
		d, err = p.parseProcessDecl()
	default:
		return nil, &ParseError{
			Pos:      p.tok.Pos,
			Expected: []TokenKind{TokType, TokConst, TokField, TokFunction, TokProcedure, TokProcess},
			Found:    p.tok,
		}
	}
	if err != nil {
		return nil, err
	}
	if exported {
		d.SetFlag(FlagExported)
	}
	return d, nil
}

func (p *Parser) parseTypeDecl() (*TypeDecl, error) {
	start, err := p.expect(TokType)
	if err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEq); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	return &TypeDecl{Node: Node{Pos: start.Pos}, Name: name, Type: ty}, nil
}

func (p *Parser) parseConstDecl() (*ConstDecl, error) {
	start, err := p.expect(TokConst)
	if err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	var ty TypeNode
	if ok, err := p.accept(TokColon); err != nil {
		return nil, err
	} else if ok {
		ty, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokEq); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	return &ConstDecl{Node: Node{Pos: start.Pos}, Name: name, Type: ty, Value: val}, nil
}

func (p *Parser) parseFieldDefDecl() (*FieldDefDecl, error) {
	start, err := p.expect(TokField)
	if err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEq); err != nil {
		return nil, err
	}
	base, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	lo, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDotDot); err != nil {
		return nil, err
	}
	hi, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	rbPos, err := p.expect(TokRBracket)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	rng := &SubrangeExpr{Node: Node{Pos: lo.NodePos().Join(rbPos.Pos)}, Lo: lo, Hi: hi}
	return &FieldDefDecl{Node: Node{Pos: start.Pos}, Name: name, Base: base, Range: rng}, nil
}

// parseParamList parses a parenthesized, `;`-separated parameter
// list shared by routines and process port lists. Each group shares
// one type: `a, b: int; c: bool`.
func (p *Parser) parseParamList() ([]*ParamDecl, error) {
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	var params []*ParamDecl
	if p.at(TokRParen) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return params, nil
	}
	for {
		kind := ParamValue
		switch p.tok.Kind {
		case TokConst:
			kind = ParamConst
			p.advance()
		}
		var names []Symbol
		var poses []Pos
		var dirs []Flag
		for {
			n, pos, err := p.ident()
			if err != nil {
				return nil, err
			}
			names = append(names, n)
			poses = append(poses, pos)
			var dir Flag
			if p.at(TokRecv) {
				dir = FlagInport
				p.advance()
			} else if p.at(TokSend) {
				dir = FlagOutport
				p.advance()
			}
			dirs = append(dirs, dir)
			if ok, err := p.accept(TokComma); err != nil {
				return nil, err
			} else if ok {
				continue
			}
			break
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		for i, n := range names {
			pd := &ParamDecl{Node: Node{Pos: poses[i]}, Name: n, Type: ty, Kind: kind}
			if dirs[i] != 0 {
				pd.SetFlag(dirs[i])
			}
			params = append(params, pd)
		}
		if ok, err := p.accept(TokSemi); err != nil {
			return nil, err
		} else if ok {
			if p.at(TokRParen) {
				break
			}
			continue
		}
		break
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseRoutineDecl() (*RoutineDecl, error) {
	start := p.tok
	kind := RoutineFunction
	if p.at(TokProcedure) {
		kind = RoutineProcedure
	}
	p.advance()

	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	var ret TypeNode
	if kind == RoutineFunction {
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &RoutineDecl{Node: Node{Pos: start.Pos}, Kind: kind, Name: name, Params: params, ReturnType: ret, Body: body}, nil
}

func (p *Parser) parseProcessDecl() (*ProcessDecl, error) {
	start, err := p.expect(TokProcess)
	if err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}

	var metaParams []*MetaParamDecl
	if ok, err := p.accept(TokLt); err != nil {
		return nil, err
	} else if ok {
		for {
			n, pos, err := p.ident()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokColon); err != nil {
				return nil, err
			}
			kind, err := p.parseGenericKind()
			if err != nil {
				return nil, err
			}
			metaParams = append(metaParams, &MetaParamDecl{Node: Node{Pos: pos}, Name: n, Kind: kind})
			if ok, err := p.accept(TokComma); err != nil {
				return nil, err
			} else if ok {
				continue
			}
			break
		}
		if _, err := p.expect(TokGt); err != nil {
			return nil, err
		}
	}

	ports, err := p.parseParamList()
	if err != nil {
		return nil, err
	}

	var body ProcessBody
	for {
		switch p.tok.Kind {
		case TokMeta:
			p.advance()
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			cs, ok := s.(*CompoundStmt)
			if !ok {
				cs = &CompoundStmt{Stmts: []Stmt{s}}
			}
			body.Meta = cs
		case TokHSE:
			p.advance()
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			body.HSE = s
		case TokCHP:
			p.advance()
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			body.CHP = s
		case TokPRS:
			p.advance()
			rules, err := p.parsePRBody()
			if err != nil {
				return nil, err
			}
			body.PRS = rules
		case TokDelay:
			p.advance()
			rules, err := p.parsePRBody()
			if err != nil {
				return nil, err
			}
			body.Delay = rules
		case TokProperty:
			prop, err := p.parsePropertyDecl()
			if err != nil {
				return nil, err
			}
			body.Property = prop
		default:
			goto done
		}
	}
done:
	return &ProcessDecl{Node: Node{Pos: start.Pos}, Name: name, MetaParams: metaParams, Ports: ports, Body: body}, nil
}

func (p *Parser) parseGenericKind() (GenericKind, error) {
	switch p.tok.Kind {
	case TokInt_:
		p.advance()
		return GenericInt, nil
	case TokBool:
		p.advance()
		return GenericBool, nil
	case TokSymbolKw:
		p.advance()
		return GenericSymbol, nil
	case TokType:
		p.advance()
		return GenericType, nil
	}
	return 0, &ParseError{Pos: p.tok.Pos, Expected: []TokenKind{TokInt_, TokBool, TokSymbolKw, TokType}, Found: p.tok}
}

func (p *Parser) parsePropertyDecl() (*PropertyDecl, error) {
	start, err := p.expect(TokProperty)
	if err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &PropertyDecl{Node: Node{Pos: start.Pos}, Name: name, Body: body}, nil
}

// ---- types ----

func (p *Parser) parseType() (TypeNode, error) {
	switch p.tok.Kind {
	case TokInt_:
		p.advance()
		return &NamedTypeNode{Name: NewSymbol("int")}, nil
	case TokBool:
		p.advance()
		return &NamedTypeNode{Name: NewSymbol("bool")}, nil
	case TokArray:
		return p.parseArrayType()
	case TokRecord:
		return p.parseRecordType()
	case TokUnion:
		return p.parseUnionType()
	case TokLBrace:
		return p.parseBraceType()
	case TokIdent:
		n, pos, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &NamedTypeNode{Node: Node{Pos: pos}, Name: n}, nil
	}
	return nil, &ParseError{Pos: p.tok.Pos, Message: fmt.Sprintf("expected a type, found %s", p.tok)}
}

// parseArrayType parses `array[l1..h1, l2..h2, ...] of T`, desugaring
// multiple bound pairs into nested ArrayTypeNodes, innermost bound
// pair closest to the element type.
func (p *Parser) parseArrayType() (TypeNode, error) {
	start, err := p.expect(TokArray)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	var los, his []Expr
	for {
		lo, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokDotDot); err != nil {
			return nil, err
		}
		hi, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		los = append(los, lo)
		his = append(his, hi)
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		break
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokOf); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	for i := len(los) - 1; i >= 0; i-- {
		elem = &ArrayTypeNode{Node: Node{Pos: start.Pos}, Lo: los[i], Hi: his[i], Elem: elem}
	}
	return elem, nil
}

func (p *Parser) parseRecordType() (TypeNode, error) {
	start, err := p.expect(TokRecord)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var fields []*FieldDecl
	for !p.at(TokRBrace) {
		var names []Symbol
		var poses []Pos
		for {
			n, pos, err := p.ident()
			if err != nil {
				return nil, err
			}
			names = append(names, n)
			poses = append(poses, pos)
			if ok, err := p.accept(TokComma); err != nil {
				return nil, err
			} else if ok {
				continue
			}
			break
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		for i, n := range names {
			fields = append(fields, &FieldDecl{Node: Node{Pos: poses[i]}, Name: n, Type: ty})
		}
		if _, err := p.expect(TokSemi); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &RecordTypeNode{Node: Node{Pos: start.Pos}, Fields: fields}, nil
}

func (p *Parser) parseUnionType() (TypeNode, error) {
	start, err := p.expect(TokUnion)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var arms []UnionArm
	var def *UnionArm
	for !p.at(TokRBrace) {
		if ok, err := p.accept(TokDefault); err != nil {
			return nil, err
		} else if ok {
			if _, err := p.expect(TokColon); err != nil {
				return nil, err
			}
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokSemi); err != nil {
				return nil, err
			}
			def = &UnionArm{Type: ty}
			continue
		}
		name, _, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		arm := UnionArm{Name: name, Type: ty}
		for p.at(TokIdent) && (p.tok.Text == "up" || p.tok.Text == "down") {
			isUp := p.tok.Text == "up"
			p.advance()
			coerce, _, err := p.ident()
			if err != nil {
				return nil, err
			}
			if isUp {
				arm.Up = coerce
			} else {
				arm.Down = coerce
			}
		}
		if _, err := p.expect(TokSemi); err != nil {
			return nil, err
		}
		arms = append(arms, arm)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &UnionTypeNode{Node: Node{Pos: start.Pos}, Arms: arms, Default: def}, nil
}

// parseBraceType disambiguates `{lo..hi}` (integer subrange) from
// `{a, b, c}` (enum) by parsing the first element then checking what
// follows it.
func (p *Parser) parseBraceType() (TypeNode, error) {
	start, err := p.expect(TokLBrace)
	if err != nil {
		return nil, err
	}
	first, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if ok, err := p.accept(TokDotDot); err != nil {
		return nil, err
	} else if ok {
		hi, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBrace); err != nil {
			return nil, err
		}
		return &IntRangeTypeNode{Node: Node{Pos: start.Pos}, Lo: first, Hi: hi}, nil
	}

	sym, ok := first.(*NameExpr)
	if !ok {
		return nil, &ParseError{Pos: start.Pos, Message: "expected an enum symbol list or an integer range"}
	}
	syms := []Symbol{sym.Name}
	for {
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
		n, _, err := p.ident()
		if err != nil {
			return nil, err
		}
		syms = append(syms, n)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &EnumTypeNode{Node: Node{Pos: start.Pos}, Symbols: syms}, nil
}

// ---- statements ----

func (p *Parser) parseStmt() (Stmt, error) {
	switch p.tok.Kind {
	case TokSkip:
		start := p.tok
		p.advance()
		return &SkipStmt{Node: Node{Pos: start.Pos}}, nil
	case TokLBrace:
		return p.parseCompound()
	case TokLBracket:
		return p.parseSelection(false)
	case TokStar:
		return p.parseLoop()
	case TokConnect:
		return p.parseConnect()
	case TokLShift:
		return p.parseReplicatorStmt()
	case TokInstanceKw:
		return p.parseInstance()
	case TokVar:
		return p.parseVarDecl()
	}
	return p.parseSimpleStmt()
}

// parseVarDecl parses `var x, y: T;`, splitting a multi-name
// declaration into one VarDecl per name sharing the single parsed
// type, per the desugaring rule. A single name yields that VarDecl
// directly; more than one is wrapped in a CompoundStmt so the body
// still sees one Stmt per declared name in source order.
func (p *Parser) parseVarDecl() (Stmt, error) {
	start := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	var names []Symbol
	var poss []Pos
	for {
		name, pos, err := p.ident()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		poss = append(poss, pos)
		ok, err := p.accept(TokComma)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	var init Expr
	if ok, err := p.accept(TokAssign); err != nil {
		return nil, err
	} else if ok {
		init, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	decls := make([]Stmt, len(names))
	for i, name := range names {
		decls[i] = &VarDecl{Node: Node{Pos: poss[i]}, Name: name, Type: typ, Init: init}
	}
	if len(decls) == 1 {
		return decls[0], nil
	}
	return &CompoundStmt{Node: Node{Pos: start}, Stmts: decls}, nil
}

// parseSimpleStmt parses one of: communication, assignment,
// boolean-set, or a procedure call, then folds any `,`-separated
// continuation into a ParStmt. A following `;` is consumed if present;
// the last statement before `}` or `]` needs none.
func (p *Parser) parseSimpleStmt() (Stmt, error) {
	first, err := p.parseOneSimpleStmt()
	if err != nil {
		return nil, err
	}
	stmts := []Stmt{first}
	for {
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
		s, err := p.parseOneSimpleStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.accept(TokSemi); err != nil {
		return nil, err
	}
	if len(stmts) == 1 {
		return stmts[0], nil
	}
	return &ParStmt{Stmts: stmts}, nil
}

// parseOneSimpleStmt parses one communication, assignment,
// boolean-set, or procedure-call statement. The left-hand side is
// parsed through parsePostfix rather than the full Pratt climb,
// deliberately: an L-value is never itself a binary expression, and
// stopping short of the binary operators is what lets a bare `+` or
// `-` immediately after it be read as the boolean-set suffix instead
// of being swallowed as the start of an (invalid) arithmetic operand.
func (p *Parser) parseOneSimpleStmt() (Stmt, error) {
	start := p.tok
	lhs, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case TokAssign:
		p.advance()
		rhs, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Node: Node{Pos: start.Pos}, LHS: lhs, RHS: rhs}, nil
	case TokPlus:
		p.advance()
		return &BoolSetStmt{Node: Node{Pos: start.Pos}, LHS: lhs, Up: true}, nil
	case TokMinus:
		p.advance()
		return &BoolSetStmt{Node: Node{Pos: start.Pos}, LHS: lhs, Up: false}, nil
	case TokSend, TokSendProbe, TokRecv, TokPeek:
		kind := CommSend
		switch p.tok.Kind {
		case TokSendProbe:
			kind = CommSendProbe
		case TokRecv:
			kind = CommRecv
		case TokPeek:
			kind = CommPeek
		}
		p.advance()
		var val Expr
		if !p.at(TokSemi) && !p.at(TokComma) {
			val, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
		return &CommStmt{Node: Node{Pos: start.Pos}, Port: lhs, Kind: kind, Value: val}, nil
	}
	if ce, ok := lhs.(*CallExpr); ok {
		return &ProcCallStmt{Node: Node{Pos: start.Pos}, Callee: ce.Callee, Args: ce.Args}, nil
	}
	return nil, &ParseError{Pos: p.tok.Pos, Message: fmt.Sprintf("expected a statement, found %s", p.tok)}
}

func (p *Parser) parseCompound() (Stmt, error) {
	start, err := p.expect(TokLBrace)
	if err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.at(TokRBrace) {
		s, err := p.parseParStmtList()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	if len(stmts) == 1 {
		return stmts[0], nil
	}
	return &CompoundStmt{Node: Node{Pos: start.Pos}, Stmts: stmts}, nil
}

// parseParStmtList parses one statement already folded by
// parseSimpleStmt, or a full control-flow statement or var
// declaration, consuming a following `;` if present.
func (p *Parser) parseParStmtList() (Stmt, error) {
	switch p.tok.Kind {
	case TokLBrace, TokLBracket, TokStar, TokConnect, TokLShift, TokInstanceKw, TokSkip, TokVar:
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if p.at(TokSemi) {
			p.advance()
		}
		return s, nil
	}
	return p.parseSimpleStmt()
}

// parseSelection parses `[g1->s1 [] g2->s2 ... ]` (deterministic,
// sep `[]`) or `[g1->s1 [:] g2->s2 ... else -> sd]` (nondeterministic,
// sep `[:]`, with an optional trailing else arm).
func (p *Parser) parseSelection(asLoopBody bool) (*SelectionStmt, error) {
	start, err := p.expect(TokLBracket)
	if err != nil {
		return nil, err
	}

	sel := &SelectionStmt{Node: Node{Pos: start.Pos}, Deterministic: true}
	sawSeparator := false

	arm, err := p.parseGuardedCmd()
	if err != nil {
		return nil, err
	}
	sel.Arms = append(sel.Arms, arm)

	// Neither separator carries a dedicated lexer token: `[]` between
	// arms is just an adjacent `[` `]` pair, and `[:]` is `[` `:` `]`.
	// The lone closing `]` that ends the whole selection is what
	// distinguishes "no more arms" from "here comes a separator",
	// since a separator always starts with a fresh `[`.
	for !p.at(TokRBracket) {
		sepPos := p.tok.Pos
		if _, err := p.expect(TokLBracket); err != nil {
			return nil, err
		}
		nondet := false
		if ok, err := p.accept(TokColon); err != nil {
			return nil, err
		} else if ok {
			nondet = true
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		if sawSeparator && nondet != !sel.Deterministic {
			return nil, &ParseError{Pos: sepPos, Message: "cannot mix `[]` and `[:]` separators in one selection"}
		}
		sel.Deterministic = !nondet
		sawSeparator = true

		if p.at(TokIdent) && p.tok.Text == "else" {
			p.advance()
			if _, err := p.expect(TokArrow); err != nil {
				return nil, err
			}
			body, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			sel.Default = &GuardedCmd{Body: body}
			break
		}

		arm, err := p.parseGuardedCmd()
		if err != nil {
			return nil, err
		}
		sel.Arms = append(sel.Arms, arm)
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return sel, nil
}

func (p *Parser) parseGuardedCmd() (*GuardedCmd, error) {
	start := p.tok
	guard, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokArrow); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &GuardedCmd{Node: Node{Pos: start.Pos}, Guard: guard, Body: body}, nil
}

// parseLoop parses `*[ ... ]`. The shared EndStmt is injected once
// here and threaded onto every arm of the loop's selection body, so
// the executor (out of scope) can set one breakpoint that fires at
// the end of any iteration regardless of which guard fired.
func (p *Parser) parseLoop() (*LoopStmt, error) {
	start, err := p.expect(TokStar)
	if err != nil {
		return nil, err
	}
	sel, err := p.parseSelection(true)
	if err != nil {
		return nil, err
	}
	end := &EndStmt{}
	for _, arm := range sel.Arms {
		arm.EndMarker = end
	}
	if sel.Default != nil {
		sel.Default.EndMarker = end
	}
	return &LoopStmt{Node: Node{Pos: start.Pos}, Body: sel, EndMarker: end}, nil
}

func (p *Parser) parseConnect() (Stmt, error) {
	start, err := p.expect(TokConnect)
	if err != nil {
		return nil, err
	}
	a, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	b, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	return &ConnectStmt{Node: Node{Pos: start.Pos}, A: a, B: b}, nil
}

func (p *Parser) parseInstance() (Stmt, error) {
	start, err := p.expect(TokInstanceKw)
	if err != nil {
		return nil, err
	}
	name, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	ty, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	var args []Expr
	if ok, err := p.accept(TokLParen); err != nil {
		return nil, err
	} else if ok {
		for !p.at(TokRParen) {
			a, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if ok, err := p.accept(TokComma); err != nil {
				return nil, err
			} else if !ok {
				break
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokSemi); err != nil {
		return nil, err
	}
	return &InstanceDecl{Node: Node{Pos: start.Pos}, Name: name, Type: ty, Args: args}, nil
}

// parseReplicatorStmt parses <<op i: lo..hi: body>> used as a
// statement, where op is `,` (parallel) or `;` (sequential).
func (p *Parser) parseReplicatorStmt() (Stmt, error) {
	start, err := p.expect(TokLShift)
	if err != nil {
		return nil, err
	}
	op := p.tok.Kind
	if op != TokComma && op != TokSemi {
		return nil, &ParseError{Pos: p.tok.Pos, Message: fmt.Sprintf("expected ',' or ';', found %s", p.tok)}
	}
	p.advance()
	varName, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	lo, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDotDot); err != nil {
		return nil, err
	}
	hi, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRShift); err != nil {
		return nil, err
	}
	return &ReplicatorStmt{Node: Node{Pos: start.Pos}, Op: op, Var: varName, Lo: lo, Hi: hi, Body: body}, nil
}

// ---- production rules ----

func (p *Parser) parsePRBody() ([]PRNode, error) {
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var rules []PRNode
	for !p.at(TokRBrace) {
		r, err := p.parsePRItem()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
		if ok, err := p.accept(TokSemi); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return rules, nil
}

func (p *Parser) parsePRItem() (PRNode, error) {
	if p.at(TokLShift) {
		return p.parsePRReplicator()
	}
	if p.at(TokLBrace) {
		return p.parseDelayHold()
	}
	start := p.tok
	guard, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokArrow); err != nil {
		return nil, err
	}
	trans, err := p.parseTransition()
	if err != nil {
		return nil, err
	}
	return &RuleNode{Node: Node{Pos: start.Pos}, Guard: guard, Transition: trans}, nil
}

func (p *Parser) parseTransition() (*TransitionNode, error) {
	name, pos, err := p.ident()
	if err != nil {
		return nil, err
	}
	up := true
	switch p.tok.Kind {
	case TokPlus:
		up = true
		p.advance()
	case TokMinus:
		up = false
		p.advance()
	default:
		return nil, &ParseError{Pos: p.tok.Pos, Message: fmt.Sprintf("expected '+' or '-', found %s", p.tok)}
	}
	return &TransitionNode{Node: Node{Pos: pos}, Var: name, Up: up}, nil
}

func (p *Parser) parseDelayHold() (*DelayHoldNode, error) {
	start, err := p.expect(TokLBrace)
	if err != nil {
		return nil, err
	}
	var transitions []*TransitionNode
	for {
		t, err := p.parseTransition()
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRequires); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokGt); err != nil {
		return nil, err
	}
	num, err := p.expect(TokInt)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &DelayHoldNode{Node: Node{Pos: start.Pos}, Transitions: transitions, Cond: cond, Numerator: int(num.IVal)}, nil
}

func (p *Parser) parsePRReplicator() (PRNode, error) {
	start, err := p.expect(TokLShift)
	if err != nil {
		return nil, err
	}
	varName, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	lo, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDotDot); err != nil {
		return nil, err
	}
	hi, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	body, err := p.parsePRItem()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRShift); err != nil {
		return nil, err
	}
	return &PRReplicator{Node: Node{Pos: start.Pos}, Var: varName, Lo: lo, Hi: hi, Body: body}, nil
}

// ---- expressions (Pratt precedence climbing) ----

type opInfo struct {
	prec   int
	rAssoc bool
}

// binOps is the Pratt precedence table. Levels, loosest to tightest:
// or/and/xor (one level), comparisons, concat, additive,
// multiplicative, power. Every level is left-associative, power
// included. The parser's precedence-fixup rotation referenced by the
// design notes falls out naturally from this table-driven climb: a
// right operand parsed at a lower minimum precedence than its
// operator, then re-examined against the next operator in the stream,
// produces the same left-leaning tree a post-hoc rotation would
// otherwise have to repair.
var binOps = map[TokenKind]opInfo{
	TokOr:      {1, false},
	TokAnd:     {1, false},
	TokXor:     {1, false},
	TokEq:      {2, false},
	TokNeq:     {2, false},
	TokLt:      {2, false},
	TokGt:      {2, false},
	TokLe:      {2, false},
	TokGe:      {2, false},
	TokConcat:  {3, false},
	TokPlus:    {4, false},
	TokMinus:   {4, false},
	TokStar:    {5, false},
	TokSlash:   {5, false},
	TokPercent: {5, false},
	TokMod:     {5, false},
	TokCaret:   {6, false},
}

func (p *Parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		info, ok := binOps[p.tok.Kind]
		if !ok || info.prec < minPrec {
			break
		}
		op := p.tok.Kind
		opPos := p.tok.Pos
		p.advance()
		nextMin := info.prec + 1
		if info.rAssoc {
			nextMin = info.prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Node: Node{Pos: opPos}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseUnary dispatches on the token that opens a unary expression.
// `#` is ambiguous between the probe-count prefix operator and the
// opener of a value-probe `#{...}`; the two are told apart by
// whether a `{` immediately follows.
func (p *Parser) parseUnary() (Expr, error) {
	switch p.tok.Kind {
	case TokPlus, TokMinus, TokTilde:
		op := p.tok.Kind
		pos := p.tok.Pos
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Node: Node{Pos: pos}, Op: op, Operand: operand}, nil
	case TokProbe:
		pos := p.tok.Pos
		p.advance()
		if p.at(TokLBrace) {
			return p.parseProbeValue(pos)
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Node: Node{Pos: pos}, Op: TokProbe, Operand: operand}, nil
	case TokLShift:
		return p.parseReplicatorExpr()
	}
	return p.parsePostfix()
}

// parseProbeValue parses the body of #{p1,...,pn : b}; the opening #
// has already been consumed by parseUnary.
func (p *Parser) parseProbeValue(start Pos) (Expr, error) {
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var ports []Symbol
	for {
		n, _, err := p.ident()
		if err != nil {
			return nil, err
		}
		ports = append(ports, n)
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &ProbeValueExpr{Node: Node{Pos: start}, Ports: ports, Body: body}, nil
}

// parseReplicatorExpr parses <<op i: lo..hi: body>> for an
// associative operator combinator.
func (p *Parser) parseReplicatorExpr() (Expr, error) {
	start, err := p.expect(TokLShift)
	if err != nil {
		return nil, err
	}
	op := p.tok.Kind
	p.advance()
	varName, _, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	lo, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDotDot); err != nil {
		return nil, err
	}
	hi, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRShift); err != nil {
		return nil, err
	}
	return &ReplicatorExpr{Node: Node{Pos: start.Pos}, Op: op, Var: varName, Lo: lo, Hi: hi, Body: body}, nil
}

// parsePostfix parses a primary expression followed by any number of
// index/subrange/field/call suffixes. `x[i,j]` is desugared here into
// nested IndexExprs as each index is consumed.
func (p *Parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case TokLBracket:
			p.advance()
			for {
				idx, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				if ok, err := p.accept(TokDotDot); err != nil {
					return nil, err
				} else if ok {
					hi, err := p.parseExpr(0)
					if err != nil {
						return nil, err
					}
					e = &SubrangeExpr{Node: Node{Pos: e.NodePos()}, Base: e, Lo: idx, Hi: hi}
				} else {
					e = &IndexExpr{Node: Node{Pos: e.NodePos()}, Base: e, Index: idx}
				}
				if ok, err := p.accept(TokComma); err != nil {
					return nil, err
				} else if ok {
					continue
				}
				break
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
		case TokDot:
			p.advance()
			name, _, err := p.ident()
			if err != nil {
				return nil, err
			}
			e = &FieldExpr{Node: Node{Pos: e.NodePos()}, Base: e, Field: name}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	start := p.tok
	switch p.tok.Kind {
	case TokInt:
		p.advance()
		return &LiteralExpr{Node: Node{Pos: start.Pos}, Kind: LitInt, IVal: start.IVal}, nil
	case TokBigInt:
		p.advance()
		return &LiteralExpr{Node: Node{Pos: start.Pos}, Kind: LitBigInt, BVal: start.BVal}, nil
	case TokChar:
		p.advance()
		return &LiteralExpr{Node: Node{Pos: start.Pos}, Kind: LitChar, CVal: start.CVal}, nil
	case TokString:
		p.advance()
		return &LiteralExpr{Node: Node{Pos: start.Pos}, Kind: LitString, SVal: start.SVal}, nil
	case TokSymbol:
		p.advance()
		return &LiteralExpr{Node: Node{Pos: start.Pos}, Kind: LitSymbol, Sym: NewSymbol(start.Text)}, nil
	case TokLParen:
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		e.SetFlag(FlagParenthesized)
		return e, nil
	case TokArray:
		return p.parseArrayConstructor()
	case TokRecord:
		return p.parseRecordConstructor()
	case TokInt_, TokBool:
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &TypeValueExpr{Node: Node{Pos: start.Pos}, Type: ty}, nil
	case TokIdent:
		if start.Text == "true" || start.Text == "false" {
			p.advance()
			return &LiteralExpr{Node: Node{Pos: start.Pos}, Kind: LitBool, Bool: start.Text == "true"}, nil
		}
		name, pos, err := p.ident()
		if err != nil {
			return nil, err
		}
		if p.at(TokLParen) {
			p.advance()
			var args []Expr
			for !p.at(TokRParen) {
				a, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if ok, err := p.accept(TokComma); err != nil {
					return nil, err
				} else if !ok {
					break
				}
			}
			if _, err := p.expect(TokRParen); err != nil {
				return nil, err
			}
			return &CallExpr{Node: Node{Pos: pos}, Callee: name, Args: args}, nil
		}
		return &NameExpr{Node: Node{Pos: pos}, Name: name}, nil
	}
	return nil, &ParseError{Pos: p.tok.Pos, Message: fmt.Sprintf("expected an expression, found %s", p.tok)}
}

func (p *Parser) parseArrayConstructor() (Expr, error) {
	start, err := p.expect(TokArray)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var elems []Expr
	for !p.at(TokRBrace) {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &ArrayConstructorExpr{Node: Node{Pos: start.Pos}, Elems: elems}, nil
}

func (p *Parser) parseRecordConstructor() (Expr, error) {
	start, err := p.expect(TokRecord)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	var fields []RecordFieldInit
	for !p.at(TokRBrace) {
		name, _, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		fields = append(fields, RecordFieldInit{Name: name, Value: val})
		if ok, err := p.accept(TokComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &RecordConstructorExpr{Node: Node{Pos: start.Pos}, Fields: fields}, nil
}
