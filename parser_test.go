package chp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSrc(t *testing.T, src string) (*ModuleDecl, *Recovery) {
	t.Helper()
	lex := NewLexer()
	require.NoError(t, lex.StartFile("t.chp", strings.NewReader(src)))
	rec := NewRecovery()
	p := NewParser(lex, rec)
	mod, err := p.ParseModule()
	require.NoError(t, err, "ParseModule itself only fails on a lexer error, not a syntax error")
	return mod, rec
}

func TestParser_EmptySourceIsNotAnError(t *testing.T) {
	mod, rec := parseSrc(t, "")
	assert.False(t, rec.HasErrors())
	assert.Empty(t, mod.Decls)
	assert.Empty(t, mod.Requires)
}

func TestParser_MixingSelectionSeparatorsIsAParseError(t *testing.T) {
	src := `
process P() chp {
	[ true -> skip [] true -> skip [:] true -> skip ]
}
`
	_, rec := parseSrc(t, src)
	require.True(t, rec.HasErrors())
	found := false
	for _, d := range rec.Diagnostics() {
		if strings.Contains(d.Message, "cannot mix `[]` and `[:]`") {
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", rec.Diagnostics())
}

func TestParser_DeterministicSelectionAlone(t *testing.T) {
	src := `
process P() chp {
	[ true -> skip [] false -> skip ]
}
`
	_, rec := parseSrc(t, src)
	assert.False(t, rec.HasErrors())
}

func TestParser_NondeterministicSelectionAlone(t *testing.T) {
	src := `
process P() chp {
	[ true -> skip [:] false -> skip ]
}
`
	_, rec := parseSrc(t, src)
	assert.False(t, rec.HasErrors())
}

func TestParser_MultiNameVarDeclSplitsIntoOnePerName(t *testing.T) {
	src := `
process P() chp {
	var x, y: int;
	skip
}
`
	mod, rec := parseSrc(t, src)
	require.False(t, rec.HasErrors())

	proc := findProcess(t, mod, "P")
	body := firstStmt(t, proc.Body.CHP)
	compound, ok := body.(*CompoundStmt)
	require.True(t, ok, "more than one declared name is wrapped in a CompoundStmt")
	require.Len(t, compound.Stmts, 2)

	v0, ok := compound.Stmts[0].(*VarDecl)
	require.True(t, ok)
	assert.Equal(t, "x", v0.Name.String())

	v1, ok := compound.Stmts[1].(*VarDecl)
	require.True(t, ok)
	assert.Equal(t, "y", v1.Name.String())
}

func TestParser_SingleNameVarDeclIsNotWrapped(t *testing.T) {
	src := `
process P() chp {
	var x: int;
	skip
}
`
	mod, rec := parseSrc(t, src)
	require.False(t, rec.HasErrors())

	proc := findProcess(t, mod, "P")
	body := firstStmt(t, proc.Body.CHP)
	_, ok := body.(*VarDecl)
	assert.True(t, ok, "a single declared name yields a bare VarDecl, no CompoundStmt wrapper")
}

func TestParser_ReplicatorWithLoGreaterThanHiIsLegalSyntax(t *testing.T) {
	src := `
process P() chp {
	<<, i: 9..0: skip>>
}
`
	_, rec := parseSrc(t, src)
	assert.False(t, rec.HasErrors(), "lo > hi is a semantic question, never a parse error")
}

func TestParser_GuardedCommandRequiresArrow(t *testing.T) {
	src := `
process P() chp {
	[ true skip ]
}
`
	_, rec := parseSrc(t, src)
	assert.True(t, rec.HasErrors(), "a guard with no -> is a parse error")
}

func TestParser_OrAndXorShareOnePrecedenceLevel(t *testing.T) {
	mod, rec := parseSrc(t, "const X: int = a | b & c xor d;")
	require.False(t, rec.HasErrors())

	c := findConst(t, mod, "X")
	top, ok := c.Value.(*BinaryExpr)
	require.True(t, ok, "top-level expr must be a BinaryExpr")
	assert.Equal(t, TokXor, top.Op, "|, & and xor bind left-to-right at the same level, so xor is applied last")

	mid, ok := top.Left.(*BinaryExpr)
	require.True(t, ok, "left side of the outer xor must itself be a BinaryExpr, not a bare name")
	assert.Equal(t, TokAnd, mid.Op)

	inner, ok := mid.Left.(*BinaryExpr)
	require.True(t, ok, "left side of & must itself be a BinaryExpr")
	assert.Equal(t, TokOr, inner.Op)
}

func TestParser_PowerOperatorIsLeftAssociative(t *testing.T) {
	mod, rec := parseSrc(t, "const Y: int = a ^ b ^ c;")
	require.False(t, rec.HasErrors())

	c := findConst(t, mod, "Y")
	top, ok := c.Value.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, TokCaret, top.Op)

	_, leftIsBinary := top.Left.(*BinaryExpr)
	assert.True(t, leftIsBinary, "a ^ b ^ c groups as (a ^ b) ^ c under left associativity")
	_, rightIsName := top.Right.(*NameExpr)
	assert.True(t, rightIsName, "the rightmost c must be a bare operand, not grouped with b")
}

func findConst(t *testing.T, mod *ModuleDecl, name string) *ConstDecl {
	t.Helper()
	for _, d := range mod.Decls {
		if cd, ok := d.(*ConstDecl); ok && cd.Name.String() == name {
			return cd
		}
	}
	t.Fatalf("const %q not found", name)
	return nil
}

func findProcess(t *testing.T, mod *ModuleDecl, name string) *ProcessDecl {
	t.Helper()
	for _, d := range mod.Decls {
		if pd, ok := d.(*ProcessDecl); ok && pd.Name.String() == name {
			return pd
		}
	}
	t.Fatalf("process %q not found", name)
	return nil
}

func firstStmt(t *testing.T, s Stmt) Stmt {
	t.Helper()
	if cs, ok := s.(*CompoundStmt); ok {
		require.NotEmpty(t, cs.Stmts)
		return cs.Stmts[0]
	}
	return s
}
