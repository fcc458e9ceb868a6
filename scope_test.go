package chp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declFor(name string) Decl {
	return &TypeDecl{Name: NewSymbol(name), Type: &DummyTypeNode{}}
}

func TestScope_DeclareDuplicate(t *testing.T) {
	s := NewScope()
	assert.True(t, s.Declare(NewSymbol("x"), declFor("x")))
	assert.False(t, s.Declare(NewSymbol("x"), declFor("x")))
}

func TestScope_ResolveAcrossLevels(t *testing.T) {
	root := NewScope()
	root.Declare(NewSymbol("g"), declFor("g"))

	child := root.EnterLevel()
	child.Declare(NewSymbol("l"), declFor("l"))

	_, ok := child.Resolve(NewSymbol("g"))
	assert.True(t, ok, "a nested block scope sees its enclosing scope's names")

	_, ok = root.Resolve(NewSymbol("l"))
	assert.False(t, ok, "an outer scope never sees a nested scope's names")
}

func TestScope_RoutineBodyBoundarySuppressesLocals(t *testing.T) {
	module := NewScope()
	module.Declare(NewSymbol("T"), declFor("T"))

	outer := module.EnterBody()
	outerLocal := &VarDecl{Name: NewSymbol("x")}
	outer.Declare(NewSymbol("x"), outerLocal)

	inner := outer.EnterBody()

	_, ok := inner.Resolve(NewSymbol("T"))
	assert.True(t, ok, "module-level declarations stay visible across a routine-body boundary")

	_, ok = inner.Resolve(NewSymbol("x"))
	assert.False(t, ok, "a routine's own local is invisible to a routine nested inside it")
}

func TestScope_ReplicatorFrameDepth(t *testing.T) {
	module := NewScope()
	rep1 := module.EnterSublevel()
	rep1.Declare(NewSymbol("i"), declFor("i"))
	rep2 := rep1.EnterSublevel()

	plain := rep2.EnterLevel()

	lk, ok := plain.Resolve(NewSymbol("i"))
	require.True(t, ok)
	assert.Equal(t, 1, lk.FrameDepth, "only scopeReplicator levels increment FrameDepth")
}

func TestScope_DeclareImportConflict(t *testing.T) {
	s := NewScope()
	a := declFor("a")
	b := declFor("a")

	s.DeclareImport(NewSymbol("shared"), a)
	lk, ok := s.Resolve(NewSymbol("shared"))
	require.True(t, ok)
	assert.False(t, lk.Conflict, "a single import of a name is not ambiguous by itself")

	s.DeclareImport(NewSymbol("shared"), b)
	lk, ok = s.Resolve(NewSymbol("shared"))
	require.True(t, ok)
	assert.True(t, lk.Conflict, "two distinct decls imported under one name become ambiguous at use")
}

func TestScope_LocalEntriesExcludesImports(t *testing.T) {
	s := NewScope()
	s.Declare(NewSymbol("own"), declFor("own"))
	s.DeclareImport(NewSymbol("borrowed"), declFor("borrowed"))

	names := s.LocalEntries()
	require.Len(t, names, 1)
	assert.Equal(t, "own", names[0].String())
}

func TestScope_ResetClearsBindingsInPlace(t *testing.T) {
	s := NewScope()
	s.Declare(NewSymbol("x"), declFor("x"))
	s.Reset()
	_, ok := s.Resolve(NewSymbol("x"))
	assert.False(t, ok)
}

func TestScope_LeaveLevelAtRootIsNoop(t *testing.T) {
	s := NewScope()
	assert.Same(t, s, s.LeaveLevel())
}
