package chp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analyze is a small test harness: parse+resolve+analyze sources over
// an in-memory loader (with the built-in module served from
// BuiltinSource), returning the recovery point's collected
// diagnostics and the resolved modules.
func analyze(t *testing.T, root string, sources map[string]string) ([]*Module, *Module, *Recovery) {
	t.Helper()
	cfg := NewConfig()
	loader := &BuiltinModuleLoader{Underlying: &InMemoryModuleLoader{Sources: sources}}
	db := NewDatabase(cfg, loader)

	resolver := NewResolver(db)
	rootMod, modules, err := resolver.Resolve(root)
	require.NoError(t, err)

	rec := NewRecovery()
	az := NewAnalyzer(db, rec)
	require.NoError(t, az.Analyze(modules))

	return modules, rootMod, rec
}

func TestAnalyzer_SimpleProcessNoErrors(t *testing.T) {
	src := `
process main() chp {
	*[ true -> skip ]
}
`
	_, root, rec := analyze(t, "root.chp", map[string]string{"root.chp": src})
	for _, d := range rec.Diagnostics() {
		t.Logf("unexpected diagnostic: %s", d)
	}
	assert.False(t, rec.HasErrors())

	_, ok := root.DeclScope.LookupLocal(NewSymbol("main"))
	assert.True(t, ok)
}

func TestAnalyzer_ReceiveBindsFreshVariable(t *testing.T) {
	src := `
process P(a?: int; b!: int) chp {
	*[ true -> { a?x; b!x } ]
}
`
	_, _, rec := analyze(t, "root.chp", map[string]string{"root.chp": src})
	for _, d := range rec.Diagnostics() {
		t.Logf("unexpected diagnostic: %s", d)
	}
	assert.False(t, rec.HasErrors(), "a?x declares x; b!x then refers to the same binding")
}

func TestAnalyzer_InstanceOutsideMetaIsRejected(t *testing.T) {
	src := `
process P() chp { skip }
process Q() chp {
	instance x: P;
}
`
	_, _, rec := analyze(t, "root.chp", map[string]string{"root.chp": src})
	require.True(t, rec.HasErrors())
	found := false
	for _, d := range rec.Diagnostics() {
		if d.Message == "An instance declaration can only occur in a meta process" {
			found = true
		}
	}
	assert.True(t, found, "diagnostics: %v", rec.Diagnostics())
}

func TestAnalyzer_DuplicateTopLevelDeclaration(t *testing.T) {
	src := `
const x: int = 1;
const x: int = 2;
`
	_, _, rec := analyze(t, "root.chp", map[string]string{"root.chp": src})
	assert.True(t, rec.HasErrors())
}

func TestAnalyzer_UnknownNameIsReported(t *testing.T) {
	src := `
process P() chp {
	*[ true -> y := 1 ]
}
`
	_, _, rec := analyze(t, "root.chp", map[string]string{"root.chp": src})
	assert.True(t, rec.HasErrors())
}

func TestAnalyzer_RequiresExportedNameAcrossModules(t *testing.T) {
	lib := `
export const ANSWER: int = 42;
`
	root := `
requires "lib.chp";
process P() chp {
	*[ true -> skip ]
}
`
	_, rootMod, rec := analyze(t, "root.chp", map[string]string{
		"root.chp": root,
		"lib.chp":  lib,
	})
	for _, d := range rec.Diagnostics() {
		t.Logf("unexpected diagnostic: %s", d)
	}
	assert.False(t, rec.HasErrors())

	_, ok := rootMod.ImportScope.Resolve(NewSymbol("ANSWER"))
	assert.True(t, ok, "an exported const of a required module is visible in the importer's scope")
}

func TestAnalyzer_UnexportedNameNotVisible(t *testing.T) {
	lib := `
const HIDDEN: int = 1;
`
	root := `
requires "lib.chp";
process P() chp { skip }
`
	_, rootMod, _ := analyze(t, "root.chp", map[string]string{
		"root.chp": root,
		"lib.chp":  lib,
	})
	_, ok := rootMod.ImportScope.Resolve(NewSymbol("HIDDEN"))
	assert.False(t, ok, "a non-exported declaration never crosses a requires edge")
}

func TestAnalyzer_IdempotentReanalysis(t *testing.T) {
	src := `
process main() chp { *[ true -> skip ] }
`
	cfg := NewConfig()
	loader := &BuiltinModuleLoader{Underlying: &InMemoryModuleLoader{Sources: map[string]string{"root.chp": src}}}
	db := NewDatabase(cfg, loader)

	resolver := NewResolver(db)
	_, modules, err := resolver.Resolve("root.chp")
	require.NoError(t, err)

	rec := NewRecovery()
	az := NewAnalyzer(db, rec)
	require.NoError(t, az.Analyze(modules))
	firstCount := len(rec.Diagnostics())

	require.NoError(t, az.Analyze(modules))
	assert.Len(t, rec.Diagnostics(), firstCount, "re-running Analyze over already-analyzed modules reports nothing new")
}

func TestAnalyzer_BuiltinStringTypeIgnoresLength(t *testing.T) {
	src := `
process P() chp { skip }
`
	_, root, rec := analyze(t, "root.chp", map[string]string{"root.chp": src})
	assert.False(t, rec.HasErrors())

	az := &Analyzer{module: root, typeCache: make(map[TypeNode]Type)}
	lk, ok := root.DeclScope.Resolve(NewSymbol("string"))
	require.True(t, ok, "the built-in module's string type is auto-imported")
	td, ok := lk.Decl.(*TypeDecl)
	require.True(t, ok)
	ty, err := az.resolveType(&NamedTypeNode{Name: NewSymbol("string"), Binding: td})
	require.NoError(t, err)
	_, isString := ty.(StringType)
	assert.True(t, isString)
}
