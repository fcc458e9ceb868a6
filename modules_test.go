package chp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(sources map[string]string) (*Resolver, *Database) {
	cfg := NewConfig()
	cfg.SetBool("module.import_builtin", false)
	db := NewDatabase(cfg, &InMemoryModuleLoader{Sources: sources})
	return NewResolver(db), db
}

func TestResolver_ReverseTopologicalOrder(t *testing.T) {
	sources := map[string]string{
		"a.chp": `requires "b.chp"; requires "c.chp"; process PA() chp { skip }`,
		"b.chp": `requires "c.chp"; export const B: int = 1;`,
		"c.chp": `export const C: int = 1;`,
	}
	r, _ := newTestResolver(sources)
	root, order, err := r.Resolve("a.chp")
	require.NoError(t, err)
	require.NotNil(t, root)

	pos := make(map[string]int, len(order))
	for i, m := range order {
		pos[m.Path] = i
	}
	assert.Less(t, pos["c.chp"], pos["b.chp"], "c is required by b, so it must precede b in reverse-topological order")
	assert.Less(t, pos["b.chp"], pos["a.chp"], "b is required by a, so it must precede a")
}

func TestResolver_DetectsCycle(t *testing.T) {
	sources := map[string]string{
		"a.chp": `requires "b.chp"; export const A: int = 1;`,
		"b.chp": `requires "a.chp"; export const B: int = 1;`,
	}
	r, _ := newTestResolver(sources)
	root, order, err := r.Resolve("a.chp")
	require.NoError(t, err)

	var other *Module
	for _, m := range order {
		if m.Path == "b.chp" {
			other = m
		}
	}
	require.NotNil(t, other)
	assert.True(t, root.InCycleWith(other), "a requires b and b requires a back, so they share one strongly connected component")
}

func TestResolver_SharedDependencyParsedOnce(t *testing.T) {
	sources := map[string]string{
		"a.chp": `requires "shared.chp"; export const A: int = 1;`,
		"b.chp": `requires "shared.chp"; export const B: int = 1;`,
		"shared.chp": `export const S: int = 1;`,
	}
	r, db := newTestResolver(sources)
	_, _, err := r.Resolve("a.chp")
	require.NoError(t, err)

	r2 := NewResolver(db)
	_, order2, err := r2.Resolve("b.chp")
	require.NoError(t, err)

	var shared *Module
	for _, m := range order2 {
		if m.Path == "shared.chp" {
			shared = m
		}
	}
	require.NotNil(t, shared, "shared.chp is reachable from b.chp too")
}

func TestResolver_MissingModuleIsAnError(t *testing.T) {
	sources := map[string]string{
		"a.chp": `requires "missing.chp"; export const A: int = 1;`,
	}
	r, _ := newTestResolver(sources)
	_, _, err := r.Resolve("a.chp")
	assert.Error(t, err)
}

func TestResolver_SelfRequireIsAResolverError(t *testing.T) {
	sources := map[string]string{
		"a.chp": `requires "a.chp"; export const A: int = 1;`,
	}
	r, _ := newTestResolver(sources)
	_, _, err := r.Resolve("a.chp")
	require.Error(t, err)
	var re *ResolverError
	assert.ErrorAs(t, err, &re, "a module requiring itself is reported directly, not silently folded into a trivial one-node cycle")
}

func TestModule_InCycleWithIsFalseAcrossSeparateComponents(t *testing.T) {
	sources := map[string]string{
		"a.chp": `requires "b.chp"; export const A: int = 1;`,
		"b.chp": `export const B: int = 1;`,
	}
	r, _ := newTestResolver(sources)
	root, order, err := r.Resolve("a.chp")
	require.NoError(t, err)

	var b *Module
	for _, m := range order {
		if m.Path == "b.chp" {
			b = m
		}
	}
	require.NotNil(t, b)
	assert.False(t, root.InCycleWith(b))
}
