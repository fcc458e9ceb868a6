package chp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ModuleLoader resolves a `requires "path";` edge to a canonical file
// path and opens its source. Two implementations are provided:
// RelativeImportLoader walks a configured search path on disk;
// InMemoryModuleLoader serves sources from a map, for tests that
// don't want to touch the filesystem.
type ModuleLoader interface {
	// Resolve turns path, written from inside fromFile, into a
	// canonical, comparable key identifying the target module.
	Resolve(fromFile, path string) (string, error)
	// Open returns the source text for a canonical path produced by
	// Resolve.
	Open(canonical string) (io.ReadCloser, error)
}

// RelativeImportLoader resolves requires edges against the directory
// of the requiring file first, then against each directory in
// SearchPath in order, mirroring the resolver's documented lookup
// rule (§6.3): the file's own directory takes priority over the
// configured search path.
type RelativeImportLoader struct {
	SearchPath []string
}

func (l *RelativeImportLoader) Resolve(fromFile, path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return filepath.Clean(path), nil
		}
		return "", fmt.Errorf("module not found: %s", path)
	}

	candidates := make([]string, 0, len(l.SearchPath)+1)
	if fromFile != "" {
		candidates = append(candidates, filepath.Dir(fromFile))
	}
	candidates = append(candidates, l.SearchPath...)

	for _, dir := range candidates {
		full := filepath.Join(dir, path)
		if _, err := os.Stat(full); err == nil {
			return filepath.Clean(full), nil
		}
	}
	return "", fmt.Errorf("module %q not found in search path", path)
}

func (l *RelativeImportLoader) Open(canonical string) (io.ReadCloser, error) {
	return os.Open(canonical)
}

// InMemoryModuleLoader serves module sources from a map keyed by the
// path exactly as written in a requires statement. Resolve is the
// identity function over that key space, which is enough for tests
// that only care about the resolver's graph algorithm.
type InMemoryModuleLoader struct {
	Sources map[string]string
}

func (l *InMemoryModuleLoader) Resolve(fromFile, path string) (string, error) {
	if _, ok := l.Sources[path]; !ok {
		return "", fmt.Errorf("module %q not found", path)
	}
	return path, nil
}

func (l *InMemoryModuleLoader) Open(canonical string) (io.ReadCloser, error) {
	src, ok := l.Sources[canonical]
	if !ok {
		return nil, fmt.Errorf("module %q not found", canonical)
	}
	return io.NopCloser(strings.NewReader(src)), nil
}

// Module is one node of the require graph: a canonical path, its
// parsed AST, its two scopes (import-visible names and the full
// local declaration set), and the DFS/SCC bookkeeping the resolver
// needs to detect cycles without re-walking the graph.
type Module struct {
	Path string
	AST  *ModuleDecl

	ImportScope *Scope // names this module imports from the modules it requires
	DeclScope   *Scope // every top-level name declared in this module

	Flag moduleFlag

	// ForwardDeclared and Analyzed record this module's position in
	// the analyzer's state machine (created -> parsed -> forward-
	// declared -> analyzed), so a driver re-running either pass over
	// an already-processed module set sees a no-op.
	ForwardDeclared bool
	Analyzed        bool

	dfsNum  int
	lowLink int
	onStack bool

	// cycle points at the representative module of this module's
	// strongly connected component: the component member with the
	// lowest DFS number. A module is alone in its own component when
	// cycle == the module itself. Two modules participate in the same
	// import cycle exactly when their cycle pointers converge to the
	// same representative.
	cycle *Module
}

type moduleFlag uint8

const (
	moduleVisiting moduleFlag = 1 << iota
	moduleDone
)

// InCycleWith reports whether m and other belong to the same
// strongly connected component of the require graph.
func (m *Module) InCycleWith(other *Module) bool {
	return m.cycle != nil && m.cycle == other.cycle
}

// Resolver drives the require-graph DFS over a Database, turning a
// root source file into the full set of reachable modules in reverse
// topological order (a module's dependencies always precede it),
// with every strongly connected component collapsed onto one cycle
// representative.
type Resolver struct {
	db *Database

	modules map[string]*Module
	order   []*Module
	stack   []*Module
	nextDFS int
}

// NewResolver creates a resolver over db, whose Config and Loader are
// used to find and parse required modules.
func NewResolver(db *Database) *Resolver {
	return &Resolver{db: db, modules: make(map[string]*Module)}
}

// Resolve walks the require graph starting at rootPath and returns
// the root module plus every module reachable from it, in reverse
// topological order. Calling Resolve again for a root already
// resolved against the same Database returns the cached Module
// without re-parsing anything (the resolver is built on top of the
// parse query, so re-resolution is a cache hit).
func (r *Resolver) Resolve(rootPath string) (*Module, []*Module, error) {
	root, err := r.visit("", rootPath, Pos{})
	if err != nil {
		return nil, nil, err
	}
	r.autoImportBuiltin(root)
	return root, r.order, nil
}

func (r *Resolver) visit(fromFile, path string, reqPos Pos) (*Module, error) {
	canonical, err := r.db.loader.Resolve(fromFile, path)
	if err != nil {
		return nil, err
	}

	if canonical == fromFile {
		return nil, &ResolverError{Pos: reqPos, Message: fmt.Sprintf("module %q requires itself", path)}
	}

	if m, ok := r.modules[canonical]; ok {
		if m.Flag&moduleVisiting != 0 {
			r.closeCycle(m)
		}
		return m, nil
	}

	ast, err := Get(r.db, parsedModuleQuery, FilePath(canonical))
	if err != nil {
		return nil, err
	}

	m := &Module{Path: canonical, AST: ast, Flag: moduleVisiting, dfsNum: r.nextDFS, lowLink: r.nextDFS, onStack: true}
	m.cycle = m
	r.nextDFS++
	r.modules[canonical] = m
	r.stack = append(r.stack, m)

	for _, req := range ast.Requires {
		dep, err := r.visit(canonical, req.Path, req.Pos)
		if err != nil {
			return nil, err
		}
		req.Resolved = dep
		if dep.onStack && dep.lowLink < m.lowLink {
			m.lowLink = dep.lowLink
		}
	}

	m.Flag = (m.Flag &^ moduleVisiting) | moduleDone

	if m.lowLink == m.dfsNum {
		r.popComponent(m)
	}

	return m, nil
}

// closeCycle is invoked when the DFS re-enters a module still on the
// stack (moduleVisiting). It lowers the ancestor's lowLink to the
// smallest DFS number among the stack frames above it; the frames on
// the path back to the ancestor learn of the cycle as visit returns
// the ancestor to each caller, which takes the lower lowLink.
func (r *Resolver) closeCycle(ancestor *Module) {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].dfsNum < ancestor.lowLink {
			ancestor.lowLink = r.stack[i].dfsNum
		}
		if r.stack[i] == ancestor {
			break
		}
	}
}

// popComponent pops the strongly connected component rooted at m off
// the DFS stack, assigns every member the same cycle representative,
// and appends them to the reverse-topological result in pop order
// (dependencies necessarily finish their own popComponent first).
func (r *Resolver) popComponent(m *Module) {
	var component []*Module
	for {
		n := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		n.onStack = false
		component = append(component, n)
		if n == m {
			break
		}
	}
	for _, n := range component {
		n.cycle = m
	}
	r.order = append(r.order, component...)
}

// autoImportBuiltin makes the configured builtin module (by default
// builtin.chp) visible to root without an explicit requires line,
// unless the configuration disables it or root is itself the builtin
// module.
func (r *Resolver) autoImportBuiltin(root *Module) {
	if !r.db.config.GetBool("module.import_builtin") {
		return
	}
	name := r.db.config.GetString("module.builtin_name")
	if name == "" || root.Path == name {
		return
	}
	if _, err := r.visit("", name, Pos{}); err != nil {
		// The builtin module is an environment precondition, not a
		// per-file error; a missing builtin surfaces through the
		// scope that actually needed one of its names instead.
		return
	}
}

// parsedModuleQuery parses and caches one module's source text,
// independent of the graph it sits in. Keying this by canonical
// FilePath rather than by the requires statement that reached it is
// what makes two different require paths to the same file collapse
// onto one parse.
var parsedModuleQuery = &Query[FilePath, *ModuleDecl]{
	Name: "parsedModule",
	Compute: func(db *Database, key FilePath) (*ModuleDecl, error) {
		rc, err := db.loader.Open(string(key))
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}

		lex := NewLexer()
		if err := lex.StartFile(string(key), strings.NewReader(string(data))); err != nil {
			return nil, err
		}
		p := NewParser(lex, NewRecovery())
		mod, err := p.ParseModule()
		if err != nil {
			return nil, err
		}
		mod.Path = string(key)
		return mod, nil
	},
}
