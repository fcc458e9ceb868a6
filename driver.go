package chp

import (
	"fmt"
	"os"
)

// Driver bundles the configuration and recovery point the external
// interface functions of §6.2 need: a Database wired to a loader
// built from the driver's search path, and a Recovery collecting
// diagnostics as modules are read and analyzed.
type Driver struct {
	Config *Config
	DB     *Database
	Rec    *Recovery
}

// NewDriver builds a Driver whose search path is searchPath (§6.3);
// the caller decides whether that list came from flags, a config
// file, or an environment variable, and passes it in verbatim.
func NewDriver(searchPath []string) *Driver {
	cfg := NewConfig()
	for _, dir := range searchPath {
		cfg.AddSearchDir(dir)
	}
	return newDriverFromConfig(cfg)
}

// NewDriverFromConfigFile builds a Driver whose base settings come
// from a YAML file (see LoadConfigFile), with extraSearchDirs appended
// after whatever search path the file already specifies - letting
// command-line `-I` flags extend a shared, checked-in config rather
// than replace it.
func NewDriverFromConfigFile(path string, extraSearchDirs []string) (*Driver, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	for _, dir := range extraSearchDirs {
		cfg.AddSearchDir(dir)
	}
	return newDriverFromConfig(cfg), nil
}

func newDriverFromConfig(cfg *Config) *Driver {
	loader := &BuiltinModuleLoader{Underlying: &RelativeImportLoader{SearchPath: cfg.GetStringList("module.search_path")}}
	rec := NewRecovery()
	return &Driver{Config: cfg, DB: NewDatabase(cfg, loader), Rec: rec}
}

// SearchPathFromEnv splits the given environment variable the way a
// PATH-like variable is split, for a caller that wants the driver's
// search path to come from the environment (§6.3 leaves the source
// up to the driver).
func SearchPathFromEnv(varName string) []string {
	v := os.Getenv(varName)
	if v == "" {
		return nil
	}
	return splitPathList(v)
}

func splitPathList(v string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == os.PathListSeparator {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// ReadSource performs the end-to-end load described in §6.2: resolve
// the require graph rooted at rootPath, then forward-declare and
// analyze every module reached. It returns every module in reverse
// topological order plus the root module specifically, matching
// `read_source(driver, root_path) -> (module_list, root_module)`.
func ReadSource(d *Driver, rootPath string) ([]*Module, *Module, error) {
	resolver := NewResolver(d.DB)
	root, modules, err := resolver.Resolve(rootPath)
	if err != nil {
		return nil, nil, err
	}

	az := NewAnalyzer(d.DB, d.Rec)
	if err := az.Analyze(modules); err != nil {
		return nil, nil, err
	}
	return modules, root, nil
}

// FindMain implements `find_main(root_module, name, allow_ports) ->
// process_def | not-found`: it looks up name among root's own
// top-level declarations (never among its imports: the top process
// must be defined in the root file itself) and requires it to be a
// process. allowPorts controls whether a process declared with ports
// is an acceptable answer - some executors insist the top process
// take no external ports since nothing outside the simulation can
// drive them.
func FindMain(root *Module, name string, allowPorts bool) (*ProcessDecl, error) {
	decl, ok := root.DeclScope.LookupLocal(NewSymbol(name))
	if !ok {
		return nil, fmt.Errorf("%q not found in %s", name, root.Path)
	}
	pd, ok := decl.(*ProcessDecl)
	if !ok {
		return nil, fmt.Errorf("%q is not a process", name)
	}
	if !allowPorts && len(pd.Ports) > 0 {
		return nil, fmt.Errorf("%q has ports, but the top process must not", name)
	}
	return pd, nil
}

// VarBinding is one zero-initialized local or meta variable slot of
// an ExecState, tagged "none" until the executor (out of scope here)
// assigns it a real value.
type VarBinding struct {
	Name Symbol
	Type Type
	Tag  string // "none" until assigned
}

// ControlState is a single control-flow position inside a process
// body: the statement the instance is currently poised to execute.
type ControlState struct {
	Root Stmt
}

// ExecState is the front-end's view of one process instance ready to
// run: its path in the instance tree (the top instance's path is
// always "/"), its zero-initialized meta and local variables, and one
// control state rooted at the process definition. The actual
// simulation loop belongs to the executor this struct is handed to.
type ExecState struct {
	Path    string
	Process *ProcessDecl
	Meta    []VarBinding
	Locals  []VarBinding
	Control ControlState
}

// PrepareExec implements `prepare_exec(driver, process_def) ->
// exec_state`: it allocates the top instance at path "/" with its
// meta parameters and local variables zero-initialized (tag "none")
// and a single control state rooted at the process's CHP body.
func PrepareExec(d *Driver, process *ProcessDecl) (*ExecState, error) {
	az := NewAnalyzer(d.DB, d.Rec)

	meta := make([]VarBinding, len(process.MetaParams))
	for i, mp := range process.MetaParams {
		meta[i] = VarBinding{Name: mp.Name, Type: az.declType(mp), Tag: "none"}
	}

	var locals []VarBinding
	collectLocals(process.Body.CHP, &locals)

	root := process.Body.CHP
	if root == nil {
		root = &SkipStmt{}
	}

	return &ExecState{
		Path:    "/",
		Process: process,
		Meta:    meta,
		Locals:  locals,
		Control: ControlState{Root: root},
	}, nil
}

// collectLocals walks s looking for VarDecl statements, so
// PrepareExec can zero-initialize every local a process body declares
// up front rather than lazily as control flow reaches each one.
func collectLocals(s Stmt, out *[]VarBinding) {
	switch n := s.(type) {
	case *VarDecl:
		*out = append(*out, VarBinding{Name: n.Name, Type: n.ResolvedType, Tag: "none"})
	case *CompoundStmt:
		for _, x := range n.Stmts {
			collectLocals(x, out)
		}
	case *LoopStmt:
		collectLocals(n.Body, out)
	case *SelectionStmt:
		for _, arm := range n.Arms {
			collectLocals(arm.Body, out)
		}
		if n.Default != nil {
			collectLocals(n.Default.Body, out)
		}
	case *ParStmt:
		for _, x := range n.Stmts {
			collectLocals(x, out)
		}
	case *ReplicatorStmt:
		collectLocals(n.Body, out)
	}
}

// TerminateExec releases an ExecState. The front-end leaks AST nodes
// and interned strings for the process lifetime (§5's resource
// policy), so there is nothing left to free here beyond letting state
// become garbage; it exists as a symmetric bookend to PrepareExec for
// callers that mirror the source's allocate/release pairing.
func TerminateExec(state *ExecState) {
	if state == nil {
		return
	}
	state.Locals = nil
	state.Meta = nil
}

// TypeCompatible is the external name for the compile-time structural
// compatibility check (§6.2).
func TypeCompatible(dst, src Type) bool { return Compatible(dst, src) }

// TypeCompatibleRuntime additionally checks that a concrete pair of
// runtime values (ps1 for tp1, ps2 for tp2) agree once bound, in
// addition to their static types being Compatible - ps1/ps2 are the
// bound int value each side holds when one or both sides are an
// IntRangeType.
func TypeCompatibleRuntime(tp1 Type, ps1 int64, tp2 Type, ps2 int64) bool {
	if !Compatible(tp1, tp2) && !Compatible(tp2, tp1) {
		return false
	}
	return CompatibleRuntime(tp1, ps1) && CompatibleRuntime(tp2, ps2)
}
