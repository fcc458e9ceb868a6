package chp

import "fmt"

// bindingFlag records how a name entered a Scope, which is what lets
// lookup apply the routine-body-boundary suppression rule: a local
// variable of an enclosing routine is not visible from inside a
// nested routine body, but a module-level declaration is visible
// everywhere below it.
type bindingFlag uint8

const (
	bindLocal bindingFlag = 1 << iota
	bindImport
	bindConflict // set when a second distinct binding claims this name at root import scope
)

type binding struct {
	decl  Decl
	flags bindingFlag
}

// scopeKind distinguishes the sublevel a Scope represents, which
// controls how a lookup crossing it affects FrameDepth and whether it
// stops at a routine-body boundary.
type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeRoutineBody
	scopeBlock
	scopeReplicator
)

// Scope is one level of the lexical scope tree. enterLevel pushes a
// plain block scope, enterBody pushes a routine-body boundary (which
// stops outer-local visibility, per the language's no-closures rule),
// and enterSublevel pushes a replicator frame (which increments
// FrameDepth for names resolved through it).
type Scope struct {
	parent *Scope
	kind   scopeKind
	names  map[Symbol]*binding
}

// NewScope creates the outermost (module-level) scope.
func NewScope() *Scope {
	return &Scope{kind: scopeModule, names: make(map[Symbol]*binding)}
}

func (s *Scope) child(kind scopeKind) *Scope {
	return &Scope{parent: s, kind: kind, names: make(map[Symbol]*binding)}
}

// EnterLevel pushes an ordinary nested block scope: if/loop bodies,
// a compound statement's own declarations.
func (s *Scope) EnterLevel() *Scope { return s.child(scopeBlock) }

// EnterBody pushes a routine-body boundary. Lookups that cross this
// boundary outward stop seeing the variables and parameters declared
// in the enclosing scope chain, since CHP routines do not close over
// locals of their caller.
func (s *Scope) EnterBody() *Scope { return s.child(scopeRoutineBody) }

// EnterSublevel pushes a replicator frame. Names resolved through a
// replicator frame get their FrameDepth incremented by one relative
// to the enclosing scope, which the analyzer uses to know how many
// replicator indices a reference must thread through at lowering
// time.
func (s *Scope) EnterSublevel() *Scope { return s.child(scopeReplicator) }

// LeaveLevel returns the parent scope, or s itself if s is already
// the root (mirroring the source's tolerant leave-at-root behavior,
// so a stray extra LeaveLevel call during error recovery can't panic
// the analyzer).
func (s *Scope) LeaveLevel() *Scope {
	if s.parent == nil {
		return s
	}
	return s.parent
}

// Declare binds name to decl in s. It returns false without
// overwriting the existing binding when name is already bound in s
// (a duplicate-declaration error at the same level); shadowing a name
// from an enclosing scope is always allowed.
func (s *Scope) Declare(name Symbol, decl Decl) bool {
	if _, exists := s.names[name]; exists {
		return false
	}
	s.names[name] = &binding{decl: decl, flags: bindLocal}
	return true
}

// DeclareImport binds name as having arrived through a requires edge
// rather than a local declaration. A second, distinct import of the
// same name is not an error by itself: it only becomes one if the
// name is actually referenced, at which point the reference is
// ambiguous. The scope records that ambiguity with bindConflict so
// the analyzer can raise it lazily, at first use.
func (s *Scope) DeclareImport(name Symbol, decl Decl) {
	if existing, ok := s.names[name]; ok {
		if existing.decl != decl {
			existing.flags |= bindConflict
		}
		return
	}
	s.names[name] = &binding{decl: decl, flags: bindImport}
}

// lookup result.
type Lookup struct {
	Decl       Decl
	FrameDepth int
	Conflict   bool
}

// Resolve searches s and its ancestors for name, honoring the
// routine-body-boundary rule: once the search crosses a
// scopeRoutineBody level outward, variables and parameters bound
// further out (VarDecl, ParamDecl, MetaParamDecl) are skipped, while
// types, constants, routines and other declarations stay visible - a
// routine's own locals and parameters are invisible to any routine
// nested inside it. FrameDepth counts the number of scopeReplicator levels
// crossed during the search.
func (s *Scope) Resolve(name Symbol) (Lookup, bool) {
	crossedBody := false
	depth := 0
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.names[name]; ok {
			hidden := false
			if crossedBody && b.flags&bindLocal != 0 {
				switch b.decl.(type) {
				case *VarDecl, *ParamDecl, *MetaParamDecl:
					// A variable or parameter beyond a body boundary
					// is not in scope; keep searching further out for
					// a module-level or imported binding with the
					// same name.
					hidden = true
				}
			}
			if !hidden {
				return Lookup{Decl: b.decl, FrameDepth: depth, Conflict: b.flags&bindConflict != 0}, true
			}
		}
		if cur.kind == scopeRoutineBody {
			crossedBody = true
		}
		if cur.kind == scopeReplicator {
			depth++
		}
	}
	return Lookup{}, false
}

// LocalEntries returns every name declared directly in s by a local
// (non-import) binding, in no particular order. The analyzer uses
// this to build one module's import scope from another's declaration
// scope: only a module's own declarations are ever re-exported, never
// names it itself imported.
func (s *Scope) LocalEntries() []Symbol {
	names := make([]Symbol, 0, len(s.names))
	for name, b := range s.names {
		if b.flags&bindLocal != 0 {
			names = append(names, name)
		}
	}
	return names
}

// LookupLocal returns the binding declared directly in s, ignoring
// ancestors entirely; used to read back a just-declared name without
// the routine-body-boundary logic Resolve applies.
func (s *Scope) LookupLocal(name Symbol) (Decl, bool) {
	b, ok := s.names[name]
	if !ok {
		return nil, false
	}
	return b.decl, true
}

// Reset clears every binding in s without replacing the Scope value,
// so callers that hold a pointer to a module's ImportScope (closed
// over by earlier Resolve calls) see the rebuilt contents in place.
func (s *Scope) Reset() { s.names = make(map[Symbol]*binding) }

// ScopeError reports a duplicate declaration or an ambiguous import
// reference, both raised by the analyzer rather than the scope tree
// itself (Scope stays a pure data structure; it records conflicts,
// it doesn't report them).
type ScopeError struct {
	Pos     Pos
	Message string
}

func (e *ScopeError) Error() string { return fmt.Sprintf("%s Error: %s", e.Pos, e.Message) }
