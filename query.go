package chp

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// QueryKey is the constraint for query keys - they must be comparable
// for use as map keys.
type QueryKey interface {
	comparable
}

// FilePath is a query key representing a canonical file path, used
// by the module parse query.
type FilePath string

// Query represents a computation that can be cached and tracked for
// dependencies. K is the key type (input) and V is the value type
// (output). The resolver reads every module through the parse query
// over a shared Database, so re-resolving an already-parsed module is
// a cache hit; the analyzer does not use queries (it tracks its
// passes with the Module.ForwardDeclared and Module.Analyzed flags).
type Query[K QueryKey, V any] struct {
	Name    string
	Compute func(db *Database, key K) (V, error)
}

// queryID is a unique identifier for a cached query result, combining
// the query name with its key.
type queryID struct {
	queryName string
	key       any
}

// cachedValue holds a cached computation result along with metadata
// for invalidation.
type cachedValue struct {
	value    any
	err      error
	revision int
}

// Database is the central store for query results and dependency
// tracking across one compilation run: module parsing is cached here
// by canonical file path, so a module is never reloaded or re-parsed
// once computed.
type Database struct {
	mu sync.RWMutex

	revision int

	cache map[queryID]cachedValue
	deps  map[queryID][]queryID
	rdeps map[queryID][]queryID

	activeQuery *queryID

	// inflight collapses concurrent Get calls for the same query+key
	// onto a single Compute invocation, so two driver goroutines
	// racing to load the same module path never parse it twice.
	inflight singleflight.Group

	config *Config
	loader ModuleLoader
}

// NewDatabase creates a new query database bound to the given
// configuration and module loader.
func NewDatabase(config *Config, loader ModuleLoader) *Database {
	return &Database{
		cache:  make(map[queryID]cachedValue),
		deps:   make(map[queryID][]queryID),
		rdeps:  make(map[queryID][]queryID),
		config: config,
		loader: loader,
	}
}

// Config returns the database's configuration.
func (db *Database) Config() *Config { return db.config }

// Loader returns the database's module loader.
func (db *Database) Loader() ModuleLoader { return db.loader }

// Revision returns the current database revision.
func (db *Database) Revision() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.revision
}

// Get executes a query, returning a cached result if available, or
// computing and caching a new one. Dependencies between queries are
// recorded automatically so Invalidate can cascade.
func Get[K QueryKey, V any](db *Database, q *Query[K, V], key K) (V, error) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()

	if db.activeQuery != nil {
		parent := *db.activeQuery
		db.deps[parent] = append(db.deps[parent], id)
		db.rdeps[id] = append(db.rdeps[id], parent)
	}

	if cached, ok := db.cache[id]; ok {
		db.mu.Unlock()
		if cached.err != nil {
			var zero V
			return zero, cached.err
		}
		return cached.value.(V), nil
	}

	db.mu.Unlock()

	flightKey := fmt.Sprintf("%s:%v", q.Name, key)
	result, err, _ := db.inflight.Do(flightKey, func() (any, error) {
		db.mu.Lock()
		if cached, ok := db.cache[id]; ok {
			db.mu.Unlock()
			return cached.value, cached.err
		}
		prevActive := db.activeQuery
		db.activeQuery = &id
		db.deps[id] = nil
		db.mu.Unlock()

		value, computeErr := q.Compute(db, key)

		db.mu.Lock()
		db.activeQuery = prevActive
		db.cache[id] = cachedValue{value: value, err: computeErr, revision: db.revision}
		db.mu.Unlock()

		return value, computeErr
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Invalidate removes a cached value and everything that transitively
// depended on it, forcing recomputation on the next Get.
func Invalidate[K QueryKey, V any](db *Database, q *Query[K, V], key K) {
	id := queryID{queryName: q.Name, key: key}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.revision++
	db.invalidateWithDependents(id)
}

func (db *Database) invalidateDependents(id queryID) {
	for _, dep := range db.rdeps[id] {
		delete(db.cache, dep)
		db.invalidateDependents(dep)
	}
}

func (db *Database) invalidateWithDependents(id queryID) {
	delete(db.cache, id)
	db.invalidateDependents(id)
}

// InvalidateAll clears every cached value, forcing full recomputation.
func (db *Database) InvalidateAll() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.revision++
	db.cache = make(map[queryID]cachedValue)
	db.deps = make(map[queryID][]queryID)
	db.rdeps = make(map[queryID][]queryID)
}

// DatabaseStats holds statistics about the query database, used by
// tests asserting the idempotence laws (re-running a pass over an
// already-processed module performs no new work).
type DatabaseStats struct {
	Revision    int
	CachedCount int
}

// Stats reports the database's current size, for tests that assert
// re-running a pass is a cache hit (CachedCount doesn't grow).
func (db *Database) Stats() DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return DatabaseStats{Revision: db.revision, CachedCount: len(db.cache)}
}

func (s DatabaseStats) String() string {
	return fmt.Sprintf("Database{revision=%d, cached=%d}", s.Revision, s.CachedCount)
}
