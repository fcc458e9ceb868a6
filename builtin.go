package chp

import (
	"io"
	"strings"
)

// BuiltinPath is the canonical name under which BuiltinModuleLoader
// serves the built-in module. It equals the default of the
// "module.builtin_name" configuration key, which is the name the
// resolver and analyzer look the built-in module up by.
const BuiltinPath = "builtin.chp"

// BuiltinSource is the source text of the module pre-imported into
// every other module unless "module.import_builtin" is turned off: a
// string type alias, the common ASCII control-code constants, and the
// I/O procedure signatures a program can call without an explicit
// requires line. Every body is `skip`: the actual I/O and length
// primitives are supplied by the executor this front-end hands its
// analyzed tree to, not by anything expressible in CHP itself.
const BuiltinSource = `
export type string = array[0..255] of char;

export const NUL: int = 0;
export const BEL: int = 7;
export const BS: int = 8;
export const TAB: int = 9;
export const LF: int = 10;
export const CR: int = 13;
export const ESC: int = 27;
export const SPACE: int = 32;
export const DEL: int = 127;

export function length(s: string): int { skip }

export procedure print_int(x: int) { skip }
export procedure print_char(c: char) { skip }
export procedure print_bool(b: bool) { skip }
export procedure print_string(s: string) { skip }
export procedure print_newline() { skip }
`

// BuiltinModuleLoader wraps an underlying loader and serves
// BuiltinPath from BuiltinSource instead of touching the filesystem,
// so the built-in module is always available even when the configured
// search path doesn't happen to contain a copy of it on disk.
type BuiltinModuleLoader struct {
	Underlying ModuleLoader
}

func (l *BuiltinModuleLoader) Resolve(fromFile, path string) (string, error) {
	if path == BuiltinPath {
		return BuiltinPath, nil
	}
	return l.Underlying.Resolve(fromFile, path)
}

func (l *BuiltinModuleLoader) Open(canonical string) (io.ReadCloser, error) {
	if canonical == BuiltinPath {
		return io.NopCloser(strings.NewReader(BuiltinSource)), nil
	}
	return l.Underlying.Open(canonical)
}
