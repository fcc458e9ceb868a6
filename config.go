package chp

import "fmt"

// Config holds driver-level options that flow through the whole
// pipeline: the module search path, and a handful of behavioral
// switches the spec calls out as open questions (strict lexing,
// whether the root import level exists for the built-in module).
// It follows the flat string-keyed settings bag idiom: adding a knob
// never requires touching every caller that builds a Config.
type Config map[string]*cfgVal

// NewConfig returns a Config primed with the defaults the front-end
// expects: lenient lexer fix-ups, the built-in module auto-imported,
// and an empty search path (the driver appends directories to it).
func NewConfig() *Config {
	m := make(Config)
	m.SetBool("lexer.strict", false)
	m.SetBool("module.import_builtin", true)
	m.SetString("module.builtin_name", "builtin.chp")
	m.SetStringList("module.search_path", nil)
	return &m
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
	cfgValType_StringList
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined:  "undefined",
		cfgValType_Bool:       "bool",
		cfgValType_Int:        "int",
		cfgValType_String:     "string",
		cfgValType_StringList: "string list",
	}[vt]
}

type cfgVal struct {
	typ        cfgValType
	asBool     bool
	asInt      int
	asString   string
	asStrSlice []string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve `%s` from `%s` setting", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) SetStringList(path string, v []string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_StringList)
	(*c)[path].asStrSlice = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("string setting `%s` does not exist", path))
}

func (c *Config) GetStringList(path string) []string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_StringList)
		return val.asStrSlice
	}
	panic(fmt.Sprintf("string list setting `%s` does not exist", path))
}

// AddSearchDir appends a directory to the end of the module search
// path, keeping the order in which the driver supplied them.
func (c *Config) AddSearchDir(dir string) {
	c.SetStringList("module.search_path", append(c.GetStringList("module.search_path"), dir))
}
