package chp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of a driver config file: the module
// search path and the handful of behavioral switches a deployment
// wants fixed across every invocation instead of passed as flags each
// time.
type fileConfig struct {
	SearchPath    []string `yaml:"search_path"`
	LexerStrict   *bool    `yaml:"lexer_strict"`
	ImportBuiltin *bool    `yaml:"import_builtin"`
	BuiltinName   string   `yaml:"builtin_name"`
}

// LoadConfigFile reads a YAML config file and applies it on top of a
// freshly created Config, so a deployment can pin its search path and
// strictness once instead of repeating flags at every invocation.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg := NewConfig()
	for _, dir := range fc.SearchPath {
		cfg.AddSearchDir(dir)
	}
	if fc.LexerStrict != nil {
		cfg.SetBool("lexer.strict", *fc.LexerStrict)
	}
	if fc.ImportBuiltin != nil {
		cfg.SetBool("module.import_builtin", *fc.ImportBuiltin)
	}
	if fc.BuiltinName != "" {
		cfg.SetString("module.builtin_name", fc.BuiltinName)
	}
	return cfg, nil
}
