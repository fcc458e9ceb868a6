package chp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_AppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chp.yaml")
	content := `
search_path:
  - /opt/chp/lib
  - /opt/chp/vendor
lexer_strict: true
import_builtin: false
builtin_name: core.chp
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/chp/lib", "/opt/chp/vendor"}, cfg.GetStringList("module.search_path"))
	assert.True(t, cfg.GetBool("lexer.strict"))
	assert.False(t, cfg.GetBool("module.import_builtin"))
	assert.Equal(t, "core.chp", cfg.GetString("module.builtin_name"))
}

func TestLoadConfigFile_MissingFieldsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_path: [\"/a\"]\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/a"}, cfg.GetStringList("module.search_path"))
	assert.False(t, cfg.GetBool("lexer.strict"), "unset yaml fields fall back to NewConfig defaults")
	assert.True(t, cfg.GetBool("module.import_builtin"))
}

func TestLoadConfigFile_MissingFileIsAnError(t *testing.T) {
	_, err := LoadConfigFile("/nonexistent/chp.yaml")
	assert.Error(t, err)
}
