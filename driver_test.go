package chp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_ReadSourceAndPrepareExec(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root.chp")
	src := `
process main() chp {
	*[ true -> skip ]
}
`
	require.NoError(t, os.WriteFile(root, []byte(src), 0o644))

	driver := NewDriver(nil)
	_, rootMod, err := ReadSource(driver, root)
	require.NoError(t, err)
	driver.Rec.PrintAll()
	assert.False(t, driver.Rec.HasErrors())

	proc, err := FindMain(rootMod, "main", false)
	require.NoError(t, err)

	state, err := PrepareExec(driver, proc)
	require.NoError(t, err)
	assert.Equal(t, "/", state.Path)
	TerminateExec(state)
}

func TestNewDriverFromConfigFile_UsesFileSearchPath(t *testing.T) {
	libDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(libDir, "lib.chp"), []byte("export const ANSWER: int = 42;\n"), 0o644))

	rootDir := t.TempDir()
	rootPath := filepath.Join(rootDir, "root.chp")
	require.NoError(t, os.WriteFile(rootPath, []byte(`requires "lib.chp"; process main() chp { skip }`), 0o644))

	cfgPath := filepath.Join(rootDir, "chp.yaml")
	yamlContent := "search_path:\n  - " + libDir + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o644))

	driver, err := NewDriverFromConfigFile(cfgPath, nil)
	require.NoError(t, err)

	_, _, err = ReadSource(driver, rootPath)
	require.NoError(t, err)
	assert.False(t, driver.Rec.HasErrors())
}

func TestFindMain_RejectsNonProcessAndMissingName(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root.chp")
	require.NoError(t, os.WriteFile(root, []byte("const x: int = 1;\n"), 0o644))

	driver := NewDriver(nil)
	_, rootMod, err := ReadSource(driver, root)
	require.NoError(t, err)

	_, err = FindMain(rootMod, "x", false)
	assert.Error(t, err, "x is a const, not a process")

	_, err = FindMain(rootMod, "missing", false)
	assert.Error(t, err)
}
