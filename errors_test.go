package chp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalError_CarriesStackTrace(t *testing.T) {
	err := newInternalError("no dispatch registered for %s", "FooNode")
	assert.Equal(t, "internal error: no dispatch registered for FooNode", err.Error())
	assert.NotEmpty(t, err.StackTrace(), "newInternalError captures a stack at the broken-invariant site")
}

func TestRecovery_StrictModeCollectsWithoutExit(t *testing.T) {
	rec := NewRecovery()
	rec.Strict = true
	rec.Report(Diagnostic{Severity: SevWarning, Message: "just a warning"})
	assert.False(t, rec.HasErrors())
	assert.Len(t, rec.Diagnostics(), 1)
}
