package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetDebug(false)

	NewLogger("compiler").Info("compiled")
	assert.Contains(t, buf.String(), "component=compiler")
	assert.Contains(t, buf.String(), "compiled")
}

func TestSetDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetDebug(false)
	NewLogger("watch").Debug("hidden")
	assert.False(t, DebugEnabled())
	assert.NotContains(t, buf.String(), "hidden")

	SetDebug(true)
	defer SetDebug(false)
	NewLogger("watch").Debug("shown")
	assert.True(t, DebugEnabled())
	assert.Contains(t, buf.String(), "shown")
}
