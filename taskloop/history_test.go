package taskloop

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRenderTruncatesOutput(t *testing.T) {
	h := NewHistory()
	long := strings.Repeat("x", 600)
	h.Append(`terminal.run_command(command="yes")`, Result{"stdout": long, "returncode": 0})

	rendered := h.Render(500)
	assert.Contains(t, rendered, truncationMarker)
	assert.NotContains(t, rendered, long)
	assert.Contains(t, rendered, "Step 1:")

	// truncation happens on a copy, the stored entry keeps everything
	assert.Equal(t, long, h.Entries()[0].Result["stdout"])
}

func TestHistoryRenderShortOutputUntouched(t *testing.T) {
	h := NewHistory()
	h.Append(`terminal.run_command(command="ls")`, Result{"stdout": "a b c", "returncode": 0})

	rendered := h.Render(500)
	assert.Contains(t, rendered, "a b c")
	assert.NotContains(t, rendered, truncationMarker)
}

func TestHistoryRenderOrder(t *testing.T) {
	h := NewHistory()
	h.Append("first()", Result{"stdout": "one"})
	h.Append("second()", Result{"stdout": "two"})

	rendered := h.Render(500)
	assert.Less(t, strings.Index(rendered, "first()"), strings.Index(rendered, "second()"))
	assert.Contains(t, rendered, "Step 2: second()")
}

func TestFormatCall(t *testing.T) {
	label := FormatCall("terminal.run_command", map[string]string{
		"command": "echo hi",
		"before":  "z",
	})
	// keys render in sorted order for stable labels
	assert.Equal(t, `terminal.run_command(before="z", command="echo hi")`, label)
}

func TestFormatCallElidesLongValues(t *testing.T) {
	label := FormatCall("terminal.write_file", map[string]string{
		"path":    "big.txt",
		"content": strings.Repeat("a", 80),
	})
	assert.Contains(t, label, strings.Repeat("a", 47)+"...")
	assert.NotContains(t, label, strings.Repeat("a", 48))
}

func TestFormatCallNoParams(t *testing.T) {
	assert.Equal(t, "terminal.list_background_processes()",
		FormatCall("terminal.list_background_processes", nil))
}

func TestRegistryBareNameResolution(t *testing.T) {
	registry := NewRegistry()
	registry.Register("terminal.run_command", ToolSpec{
		Handler: func(params map[string]string) Result { return Result{"stdout": "ok"} },
	})

	res := registry.Run("run_command", nil)
	assert.False(t, res.IsError())

	res = registry.Run("no_such_thing", nil)
	require.True(t, res.IsError())
	assert.Contains(t, res.Err(), "Unknown function")
}

func TestBuildSystemContextListsTools(t *testing.T) {
	registry := NewRegistry()
	RegisterTerminalTools(registry, NewTerminal(nil, t.TempDir()))

	systemContext := buildSystemContext(registry)
	assert.Contains(t, systemContext, "terminal.run_command")
	assert.Contains(t, systemContext, "terminal.start_background_process")
	assert.Contains(t, systemContext, "<task_complete>")
	assert.Contains(t, systemContext, "<function>")
}

func TestBuildUserContext(t *testing.T) {
	userContext := buildUserContext("make tea", 4, "/tmp/work", "\nStep 1: boil(), Result: {}")
	assert.Contains(t, userContext, "Task: make tea")
	assert.Contains(t, userContext, "Current step: 4")
	assert.Contains(t, userContext, "/tmp/work")
	assert.Contains(t, userContext, "Step 1: boil()")
}
