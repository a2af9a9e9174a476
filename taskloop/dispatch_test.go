package taskloop

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileDispatcher(t *testing.T) (*Dispatcher, *EventEmitter, string) {
	t.Helper()
	dir := t.TempDir()
	registry := NewRegistry()
	RegisterTerminalTools(registry, NewTerminal(nil, dir))
	events := NewEventEmitter(1024)
	return NewDispatcher(registry, events), events, dir
}

func drainEvents(events *EventEmitter) []Event {
	events.Close()
	var out []Event
	for event := range events.Events() {
		out = append(out, event)
	}
	return out
}

func countEvents(events []Event, kind EventKind) int {
	n := 0
	for _, event := range events {
		if event.Kind == kind {
			n++
		}
	}
	return n
}

func TestDispatchAutoPrefix(t *testing.T) {
	registry := NewRegistry()
	called := false
	registry.Register("terminal.run_command", ToolSpec{
		Handler: func(params map[string]string) Result {
			called = true
			return Result{"stdout": "ok"}
		},
	})
	events := NewEventEmitter(16)
	d := NewDispatcher(registry, events)

	res := d.Dispatch("run_command", map[string]string{"command": "true"})
	assert.False(t, res.IsError())
	assert.True(t, called)
	assert.Equal(t, 1, countEvents(drainEvents(events), EventWarning))
}

func TestDispatchUnknownAction(t *testing.T) {
	d, events, _ := newFileDispatcher(t)
	defer events.Close()

	res := d.Dispatch("database.query", map[string]string{"sql": "select 1"})
	assert.True(t, res.IsError())
	assert.Contains(t, res.Err(), "database.query")
}

func TestDispatchSmallWritePassthrough(t *testing.T) {
	d, events, dir := newFileDispatcher(t)
	defer events.Close()

	res := d.Dispatch("terminal.write_file", map[string]string{
		"path":    "small.txt",
		"content": "hello",
	})
	require.False(t, res.IsError())

	data, err := os.ReadFile(filepath.Join(dir, "small.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDispatchChunkedWriteReassembles(t *testing.T) {
	d, events, dir := newFileDispatcher(t)

	content := make([]byte, largeWriteChunk+writeChunkSize+123)
	for i := range content {
		content[i] = byte('a' + i%26)
	}

	res := d.Dispatch("terminal.write_file", map[string]string{
		"path":    "big.txt",
		"content": string(content),
	})
	require.False(t, res.IsError())
	assert.Contains(t, res["message"], "4 chunks")

	data, err := os.ReadFile(filepath.Join(dir, "big.txt"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, data))

	got := drainEvents(events)
	assert.GreaterOrEqual(t, countEvents(got, EventWarning), 1)
	// one split announcement plus one progress event per chunk
	assert.Equal(t, 5, countEvents(got, EventProgress))
}

func TestDispatchChunkedWriteOverwrites(t *testing.T) {
	d, events, dir := newFileDispatcher(t)
	defer events.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), []byte("stale"), 0644))

	content := bytes.Repeat([]byte("x"), largeWriteChunk+1)
	res := d.Dispatch("terminal.write_file", map[string]string{
		"path":    "big.txt",
		"content": string(content),
	})
	require.False(t, res.IsError())

	data, err := os.ReadFile(filepath.Join(dir, "big.txt"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, data))
}

func TestDispatchChunkedAppendGrowsFile(t *testing.T) {
	d, events, dir := newFileDispatcher(t)
	defer events.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.txt"), []byte("head|"), 0644))

	content := bytes.Repeat([]byte("y"), largeWriteChunk+1)
	res := d.Dispatch("terminal.append_to_file", map[string]string{
		"path":    "log.txt",
		"content": string(content),
	})
	require.False(t, res.IsError())

	data, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(append([]byte("head|"), content...), data))
}

func TestDispatchChunkedWriteAbortsOnFailure(t *testing.T) {
	registry := NewRegistry()
	writes := 0
	registry.Register("terminal.write_file", ToolSpec{
		Handler: func(params map[string]string) Result { return Result{"success": true} },
	})
	registry.Register("terminal.append_to_file", ToolSpec{
		Handler: func(params map[string]string) Result {
			writes++
			if writes == 3 {
				return ErrorResult("disk full")
			}
			return Result{"success": true}
		},
	})
	events := NewEventEmitter(64)
	defer events.Close()
	d := NewDispatcher(registry, events)

	content := bytes.Repeat([]byte("z"), 4*writeChunkSize)
	res := d.Dispatch("terminal.write_file", map[string]string{
		"path":    "big.txt",
		"content": string(content),
	})
	assert.True(t, res.IsError())
	assert.Equal(t, "disk full", res.Err())
	assert.Equal(t, 3, writes)
}
