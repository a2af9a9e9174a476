package taskloop

import (
	"fmt"
	"strings"
)

const (
	// largeWriteWarn is the content size above which a file write gets a
	// warning event.
	largeWriteWarn = 50000
	// largeWriteChunk is the content size above which a file write is
	// split into sequential chunks.
	largeWriteChunk = 100000
	// writeChunkSize is the size of each chunk in a chunked write.
	writeChunkSize = 50000
)

// Dispatcher routes extracted actions to registered handlers. It
// normalizes bare action names and transparently chunks oversized file
// writes before they reach the handlers.
type Dispatcher struct {
	registry *Registry
	events   *EventEmitter
}

// NewDispatcher creates a Dispatcher over the given registry.
func NewDispatcher(registry *Registry, events *EventEmitter) *Dispatcher {
	return &Dispatcher{registry: registry, events: events}
}

// bareNames are action names the model frequently emits without their
// namespace prefix.
var bareNames = map[string]bool{
	"run_command":                true,
	"start_background_process":   true,
	"list_background_processes":  true,
	"get_process_output":         true,
	"stop_background_process":    true,
	"send_input_to_process":      true,
	"get_files_and_dirs_at_path": true,
	"get_file_contents":          true,
	"get_file_contents_of_type":  true,
	"get_declarations":           true,
	"get_function_content":       true,
	"write_file":                 true,
	"append_to_file":             true,
}

// Dispatch executes one action and returns its result. Handler-level
// failures come back as error results, never as panics or raised
// errors, so the loop can replay them into the next step's context.
func (d *Dispatcher) Dispatch(action string, params map[string]string) Result {
	name := action
	if !strings.Contains(name, ".") && bareNames[name] {
		name = "terminal." + name
		d.events.Emit(EventWarning, map[string]interface{}{
			"message": fmt.Sprintf("Function %q missing namespace, using %q", action, name),
		})
	}

	if name == "terminal.write_file" || name == "terminal.append_to_file" {
		if res, handled := d.dispatchLargeWrite(name, params); handled {
			return res
		}
	}

	return d.registry.Run(name, params)
}

// dispatchLargeWrite splits an oversized file write into sequential
// append operations. Returns handled=false when the content is small
// enough to pass through untouched.
func (d *Dispatcher) dispatchLargeWrite(name string, params map[string]string) (Result, bool) {
	content := params["content"]
	size := len(content)
	if size > largeWriteWarn {
		d.events.Emit(EventWarning, map[string]interface{}{
			"message": fmt.Sprintf("Writing large content (%d bytes) to %s", size, params["path"]),
		})
	}
	if size <= largeWriteChunk {
		return nil, false
	}

	path := params["path"]
	chunks := (size + writeChunkSize - 1) / writeChunkSize
	d.events.Emit(EventProgress, map[string]interface{}{
		"message": fmt.Sprintf("Splitting write to %s into %d chunks", path, chunks),
	})

	if name == "terminal.write_file" {
		res := d.registry.Run("terminal.write_file", map[string]string{"path": path, "content": ""})
		if res.IsError() {
			return res, true
		}
	}

	for i := 0; i < chunks; i++ {
		start := i * writeChunkSize
		end := start + writeChunkSize
		if end > size {
			end = size
		}
		res := d.registry.Run("terminal.append_to_file", map[string]string{
			"path":    path,
			"content": content[start:end],
		})
		if res.IsError() {
			return res, true
		}
		d.events.Emit(EventProgress, map[string]interface{}{
			"message": fmt.Sprintf("Wrote chunk %d/%d to %s", i+1, chunks, path),
		})
	}

	return Result{
		"success": true,
		"message": fmt.Sprintf("File %s written successfully in %d chunks", path, chunks),
	}, true
}
