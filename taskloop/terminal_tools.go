package taskloop

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/martinemde/stepwise/shellproc"
)

// Terminal adapts the process manager and local filesystem into the
// action handlers the registry exposes to the model.
type Terminal struct {
	procs      *shellproc.Manager
	workingDir string
}

// NewTerminal creates a Terminal rooted at workingDir (defaults to the
// current directory).
func NewTerminal(procs *shellproc.Manager, workingDir string) *Terminal {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	return &Terminal{procs: procs, workingDir: workingDir}
}

// WorkingDir returns the directory command and file paths resolve
// against.
func (t *Terminal) WorkingDir() string { return t.workingDir }

// Processes returns the underlying process manager.
func (t *Terminal) Processes() *shellproc.Manager { return t.procs }

func (t *Terminal) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(t.workingDir, path)
}

// RunCommand executes a command in the foreground with a timeout. A
// command that outlives the timeout continues as a background process
// and the partial output is returned.
func (t *Terminal) RunCommand(command string, timeout time.Duration) Result {
	res, err := t.procs.Run(command, timeout)
	if err != nil {
		return ErrorResult("%v", err)
	}
	out := Result{
		"stdout": res.Stdout,
		"stderr": res.Stderr,
	}
	if res.ReturnCode != nil {
		out["returncode"] = *res.ReturnCode
	} else {
		out["status"] = string(res.Status)
		out["process_id"] = res.ProcessID
		out["message"] = res.Message
	}
	return out
}

// StartBackgroundProcess spawns a long-running command and returns its
// identifier plus an initial output snapshot.
func (t *Terminal) StartBackgroundProcess(command string) Result {
	snap, err := t.procs.Spawn(command)
	if err != nil {
		return ErrorResult("%v", err)
	}
	return Result{
		"process_id": snap.ID,
		"status":     "started",
		"stdout":     snap.Stdout,
		"stderr":     snap.Stderr,
	}
}

// ListBackgroundProcesses lists all tracked processes and their status.
func (t *Terminal) ListBackgroundProcesses() Result {
	out := Result{}
	for id, info := range t.procs.List() {
		out[id] = map[string]interface{}{
			"command": info.Command,
			"status":  string(info.Status),
			"runtime": info.Runtime,
		}
	}
	return out
}

// GetProcessOutput returns the accumulated output of a background
// process. Observing a dead process includes its exit code and removes
// the record.
func (t *Terminal) GetProcessOutput(id string) Result {
	out, err := t.procs.PeekOutput(id)
	if err != nil {
		return ErrorResult("Process with ID %s not found", id)
	}
	res := Result{
		"status": string(out.Status),
		"stdout": out.Stdout,
		"stderr": out.Stderr,
	}
	if out.ReturnCode != nil {
		res["returncode"] = *out.ReturnCode
	}
	return res
}

// StopBackgroundProcess stops a background process and removes its
// record.
func (t *Terminal) StopBackgroundProcess(id string) Result {
	res, err := t.procs.Stop(id)
	if err != nil {
		return ErrorResult("Process with ID %s not found", id)
	}
	if res.AlreadyTerminated {
		return Result{"message": fmt.Sprintf("Process %s was already terminated", id)}
	}
	return Result{
		"success": true,
		"message": fmt.Sprintf("Process %s stopped", id),
		"stdout":  res.Stdout,
		"stderr":  res.Stderr,
	}
}

// SendInputToProcess feeds one line of input to an interactive
// background process and returns the output buffers after the settle
// delay.
func (t *Terminal) SendInputToProcess(id, text string) Result {
	if err := t.procs.SendInput(id, text); err != nil {
		return ErrorResult("%v", err)
	}
	out, err := t.procs.PeekOutput(id)
	if err != nil {
		return ErrorResult("%v", err)
	}
	return Result{
		"success": true,
		"message": fmt.Sprintf("Input sent to process %s", id),
		"stdout":  out.Stdout,
		"stderr":  out.Stderr,
	}
}

// WriteFile writes content to a file, overwriting existing content.
func (t *Terminal) WriteFile(path, content string) Result {
	resolved := t.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return ErrorResult("%v", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return ErrorResult("%v", err)
	}
	return Result{"success": true, "message": fmt.Sprintf("File %s written successfully", path)}
}

// AppendToFile appends content to a file, creating it if needed.
func (t *Terminal) AppendToFile(path, content string) Result {
	f, err := os.OpenFile(t.resolve(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return ErrorResult("%v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return ErrorResult("%v", err)
	}
	return Result{"success": true, "message": fmt.Sprintf("Content appended to %s successfully", path)}
}

// GetFileContents returns the contents of one file.
func (t *Terminal) GetFileContents(path string) Result {
	data, err := os.ReadFile(t.resolve(path))
	if err != nil {
		return ErrorResult("%v", err)
	}
	return Result{"content": string(data)}
}

// GetFileContentsOfType returns the contents of the first file with the
// given extension at path.
func (t *Terminal) GetFileContentsOfType(path, fileType string) Result {
	entries, err := os.ReadDir(t.resolve(path))
	if err != nil {
		return ErrorResult("%v", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fileType) {
			return t.GetFileContents(filepath.Join(path, entry.Name()))
		}
	}
	return ErrorResult("No files with type %s found at %s", fileType, path)
}

// GetFilesAndDirsAtPath lists the entries at a path.
func (t *Terminal) GetFilesAndDirsAtPath(path string) Result {
	entries, err := os.ReadDir(t.resolve(path))
	if err != nil {
		return ErrorResult("%v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return Result{"entries": names}
}

// GetDeclarations extracts top-level function and type names from files
// with the given extension in a directory. Cheaper in tokens than
// replaying full file contents when only structure matters.
func (t *Terminal) GetDeclarations(path, extension string) Result {
	if extension == "" {
		extension = ".go"
	}
	entries, err := os.ReadDir(t.resolve(path))
	if err != nil {
		return ErrorResult("%v", err)
	}

	out := Result{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		data, err := os.ReadFile(t.resolve(filepath.Join(path, entry.Name())))
		if err != nil {
			continue
		}
		var functions, types []string
		for _, line := range strings.Split(string(data), "\n") {
			switch {
			case strings.HasPrefix(line, "func "):
				if name := declarationName(line[len("func "):]); name != "" {
					functions = append(functions, name)
				}
			case strings.HasPrefix(line, "type "):
				if name := declarationName(line[len("type "):]); name != "" {
					types = append(types, name)
				}
			}
		}
		out[entry.Name()] = map[string]interface{}{
			"functions": functions,
			"types":     types,
		}
	}
	return out
}

// declarationName extracts the identifier that follows a func/type
// keyword, skipping a method receiver if present.
func declarationName(rest string) string {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[end+1:])
	}
	for i := 0; i < len(rest); i++ {
		if !isWordByte(rest[i]) {
			return rest[:i]
		}
	}
	return rest
}

// GetFunctionContent extracts the body of one top-level function from a
// file, from its declaration line through the matching closing brace.
func (t *Terminal) GetFunctionContent(path, functionName string) Result {
	data, err := os.ReadFile(t.resolve(path))
	if err != nil {
		return ErrorResult("%v", err)
	}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "func ") {
			continue
		}
		if declarationName(strings.TrimPrefix(line, "func ")) != functionName {
			continue
		}
		depth := 0
		opened := false
		for j := i; j < len(lines); j++ {
			depth += strings.Count(lines[j], "{") - strings.Count(lines[j], "}")
			if strings.Contains(lines[j], "{") {
				opened = true
			}
			if opened && depth <= 0 {
				return Result{"content": strings.Join(lines[i:j+1], "\n")}
			}
		}
		return Result{"content": strings.Join(lines[i:], "\n")}
	}
	return ErrorResult("Function %q not found in %s", functionName, path)
}

// RegisterTerminalTools registers the terminal action set on reg. The
// descriptions are part of the model contract: they are replayed
// verbatim into the system context.
func RegisterTerminalTools(reg *Registry, term *Terminal) {
	reg.Register("terminal.run_command", ToolSpec{
		Description: "Run a command in the terminal with a 10-second timeout. If the command doesn't complete within the timeout, it continues running in the background, and the function returns the partial output.",
		Parameters:  map[string]string{"command": "string"},
		Handler: func(params map[string]string) Result {
			timeout := time.Duration(0)
			if secs, err := strconv.Atoi(params["timeout"]); err == nil && secs > 0 {
				timeout = time.Duration(secs) * time.Second
			}
			return term.RunCommand(params["command"], timeout)
		},
	})
	reg.Register("terminal.start_background_process", ToolSpec{
		Description: "Start a long-running process in the background and return its ID for future reference. Use this for servers, continuous processes, or interactive programs.",
		Parameters:  map[string]string{"command": "string"},
		Handler: func(params map[string]string) Result {
			return term.StartBackgroundProcess(params["command"])
		},
	})
	reg.Register("terminal.list_background_processes", ToolSpec{
		Description: "List all background processes and their status",
		Parameters:  map[string]string{},
		Handler: func(params map[string]string) Result {
			return term.ListBackgroundProcesses()
		},
	})
	reg.Register("terminal.get_process_output", ToolSpec{
		Description: "Get the current output from a background process",
		Parameters:  map[string]string{"process_id": "string"},
		Handler: func(params map[string]string) Result {
			return term.GetProcessOutput(params["process_id"])
		},
	})
	reg.Register("terminal.stop_background_process", ToolSpec{
		Description: "Stop a background process",
		Parameters:  map[string]string{"process_id": "string"},
		Handler: func(params map[string]string) Result {
			return term.StopBackgroundProcess(params["process_id"])
		},
	})
	reg.Register("terminal.send_input_to_process", ToolSpec{
		Description: "Send input to a running background process (for interactive programs)",
		Parameters:  map[string]string{"process_id": "string", "input_text": "string"},
		Handler: func(params map[string]string) Result {
			return term.SendInputToProcess(params["process_id"], params["input_text"])
		},
	})
	reg.Register("terminal.get_files_and_dirs_at_path", ToolSpec{
		Description: "Get all files and directories at a given path",
		Parameters:  map[string]string{"path": "string"},
		Handler: func(params map[string]string) Result {
			return term.GetFilesAndDirsAtPath(params["path"])
		},
	})
	reg.Register("terminal.get_declarations", ToolSpec{
		Description: "Extract function and type names from files with the given extension in a directory. This is more token-efficient than getting full file contents when you only need structure information.",
		Parameters:  map[string]string{"path": "string", "file_extension": "string"},
		Handler: func(params map[string]string) Result {
			return term.GetDeclarations(params["path"], params["file_extension"])
		},
	})
	reg.Register("terminal.get_function_content", ToolSpec{
		Description: "Extract the content of a specific function from a file. This is more token-efficient than loading the entire file when you only need one function.",
		Parameters:  map[string]string{"path": "string", "function_name": "string"},
		Handler: func(params map[string]string) Result {
			return term.GetFunctionContent(params["path"], params["function_name"])
		},
	})
	reg.Register("terminal.get_file_contents", ToolSpec{
		Description: "Get the contents of a file. WARNING: For large files, this consumes many tokens. Consider using get_declarations or get_function_content for more targeted extraction.",
		Parameters:  map[string]string{"path": "string"},
		Handler: func(params map[string]string) Result {
			return term.GetFileContents(params["path"])
		},
	})
	reg.Register("terminal.get_file_contents_of_type", ToolSpec{
		Description: "Get the contents of a file of a given type. WARNING: For large files, this consumes many tokens. Consider using get_function_content for more targeted extraction.",
		Parameters:  map[string]string{"path": "string", "file_type": "string"},
		Handler: func(params map[string]string) Result {
			return term.GetFileContentsOfType(params["path"], params["file_type"])
		},
	})
	reg.Register("terminal.write_file", ToolSpec{
		Description: "Write content to a file (overwriting any existing content)",
		Parameters:  map[string]string{"path": "string", "content": "string"},
		Handler: func(params map[string]string) Result {
			return term.WriteFile(params["path"], params["content"])
		},
	})
	reg.Register("terminal.append_to_file", ToolSpec{
		Description: "Append content to an existing file",
		Parameters:  map[string]string{"path": "string", "content": "string"},
		Handler: func(params map[string]string) Result {
			return term.AppendToFile(params["path"], params["content"])
		},
	})
}
