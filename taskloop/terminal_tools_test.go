package taskloop

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const declarationsFixture = `package sample

type Greeter struct {
	name string
}

func NewGreeter(name string) *Greeter {
	return &Greeter{name: name}
}

func (g *Greeter) Greet() string {
	if g.name == "" {
		return "hello"
	}
	return "hello " + g.name
}

func helper() int {
	return 42
}
`

func newTestTerminal(t *testing.T) (*Terminal, string) {
	t.Helper()
	dir := t.TempDir()
	return NewTerminal(nil, dir), dir
}

func TestWriteAndReadFile(t *testing.T) {
	term, dir := newTestTerminal(t)

	res := term.WriteFile("nested/dir/out.txt", "payload")
	require.False(t, res.IsError())

	data, err := os.ReadFile(filepath.Join(dir, "nested/dir/out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	read := term.GetFileContents("nested/dir/out.txt")
	require.False(t, read.IsError())
	assert.Equal(t, "payload", read["content"])
}

func TestWriteFileOverwrites(t *testing.T) {
	term, _ := newTestTerminal(t)

	require.False(t, term.WriteFile("a.txt", "first").IsError())
	require.False(t, term.WriteFile("a.txt", "second").IsError())

	res := term.GetFileContents("a.txt")
	assert.Equal(t, "second", res["content"])
}

func TestAppendToFile(t *testing.T) {
	term, _ := newTestTerminal(t)

	require.False(t, term.AppendToFile("log.txt", "one").IsError())
	require.False(t, term.AppendToFile("log.txt", "two").IsError())

	res := term.GetFileContents("log.txt")
	assert.Equal(t, "onetwo", res["content"])
}

func TestGetFileContentsMissing(t *testing.T) {
	term, _ := newTestTerminal(t)
	assert.True(t, term.GetFileContents("missing.txt").IsError())
}

func TestGetFilesAndDirsAtPath(t *testing.T) {
	term, dir := newTestTerminal(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	res := term.GetFilesAndDirsAtPath(".")
	require.False(t, res.IsError())
	assert.ElementsMatch(t, []string{"a.go", "sub"}, res["entries"])
}

func TestGetFileContentsOfType(t *testing.T) {
	term, dir := newTestTerminal(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes"), 0644))

	res := term.GetFileContentsOfType(".", ".md")
	require.False(t, res.IsError())
	assert.Equal(t, "# notes", res["content"])

	assert.True(t, term.GetFileContentsOfType(".", ".rs").IsError())
}

func TestGetDeclarations(t *testing.T) {
	term, dir := newTestTerminal(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(declarationsFixture), 0644))

	res := term.GetDeclarations(".", ".go")
	require.False(t, res.IsError())

	file, ok := res["sample.go"].(map[string]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"NewGreeter", "Greet", "helper"}, file["functions"])
	assert.ElementsMatch(t, []string{"Greeter"}, file["types"])
}

func TestGetFunctionContent(t *testing.T) {
	term, dir := newTestTerminal(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(declarationsFixture), 0644))

	res := term.GetFunctionContent("sample.go", "Greet")
	require.False(t, res.IsError())
	content, _ := res["content"].(string)
	assert.Contains(t, content, "func (g *Greeter) Greet() string {")
	assert.Contains(t, content, `return "hello " + g.name`)
	assert.NotContains(t, content, "func helper()")

	assert.True(t, term.GetFunctionContent("sample.go", "Vanish").IsError())
}

func TestRunCommandMapsResults(t *testing.T) {
	dir := t.TempDir()
	term := NewTerminal(newTestManager(t, dir), dir)

	res := term.RunCommand("echo hi", 0)
	require.False(t, res.IsError())
	assert.Equal(t, "hi\n", res["stdout"])
	assert.Equal(t, 0, res["returncode"])
	assert.NotContains(t, res, "status")

	res = term.RunCommand("sleep 30", 200*time.Millisecond)
	require.False(t, res.IsError())
	assert.Equal(t, "running", res["status"])
	assert.NotContains(t, res, "returncode")
	assert.NotEmpty(t, res["process_id"])
	assert.Contains(t, res["message"], "still running")
}

func TestRegisterTerminalToolsNames(t *testing.T) {
	registry := NewRegistry()
	RegisterTerminalTools(registry, NewTerminal(nil, t.TempDir()))

	for _, name := range []string{
		"terminal.run_command",
		"terminal.start_background_process",
		"terminal.list_background_processes",
		"terminal.get_process_output",
		"terminal.stop_background_process",
		"terminal.send_input_to_process",
		"terminal.get_files_and_dirs_at_path",
		"terminal.get_file_contents",
		"terminal.get_file_contents_of_type",
		"terminal.get_declarations",
		"terminal.get_function_content",
		"terminal.write_file",
		"terminal.append_to_file",
	} {
		assert.NotNil(t, registry.Get(name), name)
	}
}
