package taskloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDecisionSimpleCall(t *testing.T) {
	text := `<thought>
I should list the directory first.
</thought>
<function>terminal.get_files_and_dirs_at_path</function>
<parameters>
path: .
</parameters>
<task_complete>false</task_complete>`

	d := ExtractDecision(text)
	assert.True(t, d.Valid())
	assert.Equal(t, "I should list the directory first.", d.Thought)
	assert.Equal(t, "terminal.get_files_and_dirs_at_path", d.Action)
	assert.Equal(t, map[string]string{"path": "."}, d.Parameters)
	assert.False(t, d.TaskComplete)
}

func TestExtractDecisionTotality(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no tags", "Sure! Here's what I would do next."},
		{"unterminated function", "<thought>hi</thought><function>terminal.run_command"},
		{"unterminated thought", "<thought>never closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ExtractDecision(tt.text)
			assert.False(t, d.Valid())
			assert.Equal(t, "No thought provided", d.Thought)
			assert.Empty(t, d.Action)
			assert.False(t, d.TaskComplete)
			assert.NotNil(t, d.Parameters)
		})
	}
}

func TestExtractDecisionNullFunction(t *testing.T) {
	text := `<thought>Everything is done.</thought>
<function>null</function>
<task_complete>true</task_complete>`

	d := ExtractDecision(text)
	assert.Empty(t, d.Action)
	assert.True(t, d.TaskComplete)
	assert.True(t, d.Valid())
}

func TestExtractDecisionCompletionToken(t *testing.T) {
	for token, want := range map[string]bool{
		"true":  true,
		"TRUE":  true,
		"false": false,
		"yes":   false,
		"1":     false,
	} {
		d := ExtractDecision("<task_complete>" + token + "</task_complete>")
		assert.Equal(t, want, d.TaskComplete, "token %q", token)
	}
}

func TestExtractDecisionFileContentPreservesNewlines(t *testing.T) {
	text := `<thought>Write the program.</thought>
<function>terminal.write_file</function>
<parameters>
path: hello.go
content:
package main

func main() {
	println("hi")
}
</parameters>
<task_complete>false</task_complete>`

	d := ExtractDecision(text)
	assert.Equal(t, "terminal.write_file", d.Action)
	assert.Equal(t, "hello.go", d.Parameters["path"])
	assert.Equal(t, "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}", d.Parameters["content"])
}

func TestExtractDecisionFileContentInline(t *testing.T) {
	text := `<function>write_file</function>
<parameters>
path: notes.txt
content: single line payload
</parameters>`

	d := ExtractDecision(text)
	assert.Equal(t, "notes.txt", d.Parameters["path"])
	assert.Equal(t, "single line payload", d.Parameters["content"])
}

func TestExtractDecisionFileContentDefaults(t *testing.T) {
	text := `<function>terminal.write_file</function>
<parameters>
something else entirely
</parameters>`

	d := ExtractDecision(text)
	assert.Equal(t, "unknown_path.txt", d.Parameters["path"])
	assert.Equal(t, "", d.Parameters["content"])
}

func TestExtractDecisionKeyValueParams(t *testing.T) {
	text := `<function>terminal.run_command</function>
<parameters>
command: echo hello: world
</parameters>`

	d := ExtractDecision(text)
	assert.Equal(t, map[string]string{"command": "echo hello: world"}, d.Parameters)
}

func TestExtractDecisionParametersIgnoredWithoutAction(t *testing.T) {
	text := `<parameters>
path: ghost.txt
</parameters>
<task_complete>true</task_complete>`

	d := ExtractDecision(text)
	assert.Empty(t, d.Action)
	assert.Empty(t, d.Parameters)
	assert.True(t, d.TaskComplete)
}
