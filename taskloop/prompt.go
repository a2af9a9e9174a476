package taskloop

import (
	"encoding/json"
	"fmt"
)

// buildSystemContext constructs the system message: the available
// actions and the tag-based reply format the extractor expects.
func buildSystemContext(registry *Registry) string {
	toolsJSON, err := json.MarshalIndent(registry.Describe(), "", "  ")
	if err != nil {
		toolsJSON = []byte("{}")
	}

	return fmt.Sprintf(`You are an AI agent that solves tasks step by step. You have access to the following tools:

%s

For each step, you should analyze the task and decide on the next action.
Your response must use the following XML-style tag format:

<thought>
Your reasoning for this step. This can include multiple lines and special characters.
</thought>

<function>
function_name or null if the task is complete
</function>

<parameters>
path: example/path.txt
content: the content to write
# For other functions, include appropriate parameters as key-value pairs
</parameters>

<task_complete>
true or false
</task_complete>

IMPORTANT:
1. The content for file operations should be placed inside the <parameters> tags after "content:"
2. You can include any special characters, quotes, or code in the content without escaping
3. When writing code, include the full code exactly as it should be written to the file
4. No need to escape special characters in any field

IMPORTANT FILE HANDLING GUIDELINES:
1. When analyzing code, use terminal.get_declarations first to understand structure
2. Only use terminal.get_file_contents for small files or when you need implementation details
3. Reading large files consumes many tokens and may impact performance
4. For large codebases, analyze files incrementally rather than all at once

When you need to run programs that don't exit immediately (like web servers or interactive programs):
1. Use terminal.start_background_process instead of terminal.run_command
2. Use the returned process_id to check on its progress with terminal.get_process_output
3. For interactive programs, use terminal.send_input_to_process to provide input
4. When done, use terminal.stop_background_process to clean up

IMPORTANT: If working with large files, try to make smaller, incremental changes rather than rewriting entire files at once.

If task_complete is true, no function will be called and the task will be considered done.`, toolsJSON)
}

// buildUserContext constructs the per-step user message: the task, the
// step position, the working directory, and the truncated history
// replay.
func buildUserContext(task string, stepNum int, workingDir, historyText string) string {
	return fmt.Sprintf(`Task: %s

Current step: %d
Current working directory: %s
%s

Decide on the next step, or mark the task as complete.`, task, stepNum, workingDir, historyText)
}
