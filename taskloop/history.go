package taskloop

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// truncationMarker is appended to output fields elided from replayed
// history.
const truncationMarker = "... [output truncated]"

// HistoryEntry is one (action-label, result) pair.
type HistoryEntry struct {
	Label  string
	Result Result
}

// History is the ordered record of executed actions and their results
// for one task. Insertion order is significant: it is replayed verbatim
// into future prompts. Owned exclusively by the step executor; no
// locking needed.
type History struct {
	entries []HistoryEntry
}

// NewHistory creates an empty history.
func NewHistory() *History { return &History{} }

// Append records one executed action.
func (h *History) Append(label string, result Result) {
	h.entries = append(h.entries, HistoryEntry{Label: label, Result: result})
}

// Len returns the number of recorded entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the recorded entries.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Render replays the history as prompt text. Output fields longer than
// byteCap are truncated with a marker so prompt growth stays bounded;
// the stored entries are never mutated.
func (h *History) Render(byteCap int) string {
	var sb strings.Builder
	for i, entry := range h.entries {
		fmt.Fprintf(&sb, "\nStep %d: %s, Result: %s",
			i+1, entry.Label, renderResult(entry.Result, byteCap))
	}
	return sb.String()
}

// renderResult serializes a result for prompt replay, truncating
// oversized stdout/stderr fields.
func renderResult(result Result, byteCap int) string {
	if result == nil {
		return "null"
	}
	trimmed := make(Result, len(result))
	for k, v := range result {
		trimmed[k] = v
	}
	for _, key := range []string{"stdout", "stderr"} {
		if s, ok := trimmed[key].(string); ok && byteCap > 0 && len(s) > byteCap {
			trimmed[key] = s[:byteCap] + truncationMarker
		}
	}
	data, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", trimmed)
	}
	return string(data)
}

// FormatCall renders an action invocation as a compact label for
// history and display, eliding long string values.
func FormatCall(name string, params map[string]string) string {
	if len(params) == 0 {
		return name + "()"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := params[k]
		if len(v) > 50 {
			v = v[:47] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s=%q", k, v))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}
