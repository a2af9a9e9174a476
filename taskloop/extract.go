package taskloop

import "strings"

// Decision is the parsed intent of one model reply: a free-text
// rationale, an optional action name (empty meaning no action), the
// action parameters, and the completion flag.
type Decision struct {
	Thought      string
	Action       string
	Parameters   map[string]string
	TaskComplete bool
}

// Valid reports whether the decision carries anything actionable: a
// non-empty action name or an explicit completion flag.
func (d Decision) Valid() bool {
	return d.Action != "" || d.TaskComplete
}

const defaultThought = "No thought provided"

// ExtractDecision parses a model reply expected to carry up to four
// tag-delimited regions: <thought>, <function>, <parameters> and
// <task_complete>. The tag convention is chosen over a strict
// structured format because free-form content (code, quotes, shell
// text) needs no escaping inside it.
//
// Extraction is total: any input, including empty text, text with no
// tags, or unterminated tags, yields a Decision without error. Missing
// regions take their defaults (placeholder thought, no action,
// completion false); an unterminated region counts as missing. The
// action name "null" (case-insensitive) normalizes to no action, and
// completion is true only for the exact token "true" (case-insensitive).
func ExtractDecision(text string) Decision {
	d := Decision{
		Thought:    defaultThought,
		Parameters: map[string]string{},
	}

	if thought, ok := scanRegion(text, "thought"); ok && thought != "" {
		d.Thought = thought
	}

	if fn, ok := scanRegion(text, "function"); ok {
		if !strings.EqualFold(fn, "null") {
			d.Action = fn
		}
	}

	if complete, ok := scanRegion(text, "task_complete"); ok {
		d.TaskComplete = strings.EqualFold(complete, "true")
	}

	if block, ok := scanRegion(text, "parameters"); ok && d.Action != "" {
		if isFileContentAction(d.Action) {
			d.Parameters = parseFileParams(block)
		} else {
			d.Parameters = parseKeyValueParams(block)
		}
	}

	return d
}

// scanRegion locates the first <tag>...</tag> region and returns its
// trimmed content. An absent or unterminated region reports ok=false.
func scanRegion(text, tag string) (string, bool) {
	open := "<" + tag + ">"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, "</"+tag+">")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// isFileContentAction reports whether the action carries a file payload
// and therefore uses the path/content parameter policy.
func isFileContentAction(action string) bool {
	return strings.Contains(action, "write_file") || strings.Contains(action, "append_to_file")
}

// parseFileParams extracts exactly a target path and a payload. The
// payload is everything from its marker to the next top-level field
// marker or the end of the block, preserving embedded newlines. One
// leading newline is stripped so "content:\ncode..." yields the code
// without an empty first line.
func parseFileParams(block string) map[string]string {
	params := map[string]string{
		"path":    "unknown_path.txt",
		"content": "",
	}

	if i := indexFieldMarker(block, "path"); i >= 0 {
		line := block[i:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		params["path"] = strings.TrimSpace(strings.TrimPrefix(line, "path:"))
	}

	if i := indexFieldMarker(block, "content"); i >= 0 {
		raw := block[i+len("content:"):]
		if j := nextFieldMarker(raw); j >= 0 {
			raw = raw[:j]
		}
		raw = strings.TrimRight(raw, " \t\r\n")
		raw = strings.TrimLeft(raw, " \t")
		if strings.HasPrefix(raw, "\r\n") {
			raw = raw[2:]
		} else if strings.HasPrefix(raw, "\n") {
			raw = raw[1:]
		}
		params["content"] = raw
	}

	return params
}

// indexFieldMarker finds "name:" at the start of the block or of a line.
func indexFieldMarker(block, name string) int {
	marker := name + ":"
	if strings.HasPrefix(block, marker) {
		return 0
	}
	if i := strings.Index(block, "\n"+marker); i >= 0 {
		return i + 1
	}
	return -1
}

// nextFieldMarker returns the offset of the next newline followed by a
// bare word and a colon, or -1. This is the top-level field boundary
// used to bound a content payload.
func nextFieldMarker(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(s) && isWordByte(s[j]) {
			j++
		}
		if j > i+1 && j < len(s) && s[j] == ':' {
			return i
		}
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// parseKeyValueParams splits each non-blank line containing a separator
// once into a key and a trimmed value.
func parseKeyValueParams(block string) map[string]string {
	params := map[string]string{}
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params
}
