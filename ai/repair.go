package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Model output is usually JSON but not reliably so: fenced code blocks,
// JS-style object literals with bare keys, single quotes and trailing commas
// all show up. Repair normalizes those in a fixed order and then hands the
// text to the strict parser. Parsing is all-or-nothing per payload: if the
// repaired text still fails to decode there is no partial result.

var (
	fenceOpenRe    = regexp.MustCompile("^```[a-zA-Z0-9]*\n?")
	fenceCloseRe   = regexp.MustCompile("```\\s*$")
	bareKeyRe      = regexp.MustCompile(`([,{\[\s])([a-zA-Z0-9_]+)\s*:`)
	singleQuoteRe  = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)
	trailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
	suggestionsRe  = regexp.MustCompile(`(?s)SUGGESTIONS:\s*(\[.*?\])(?:\s*\n|\s*$)`)
	stackAddRe     = regexp.MustCompile(`(?s)STACK_ADD:\s*(\{.*?\})`)
	fenceAnywhere  = regexp.MustCompile("```[a-zA-Z]*\n?")
)

// StripCodeFence removes a fenced code-block wrapper when the text is fully
// wrapped in one, tolerating an optional language tag on the opening line.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Repair applies the full ordered repair pipeline to near-JSON text:
// fence stripping, bare-key quoting, single-to-double quote conversion and
// trailing-comma removal.
func Repair(text string) string {
	s := StripCodeFence(text)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = singleQuoteRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[1 : len(m)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `\"`, `"`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
	s = trailingComma.ReplaceAllString(s, "$1")
	return s
}

// isolateArray slices the text between the first '[' and the last ']'.
func isolateArray(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// DecodeArray repairs the text and strictly unmarshals it into dst, which
// must be a pointer to a slice. The payload is isolated between the first
// '[' and the last ']' so surrounding prose does not break the parse.
func DecodeArray(text string, dst interface{}) error {
	repaired := Repair(text)
	payload, ok := isolateArray(repaired)
	if !ok {
		return errors.New("no JSON array found in response")
	}
	return json.Unmarshal([]byte(payload), dst)
}

// GeneratedTask is one element of the model's task decomposition output.
type GeneratedTask struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	EstimatedDays int    `json:"estimated_days"`
}

// ParseTasks recovers the task list from raw model output.
func ParseTasks(text string) ([]GeneratedTask, error) {
	var tasks []GeneratedTask
	if err := DecodeArray(text, &tasks); err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, errors.New("empty task list returned")
	}
	return tasks, nil
}

// GeneratedSubtask is one element of the model's subtask output.
type GeneratedSubtask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ParseSubtasks recovers the subtask list from raw model output.
func ParseSubtasks(text string) ([]GeneratedSubtask, error) {
	var subtasks []GeneratedSubtask
	if err := DecodeArray(text, &subtasks); err != nil {
		return nil, err
	}
	if len(subtasks) == 0 {
		return nil, errors.New("empty subtask list returned")
	}
	return subtasks, nil
}

// StackSuggestion is one structured stack recommendation extracted from the
// chat stream's trailing SUGGESTIONS block or inline STACK_ADD markers.
type StackSuggestion struct {
	Category  string `json:"category"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	Name      string `json:"name,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// ExtractSuggestions scans a complete chat response for a trailing
// SUGGESTIONS array. Inline STACK_ADD markers are the fallback whenever the
// primary block is absent or yields nothing. Entries missing category, field
// or value are dropped silently. The second return value is the response
// text with the structured blocks stripped out.
func ExtractSuggestions(full string) ([]StackSuggestion, string) {
	clean := full

	if m := suggestionsRe.FindStringSubmatch(full); m != nil {
		raw := strings.TrimSpace(m[1])
		if strings.Contains(raw, "```") {
			raw = fenceAnywhere.ReplaceAllString(raw, "")
			raw = strings.ReplaceAll(raw, "```", "")
		}
		clean = strings.TrimSpace(strings.Replace(full, m[0], "", 1))
		if payload, ok := isolateArray(raw); ok {
			var parsed []StackSuggestion
			if err := json.Unmarshal([]byte(Repair(payload)), &parsed); err == nil {
				if got := filterComplete(parsed); len(got) > 0 {
					return got, clean
				}
			}
		}
	}

	suggestions := []StackSuggestion{}
	for _, m := range stackAddRe.FindAllStringSubmatch(clean, -1) {
		var parsed StackSuggestion
		if err := json.Unmarshal([]byte(Repair(m[1])), &parsed); err == nil {
			suggestions = append(suggestions, parsed)
		}
	}
	clean = strings.TrimSpace(stackAddRe.ReplaceAllString(clean, ""))
	return filterComplete(suggestions), clean
}

func filterComplete(in []StackSuggestion) []StackSuggestion {
	out := make([]StackSuggestion, 0, len(in))
	for _, s := range in {
		if s.Category != "" && s.Field != "" && s.Value != "" {
			out = append(out, s)
		}
	}
	return out
}
