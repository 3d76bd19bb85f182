package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain json untouched",
			in:   `[{"title": "a"}]`,
			want: `[{"title": "a"}]`,
		},
		{
			name: "json fence with language tag",
			in:   "```json\n[{\"title\": \"a\"}]\n```",
			want: `[{"title": "a"}]`,
		},
		{
			name: "bare fence",
			in:   "```\n[1, 2]\n```",
			want: `[1, 2]`,
		},
		{
			name: "leading whitespace",
			in:   "  \n```json\n[]\n```  ",
			want: `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare keys get quoted",
			in:   `[{title: "a", description: "b"}]`,
			want: `[{"title": "a", "description": "b"}]`,
		},
		{
			name: "single quotes become double quotes",
			in:   `[{'title': 'hello'}]`,
			want: `[{"title": "hello"}]`,
		},
		{
			name: "escaped single quote inside single-quoted string",
			in:   `['it\'s fine']`,
			want: `["it's fine"]`,
		},
		{
			name: "double quote inside single-quoted string is escaped",
			in:   `['say "hi"']`,
			want: `["say \"hi\""]`,
		},
		{
			name: "trailing commas removed",
			in:   `[{"a": 1,}, ]`,
			want: `[{"a": 1} ]`,
		},
		{
			name: "already valid json unchanged",
			in:   `[{"title": "a"}]`,
			want: `[{"title": "a"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Repair(tt.in))
		})
	}
}

func TestRepairIdempotent(t *testing.T) {
	inputs := []string{
		`[{title: 'a', estimated_days: 3,}]`,
		"```json\n[{\"title\": \"x\"}]\n```",
		`[{"title": "clean"}]`,
	}
	for _, in := range inputs {
		once := Repair(in)
		assert.Equal(t, once, Repair(once), "repair must be stable on its own output")
	}
}

func TestDecodeArrayIgnoresSurroundingProse(t *testing.T) {
	var out []map[string]string
	err := DecodeArray(`Here are your tasks:
[{"title": "Set up repo"}]
Let me know if you need more.`, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Set up repo", out[0]["title"])
}

func TestDecodeArrayNoArray(t *testing.T) {
	var out []map[string]string
	err := DecodeArray(`I could not produce any tasks, sorry.`, &out)
	assert.Error(t, err)
}

func TestParseTasks(t *testing.T) {
	raw := "```json\n" + `[
		{title: 'Set up project scaffolding', description: 'Initialize the repo', estimated_days: 2},
		{title: 'Build auth flow', description: 'Login and registration', estimated_days: 5},
	]` + "\n```"

	tasks, err := ParseTasks(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Set up project scaffolding", tasks[0].Title)
	assert.Equal(t, 2, tasks[0].EstimatedDays)
	assert.Equal(t, "Build auth flow", tasks[1].Title)
}

func TestParseTasksAllOrNothing(t *testing.T) {
	// Second element is irreparably broken, so the whole batch fails
	_, err := ParseTasks(`[{"title": "ok"}, {"title": `)
	assert.Error(t, err)
}

func TestParseTasksEmpty(t *testing.T) {
	_, err := ParseTasks(`[]`)
	assert.Error(t, err)
}

func TestParseSubtasks(t *testing.T) {
	subtasks, err := ParseSubtasks(`[
		{"title": "Write migration", "description": "Schema for users"},
		{"title": "Add endpoint", "description": "POST handler"}
	]`)
	require.NoError(t, err)
	require.Len(t, subtasks, 2)
	assert.Equal(t, "Write migration", subtasks[0].Title)
}

func TestExtractSuggestionsTrailingBlock(t *testing.T) {
	full := `I recommend Redis for caching because your API is read-heavy.

SUGGESTIONS: [{"category": "backend", "field": "database", "value": "redis", "name": "Redis"}]`

	suggestions, clean := ExtractSuggestions(full)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "backend", suggestions[0].Category)
	assert.Equal(t, "database", suggestions[0].Field)
	assert.Equal(t, "redis", suggestions[0].Value)
	assert.NotContains(t, clean, "SUGGESTIONS")
	assert.Contains(t, clean, "Redis for caching")
}

func TestExtractSuggestionsSingleQuoted(t *testing.T) {
	full := "Here is my advice.\n\nSUGGESTIONS: " +
		`[{'category': 'frontend', 'field': 'framework', 'value': 'react'}]`

	suggestions, _ := ExtractSuggestions(full)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "frontend", suggestions[0].Category)
	assert.Equal(t, "react", suggestions[0].Value)
}

func TestExtractSuggestionsDropsIncomplete(t *testing.T) {
	full := `SUGGESTIONS: [
		{"category": "backend", "field": "database", "value": "postgresql"},
		{"category": "backend", "field": "database"},
		{"field": "framework", "value": "express"}
	]`

	suggestions, _ := ExtractSuggestions(full)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "postgresql", suggestions[0].Value)
}

func TestExtractSuggestionsStackAddFallback(t *testing.T) {
	full := `You should add monitoring.
STACK_ADD: {"category": "devops", "field": "monitoring", "value": "grafana"}
And a CDN too.
STACK_ADD: {"category": "cloud", "field": "cdn", "value": "cloudflare"}`

	suggestions, clean := ExtractSuggestions(full)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "grafana", suggestions[0].Value)
	assert.Equal(t, "cloudflare", suggestions[1].Value)
	assert.NotContains(t, clean, "STACK_ADD")
}

func TestExtractSuggestionsEmptyBlockFallsBackToStackAdd(t *testing.T) {
	full := `Your stack looks solid already.

SUGGESTIONS: []

STACK_ADD: {"category": "backend", "field": "database", "value": "redis"}`

	suggestions, clean := ExtractSuggestions(full)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "redis", suggestions[0].Value)
	assert.NotContains(t, clean, "SUGGESTIONS")
	assert.NotContains(t, clean, "STACK_ADD")
	assert.Contains(t, clean, "solid already")
}

func TestExtractSuggestionsNone(t *testing.T) {
	suggestions, clean := ExtractSuggestions("Just a plain answer with no structured block.")
	assert.Empty(t, suggestions)
	assert.Equal(t, "Just a plain answer with no structured block.", clean)
}

func TestRepairedOutputDecodesStrictly(t *testing.T) {
	// A messy but representative model response survives the full pipeline
	raw := "```json\n" + `[
		{title: 'Design database schema', description: 'Model teams and tasks', estimated_days: 3,},
	]` + "\n```"

	var generic []json.RawMessage
	require.NoError(t, DecodeArray(raw, &generic))
	require.Len(t, generic, 1)
}
