package controller

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseFrame struct {
	event string
	data  string
}

func parseSSEFrames(t *testing.T, body string) []sseFrame {
	t.Helper()

	var frames []sseFrame
	for _, raw := range strings.Split(body, "\n\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		lines := strings.SplitN(raw, "\n", 2)
		require.Len(t, lines, 2, "unexpected frame: %q", raw)
		frames = append(frames, sseFrame{
			event: strings.TrimPrefix(lines[0], "event: "),
			data:  strings.TrimPrefix(lines[1], "data: "),
		})
	}
	return frames
}

func TestChatStreamsChunksAndSuggestions(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	gen := &stubGen{response: `PostgreSQL fits your needs well.

SUGGESTIONS: [{"category": "backend", "field": "database", "value": "postgresql", "name": "PostgreSQL"}]`}

	app := newTestApp(&users[0], team.ID)
	cc := NewChatController(db, gen, quietLogger())
	app.Post("/chat", cc.Chat)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "Which database should we pick?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	frames := parseSSEFrames(t, string(body))
	require.NotEmpty(t, frames)

	assert.Equal(t, "chunk", frames[0].event)
	assert.Contains(t, frames[0].data, "PostgreSQL fits")

	var events []string
	for _, f := range frames {
		events = append(events, f.event)
	}
	assert.Contains(t, events, "suggestions")
	assert.Equal(t, "done", events[len(events)-1])

	for _, f := range frames {
		if f.event == "suggestions" {
			assert.Contains(t, f.data, `"value":"postgresql"`)
		}
	}

	// done carries the response with the structured block stripped
	done := frames[len(frames)-1]
	assert.Contains(t, done.data, "PostgreSQL fits your needs well.")
	assert.NotContains(t, done.data, "SUGGESTIONS")
}

func TestChatWithoutSuggestionsEmitsEmptyList(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	gen := &stubGen{response: "Could you tell me more about your project first?"}

	app := newTestApp(&users[0], team.ID)
	cc := NewChatController(db, gen, quietLogger())
	app.Post("/chat", cc.Chat)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "Help me choose a stack"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	frames := parseSSEFrames(t, string(body))
	require.GreaterOrEqual(t, len(frames), 3)

	// The suggestions event still arrives, just with an empty list
	suggestionsFrame := frames[len(frames)-2]
	assert.Equal(t, "suggestions", suggestionsFrame.event)
	assert.Contains(t, suggestionsFrame.data, `"suggestions":[]`)

	done := frames[len(frames)-1]
	assert.Equal(t, "done", done.event)
	assert.Contains(t, done.data, "Could you tell me more about your project first?")
}

func TestChatModelFailureEmitsError(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	app := newTestApp(&users[0], team.ID)
	cc := NewChatController(db, &stubGen{err: assert.AnError}, quietLogger())
	app.Post("/chat", cc.Chat)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "hello"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	frames := parseSSEFrames(t, string(body))
	require.NotEmpty(t, frames)
	assert.Equal(t, "error", frames[len(frames)-1].event)
}

func TestApplySuggestionsPatchesStack(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	app := newTestApp(&users[0], team.ID)
	cc := NewChatController(db, &stubGen{}, quietLogger())
	app.Post("/suggestions", cc.ApplySuggestions)

	req := httptest.NewRequest("POST", "/suggestions", strings.NewReader(`{
		"suggestions": [
			{"category": "backend", "field": "database", "value": "postgresql"},
			{"category": "frontend", "field": "framework", "value": "nextjs"},
			{"category": "nonsense", "field": "x", "value": "y"}
		]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	reloaded := team
	require.NoError(t, db.First(reloaded, team.ID).Error)
	require.NotNil(t, reloaded.TechStack)
	require.NotNil(t, reloaded.TechStack.Backend)
	assert.Equal(t, "postgresql", reloaded.TechStack.Backend.Database)
	require.NotNil(t, reloaded.TechStack.Frontend)
	assert.Equal(t, "nextjs", reloaded.TechStack.Frontend.Framework)
}
