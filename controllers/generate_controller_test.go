package controller

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforge/models"
)

func parseEvents(t *testing.T, body string) []progressEvent {
	t.Helper()

	var events []progressEvent
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		require.True(t, strings.HasPrefix(frame, "data: "), "unexpected frame: %q", frame)
		var ev progressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestGenerateTasksStreamsProgress(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 2)

	gen := &stubGen{response: `[
		{"title": "Set up PostgreSQL schema (Backend Team)", "description": "Define core tables", "estimated_days": 3},
		{"title": "Create login form in React (Frontend Team)", "description": "Email and password inputs", "estimated_days": 2}
	]`}

	app := newTestApp(&users[0], team.ID)
	gc := NewGenerateController(db, gen, quietLogger())
	app.Post("/generate", gc.GenerateTasks)

	req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{"goal": "Launch an online bakery"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	events := parseEvents(t, string(body))

	// Phases arrive in pipeline order
	var statuses []string
	for _, ev := range events {
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []string{
		"generating", "parsing", "creating",
		"creating_task", "task_created",
		"creating_task", "task_created",
		"complete",
	}, statuses)

	// The creating frame announces the batch size, complete the tally plus
	// the full list of persisted tasks
	assert.Equal(t, 2, events[2].Total)
	final := events[len(events)-1]
	assert.Equal(t, 2, final.Count)
	require.Len(t, final.Tasks, 2)
	assert.Equal(t, "Set up PostgreSQL schema (Backend Team)", final.Tasks[0].Title)
	assert.Equal(t, "Create login form in React (Frontend Team)", final.Tasks[1].Title)
	assert.NotZero(t, final.Tasks[0].ID)

	// task_created frames carry the persisted record
	require.NotNil(t, events[4].Task)
	assert.NotZero(t, events[4].Task.ID)
	assert.Equal(t, "Set up PostgreSQL schema (Backend Team)", events[4].Task.Title)

	var tasks []models.Task
	require.NoError(t, db.Where("team_id = ?", team.ID).Order("position").Find(&tasks).Error)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.TaskStatusTodo, tasks[0].Status)
	assert.Equal(t, 0, tasks[0].Position)
	assert.Equal(t, 1, tasks[1].Position)
	require.NotNil(t, tasks[0].Deadline)
	assert.NotEmpty(t, tasks[0].Tags)

	// First deadline is 7 days out
	days := int(time.Until(*tasks[0].Deadline).Hours()/24 + 0.5)
	assert.Equal(t, 7, days)

	// The goal is recorded as processed
	var goal models.TeamGoal
	require.NoError(t, db.Where("team_id = ?", team.ID).First(&goal).Error)
	assert.Equal(t, "Launch an online bakery", goal.GoalText)
	assert.True(t, goal.IsProcessed)
	assert.Equal(t, users[0].ID, goal.CreatedBy)
}

func TestGenerateTasksModelFailure(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	gen := &stubGen{err: assert.AnError}

	app := newTestApp(&users[0], team.ID)
	gc := NewGenerateController(db, gen, quietLogger())
	app.Post("/generate", gc.GenerateTasks)

	req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{"goal": "Anything at all"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	events := parseEvents(t, string(body))
	require.NotEmpty(t, events)
	assert.Equal(t, "error", events[len(events)-1].Status)

	// Terminal failure: no tasks, no goal record
	var count int64
	db.Model(&models.Task{}).Count(&count)
	assert.EqualValues(t, 0, count)
	db.Model(&models.TeamGoal{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestGenerateTasksUnparseableResponse(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	gen := &stubGen{response: "I'm sorry, I cannot help with that."}

	app := newTestApp(&users[0], team.ID)
	gc := NewGenerateController(db, gen, quietLogger())
	app.Post("/generate", gc.GenerateTasks)

	req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{"goal": "Launch an online bakery"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	events := parseEvents(t, string(body))
	assert.Equal(t, "error", events[len(events)-1].Status)

	var count int64
	db.Model(&models.Task{}).Count(&count)
	assert.EqualValues(t, 0, count, "parse failure creates nothing")
}

func TestGenerateTasksRejectsEmptyGoal(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	app := newTestApp(&users[0], team.ID)
	gc := NewGenerateController(db, &stubGen{}, quietLogger())
	app.Post("/generate", gc.GenerateTasks)

	req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{"goal": ""}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
