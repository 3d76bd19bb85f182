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

const subtaskResponse = `[
	{"title": "Create users table migration", "description": "Schema comes first"},
	{"title": "Add password hashing", "description": "Needed before storing credentials"},
	{"title": "Build login endpoint", "description": "Ties the pieces together"}
]`

func TestGenerateSubtasksSequentialDeadlines(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 2)

	task := models.Task{TeamID: team.ID, Title: "Build auth flow", Description: "Login endpoints", Status: models.TaskStatusTodo}
	require.NoError(t, db.Create(&task).Error)

	app := newTestApp(&users[0], team.ID)
	sgc := NewSubtaskGenerateController(db, &stubGen{response: subtaskResponse}, quietLogger())
	app.Post("/tasks/:taskId/generate-subtasks", sgc.GenerateSubtasks)

	req := httptest.NewRequest("POST", "/tasks/"+itoa(task.ID)+"/generate-subtasks", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var out struct {
		Created int `json:"created"`
		Failed  int `json:"failed"`
	}
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 3, out.Created)
	assert.Equal(t, 0, out.Failed)

	var subtasks []models.Subtask
	require.NoError(t, db.Where("task_id = ?", task.ID).Order("position").Find(&subtasks).Error)
	require.Len(t, subtasks, 3)

	for i, st := range subtasks {
		assert.Equal(t, models.TaskStatusTodo, st.Status)
		assert.Equal(t, "medium", st.Priority)
		assert.Equal(t, i, st.Position)
		require.NotNil(t, st.Deadline)
		require.NotNil(t, st.AssignedTo)
	}

	// Deadlines are strictly increasing under the sequential policy
	for i := 1; i < len(subtasks); i++ {
		assert.True(t, subtasks[i].Deadline.After(*subtasks[i-1].Deadline))
	}

	// Round-robin: 3 subtasks over 2 members means a 2/1 split
	counts := map[uint]int{}
	for _, st := range subtasks {
		counts[*st.AssignedTo]++
	}
	assert.Equal(t, 2, counts[users[0].ID])
	assert.Equal(t, 1, counts[users[1].ID])

	var audits int64
	db.Model(&models.SubtaskAssignment{}).Count(&audits)
	assert.EqualValues(t, 3, audits)
}

func TestGenerateSubtasksComplexityPerSubtask(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	// The parent task is plain; only the second subtask is complex
	task := models.Task{TeamID: team.ID, Title: "Update docs", Description: "Small edits", Status: models.TaskStatusTodo}
	require.NoError(t, db.Create(&task).Error)

	longDesc := strings.Repeat("x", 200)
	gen := &stubGen{response: `[
		{"title": "Fix typo", "description": "quick"},
		{"title": "Compare vendor options", "description": "` + longDesc + `"}
	]`}

	app := newTestApp(&users[0], team.ID)
	sgc := NewSubtaskGenerateController(db, gen, quietLogger())
	app.Post("/tasks/:taskId/generate-subtasks", sgc.GenerateSubtasks)

	resp, err := app.Test(httptest.NewRequest("POST", "/tasks/"+itoa(task.ID)+"/generate-subtasks", nil))
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var subtasks []models.Subtask
	require.NoError(t, db.Where("task_id = ?", task.ID).Order("position").Find(&subtasks).Error)
	require.Len(t, subtasks, 2)

	days := func(st models.Subtask) int {
		require.NotNil(t, st.Deadline)
		return int(time.Until(*st.Deadline).Hours()/24 + 0.5)
	}

	// Simple first subtask: 1 day. The long-description one uses the wider
	// stride for its own slot: 1 + 1*2 = 3 days.
	assert.Equal(t, 1, days(subtasks[0]))
	assert.Equal(t, 3, days(subtasks[1]))
}

func TestGenerateSubtasksRandomPolicyRange(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	task := models.Task{TeamID: team.ID, Title: "Ship the landing page", Status: models.TaskStatusTodo}
	require.NoError(t, db.Create(&task).Error)

	app := newTestApp(&users[0], team.ID)
	sgc := NewSubtaskGenerateController(db, &stubGen{response: subtaskResponse}, quietLogger())
	app.Post("/tasks/:taskId/generate-subtasks", sgc.GenerateSubtasks)

	req := httptest.NewRequest("POST", "/tasks/"+itoa(task.ID)+"/generate-subtasks",
		strings.NewReader(`{"deadline_policy": "random"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var subtasks []models.Subtask
	require.NoError(t, db.Where("task_id = ?", task.ID).Find(&subtasks).Error)
	require.Len(t, subtasks, 3)

	now := time.Now()
	for _, st := range subtasks {
		require.NotNil(t, st.Deadline)
		days := st.Deadline.Sub(now).Hours() / 24
		assert.GreaterOrEqual(t, days, 2.9)
		assert.LessOrEqual(t, days, 7.1)
	}
}

func TestGenerateSubtasksNoMembers(t *testing.T) {
	db := newTestDB(t)
	team, _ := seedTeam(t, db, 0)

	task := models.Task{TeamID: team.ID, Title: "Orphan task", Status: models.TaskStatusTodo}
	require.NoError(t, db.Create(&task).Error)

	outsider := models.User{Email: "outsider@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&outsider).Error)

	app := newTestApp(&outsider, team.ID)
	sgc := NewSubtaskGenerateController(db, &stubGen{response: subtaskResponse}, quietLogger())
	app.Post("/tasks/:taskId/generate-subtasks", sgc.GenerateSubtasks)

	resp, err := app.Test(httptest.NewRequest("POST", "/tasks/"+itoa(task.ID)+"/generate-subtasks", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var count int64
	db.Model(&models.Subtask{}).Count(&count)
	assert.EqualValues(t, 0, count, "no members means zero writes")
}

func TestGenerateSubtasksInvalidPolicy(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	task := models.Task{TeamID: team.ID, Title: "Any task", Status: models.TaskStatusTodo}
	require.NoError(t, db.Create(&task).Error)

	app := newTestApp(&users[0], team.ID)
	sgc := NewSubtaskGenerateController(db, &stubGen{response: subtaskResponse}, quietLogger())
	app.Post("/tasks/:taskId/generate-subtasks", sgc.GenerateSubtasks)

	req := httptest.NewRequest("POST", "/tasks/"+itoa(task.ID)+"/generate-subtasks",
		strings.NewReader(`{"deadline_policy": "whenever"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGenerateSubtasksTaskNotFound(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	app := newTestApp(&users[0], team.ID)
	sgc := NewSubtaskGenerateController(db, &stubGen{response: subtaskResponse}, quietLogger())
	app.Post("/tasks/:taskId/generate-subtasks", sgc.GenerateSubtasks)

	resp, err := app.Test(httptest.NewRequest("POST", "/tasks/99999/generate-subtasks", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
