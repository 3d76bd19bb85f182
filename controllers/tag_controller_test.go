package controller

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforge/models"
)

func TestTagTaskStoresInferredTags(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	task := models.Task{TeamID: team.ID, Title: "Set up database tables", Status: models.TaskStatusTodo}
	require.NoError(t, db.Create(&task).Error)

	app := newTestApp(&users[0], team.ID)
	tgc := NewTagController(db, &stubGen{response: `["Database", "Backend"]`}, quietLogger())
	app.Post("/tasks/:taskId/auto-tag", tgc.TagTask)

	resp, err := app.Test(httptest.NewRequest("POST", "/tasks/"+itoa(task.ID)+"/auto-tag", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	require.NoError(t, db.First(&task, task.ID).Error)
	assert.Equal(t, []string{"Database", "Backend"}, task.Tags)
}

func TestAutoTagTasksRetagsEveryTask(t *testing.T) {
	db := newTestDB(t)
	team, users := seedTeam(t, db, 1)

	// One task already tagged, one bare: the bulk pass replaces both
	tagged := models.Task{TeamID: team.ID, Title: "Style the board", Status: models.TaskStatusTodo, Position: 0, Tags: []string{"Design"}}
	bare := models.Task{TeamID: team.ID, Title: "Add login endpoint", Status: models.TaskStatusTodo, Position: 1}
	require.NoError(t, db.Create(&tagged).Error)
	require.NoError(t, db.Create(&bare).Error)

	app := newTestApp(&users[0], team.ID)
	tgc := NewTagController(db, &stubGen{response: `["Backend"]`}, quietLogger())
	app.Put("/auto-tag-tasks", tgc.AutoTagTasks)

	resp, err := app.Test(httptest.NewRequest("PUT", "/auto-tag-tasks", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var out struct {
		Tagged int `json:"tagged"`
		Failed int `json:"failed"`
		Total  int `json:"total"`
	}
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Tagged)
	assert.Equal(t, 0, out.Failed)
	assert.Equal(t, 2, out.Total)

	require.NoError(t, db.First(&tagged, tagged.ID).Error)
	require.NoError(t, db.First(&bare, bare.ID).Error)
	assert.Equal(t, []string{"Backend"}, tagged.Tags, "existing tags are replaced")
	assert.Equal(t, []string{"Backend"}, bare.Tags)
}
